package pricing

import (
	"time"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/money"
)

// Shared fixtures for the pricing tests.

var testNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

var testFees = FeePolicy{PlatformFeeBps: 500} // 5%, no processor fee

func i64(v int64) *int64 { return &v }

func usd(minor int64) money.Amount {
	return money.Amount{MinorUnits: minor, Currency: money.USD}
}

func jpy(minor int64) money.Amount {
	return money.Amount{MinorUnits: minor, Currency: money.JPY}
}

func testTier(id int64, price money.Amount, rules ...domain.GroupPricingRule) *domain.TicketTier {
	return &domain.TicketTier{
		ID:          id,
		EventID:     1,
		Name:        "General Admission",
		Price:       price,
		MinPerOrder: 1,
		MaxPerOrder: 50,
		GroupRules:  rules,
	}
}

func rule(tierID, minQty, pct int64) domain.GroupPricingRule {
	return domain.GroupPricingRule{TierID: tierID, MinQuantity: minQty, DiscountPercent: pct}
}

func save10() *domain.DiscountCode {
	return &domain.DiscountCode{
		ID:        7,
		EventID:   1,
		Code:      "SAVE10",
		Type:      domain.DiscountPercentage,
		Value:     10,
		ValidFrom: testNow.Add(-24 * time.Hour),
	}
}
