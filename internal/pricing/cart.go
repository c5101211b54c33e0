package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/money"
)

// Catalog is a read-only tier snapshot supplied by the caller. The
// engine never reaches for shared mutable state; identical selections
// against an identical catalog always price identically.
type Catalog interface {
	TierByID(id int64) (*domain.TicketTier, bool)
}

// MapCatalog adapts an in-memory tier set to the Catalog interface.
type MapCatalog map[int64]*domain.TicketTier

func (m MapCatalog) TierByID(id int64) (*domain.TicketTier, bool) {
	t, ok := m[id]
	return t, ok
}

type LineItem struct {
	TierID    int64                    `json:"tier_id"`
	TierName  string                   `json:"tier_name"`
	Quantity  int64                    `json:"quantity"`
	UnitPrice money.Amount             `json:"unit_price"`
	LineTotal money.Amount             `json:"line_total"`
	GroupRule *domain.GroupPricingRule `json:"-"`
}

type CartBreakdown struct {
	Currency           money.Code   `json:"currency"`
	Lines              []LineItem   `json:"lines"`
	Subtotal           money.Amount `json:"subtotal"`
	DiscountAmount     money.Amount `json:"discount_amount"`
	DiscountedSubtotal money.Amount `json:"discounted_subtotal"`
	PlatformFee        money.Amount `json:"platform_fee"`
	ProcessorFee       money.Amount `json:"processor_fee"`
	Total              money.Amount `json:"total"`
	Discount           *Discount    `json:"-"`
}

// ValidateSelection checks one tier selection against the tier's order
// limits, sales window, visibility and availability cap.
func ValidateSelection(tier *domain.TicketTier, qty int64, now time.Time) error {
	const op = "pricing.ValidateSelection"

	if tier.Hidden {
		return fmt.Errorf("%s: %w", op, ErrTierNotOnSale)
	}

	if tier.SalesStart != nil && now.Before(*tier.SalesStart) {
		return fmt.Errorf("%s: %w", op, ErrTierNotOnSale)
	}

	if tier.SalesEnd != nil && now.After(*tier.SalesEnd) {
		return fmt.Errorf("%s: %w", op, ErrTierNotOnSale)
	}

	if qty <= 0 {
		return fmt.Errorf("%s: %w", op, ErrQuantityOutOfBounds)
	}

	if tier.MinPerOrder > 0 && qty < tier.MinPerOrder {
		return fmt.Errorf("%s: %w", op, ErrQuantityOutOfBounds)
	}

	if tier.MaxPerOrder > 0 && qty > tier.MaxPerOrder {
		return fmt.Errorf("%s: %w", op, ErrQuantityOutOfBounds)
	}

	if tier.QuantityAvailable != nil && tier.QuantitySold+qty > *tier.QuantityAvailable {
		return fmt.Errorf("%s: %w", op, ErrTierSoldOut)
	}

	return nil
}

// ComputeCartTotal prices a cart. The pipeline order is fixed so that a
// quoted total and the later charged total are always identical:
//
//  1. per-tier line subtotals via group pricing, summed to the subtotal;
//  2. discount code applied against the (matching-tier) subtotal;
//  3. platform and processor fees on the discounted subtotal;
//  4. total = discounted subtotal + platform fee + processor fee.
//
// A fully discounted cart carries zero fees and a zero total; such
// orders are captured without invoking the payment processor. code may
// be nil when no promo code was supplied.
func ComputeCartTotal(
	selection domain.CartSelection,
	catalog Catalog,
	code *domain.DiscountCode,
	fees FeePolicy,
	now time.Time,
) (*CartBreakdown, error) {
	const op = "pricing.ComputeCartTotal"

	if len(selection) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyCart)
	}

	tierIDs := make([]int64, 0, len(selection))
	for id := range selection {
		tierIDs = append(tierIDs, id)
	}
	sort.Slice(tierIDs, func(i, j int) bool { return tierIDs[i] < tierIDs[j] })

	var (
		currency        money.Code
		lines           []LineItem
		perTierSubtotal = make(map[int64]money.Amount, len(selection))
	)

	for _, tierID := range tierIDs {
		qty := selection[tierID]

		tier, ok := catalog.TierByID(tierID)
		if !ok {
			return nil, fmt.Errorf("%s: tier %d: %w", op, tierID, ErrTierNotFound)
		}

		if err := ValidateSelection(tier, qty, now); err != nil {
			return nil, fmt.Errorf("%s: tier %d: %w", op, tierID, err)
		}

		if currency == "" {
			currency = tier.Price.Currency
		} else if tier.Price.Currency != currency {
			return nil, fmt.Errorf("%s: tier %d: %w", op, tierID, money.ErrCurrencyMismatch)
		}

		unit := EffectiveUnitPrice(tier, qty)
		line := unit.MulQty(qty)

		lines = append(lines, LineItem{
			TierID:    tierID,
			TierName:  tier.Name,
			Quantity:  qty,
			UnitPrice: unit,
			LineTotal: line,
			GroupRule: ResolveGroupRule(tier, qty),
		})
		perTierSubtotal[tierID] = line
	}

	subtotal := money.Zero(currency)
	for _, line := range lines {
		subtotal.MinorUnits += line.LineTotal.MinorUnits
	}

	discount := money.Zero(currency)
	var applied *Discount
	if code != nil {
		d, err := ValidateDiscountCode(code, selection, subtotal, now)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		applied = d
		discount = discountAmount(code, discountableSubtotal(code, perTierSubtotal, subtotal))
	}

	discounted, err := subtotal.Sub(discount)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	breakdown := ComputeBreakdown(discounted, fees)

	return &CartBreakdown{
		Currency:           currency,
		Lines:              lines,
		Subtotal:           subtotal,
		DiscountAmount:     discount,
		DiscountedSubtotal: discounted,
		PlatformFee:        breakdown.PlatformFee,
		ProcessorFee:       breakdown.ProcessorFee,
		Total:              breakdown.TotalCharged,
		Discount:           applied,
	}, nil
}
