package httpgin

import (
	"errors"
	"time"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/money"
	"github.com/communahq/communa/internal/pricing"
)

type CartItemInput struct {
	TierID   int64 `json:"tier_id" binding:"required"`
	Quantity int64 `json:"quantity" binding:"required,gt=0"`
}

type QuoteRequest struct {
	EventID int64           `json:"event_id" binding:"required"`
	Items   []CartItemInput `json:"items" binding:"required,min=1,dive"`
	Code    string          `json:"code"`
}

type CreateOrderRequest struct {
	UserID  int64           `json:"user_id" binding:"required"`
	EventID int64           `json:"event_id" binding:"required"`
	Items   []CartItemInput `json:"items" binding:"required,min=1,dive"`
	Code    string          `json:"code"`
}

type RefundRequest struct {
	AmountMinor *int64 `json:"amount_minor"` // nil = full refund
	Reason      string `json:"reason"`
}

type ModifyOrderRequest struct {
	NewTierID int64 `json:"new_tier_id" binding:"required"`
}

type CreateEventRequest struct {
	Title    string `json:"title" binding:"required"`
	Currency string `json:"currency" binding:"required"`
	StartsAt string `json:"starts_at" binding:"required"`
	EndsAt   string `json:"ends_at" binding:"required"`
}

type CreateTierRequest struct {
	Name              string  `json:"name" binding:"required"`
	PriceMinor        int64   `json:"price_minor" binding:"min=0"`
	Currency          string  `json:"currency" binding:"required"`
	QuantityAvailable *int64  `json:"quantity_available"`
	MinPerOrder       int64   `json:"min_per_order"`
	MaxPerOrder       int64   `json:"max_per_order"`
	SalesStart        *string `json:"sales_start"`
	SalesEnd          *string `json:"sales_end"`
	Hidden            bool    `json:"hidden"`
}

type AddGroupRuleRequest struct {
	MinQuantity     int64 `json:"min_quantity" binding:"required"`
	DiscountPercent int64 `json:"discount_percent" binding:"required"`
}

type CreateDiscountRequest struct {
	Code              string  `json:"code" binding:"required"`
	Type              string  `json:"type" binding:"required,oneof=percentage fixed"`
	Value             int64   `json:"value" binding:"required,gt=0"`
	UsageLimit        *int64  `json:"usage_limit"`
	ValidFrom         string  `json:"valid_from" binding:"required"`
	ValidUntil        *string `json:"valid_until"`
	MinimumPurchase   *int64  `json:"minimum_purchase_minor"`
	ApplicableTierIDs []int64 `json:"applicable_tier_ids"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type QuoteResponse struct {
	*pricing.CartBreakdown
	AppliedCode string `json:"applied_code,omitempty"`
}

type EventResponse struct {
	ID       int64      `json:"id"`
	Title    string     `json:"title"`
	Currency money.Code `json:"currency"`
	StartsAt time.Time  `json:"starts_at"`
	EndsAt   time.Time  `json:"ends_at"`
}

type GroupRuleResponse struct {
	ID              int64 `json:"id"`
	MinQuantity     int64 `json:"min_quantity"`
	DiscountPercent int64 `json:"discount_percent"`
}

type TierResponse struct {
	ID                int64               `json:"id"`
	EventID           int64               `json:"event_id"`
	Name              string              `json:"name"`
	Price             money.Amount        `json:"price"`
	QuantityAvailable *int64              `json:"quantity_available,omitempty"`
	QuantitySold      int64               `json:"quantity_sold"`
	MinPerOrder       int64               `json:"min_per_order,omitempty"`
	MaxPerOrder       int64               `json:"max_per_order,omitempty"`
	SalesStart        *time.Time          `json:"sales_start,omitempty"`
	SalesEnd          *time.Time          `json:"sales_end,omitempty"`
	Hidden            bool                `json:"hidden,omitempty"`
	GroupRules        []GroupRuleResponse `json:"group_rules,omitempty"`
}

type OrderItemResponse struct {
	TierID    int64        `json:"tier_id"`
	Quantity  int64        `json:"quantity"`
	UnitPrice money.Amount `json:"unit_price"`
	LineTotal money.Amount `json:"line_total"`
}

type OrderResponse struct {
	ID             string              `json:"id"`
	EventID        int64               `json:"event_id"`
	UserID         int64               `json:"user_id"`
	Currency       money.Code          `json:"currency"`
	Subtotal       money.Amount        `json:"subtotal"`
	DiscountAmount money.Amount        `json:"discount_amount"`
	TicketPrice    money.Amount        `json:"ticket_price"`
	PlatformFee    money.Amount        `json:"platform_fee"`
	ProcessorFee   money.Amount        `json:"processor_fee"`
	Amount         money.Amount        `json:"amount"`
	TotalCharged   money.Amount        `json:"total_charged"`
	Payout         money.Amount        `json:"payout"`
	Status         domain.OrderStatus  `json:"status"`
	Items          []OrderItemResponse `json:"items"`
	CreatedAt      time.Time           `json:"created_at"`
}

type RefundResponse struct {
	ID            string              `json:"id"`
	OrderID       string              `json:"order_id"`
	Amount        money.Amount        `json:"amount"`
	TicketPortion money.Amount        `json:"ticket_portion"`
	FeePortion    money.Amount        `json:"fee_portion"`
	Reason        string              `json:"reason,omitempty"`
	Status        domain.RefundStatus `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
}

type ModificationResponse struct {
	ID              string                  `json:"id"`
	OrderID         string                  `json:"order_id"`
	Type            domain.ModificationType `json:"type"`
	OldTierID       int64                   `json:"old_tier_id"`
	NewTierID       int64                   `json:"new_tier_id"`
	Quantity        int64                   `json:"quantity"`
	PriceDifference money.Amount            `json:"price_difference"`
	UpgradeCharge   money.Amount            `json:"upgrade_charge"`
	RefundDue       money.Amount            `json:"refund_due"`
}

type CreateEventResponse struct {
	EventID int64 `json:"event_id"`
}

type CreateTierResponse struct {
	TierID int64 `json:"tier_id"`
}

type AddGroupRuleResponse struct {
	RuleID int64 `json:"rule_id"`
}

type CreateDiscountResponse struct {
	CodeID int64 `json:"code_id"`
}

var errDuplicateTier = errors.New("duplicate tier in items")

func toCartSelection(items []CartItemInput) (domain.CartSelection, error) {
	sel := make(domain.CartSelection, len(items))
	for _, it := range items {
		if _, ok := sel[it.TierID]; ok {
			return nil, errDuplicateTier
		}
		sel[it.TierID] = it.Quantity
	}
	return sel, nil
}

func toEventResponse(e *domain.Event) EventResponse {
	return EventResponse{
		ID:       e.ID,
		Title:    e.Title,
		Currency: e.Currency,
		StartsAt: e.Starts,
		EndsAt:   e.Ends,
	}
}

func toTierResponse(t *domain.TicketTier) TierResponse {
	resp := TierResponse{
		ID:                t.ID,
		EventID:           t.EventID,
		Name:              t.Name,
		Price:             t.Price,
		QuantityAvailable: t.QuantityAvailable,
		QuantitySold:      t.QuantitySold,
		MinPerOrder:       t.MinPerOrder,
		MaxPerOrder:       t.MaxPerOrder,
		SalesStart:        t.SalesStart,
		SalesEnd:          t.SalesEnd,
		Hidden:            t.Hidden,
	}
	for _, r := range t.GroupRules {
		resp.GroupRules = append(resp.GroupRules, GroupRuleResponse{
			ID:              r.ID,
			MinQuantity:     r.MinQuantity,
			DiscountPercent: r.DiscountPercent,
		})
	}
	return resp
}

func toOrderResponse(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:             o.ID.String(),
		EventID:        o.EventID,
		UserID:         o.UserID,
		Currency:       o.Currency,
		Subtotal:       o.Subtotal,
		DiscountAmount: o.DiscountAmount,
		TicketPrice:    o.TicketPrice,
		PlatformFee:    o.PlatformFee,
		ProcessorFee:   o.ProcessorFee,
		Amount:         o.Amount,
		TotalCharged:   o.TotalCharged,
		Payout:         o.Payout,
		Status:         o.Status,
		CreatedAt:      o.CreatedAt,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			TierID:    it.TierID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		})
	}
	return resp
}

func toRefundResponse(r *domain.Refund) RefundResponse {
	return RefundResponse{
		ID:            r.ID.String(),
		OrderID:       r.OrderID.String(),
		Amount:        r.Amount,
		TicketPortion: r.TicketPortion,
		FeePortion:    r.FeePortion,
		Reason:        r.Reason,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
	}
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
