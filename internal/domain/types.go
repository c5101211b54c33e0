package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/communahq/communa/internal/money"
)

type OrderStatus string

const (
	OrderPaid              OrderStatus = "paid"
	OrderPartiallyRefunded OrderStatus = "partially_refunded"
	OrderRefunded          OrderStatus = "refunded"
)

type RefundStatus string

const (
	RefundSucceeded RefundStatus = "succeeded"
	RefundFailed    RefundStatus = "failed"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type ModificationType string

const (
	ModificationUpgrade   ModificationType = "upgrade"
	ModificationDowngrade ModificationType = "downgrade"
	ModificationTransfer  ModificationType = "transfer"
)

type Event struct {
	ID       int64
	Title    string
	Currency money.Code
	Starts   time.Time
	Ends     time.Time
}

type TicketTier struct {
	ID                int64
	EventID           int64
	Name              string
	Price             money.Amount
	QuantityAvailable *int64 // nil = uncapped
	QuantitySold      int64
	MinPerOrder       int64
	MaxPerOrder       int64
	SalesStart        *time.Time
	SalesEnd          *time.Time
	Hidden            bool
	GroupRules        []GroupPricingRule
}

// GroupPricingRule grants DiscountPercent off the tier price once the
// purchased quantity reaches MinQuantity. Rules are unique per
// (tier, MinQuantity); only the best qualifying rule ever applies.
type GroupPricingRule struct {
	ID              int64
	TierID          int64
	MinQuantity     int64
	DiscountPercent int64
}

// DiscountCode is a redeemable promo code. Value is a whole percentage
// for percentage codes and a minor-unit amount for fixed codes.
type DiscountCode struct {
	ID                int64
	EventID           int64
	Code              string
	Type              DiscountType
	Value             int64
	UsageLimit        *int64
	UsageCount        int64
	ValidFrom         time.Time
	ValidUntil        *time.Time
	MinimumPurchase   *int64 // minor units, event currency
	ApplicableTierIDs []int64
}

// CartSelection maps tier ID to requested quantity. It exists only for
// the duration of a price computation and is never persisted.
type CartSelection map[int64]int64

type OrderItem struct {
	ID        int64
	OrderID   uuid.UUID
	TierID    int64
	Quantity  int64
	UnitPrice money.Amount
	LineTotal money.Amount
}

// Order captures the immutable pricing breakdown at purchase time.
// Amount is the refundable envelope (ticket price plus platform fee);
// the processor fee rides on top of the charged total and is never
// refunded. Post-capture state changes only via Refund and Modification
// records.
type Order struct {
	ID             uuid.UUID
	EventID        int64
	UserID         int64
	Currency       money.Code
	Subtotal       money.Amount
	DiscountAmount money.Amount
	TicketPrice    money.Amount // discounted subtotal
	PlatformFee    money.Amount
	ProcessorFee   money.Amount
	Amount         money.Amount // TicketPrice + PlatformFee
	TotalCharged   money.Amount // Amount + ProcessorFee
	Payout         money.Amount // net organizer payout: TicketPrice - PlatformFee
	DiscountCodeID *int64
	Status         OrderStatus
	Items          []OrderItem
	CreatedAt      time.Time
}

type Refund struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	Amount        money.Amount
	TicketPortion money.Amount
	FeePortion    money.Amount
	Reason        string
	Status        RefundStatus
	CreatedAt     time.Time
}

type Modification struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	Type            ModificationType
	OldTierID       int64
	NewTierID       int64
	Quantity        int64
	PriceDifference money.Amount // signed
	CreatedAt       time.Time
}
