package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/pricing"
	"github.com/communahq/communa/internal/repository"
	postgresrepo "github.com/communahq/communa/internal/repository/postgres"
	redisrepo "github.com/communahq/communa/internal/repository/redis"
	"github.com/communahq/communa/internal/uow"
)

type Config struct {
	Fees            pricing.FeePolicy
	CaptureAttempts int
	RetryBackoff    time.Duration
}

type Service struct {
	store   *postgresrepo.Store
	cache   *redisrepo.Cache
	pubsub  *redisrepo.PricingPubSub
	limiter *redisrepo.SlidingWindowLimiter
	uow     *uow.UoW
	cfg     Config
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.PricingPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	cfg Config,
) *Service {
	if cfg.CaptureAttempts <= 0 {
		cfg.CaptureAttempts = 3
	}

	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 50 * time.Millisecond
	}

	return &Service{
		store:   store,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		uow:     uow.NewUoW(store),
		cfg:     cfg,
	}
}

// Quote prices a cart without touching any counter. It runs the same
// aggregator as Checkout, so the previewed total is exactly the total
// a subsequent capture would charge.
//
// Parameters:
//   - ctx: request-scoped context.
//   - eventID: ID of the event the selections belong to.
//   - selection: tier ID -> requested quantity.
//   - code: optional promo code, empty for none.
//
// Returns:
//   - *pricing.CartBreakdown: the full quoted breakdown.
//   - error: checkout.ErrEventNotFound, or a pricing rejection reason.
func (s *Service) Quote(
	ctx context.Context,
	eventID int64,
	selection domain.CartSelection,
	code string,
) (*pricing.CartBreakdown, error) {
	const op = "service.checkout.Quote"

	catalog, err := s.loadCatalog(ctx, s.store.Tiers(), eventID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	discountCode, err := s.loadDiscountCode(ctx, s.store.Discounts(), eventID, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	breakdown, err := pricing.ComputeCartTotal(selection, catalog, discountCode, s.cfg.Fees, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return breakdown, nil
}

// Checkout prices the cart and captures the order in one transaction:
// tier availability and discount usage are claimed with conditional
// updates so concurrent checkouts racing on the last seat or the last
// redemption cannot both succeed. Serialization conflicts are retried
// with backoff; pricing rejections are not.
//
// A fully discounted (zero total) order is captured without any
// processor involvement; for non-zero totals the caller charges the
// breakdown's total after this method returns, and compensates with a
// refund if the charge fails.
//
// Parameters:
//   - ctx: request-scoped context.
//   - userID: ID of the purchasing user.
//   - eventID: ID of the event.
//   - selection: tier ID -> requested quantity.
//   - code: optional promo code, empty for none.
//   - rlKey: rate-limit key, usually derived from the client IP.
//
// Returns:
//   - *domain.Order: the captured order with its immutable breakdown.
//   - error: checkout.ErrRateLimited, checkout.ErrEventNotFound, or a
//     pricing rejection reason (pricing.ErrTierSoldOut and friends).
func (s *Service) Checkout(
	ctx context.Context,
	userID, eventID int64,
	selection domain.CartSelection,
	code string,
	rlKey string,
) (*domain.Order, error) {
	const op = "service.checkout.Checkout"

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: retry in %s: %w", op, retry, ErrRateLimited)
		}
	}

	var lastErr error
	for attempt := 0; attempt < s.cfg.CaptureAttempts; attempt++ {
		order, err := s.capture(ctx, userID, eventID, selection, code)
		if err == nil {
			return order, nil
		}

		if !postgresrepo.IsRetryable(err) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		lastErr = err
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(s.cfg.RetryBackoff << attempt):
		}
	}

	return nil, fmt.Errorf("%s: %w", op, lastErr)
}

func (s *Service) capture(
	ctx context.Context,
	userID, eventID int64,
	selection domain.CartSelection,
	code string,
) (*domain.Order, error) {
	var order *domain.Order

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		tiers := s.store.Tiers().With(tx)

		catalog, err := s.loadCatalog(ctx, tiers, eventID)
		if err != nil {
			return err
		}

		discountCode, err := s.loadDiscountCode(ctx, s.store.Discounts().With(tx), eventID, code)
		if err != nil {
			return err
		}

		breakdown, err := pricing.ComputeCartTotal(selection, catalog, discountCode, s.cfg.Fees, time.Now())
		if err != nil {
			return err
		}

		// Claim availability in ascending tier order so concurrent
		// captures touching the same tiers cannot deadlock.
		tierIDs := make([]int64, 0, len(selection))
		for id := range selection {
			tierIDs = append(tierIDs, id)
		}
		sort.Slice(tierIDs, func(i, j int) bool { return tierIDs[i] < tierIDs[j] })

		for _, tierID := range tierIDs {
			if err := tiers.ReserveQuantity(ctx, tierID, selection[tierID]); err != nil {
				if errors.Is(err, repository.ErrTierSoldOut) {
					return pricing.ErrTierSoldOut
				}
				return err
			}
		}

		var discountCodeID *int64
		if breakdown.Discount != nil {
			if err := s.store.Discounts().With(tx).Redeem(ctx, breakdown.Discount.CodeID); err != nil {
				if errors.Is(err, repository.ErrDiscountExhausted) {
					return pricing.ErrDiscountExhausted
				}
				return err
			}
			discountCodeID = &breakdown.Discount.CodeID
		}

		o := &domain.Order{
			ID:             uuid.New(),
			EventID:        eventID,
			UserID:         userID,
			Currency:       breakdown.Currency,
			Subtotal:       breakdown.Subtotal,
			DiscountAmount: breakdown.DiscountAmount,
			TicketPrice:    breakdown.DiscountedSubtotal,
			PlatformFee:    breakdown.PlatformFee,
			ProcessorFee:   breakdown.ProcessorFee,
			TotalCharged:   breakdown.Total,
			DiscountCodeID: discountCodeID,
			Status:         domain.OrderPaid,
		}

		o.Amount, err = breakdown.DiscountedSubtotal.Add(breakdown.PlatformFee)
		if err != nil {
			return err
		}

		o.Payout, err = breakdown.DiscountedSubtotal.Sub(breakdown.PlatformFee)
		if err != nil {
			return err
		}

		for _, line := range breakdown.Lines {
			o.Items = append(o.Items, domain.OrderItem{
				OrderID:   o.ID,
				TierID:    line.TierID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				LineTotal: line.LineTotal,
			})
		}

		if err := s.store.Orders().With(tx).Create(ctx, o); err != nil {
			return err
		}

		order = o

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateEvent(ctx, eventID)
			_ = s.pubsub.PublishPricingChanged(ctx, eventID)
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (s *Service) loadCatalog(ctx context.Context, tiers *postgresrepo.TierRepo, eventID int64) (pricing.MapCatalog, error) {
	if _, err := tiers.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	list, err := tiers.ListByEvent(ctx, eventID, false)
	if err != nil {
		return nil, err
	}

	catalog := make(pricing.MapCatalog, len(list))
	for i := range list {
		catalog[list[i].ID] = &list[i]
	}

	return catalog, nil
}

func (s *Service) loadDiscountCode(ctx context.Context, discounts *postgresrepo.DiscountRepo, eventID int64, code string) (*domain.DiscountCode, error) {
	if code == "" {
		return nil, nil
	}

	dc, err := discounts.GetByCode(ctx, eventID, pricing.NormalizeCode(code))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, pricing.ErrDiscountNotFound
		}
		return nil, err
	}

	return dc, nil
}
