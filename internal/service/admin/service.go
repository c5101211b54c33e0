package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/money"
	"github.com/communahq/communa/internal/repository"
	postgresrepo "github.com/communahq/communa/internal/repository/postgres"
	redisrepo "github.com/communahq/communa/internal/repository/redis"
)

// Service covers the organizer-facing write side: events, tiers, group
// pricing rules and discount codes. Every write that changes what a
// buyer would be quoted invalidates the event's cache entries and
// notifies other instances.
type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	pubsub *redisrepo.PricingPubSub
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, pubsub *redisrepo.PricingPubSub) *Service {
	return &Service{store: store, cache: cache, pubsub: pubsub}
}

func (s *Service) CreateEvent(ctx context.Context, e *domain.Event) (int64, error) {
	const op = "service.admin.CreateEvent"

	if strings.TrimSpace(e.Title) == "" {
		return 0, fmt.Errorf("%s: empty title: %w", op, ErrInvalidInput)
	}

	if !money.IsSupported(e.Currency) {
		return 0, fmt.Errorf("%s: %q: %w", op, e.Currency, money.ErrUnknownCurrency)
	}

	if !e.Ends.After(e.Starts) {
		return 0, fmt.Errorf("%s: ends_at not after starts_at: %w", op, ErrInvalidInput)
	}

	id, err := s.store.Tiers().CreateEvent(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Service) CreateTier(ctx context.Context, t *domain.TicketTier) (int64, error) {
	const op = "service.admin.CreateTier"

	event, err := s.store.Tiers().GetEvent(ctx, t.EventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if strings.TrimSpace(t.Name) == "" {
		return 0, fmt.Errorf("%s: empty name: %w", op, ErrInvalidInput)
	}

	if t.Price.IsNegative() {
		return 0, fmt.Errorf("%s: %w", op, money.ErrInvalidAmount)
	}

	if t.Price.Currency != event.Currency {
		return 0, fmt.Errorf("%s: %w", op, ErrCurrencyMixing)
	}

	if t.QuantityAvailable != nil && *t.QuantityAvailable < 0 {
		return 0, fmt.Errorf("%s: negative capacity: %w", op, ErrInvalidInput)
	}

	if t.MinPerOrder < 0 || t.MaxPerOrder < 0 ||
		(t.MinPerOrder > 0 && t.MaxPerOrder > 0 && t.MinPerOrder > t.MaxPerOrder) {
		return 0, fmt.Errorf("%s: bad per-order bounds: %w", op, ErrInvalidInput)
	}

	id, err := s.store.Tiers().CreateTier(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, t.EventID)

	return id, nil
}

// AddGroupRule attaches a bulk discount to a tier. MinQuantity must be
// at least 2; a rule at quantity 1 would silently reprice every single
// ticket. One rule per (tier, quantity).
func (s *Service) AddGroupRule(ctx context.Context, rule *domain.GroupPricingRule) (int64, error) {
	const op = "service.admin.AddGroupRule"

	tier, err := s.store.Tiers().Get(ctx, rule.TierID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s: %w", op, ErrTierNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if rule.MinQuantity < 2 {
		return 0, fmt.Errorf("%s: min_quantity below 2: %w", op, ErrInvalidInput)
	}

	if rule.DiscountPercent <= 0 || rule.DiscountPercent > 100 {
		return 0, fmt.Errorf("%s: discount_percent outside (0,100]: %w", op, ErrInvalidInput)
	}

	id, err := s.store.Tiers().AddGroupRule(ctx, rule)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return 0, fmt.Errorf("%s: %w", op, ErrRuleExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, tier.EventID)

	return id, nil
}

func (s *Service) CreateDiscountCode(ctx context.Context, d *domain.DiscountCode) (int64, error) {
	const op = "service.admin.CreateDiscountCode"

	if _, err := s.store.Tiers().GetEvent(ctx, d.EventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if strings.TrimSpace(d.Code) == "" {
		return 0, fmt.Errorf("%s: empty code: %w", op, ErrInvalidInput)
	}

	switch d.Type {
	case domain.DiscountPercentage:
		if d.Value <= 0 || d.Value > 100 {
			return 0, fmt.Errorf("%s: percentage outside (0,100]: %w", op, ErrInvalidInput)
		}
	case domain.DiscountFixed:
		if d.Value <= 0 {
			return 0, fmt.Errorf("%s: non-positive fixed amount: %w", op, ErrInvalidInput)
		}
	default:
		return 0, fmt.Errorf("%s: unknown type %q: %w", op, d.Type, ErrInvalidInput)
	}

	if d.UsageLimit != nil && *d.UsageLimit <= 0 {
		return 0, fmt.Errorf("%s: non-positive usage limit: %w", op, ErrInvalidInput)
	}

	if d.MinimumPurchase != nil && *d.MinimumPurchase <= 0 {
		return 0, fmt.Errorf("%s: non-positive minimum purchase: %w", op, ErrInvalidInput)
	}

	if d.ValidUntil != nil && !d.ValidUntil.After(d.ValidFrom) {
		return 0, fmt.Errorf("%s: valid_until not after valid_from: %w", op, ErrInvalidInput)
	}

	id, err := s.store.Discounts().Create(ctx, d)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return 0, fmt.Errorf("%s: %w", op, ErrCodeExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Service) invalidate(ctx context.Context, eventID int64) {
	_ = s.cache.InvalidateEvent(ctx, eventID)
	_ = s.pubsub.PublishPricingChanged(ctx, eventID)
}
