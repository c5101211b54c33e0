package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/repository"
	postgresrepo "github.com/communahq/communa/internal/repository/postgres"
	redisrepo "github.com/communahq/communa/internal/repository/redis"
)

type Config struct {
	SummaryTTL time.Duration
	TiersTTL   time.Duration
}

// Service serves the read side of the catalog. Hot reads go through the
// cache; writes elsewhere invalidate via Cache.InvalidateEvent and the
// pricing pub/sub channel.
type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = 30 * time.Second
	}

	if cfg.TiersTTL <= 0 {
		cfg.TiersTTL = 10 * time.Second
	}

	return &Service{store: store, cache: cache, cfg: cfg}
}

func (s *Service) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	const op = "service.catalog.GetEvent"

	e, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyEventSummary(id),
		s.cfg.SummaryTTL,
		func(ctx context.Context) (*domain.Event, error) {
			return s.store.Tiers().GetEvent(ctx, id)
		},
	)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return e, nil
}

// ListTiers returns the event's public tiers. The organizer view
// (includeHidden) bypasses the cache so edits show up immediately.
func (s *Service) ListTiers(ctx context.Context, eventID int64, includeHidden bool) ([]domain.TicketTier, error) {
	const op = "service.catalog.ListTiers"

	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	if includeHidden {
		tiers, err := s.store.Tiers().ListByEvent(ctx, eventID, true)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return tiers, nil
	}

	tiers, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyEventTiers(eventID),
		s.cfg.TiersTTL,
		func(ctx context.Context) ([]domain.TicketTier, error) {
			return s.store.Tiers().ListByEvent(ctx, eventID, false)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tiers, nil
}
