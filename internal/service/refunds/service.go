package refunds

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/money"
	"github.com/communahq/communa/internal/pricing"
	"github.com/communahq/communa/internal/repository"
	postgresrepo "github.com/communahq/communa/internal/repository/postgres"
	redisrepo "github.com/communahq/communa/internal/repository/redis"
	"github.com/communahq/communa/internal/uow"
)

// rowLockOpts: refunds and modifications serialize on the order's row
// lock, so read committed is enough and avoids serialization retries.
var rowLockOpts = &pgx.TxOptions{
	IsoLevel:   pgx.ReadCommitted,
	AccessMode: pgx.ReadWrite,
}

type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	pubsub *redisrepo.PricingPubSub
	uow    *uow.UoW
	fees   pricing.FeePolicy
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.PricingPubSub,
	fees pricing.FeePolicy,
) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
		uow:    uow.NewUoW(store),
		fees:   fees,
	}
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "service.refunds.GetOrder"

	o, err := s.store.Orders().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return o, nil
}

func (s *Service) ListRefunds(ctx context.Context, orderID uuid.UUID) ([]domain.Refund, error) {
	const op = "service.refunds.ListRefunds"

	refunds, err := s.store.Orders().ListRefunds(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return refunds, nil
}

// IssueRefund records a refund against an order. amountMinor == nil
// requests a full refund of whatever remains. The order row is locked
// for the duration, so two concurrent requests for the remaining
// balance cannot both succeed; the second sees the first one's total
// and is rejected.
//
// Parameters:
//   - ctx: request-scoped context.
//   - orderID: the order being refunded.
//   - amountMinor: partial amount in minor units, nil for full.
//   - reason: free-form operator note stored with the refund.
//
// Returns:
//   - *domain.Refund: the recorded refund with its portion split.
//   - error: refunds.ErrOrderNotFound, pricing.ErrRefundExceedsRemaining,
//     or money.ErrInvalidAmount for a non-positive partial amount.
func (s *Service) IssueRefund(
	ctx context.Context,
	orderID uuid.UUID,
	amountMinor *int64,
	reason string,
) (*domain.Refund, error) {
	const op = "service.refunds.IssueRefund"

	var refund *domain.Refund

	err := s.uow.DoWithOpts(ctx, rowLockOpts, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		orders := s.store.Orders().With(tx)

		ord, err := orders.GetForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		refundedMinor, err := orders.RefundedTotal(ctx, orderID)
		if err != nil {
			return err
		}

		var requested *money.Amount
		if amountMinor != nil {
			requested = &money.Amount{MinorUnits: *amountMinor, Currency: ord.Currency}
		}

		breakdown, err := pricing.ComputeRefund(
			ord,
			requested,
			money.Amount{MinorUnits: refundedMinor, Currency: ord.Currency},
		)
		if err != nil {
			return err
		}

		ref := &domain.Refund{
			ID:            uuid.New(),
			OrderID:       orderID,
			Amount:        breakdown.Amount,
			TicketPortion: breakdown.TicketPortion,
			FeePortion:    breakdown.FeePortion,
			Reason:        reason,
			Status:        domain.RefundSucceeded,
		}

		if err := orders.CreateRefund(ctx, ref); err != nil {
			return err
		}

		status := domain.OrderPartiallyRefunded
		if refundedMinor+breakdown.Amount.MinorUnits == ord.Amount.MinorUnits {
			status = domain.OrderRefunded
		}

		if err := orders.UpdateStatus(ctx, orderID, status); err != nil {
			return err
		}

		refund = ref

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateEvent(ctx, ord.EventID)
			_ = s.pubsub.PublishPricingChanged(ctx, ord.EventID)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return refund, nil
}

// Modify moves all tickets of a single-tier order to another tier.
// An upgrade grows the order's refundable amount by the difference and
// charges the customer the difference plus the processor fee on the
// second charge. A downgrade leaves the order's breakdown in place and
// issues a refund of the difference, split between ticket and platform
// fee portions exactly like any other refund. A transfer moves the
// tickets with no money movement.
//
// Parameters:
//   - ctx: request-scoped context.
//   - orderID: the order being modified.
//   - newTierID: the target tier.
//
// Returns:
//   - *domain.Modification: the recorded modification.
//   - *pricing.ModificationBreakdown: old/new breakdowns and the charge
//     or refund implied by the move.
//   - error: refunds.ErrOrderNotFound, refunds.ErrMultiTierOrder,
//     refunds.ErrSameTier, pricing.ErrTierNotFound,
//     pricing.ErrTierSoldOut, or pricing.ErrRefundExceedsRemaining.
func (s *Service) Modify(
	ctx context.Context,
	orderID uuid.UUID,
	newTierID int64,
) (*domain.Modification, *pricing.ModificationBreakdown, error) {
	const op = "service.refunds.Modify"

	var (
		mod       *domain.Modification
		breakdown *pricing.ModificationBreakdown
	)

	err := s.uow.DoWithOpts(ctx, rowLockOpts, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		orders := s.store.Orders().With(tx)
		tiers := s.store.Tiers().With(tx)

		ord, err := orders.GetForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if len(ord.Items) != 1 {
			return ErrMultiTierOrder
		}
		item := ord.Items[0]

		if item.TierID == newTierID {
			return ErrSameTier
		}

		oldTier, err := tiers.Get(ctx, item.TierID)
		if err != nil {
			return err
		}

		newTier, err := tiers.Get(ctx, newTierID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return pricing.ErrTierNotFound
			}
			return err
		}

		bd, err := pricing.ComputeModification(oldTier, newTier, item.Quantity, s.fees)
		if err != nil {
			return err
		}

		if err := tiers.ReserveQuantity(ctx, newTierID, item.Quantity); err != nil {
			if errors.Is(err, repository.ErrTierSoldOut) {
				return pricing.ErrTierSoldOut
			}
			return err
		}

		if err := tiers.ReleaseQuantity(ctx, item.TierID, item.Quantity); err != nil {
			return err
		}

		m := &domain.Modification{
			ID:              uuid.New(),
			OrderID:         orderID,
			Type:            bd.Type,
			OldTierID:       item.TierID,
			NewTierID:       newTierID,
			Quantity:        item.Quantity,
			PriceDifference: bd.PriceDifference,
		}

		if err := orders.CreateModification(ctx, m); err != nil {
			return err
		}

		switch bd.Type {
		case domain.ModificationUpgrade:
			if err := applyUpgrade(ord, bd); err != nil {
				return err
			}
		case domain.ModificationDowngrade:
			if err := s.refundDowngrade(ctx, orders, ord, bd); err != nil {
				return err
			}
		}

		unit := pricing.EffectiveUnitPrice(newTier, item.Quantity)
		if err := orders.ApplyModification(ctx, ord, item.ID, newTierID, unit, unit.MulQty(item.Quantity)); err != nil {
			return err
		}

		mod = m
		breakdown = bd

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateEvent(ctx, ord.EventID)
			_ = s.pubsub.PublishPricingChanged(ctx, ord.EventID)
		})

		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return mod, breakdown, nil
}

// applyUpgrade folds the positive delta into the order's breakdown so
// later refunds allocate against the upgraded amounts.
func applyUpgrade(ord *domain.Order, bd *pricing.ModificationBreakdown) error {
	deltaTicket, err := bd.New.TicketPrice.Sub(bd.Old.TicketPrice)
	if err != nil {
		return err
	}

	deltaPlatform, err := bd.New.PlatformFee.Sub(bd.Old.PlatformFee)
	if err != nil {
		return err
	}

	deltaProcessor, err := bd.UpgradeCharge.Sub(bd.PriceDifference)
	if err != nil {
		return err
	}

	ord.Subtotal.MinorUnits += deltaTicket.MinorUnits
	ord.TicketPrice.MinorUnits += deltaTicket.MinorUnits
	ord.PlatformFee.MinorUnits += deltaPlatform.MinorUnits
	ord.ProcessorFee.MinorUnits += deltaProcessor.MinorUnits
	ord.Amount.MinorUnits += bd.PriceDifference.MinorUnits
	ord.TotalCharged.MinorUnits += bd.UpgradeCharge.MinorUnits
	ord.Payout.MinorUnits += deltaTicket.MinorUnits - deltaPlatform.MinorUnits

	return nil
}

// refundDowngrade records the downgrade's money movement as a refund of
// the delta, allocated between the delta's ticket and platform fee
// components. The order's breakdown stays as charged; the refund row is
// what shrinks the remaining refundable balance.
func (s *Service) refundDowngrade(
	ctx context.Context,
	orders *postgresrepo.OrderRepo,
	ord *domain.Order,
	bd *pricing.ModificationBreakdown,
) error {
	refundedMinor, err := orders.RefundedTotal(ctx, ord.ID)
	if err != nil {
		return err
	}

	amount := bd.PriceDifference.Abs()
	if refundedMinor+amount.MinorUnits > ord.Amount.MinorUnits {
		return pricing.ErrRefundExceedsRemaining
	}

	parts, err := amount.Allocate([]int64{
		bd.Old.TicketPrice.MinorUnits - bd.New.TicketPrice.MinorUnits,
		bd.Old.PlatformFee.MinorUnits - bd.New.PlatformFee.MinorUnits,
	})
	if err != nil {
		return err
	}

	ref := &domain.Refund{
		ID:            uuid.New(),
		OrderID:       ord.ID,
		Amount:        amount,
		TicketPortion: parts[0],
		FeePortion:    parts[1],
		Reason:        "downgrade",
		Status:        domain.RefundSucceeded,
	}

	if err := orders.CreateRefund(ctx, ref); err != nil {
		return err
	}

	status := domain.OrderPartiallyRefunded
	if refundedMinor+amount.MinorUnits == ord.Amount.MinorUnits {
		status = domain.OrderRefunded
	}

	return orders.UpdateStatus(ctx, ord.ID, status)
}
