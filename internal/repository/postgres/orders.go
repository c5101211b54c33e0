package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/money"
)

type OrderRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *OrderRepo) With(db DB) *OrderRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *OrderRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const orderColumns = `id, event_id, user_id, currency, subtotal_minor, discount_minor,
	ticket_price_minor, platform_fee_minor, processor_fee_minor, amount_minor,
	total_charged_minor, payout_minor, discount_code_id, status, created_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var subtotal, discount, ticket, platform, processor int64
	var amount, totalCharged, payout int64

	err := row.Scan(
		&o.ID, &o.EventID, &o.UserID, &o.Currency, &subtotal, &discount,
		&ticket, &platform, &processor, &amount,
		&totalCharged, &payout, &o.DiscountCodeID, &o.Status, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	cur := o.Currency
	o.Subtotal = money.Amount{MinorUnits: subtotal, Currency: cur}
	o.DiscountAmount = money.Amount{MinorUnits: discount, Currency: cur}
	o.TicketPrice = money.Amount{MinorUnits: ticket, Currency: cur}
	o.PlatformFee = money.Amount{MinorUnits: platform, Currency: cur}
	o.ProcessorFee = money.Amount{MinorUnits: processor, Currency: cur}
	o.Amount = money.Amount{MinorUnits: amount, Currency: cur}
	o.TotalCharged = money.Amount{MinorUnits: totalCharged, Currency: cur}
	o.Payout = money.Amount{MinorUnits: payout, Currency: cur}

	return &o, nil
}

func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	const op = "postgres.OrderRepo.Create"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO orders
	    	(id, event_id, user_id, currency, subtotal_minor, discount_minor,
	     	 ticket_price_minor, platform_fee_minor, processor_fee_minor, amount_minor,
	     	 total_charged_minor, payout_minor, discount_code_id, status)
	 	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		o.ID, o.EventID, o.UserID, o.Currency,
		o.Subtotal.MinorUnits, o.DiscountAmount.MinorUnits,
		o.TicketPrice.MinorUnits, o.PlatformFee.MinorUnits, o.ProcessorFee.MinorUnits,
		o.Amount.MinorUnits, o.TotalCharged.MinorUnits, o.Payout.MinorUnits,
		o.DiscountCodeID, o.Status,
	); err != nil {
		return wrapDBErr(op, err)
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(
			`INSERT INTO order_items (order_id, tier_id, quantity, unit_price_minor, line_total_minor)
		 	 VALUES ($1, $2, $3, $4, $5)`,
			o.ID, item.TierID, item.Quantity, item.UnitPrice.MinorUnits, item.LineTotal.MinorUnits,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "postgres.OrderRepo.Get"

	db := r.handle()

	o, err := scanOrder(db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	if err := r.loadItems(ctx, o); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return o, nil
}

// GetForUpdate loads the order under a row lock so concurrent refund and
// modification requests serialize on it instead of both reading a stale
// refunded total. Call only inside a transaction.
func (r *OrderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "postgres.OrderRepo.GetForUpdate"

	db := r.handle()

	o, err := scanOrder(db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	if err := r.loadItems(ctx, o); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return o, nil
}

func (r *OrderRepo) loadItems(ctx context.Context, o *domain.Order) error {
	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, order_id, tier_id, quantity, unit_price_minor, line_total_minor
	   	 FROM order_items WHERE order_id = $1 ORDER BY id`,
		o.ID,
	)
	if err != nil {
		return err
	}

	defer rows.Close()

	for rows.Next() {
		var (
			item       domain.OrderItem
			unit, line int64
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.TierID, &item.Quantity, &unit, &line); err != nil {
			return err
		}
		item.UnitPrice = money.Amount{MinorUnits: unit, Currency: o.Currency}
		item.LineTotal = money.Amount{MinorUnits: line, Currency: o.Currency}
		o.Items = append(o.Items, item)
	}

	return rows.Err()
}

// RefundedTotal sums the succeeded refunds for an order in minor units.
func (r *OrderRepo) RefundedTotal(ctx context.Context, orderID uuid.UUID) (int64, error) {
	const op = "postgres.OrderRepo.RefundedTotal"

	db := r.handle()

	var total int64
	err := db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_minor), 0)
	   	 FROM refunds WHERE order_id = $1 AND status = $2`,
		orderID, domain.RefundSucceeded,
	).Scan(&total)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return total, nil
}

func (r *OrderRepo) CreateRefund(ctx context.Context, ref *domain.Refund) error {
	const op = "postgres.OrderRepo.CreateRefund"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO refunds
	    	(id, order_id, amount_minor, ticket_portion_minor, fee_portion_minor, reason, status)
	 	 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ref.ID, ref.OrderID, ref.Amount.MinorUnits,
		ref.TicketPortion.MinorUnits, ref.FeePortion.MinorUnits,
		ref.Reason, ref.Status,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *OrderRepo) ListRefunds(ctx context.Context, orderID uuid.UUID) ([]domain.Refund, error) {
	const op = "postgres.OrderRepo.ListRefunds"

	db := r.handle()

	var currency money.Code
	if err := db.QueryRow(ctx,
		`SELECT currency FROM orders WHERE id = $1`, orderID,
	).Scan(&currency); err != nil {
		return nil, wrapDBErr(op, err)
	}

	rows, err := db.Query(ctx,
		`SELECT id, order_id, amount_minor, ticket_portion_minor, fee_portion_minor,
	        reason, status, created_at
	   	 FROM refunds WHERE order_id = $1 ORDER BY created_at`,
		orderID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var refunds []domain.Refund
	for rows.Next() {
		var (
			ref                 domain.Refund
			amount, ticket, fee int64
		)
		if err := rows.Scan(&ref.ID, &ref.OrderID, &amount, &ticket, &fee, &ref.Reason, &ref.Status, &ref.CreatedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}
		ref.Amount = money.Amount{MinorUnits: amount, Currency: currency}
		ref.TicketPortion = money.Amount{MinorUnits: ticket, Currency: currency}
		ref.FeePortion = money.Amount{MinorUnits: fee, Currency: currency}
		refunds = append(refunds, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return refunds, nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	const op = "postgres.OrderRepo.UpdateStatus"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`,
		orderID, status,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *OrderRepo) CreateModification(ctx context.Context, m *domain.Modification) error {
	const op = "postgres.OrderRepo.CreateModification"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO modifications
	    	(id, order_id, type, old_tier_id, new_tier_id, quantity, price_difference_minor)
	 	 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.OrderID, m.Type, m.OldTierID, m.NewTierID, m.Quantity, m.PriceDifference.MinorUnits,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ApplyModification rewrites the order's pricing columns and the moved
// item's tier after an upgrade or downgrade is finalized.
func (r *OrderRepo) ApplyModification(ctx context.Context, o *domain.Order, itemID, newTierID int64, unitPrice, lineTotal money.Amount) error {
	const op = "postgres.OrderRepo.ApplyModification"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`UPDATE orders
	    	SET subtotal_minor = $2, discount_minor = $3, ticket_price_minor = $4,
	        	platform_fee_minor = $5, processor_fee_minor = $6, amount_minor = $7,
	        	total_charged_minor = $8, payout_minor = $9
	  	 WHERE id = $1`,
		o.ID,
		o.Subtotal.MinorUnits, o.DiscountAmount.MinorUnits, o.TicketPrice.MinorUnits,
		o.PlatformFee.MinorUnits, o.ProcessorFee.MinorUnits, o.Amount.MinorUnits,
		o.TotalCharged.MinorUnits, o.Payout.MinorUnits,
	); err != nil {
		return wrapDBErr(op, err)
	}

	if _, err := db.Exec(ctx,
		`UPDATE order_items
	    	SET tier_id = $2, unit_price_minor = $3, line_total_minor = $4
	  	 WHERE id = $1`,
		itemID, newTierID, unitPrice.MinorUnits, lineTotal.MinorUnits,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}
