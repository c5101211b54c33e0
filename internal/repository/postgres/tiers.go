package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/money"
	"github.com/communahq/communa/internal/repository"
)

type TierRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TierRepo) With(db DB) *TierRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TierRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *TierRepo) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	const op = "postgres.TierRepo.GetEvent"

	db := r.handle()

	var e domain.Event
	err := db.QueryRow(ctx,
		`SELECT id, title, currency, starts_at, ends_at
	   	 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Title, &e.Currency, &e.Starts, &e.Ends)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &e, nil
}

// ListByEvent returns the event's tiers with their group pricing rules,
// ordered by id. Hidden tiers are included only when includeHidden is
// set (organizer views).
func (r *TierRepo) ListByEvent(ctx context.Context, eventID int64, includeHidden bool) ([]domain.TicketTier, error) {
	const op = "postgres.TierRepo.ListByEvent"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, event_id, name, price_minor, currency, quantity_available,
	        quantity_sold, min_per_order, max_per_order, sales_start, sales_end, hidden
	   	 FROM ticket_tiers
	  	 WHERE event_id = $1 AND ($2 OR NOT hidden)
	  	 ORDER BY id`,
		eventID, includeHidden,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var tiers []domain.TicketTier
	index := make(map[int64]int)
	for rows.Next() {
		var (
			t        domain.TicketTier
			price    int64
			currency money.Code
		)
		if err := rows.Scan(
			&t.ID, &t.EventID, &t.Name, &price, &currency, &t.QuantityAvailable,
			&t.QuantitySold, &t.MinPerOrder, &t.MaxPerOrder, &t.SalesStart, &t.SalesEnd, &t.Hidden,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		t.Price = money.Amount{MinorUnits: price, Currency: currency}
		index[t.ID] = len(tiers)
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	ruleRows, err := db.Query(ctx,
		`SELECT r.id, r.tier_id, r.min_quantity, r.discount_percent
	   	 FROM group_pricing_rules r
	   	 JOIN ticket_tiers t ON t.id = r.tier_id
	  	 WHERE t.event_id = $1
	  	 ORDER BY r.tier_id, r.min_quantity`,
		eventID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer ruleRows.Close()

	for ruleRows.Next() {
		var rule domain.GroupPricingRule
		if err := ruleRows.Scan(&rule.ID, &rule.TierID, &rule.MinQuantity, &rule.DiscountPercent); err != nil {
			return nil, wrapDBErr(op, err)
		}
		if i, ok := index[rule.TierID]; ok {
			tiers[i].GroupRules = append(tiers[i].GroupRules, rule)
		}
	}
	if err := ruleRows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return tiers, nil
}

func (r *TierRepo) Get(ctx context.Context, id int64) (*domain.TicketTier, error) {
	const op = "postgres.TierRepo.Get"

	db := r.handle()

	var (
		t        domain.TicketTier
		price    int64
		currency money.Code
	)
	err := db.QueryRow(ctx,
		`SELECT id, event_id, name, price_minor, currency, quantity_available,
	        quantity_sold, min_per_order, max_per_order, sales_start, sales_end, hidden
	   	 FROM ticket_tiers WHERE id = $1`,
		id,
	).Scan(
		&t.ID, &t.EventID, &t.Name, &price, &currency, &t.QuantityAvailable,
		&t.QuantitySold, &t.MinPerOrder, &t.MaxPerOrder, &t.SalesStart, &t.SalesEnd, &t.Hidden,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	t.Price = money.Amount{MinorUnits: price, Currency: currency}

	rows, err := db.Query(ctx,
		`SELECT id, tier_id, min_quantity, discount_percent
	   	 FROM group_pricing_rules WHERE tier_id = $1
	  	 ORDER BY min_quantity`,
		id,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	for rows.Next() {
		var rule domain.GroupPricingRule
		if err := rows.Scan(&rule.ID, &rule.TierID, &rule.MinQuantity, &rule.DiscountPercent); err != nil {
			return nil, wrapDBErr(op, err)
		}
		t.GroupRules = append(t.GroupRules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &t, nil
}

// ReserveQuantity increments quantity_sold by qty, conditionally bounded
// by quantity_available, so concurrent checkouts cannot oversell.
//
// Returns:
//   - error: repository.ErrTierSoldOut if the cap would be exceeded.
func (r *TierRepo) ReserveQuantity(ctx context.Context, tierID, qty int64) error {
	const op = "postgres.TierRepo.ReserveQuantity"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE ticket_tiers
	    	SET quantity_sold = quantity_sold + $2
	  	 WHERE id = $1
	    	AND (quantity_available IS NULL OR quantity_sold + $2 <= quantity_available)`,
		tierID, qty,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrTierSoldOut)
	}

	return nil
}

// ReleaseQuantity returns qty units to the tier on a modification away
// from it. quantity_sold never drops below zero.
func (r *TierRepo) ReleaseQuantity(ctx context.Context, tierID, qty int64) error {
	const op = "postgres.TierRepo.ReleaseQuantity"

	db := r.handle()

	_, err := db.Exec(ctx,
		`UPDATE ticket_tiers
	    	SET quantity_sold = GREATEST(quantity_sold - $2, 0)
	  	 WHERE id = $1`,
		tierID, qty,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *TierRepo) CreateEvent(ctx context.Context, e *domain.Event) (int64, error) {
	const op = "postgres.TierRepo.CreateEvent"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO events (title, currency, starts_at, ends_at)
	 	 VALUES ($1, $2, $3, $4)
	 	 RETURNING id`,
		e.Title, e.Currency, e.Starts, e.Ends,
	).Scan(&id)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *TierRepo) CreateTier(ctx context.Context, t *domain.TicketTier) (int64, error) {
	const op = "postgres.TierRepo.CreateTier"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO ticket_tiers
	    	(event_id, name, price_minor, currency, quantity_available,
	     	 min_per_order, max_per_order, sales_start, sales_end, hidden)
	 	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	 	 RETURNING id`,
		t.EventID, t.Name, t.Price.MinorUnits, t.Price.Currency, t.QuantityAvailable,
		t.MinPerOrder, t.MaxPerOrder, t.SalesStart, t.SalesEnd, t.Hidden,
	).Scan(&id)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *TierRepo) AddGroupRule(ctx context.Context, rule *domain.GroupPricingRule) (int64, error) {
	const op = "postgres.TierRepo.AddGroupRule"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO group_pricing_rules (tier_id, min_quantity, discount_percent)
	 	 VALUES ($1, $2, $3)
	 	 RETURNING id`,
		rule.TierID, rule.MinQuantity, rule.DiscountPercent,
	).Scan(&id)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}
