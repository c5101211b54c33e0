package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/repository"
)

type DiscountRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *DiscountRepo) With(db DB) *DiscountRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *DiscountRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// GetByCode looks up a code for an event, case-insensitively.
func (r *DiscountRepo) GetByCode(ctx context.Context, eventID int64, code string) (*domain.DiscountCode, error) {
	const op = "postgres.DiscountRepo.GetByCode"

	db := r.handle()

	var d domain.DiscountCode
	err := db.QueryRow(ctx,
		`SELECT id, event_id, code, type, value, usage_limit, usage_count,
	        valid_from, valid_until, minimum_purchase_minor, applicable_tier_ids
	   	 FROM discount_codes
	  	 WHERE event_id = $1 AND upper(code) = upper($2)`,
		eventID, code,
	).Scan(
		&d.ID, &d.EventID, &d.Code, &d.Type, &d.Value, &d.UsageLimit, &d.UsageCount,
		&d.ValidFrom, &d.ValidUntil, &d.MinimumPurchase, &d.ApplicableTierIDs,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &d, nil
}

// Redeem performs the conditional usage increment. It must run inside
// the same transaction as order capture: validation saw a stale
// usage_count, so two checkouts racing on the last redemption both pass
// validation but only one satisfies the WHERE clause here.
//
// Returns:
//   - error: repository.ErrDiscountExhausted if the limit was reached.
func (r *DiscountRepo) Redeem(ctx context.Context, id int64) error {
	const op = "postgres.DiscountRepo.Redeem"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE discount_codes
	    	SET usage_count = usage_count + 1
	  	 WHERE id = $1
	    	AND (usage_limit IS NULL OR usage_count < usage_limit)`,
		id,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrDiscountExhausted)
	}

	return nil
}

func (r *DiscountRepo) Create(ctx context.Context, d *domain.DiscountCode) (int64, error) {
	const op = "postgres.DiscountRepo.Create"

	db := r.handle()

	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO discount_codes
	    	(event_id, code, type, value, usage_limit, valid_from, valid_until,
	     	 minimum_purchase_minor, applicable_tier_ids)
	 	 VALUES ($1, upper($2), $3, $4, $5, $6, $7, $8, $9)
	 	 RETURNING id`,
		d.EventID, d.Code, d.Type, d.Value, d.UsageLimit, d.ValidFrom, d.ValidUntil,
		d.MinimumPurchase, d.ApplicableTierIDs,
	).Scan(&id)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}
