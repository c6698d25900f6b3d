package repository

import (
	"context"

	"github.com/set-night/cosmiccreator/internal/domain"
)

const creatorColumns = `id, username, stripe_customer_id, last_seen_at, created_at`

func (q *Queries) GetCreatorByUsername(ctx context.Context, username string) (*domain.Creator, error) {
	row := q.db.QueryRow(ctx, `SELECT `+creatorColumns+` FROM creators WHERE username = $1`, username)
	return scanCreator(row)
}

func (q *Queries) GetCreatorByID(ctx context.Context, id int64) (*domain.Creator, error) {
	row := q.db.QueryRow(ctx, `SELECT `+creatorColumns+` FROM creators WHERE id = $1`, id)
	return scanCreator(row)
}

// CreateCreator inserts a creator; a concurrent insert of the same name
// returns the existing row. The bool reports whether this call inserted it.
func (q *Queries) CreateCreator(ctx context.Context, username string) (*domain.Creator, bool, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO creators (username) VALUES ($1)
		ON CONFLICT (username) DO UPDATE SET last_seen_at = now()
		RETURNING `+creatorColumns+`, (xmax = 0) AS inserted`, username)

	var c domain.Creator
	var inserted bool
	if err := row.Scan(&c.ID, &c.Username, &c.StripeCustomerID, &c.LastSeenAt, &c.CreatedAt, &inserted); err != nil {
		return nil, false, err
	}
	return &c, inserted, nil
}

func (q *Queries) TouchCreator(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `UPDATE creators SET last_seen_at = now() WHERE id = $1`, id)
	return err
}

func (q *Queries) SetCreatorStripeCustomer(ctx context.Context, id int64, customerID string) error {
	_, err := q.db.Exec(ctx,
		`UPDATE creators SET stripe_customer_id = $2, updated_at = now() WHERE id = $1`, id, customerID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCreator(row rowScanner) (*domain.Creator, error) {
	var c domain.Creator
	if err := row.Scan(&c.ID, &c.Username, &c.StripeCustomerID, &c.LastSeenAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
