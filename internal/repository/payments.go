package repository

import (
	"context"

	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, creator_id, checkout_session_id, price_id, amount, currency, status, created_at, updated_at`

type CreatePaymentParams struct {
	CreatorID         int64
	CheckoutSessionID string
	PriceID           string
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (*domain.Payment, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO payments (creator_id, checkout_session_id, price_id)
		VALUES ($1, $2, $3)
		RETURNING `+paymentColumns, arg.CreatorID, arg.CheckoutSessionID, arg.PriceID)
	return scanPayment(row)
}

func (q *Queries) GetPaymentBySession(ctx context.Context, checkoutSessionID string) (*domain.Payment, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE checkout_session_id = $1`, checkoutSessionID)
	return scanPayment(row)
}

type UpdatePaymentStatusParams struct {
	CheckoutSessionID string
	Status            domain.PaymentStatus
	Amount            decimal.Decimal
	Currency          string
}

func (q *Queries) UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (*domain.Payment, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE payments SET status = $2, amount = $3, currency = $4, updated_at = now()
		WHERE checkout_session_id = $1
		RETURNING `+paymentColumns,
		arg.CheckoutSessionID, string(arg.Status), arg.Amount, arg.Currency)
	return scanPayment(row)
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	var status string
	if err := row.Scan(&p.ID, &p.CreatorID, &p.CheckoutSessionID, &p.PriceID,
		&p.Amount, &p.Currency, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = domain.PaymentStatus(status)
	return &p, nil
}
