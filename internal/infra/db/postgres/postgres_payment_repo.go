package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-horoscope-agent/internal/domain"
	"telegram-horoscope-agent/internal/domain/model"
	"telegram-horoscope-agent/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, sender_id, provider, checkout_ref, client_ref, sign, amount, currency, status, created_at, updated_at, paid_at, description`

func (r *paymentRepo) Save(ctx context.Context, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (id) DO UPDATE SET
  status=$9, updated_at=$11, paid_at=$12;`

	_, err := r.pool.Exec(ctx, q,
		p.ID, p.SenderID, p.Provider, p.CheckoutRef, p.ClientRef, p.Sign,
		p.Amount, p.Currency, p.Status, p.CreatedAt, p.UpdatedAt, p.PaidAt, p.Description)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505: checkout_ref uniqueness violated; the ref already has a ledger row.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrInvalidArgument
		}
		return err
	}
	return nil
}

func (r *paymentRepo) FindByCheckoutRef(ctx context.Context, checkoutRef string) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE checkout_ref=$1 LIMIT 1;`
	row := r.pool.QueryRow(ctx, q, checkoutRef)
	return scanPayment(row)
}

func (r *paymentRepo) UpdateStatusIfPending(ctx context.Context, checkoutRef string, status model.PaymentStatus, paidAt *time.Time) (bool, error) {
	const q = `UPDATE payments SET status=$2, paid_at=COALESCE($3, paid_at), updated_at=NOW()
WHERE checkout_ref=$1 AND status='pending';`
	tag, err := r.pool.Exec(ctx, q, checkoutRef, status, paidAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments
WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := r.pool.Query(ctx, q, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (r *paymentRepo) ListRecent(ctx context.Context, limit int) ([]*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at DESC LIMIT $1;`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	err := row.Scan(&p.ID, &p.SenderID, &p.Provider, &p.CheckoutRef, &p.ClientRef, &p.Sign,
		&p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.PaidAt, &p.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func scanPayments(rows pgx.Rows) ([]*model.Payment, error) {
	var out []*model.Payment
	for rows.Next() {
		p := &model.Payment{}
		if err := rows.Scan(&p.ID, &p.SenderID, &p.Provider, &p.CheckoutRef, &p.ClientRef, &p.Sign,
			&p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.PaidAt, &p.Description); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
