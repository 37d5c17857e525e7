package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/hotelops/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentColumns = `id, booking_id, amount_cents, method, status, external_ref, refund_of, metadata, created_at, updated_at`

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	GetByExternalRef(ctx context.Context, externalRef string) (*domain.Payment, error)
	SetExternalRef(ctx context.Context, id int64, externalRef string) error
	Settle(ctx context.Context, externalRef string, to domain.PaymentStatus) (*domain.Payment, bool, error)
	CreateRefund(ctx context.Context, sourceID int64, refund *domain.Payment) error
	ListByBooking(ctx context.Context, bookingID int64) ([]domain.Payment, error)
	CompletedTotal(ctx context.Context, bookingID int64) (int64, error)
}

type PGPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

func (r *PGPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	var refundOf any
	if payment.RefundOf != 0 {
		refundOf = payment.RefundOf
	}
	if err := r.db.QueryRow(ctx, `INSERT INTO payments (booking_id, amount_cents, method, status, external_ref, refund_of, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		payment.BookingID, payment.AmountCents, payment.Method, payment.Status, payment.ExternalRef, refundOf, payment.Metadata).
		Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt); err != nil {
		return err
	}
	return nil
}

func (r *PGPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id)
	return scanPayment(row, fmt.Sprintf("id %d", id))
}

func (r *PGPaymentRepository) GetByExternalRef(ctx context.Context, externalRef string) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE external_ref=$1`, externalRef)
	return scanPayment(row, externalRef)
}

func (r *PGPaymentRepository) SetExternalRef(ctx context.Context, id int64, externalRef string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE payments SET external_ref=$1, updated_at=now() WHERE id=$2`, externalRef, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("payment id %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Settle flips a payment from PENDING to a terminal status as a single
// conditional update keyed by external ref. The boolean reports whether the
// flip was applied; false means the row was already terminal (or absent),
// which makes duplicate gateway callbacks safe under concurrency.
func (r *PGPaymentRepository) Settle(ctx context.Context, externalRef string, to domain.PaymentStatus) (*domain.Payment, bool, error) {
	row := r.db.QueryRow(ctx, `UPDATE payments SET status=$1, updated_at=now() WHERE external_ref=$2 AND status=$3
		RETURNING `+paymentColumns, to, externalRef, domain.PaymentStatusPending)
	payment, err := scanPayment(row, externalRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payment, true, nil
}

// CreateRefund inserts a refund row with the cumulative cap check serialized
// on the source payment row: the source is locked FOR UPDATE, prior refunds
// are summed under that lock, and the insert happens only while the cap
// holds. Concurrent refunds of the same payment queue on the row lock; the
// loser re-reads a sum that includes the winner's row. A refund that
// exhausts the source flips its status to REFUNDED in the same transaction.
func (r *PGPaymentRepository) CreateRefund(ctx context.Context, sourceID int64, refund *domain.Payment) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var status domain.PaymentStatus
	var sourceCents int64
	if err := tx.QueryRow(ctx, `SELECT status, amount_cents FROM payments WHERE id=$1 FOR UPDATE`, sourceID).
		Scan(&status, &sourceCents); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("payment id %d: %w", sourceID, domain.ErrNotFound)
		}
		return err
	}
	if status != domain.PaymentStatusCompleted {
		return fmt.Errorf("payment id %d is %s: only completed payments can be refunded", sourceID, status)
	}

	var refunded int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(-amount_cents), 0) FROM payments WHERE refund_of=$1 AND status=$2`,
		sourceID, domain.PaymentStatusCompleted).Scan(&refunded); err != nil {
		return err
	}

	amount := -refund.AmountCents
	if refunded+amount > sourceCents {
		return fmt.Errorf("refund %d plus prior refunds %d against payment of %d: %w",
			amount, refunded, sourceCents, domain.ErrRefundExceedsPayment)
	}

	if err := tx.QueryRow(ctx, `INSERT INTO payments (booking_id, amount_cents, method, status, external_ref, refund_of, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		refund.BookingID, refund.AmountCents, refund.Method, refund.Status, refund.ExternalRef, sourceID, refund.Metadata).
		Scan(&refund.ID, &refund.CreatedAt, &refund.UpdatedAt); err != nil {
		return err
	}

	if refunded+amount == sourceCents {
		if _, err := tx.Exec(ctx, `UPDATE payments SET status=$1, updated_at=now() WHERE id=$2`,
			domain.PaymentStatusRefunded, sourceID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *PGPaymentRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id=$1 ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		var p domain.Payment
		var refundOf *int64
		if err := rows.Scan(&p.ID, &p.BookingID, &p.AmountCents, &p.Method, &p.Status, &p.ExternalRef, &refundOf, &p.Metadata, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if refundOf != nil {
			p.RefundOf = *refundOf
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// CompletedTotal derives a booking's paid state by summation; refund rows
// carry negative amounts and subtract themselves.
func (r *PGPaymentRepository) CompletedTotal(ctx context.Context, bookingID int64) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE booking_id=$1 AND status = ANY($2)`,
		bookingID, []string{string(domain.PaymentStatusCompleted), string(domain.PaymentStatusRefunded)}).Scan(&total)
	return total, err
}

func scanPayment(row pgx.Row, ident string) (*domain.Payment, error) {
	var p domain.Payment
	var refundOf *int64
	if err := row.Scan(&p.ID, &p.BookingID, &p.AmountCents, &p.Method, &p.Status, &p.ExternalRef, &refundOf, &p.Metadata, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment %s: %w", ident, domain.ErrNotFound)
		}
		return nil, err
	}
	if refundOf != nil {
		p.RefundOf = *refundOf
	}
	return &p, nil
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
