package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/cinemalab/cinema-data/internal/domain"
)

// UserWriter inserts users, skipping emails that already exist.
type UserWriter struct{ repo *Repository }

func (r *Repository) Users() *UserWriter { return &UserWriter{repo: r} }

func (w *UserWriter) WriteBatch(ctx context.Context, rows []domain.User) error {
	return w.repo.WithTx(ctx, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for _, u := range rows {
			b.Queue(`
				INSERT INTO users (email, name, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (email) DO NOTHING`,
				u.Email, u.Name, u.Phone, u.CreatedAt.UTC(), u.UpdatedAt.UTC())
		}
		return errors.Wrap(tx.SendBatch(ctx, b).Close(), "insert users")
	})
}

// ReservationWriter inserts reservations and, once a batch has committed,
// hands the stored rows (with their new ids) to OnCommit.
type ReservationWriter struct {
	repo     *Repository
	OnCommit func(ctx context.Context, stored []domain.Reservation) error
}

func (r *Repository) Reservations(onCommit func(context.Context, []domain.Reservation) error) *ReservationWriter {
	return &ReservationWriter{repo: r, OnCommit: onCommit}
}

func (w *ReservationWriter) WriteBatch(ctx context.Context, rows []domain.Reservation) error {
	stored := make([]domain.Reservation, len(rows))
	copy(stored, rows)

	err := w.repo.WithTx(ctx, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for _, res := range rows {
			b.Queue(`
				INSERT INTO reservations (user_id, schedule_id, movie_id, total_amount, status, reservation_date)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id`,
				res.UserID, res.ScheduleID, res.MovieID, res.TotalAmount, string(res.Status), res.ReservationDate.UTC())
		}
		br := tx.SendBatch(ctx, b)
		for i := range stored {
			if err := br.QueryRow().Scan(&stored[i].ID); err != nil {
				br.Close()
				return errors.Wrap(err, "insert reservation")
			}
		}
		return br.Close()
	})
	if err != nil {
		return err
	}
	if w.OnCommit != nil {
		return w.OnCommit(ctx, stored)
	}
	return nil
}

type ReservedSeatWriter struct{ repo *Repository }

func (r *Repository) ReservedSeats() *ReservedSeatWriter { return &ReservedSeatWriter{repo: r} }

func (w *ReservedSeatWriter) WriteBatch(ctx context.Context, rows []domain.ReservedSeat) error {
	return w.repo.WithTx(ctx, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for _, s := range rows {
			b.Queue(`INSERT INTO reserved_seats (reservation_id, seat_id) VALUES ($1, $2)`, s.ReservationID, s.SeatID)
		}
		return errors.Wrap(tx.SendBatch(ctx, b).Close(), "insert reserved seats")
	})
}

type PaymentWriter struct{ repo *Repository }

func (r *Repository) Payments() *PaymentWriter { return &PaymentWriter{repo: r} }

func (w *PaymentWriter) WriteBatch(ctx context.Context, rows []domain.Payment) error {
	return w.repo.WithTx(ctx, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for _, p := range rows {
			b.Queue(`
				INSERT INTO payments (reservation_id, amount, payment_method, payment_status, transaction_id, payment_date)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				p.ReservationID, p.Amount, string(p.PaymentMethod), string(p.PaymentStatus), p.TransactionID, p.PaymentDate.UTC())
		}
		return errors.Wrap(tx.SendBatch(ctx, b).Close(), "insert payments")
	})
}
