package membership

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// paidStatuses are booking statuses that count toward member classification.
var paidStatuses = []string{"paid", "confirmed", "completed"}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) IsVerifiedStudent(ctx context.Context, userID string) (bool, error) {
	// EXISTS keeps an unknown user a plain "not verified" so the resolver
	// can continue down the category rules
	var verified bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM users WHERE id=$1 AND student_verified)`, userID).Scan(&verified)
	if err != nil {
		return false, err
	}
	return verified, nil
}

func (r *repository) HasPaidDrillingBooking(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM bookings WHERE user_id=$1 AND booking_type='drilling' AND status = ANY($2))`, userID, paidStatuses).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
