// Package membership classifies users into pricing categories from their
// booking history. Read-only; no side effects.
package membership

import (
	"context"
	"log/slog"

	"github.com/courtledger/courtledger/internal/pricing"
)

// Repository reads the user and booking records consulted by classification.
type Repository interface {
	IsVerifiedStudent(ctx context.Context, userID string) (bool, error)
	HasPaidDrillingBooking(ctx context.Context, userID string) (bool, error)
}

// Resolver derives a pricing category for a user.
type Resolver struct {
	repo   Repository
	logger *slog.Logger
}

func NewResolver(repo Repository, logger *slog.Logger) *Resolver {
	return &Resolver{repo: repo, logger: logger}
}

// Category resolves the user's pricing category. Rules in priority order:
// anonymous users are drop-ins, verified students price as students, anyone
// with a paid drilling booking is a member, everyone else gets the trial
// tier. Lookup failures fall open to the normal tier rather than erroring.
func (r *Resolver) Category(ctx context.Context, userID string) pricing.UserCategory {
	if userID == "" {
		return pricing.CategoryDropIn
	}

	student, err := r.repo.IsVerifiedStudent(ctx, userID)
	if err != nil {
		return r.failOpen(userID, err)
	}
	if student {
		return pricing.CategoryStudent
	}

	booked, err := r.repo.HasPaidDrillingBooking(ctx, userID)
	if err != nil {
		return r.failOpen(userID, err)
	}
	if booked {
		return pricing.CategoryMember
	}

	return pricing.CategoryTrial
}

func (r *Resolver) failOpen(userID string, err error) pricing.UserCategory {
	if r.logger != nil {
		r.logger.Warn("category lookup failed, defaulting to normal",
			slog.String("user_id", userID), slog.Any("error", err))
	}
	return pricing.CategoryNormal
}
