package membership

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/courtledger/courtledger/internal/pricing"
)

type stubRepo struct {
	student    bool
	studentErr error
	booked     bool
	bookedErr  error
}

func (s *stubRepo) IsVerifiedStudent(ctx context.Context, userID string) (bool, error) {
	return s.student, s.studentErr
}

func (s *stubRepo) HasPaidDrillingBooking(ctx context.Context, userID string) (bool, error) {
	return s.booked, s.bookedErr
}

func TestCategoryResolution(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		userID string
		repo   stubRepo
		want   pricing.UserCategory
	}{
		{name: "anonymous is drop-in", userID: "", want: pricing.CategoryDropIn},
		{name: "verified student", userID: "u1", repo: stubRepo{student: true}, want: pricing.CategoryStudent},
		{name: "paid drilling booking makes member", userID: "u2", repo: stubRepo{booked: true}, want: pricing.CategoryMember},
		{name: "student wins over member", userID: "u3", repo: stubRepo{student: true, booked: true}, want: pricing.CategoryStudent},
		{name: "no history is trial", userID: "u4", want: pricing.CategoryTrial},
		{name: "student lookup failure fails open", userID: "u5", repo: stubRepo{studentErr: errors.New("down")}, want: pricing.CategoryNormal},
		{name: "booking lookup failure fails open", userID: "u6", repo: stubRepo{bookedErr: errors.New("down")}, want: pricing.CategoryNormal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolver := NewResolver(&tc.repo, nil)
			require.Equal(t, tc.want, resolver.Category(ctx, tc.userID))
		})
	}
}

// tableRepo mirrors the SQL contract: a user with no users row scans as
// not-verified, never as an error.
type tableRepo struct {
	verified map[string]bool
	booked   map[string]bool
}

func (s *tableRepo) IsVerifiedStudent(ctx context.Context, userID string) (bool, error) {
	return s.verified[userID], nil
}

func (s *tableRepo) HasPaidDrillingBooking(ctx context.Context, userID string) (bool, error) {
	return s.booked[userID], nil
}

func TestCategoryUnknownUserContinuesRuleChain(t *testing.T) {
	ctx := context.Background()
	repo := &tableRepo{
		verified: map[string]bool{"u1": true},
		booked:   map[string]bool{"guest-1": true},
	}
	resolver := NewResolver(repo, nil)

	// a booking-only user absent from the users table is a member, not a
	// fail-open normal
	require.Equal(t, pricing.CategoryMember, resolver.Category(ctx, "guest-1"))
	require.Equal(t, pricing.CategoryTrial, resolver.Category(ctx, "guest-2"))
	require.Equal(t, pricing.CategoryStudent, resolver.Category(ctx, "u1"))
}
