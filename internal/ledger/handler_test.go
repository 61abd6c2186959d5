package ledger

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "unbalanced entry", err: ErrUnbalanced, want: http.StatusUnprocessableEntity},
		{name: "duplicate ref", err: ErrDuplicateRef, want: http.StatusConflict},
		{name: "missing entry", err: ErrEntryNotFound, want: http.StatusNotFound},
		{
			name: "serialization failure surfaces as conflict",
			err:  fmt.Errorf("db: commit tx: %w", &pgconn.PgError{Code: "40001", Message: "could not serialize access due to concurrent update"}),
			want: http.StatusConflict,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.respondError(rr, tc.err)
			require.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestRespondErrorSerializationFailureAsksForRetry(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	rr := httptest.NewRecorder()

	h.respondError(rr, &pgconn.PgError{Code: "40001"})

	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "please retry")
}
