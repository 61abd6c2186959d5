package ledger

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, ref_id, date, idx_date, description, category, status, posted_by, posted_at, metadata
FROM journal_entries ORDER BY idx_date DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachLines(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) Get(ctx context.Context, entryID int64) (Entry, error) {
	row := r.db.QueryRow(ctx, `SELECT id, ref_id, date, idx_date, description, category, status, posted_by, posted_at, metadata
FROM journal_entries WHERE id=$1`, entryID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	entries := []Entry{entry}
	if err := r.attachLines(ctx, entries); err != nil {
		return Entry{}, err
	}
	return entries[0], nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *repository) attachLines(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(entries))
	index := make(map[int64]int, len(entries))
	for i, e := range entries {
		ids = append(ids, e.ID)
		index[e.ID] = i
	}
	rows, err := r.db.Query(ctx, `SELECT id, entry_id, account_code, side, amount, memo
FROM journal_lines WHERE entry_id = ANY($1) ORDER BY id ASC`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountCode, &line.Side, &line.Amount, &line.Memo); err != nil {
			return err
		}
		if i, ok := index[line.EntryID]; ok {
			entries[i].Lines = append(entries[i].Lines, line)
		}
	}
	return rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertEntry(ctx context.Context, in PostingInput, idxDate int64, status Status) (Entry, error) {
	return insertEntry(ctx, r.tx, in, idxDate, status)
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []LineInput) error {
	return insertLines(ctx, r.tx, entryID, lines)
}

func (r *txRepository) GetEntryWithLines(ctx context.Context, entryID int64) (Entry, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, ref_id, date, idx_date, description, category, status, posted_by, posted_at, metadata
FROM journal_entries WHERE id=$1 FOR UPDATE`, entryID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, entry_id, account_code, side, amount, memo
FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return Entry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountCode, &line.Side, &line.Amount, &line.Memo); err != nil {
			return Entry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry, rows.Err()
}

func (r *txRepository) UpdateStatus(ctx context.Context, entryID int64, status Status) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status=$2, updated_at=NOW() WHERE id=$1`, entryID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// InsertEntryTx posts an already-validated entry with its lines using the
// caller's transaction. Session closing uses this so stock deduction and the
// journal entry commit or roll back together.
func InsertEntryTx(ctx context.Context, tx pgx.Tx, in PostingInput) (Entry, error) {
	if err := in.Validate(); err != nil {
		return Entry{}, err
	}
	entry, err := insertEntry(ctx, tx, in, IdxDateFor(in.Date), StatusPosted)
	if err != nil {
		return Entry{}, err
	}
	if err := insertLines(ctx, tx, entry.ID, in.Lines); err != nil {
		return Entry{}, err
	}
	entry.Lines = toLines(entry.ID, in.Lines)
	return entry, nil
}

func insertEntry(ctx context.Context, tx pgx.Tx, in PostingInput, idxDate int64, status Status) (Entry, error) {
	metadata, err := json.Marshal(in.Metadata)
	if err != nil {
		return Entry{}, err
	}
	row := tx.QueryRow(ctx, `INSERT INTO journal_entries (ref_id, date, idx_date, description, category, status, posted_by, metadata)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, posted_at`, in.RefID, in.Date, idxDate, in.Description, in.Category, status, in.PostedBy, metadata)
	entry := Entry{
		RefID:       in.RefID,
		Date:        in.Date,
		IdxDate:     idxDate,
		Description: in.Description,
		Category:    in.Category,
		Status:      status,
		PostedBy:    in.PostedBy,
		Metadata:    in.Metadata,
	}
	if err := row.Scan(&entry.ID, &entry.PostedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Entry{}, ErrDuplicateRef
		}
		return Entry{}, err
	}
	return entry, nil
}

func insertLines(ctx context.Context, tx pgx.Tx, entryID int64, lines []LineInput) error {
	for _, line := range lines {
		if _, err := tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, account_code, side, amount, memo)
VALUES ($1,$2,$3,$4,$5)`, entryID, line.AccountCode, line.Side, line.Amount, line.Memo); err != nil {
			return err
		}
	}
	return nil
}

type entryScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row entryScanner) (Entry, error) {
	var entry Entry
	var metadata []byte
	err := row.Scan(&entry.ID, &entry.RefID, &entry.Date, &entry.IdxDate, &entry.Description, &entry.Category, &entry.Status, &entry.PostedBy, &entry.PostedAt, &metadata)
	if err != nil {
		return Entry{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return Entry{}, err
		}
	}
	return entry, nil
}
