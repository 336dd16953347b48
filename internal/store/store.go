// Package store persists decoded transactions and per-device sighting
// counters in SQLite so past runs can be queried through the report API.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Page size limits for transaction queries.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// malformedAddress is the address stored for tokens that did not parse;
// such rows never count as a device sighting.
const malformedAddress = "ERROR"

// conditionIgnored marks rows for addresses on the ignore list. They never
// count as a device sighting.
const conditionIgnored = "ignored"

// Device is the sighting summary of one bus address.
type Device struct {
	Address          string    `json:"address"`
	Name             string    `json:"name"`
	FirstSeen        time.Time `json:"first_seen"`
	LastSeen         time.Time `json:"last_seen"`
	TransactionCount int64     `json:"transaction_count"`
}

// Transaction is one stored decode result.
type Transaction struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	Seq          int64     `json:"seq"`
	Address      string    `json:"address"`
	Name         string    `json:"name"`
	Direction    string    `json:"direction"`
	AddressAck   string    `json:"address_ack"`
	TrailingAck  string    `json:"trailing_ack"`
	Register     string    `json:"register"`
	RegisterName string    `json:"register_name"`
	Page         string    `json:"page,omitempty"`
	Format       string    `json:"format"`
	Value        string    `json:"value"`
	Numeric      *float64  `json:"numeric,omitempty"`
	Raw          string    `json:"raw"`
	Line         string    `json:"line"`
	Condition    string    `json:"condition,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Filter controls which transactions ListTransactions returns.
type Filter struct {
	Address   string // optional: canonical device address
	RunID     string // optional: one decode run
	Condition string // optional: e.g. unresolved_register
	Limit     int    // default DefaultLimit, max MaxLimit
	Offset    int
}

// ListResult contains one page of transactions, newest first.
type ListResult struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total"`
	Limit        int           `json:"limit"`
	Offset       int           `json:"offset"`
}

// Repository defines decode history operations.
type Repository interface {
	Record(ctx context.Context, tx *Transaction) error
	ListDevices(ctx context.Context) ([]Device, error)
	GetDevice(ctx context.Context, address string) (*Device, error)
	ListTransactions(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores decode history in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an already migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts a transaction and, unless it is malformed or ignored,
// bumps the sighting counter of its device. Both writes share one SQL transaction.
// CreatedAt defaults to now and ID is filled in on success.
func (r *SQLiteRepository) Record(ctx context.Context, t *Transaction) error {
	if t.RunID == "" || t.Address == "" {
		return ErrInvalidTransaction
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	at := t.CreatedAt.UTC().Format(time.RFC3339Nano)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	res, err := tx.ExecContext(ctx,
		`INSERT INTO decoded_transactions
		 (run_id, seq, address, name, direction, address_ack, trailing_ack, register,
		  register_name, page, format, value, numeric, raw, line, condition, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.RunID, t.Seq, t.Address, t.Name, t.Direction, t.AddressAck, t.TrailingAck, t.Register,
		t.RegisterName, t.Page, t.Format, t.Value, nullableFloat(t.Numeric), t.Raw, t.Line, t.Condition, at,
	)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}

	if t.Address != malformedAddress && t.Condition != conditionIgnored {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bus_devices (address, name, first_seen, last_seen, transaction_count)
			 VALUES (?, ?, ?, ?, 1)
			 ON CONFLICT(address) DO UPDATE SET
			   name = CASE WHEN excluded.name != '' THEN excluded.name ELSE bus_devices.name END,
			   last_seen = excluded.last_seen,
			   transaction_count = bus_devices.transaction_count + 1`,
			t.Address, t.Name, at, at,
		); err != nil {
			return fmt.Errorf("recording device sighting: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err == nil {
		t.ID = id
	}
	return nil
}

// ListDevices returns every recorded device ordered by address.
func (r *SQLiteRepository) ListDevices(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT address, name, first_seen, last_seen, transaction_count
		 FROM bus_devices ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// GetDevice returns the sighting summary for address, or ErrNotFound.
func (r *SQLiteRepository) GetDevice(ctx context.Context, address string) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT address, name, first_seen, last_seen, transaction_count
		 FROM bus_devices WHERE address = ?`, address)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// ListTransactions returns transactions matching filter, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Address != "" {
		conditions = append(conditions, "address = ?")
		args = append(args, filter.Address)
	}
	if filter.RunID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.Condition != "" {
		conditions = append(conditions, "condition = ?")
		args = append(args, filter.Condition)
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM decoded_transactions %s", where) //nolint:gosec // WHERE built from parameterised conditions
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting transactions: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions
		`SELECT id, run_id, seq, address, name, direction, address_ack, trailing_ack, register,
		        register_name, page, format, value, numeric, raw, line, condition, created_at
		 FROM decoded_transactions %s ORDER BY id DESC LIMIT ? OFFSET ?`, where)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	txs := []Transaction{}
	for rows.Next() {
		var t Transaction
		var numeric sql.NullFloat64
		var createdAt string
		if err := rows.Scan(&t.ID, &t.RunID, &t.Seq, &t.Address, &t.Name, &t.Direction,
			&t.AddressAck, &t.TrailingAck, &t.Register, &t.RegisterName, &t.Page, &t.Format,
			&t.Value, &numeric, &t.Raw, &t.Line, &t.Condition, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		if numeric.Valid {
			v := numeric.Float64
			t.Numeric = &v
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return &ListResult{
		Transactions: txs,
		Total:        total,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	}, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var d Device
	var firstSeen, lastSeen string
	if err := row.Scan(&d.Address, &d.Name, &firstSeen, &lastSeen, &d.TransactionCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning device: %w", err)
	}
	var err error
	if d.FirstSeen, err = parseTime(firstSeen); err != nil {
		return nil, err
	}
	if d.LastSeen, err = parseTime(lastSeen); err != nil {
		return nil, err
	}
	return &d, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// nullableFloat returns nil for a missing numeric value.
func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
