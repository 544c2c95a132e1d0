/*
Package sqlite provides the SQLite-backed implementation of the fund
storage interfaces.

PURPOSE:
  Implements fund.Store (reads plus transactional writes), the row-level
  CRUD surface the HTTP handlers need, and the audit.Logger sink. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

TRANSACTIONS:
  WithTx wraps a callback in one database transaction; the allocation
  ledger uses it so a ceiling check and the write it gates observe the
  same rows. Any error from the callback rolls the whole thing back.

DEGRADED SOURCES:
  Reads of optional tables (collections, sponsorships, dinner_guests,
  dinner_expenses) report a missing table as an empty result instead of
  an error. The schema grew incrementally and reconciliation has to keep
  working on databases migrated halfway.

KEY TABLES:
  categories        revenue/expense category per movement
  movements         posted transactions (the reconciled book)
  collections       fixed-income street collection events
  sponsorships      promised vs delivered amounts
  dinners           events; dinner_guests and dinner_expenses hang off them
  beneficiaries     fixed household accounts (pre-seeded)
  allocations       the reversible grant ledger
  settings          singleton row (rotation block size, start, counter)
  audit_events      append-only operation trail

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

CONCURRENCY:
  Uses sync.RWMutex on top of SQLite's own locking. WithTx holds the
  write lock for the whole callback; the TxStore handed to the callback
  runs unlocked against the open transaction.

USAGE:
  store, err := sqlite.New("./data/fund.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := fund.NewLedger(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - fund/store.go: Interface definitions
  - fund/allocation.go: Higher-level ledger using Store
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/festa/fund-ledger/fund"
)

// Store implements fund.Store and the CRUD surface using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the schema and seeds the fixed rows. Idempotent.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('revenue','expense'))
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_kind
		ON categories(name, kind);

	CREATE TABLE IF NOT EXISTS movements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dt TEXT,
		category_id INTEGER NOT NULL,
		descr TEXT,
		amount_cents INTEGER NOT NULL DEFAULT 0 CHECK (amount_cents >= 0),
		FOREIGN KEY (category_id) REFERENCES categories(id)
	);
	CREATE INDEX IF NOT EXISTS idx_movements_category ON movements(category_id);
	CREATE INDEX IF NOT EXISTS idx_movements_dt ON movements(dt);

	CREATE TABLE IF NOT EXISTS collections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dt TEXT,
		location TEXT,
		team TEXT,
		amount_cents INTEGER NOT NULL DEFAULT 0,
		notes TEXT
	);

	CREATE TABLE IF NOT EXISTS sponsorships (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		contact TEXT,
		promised_cents INTEGER NOT NULL DEFAULT 0,
		delivered_cents INTEGER NOT NULL DEFAULT 0,
		notes TEXT
	);

	CREATE TABLE IF NOT EXISTS dinners (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dt TEXT,
		title TEXT,
		guest_count INTEGER NOT NULL DEFAULT 0,
		price_person_cents INTEGER NOT NULL DEFAULT 0,
		expenses_cents INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS dinner_guests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dinner_id INTEGER NOT NULL,
		name TEXT,
		contact TEXT,
		price_cents INTEGER NOT NULL DEFAULT 0,
		paid_cents INTEGER NOT NULL DEFAULT 0,
		present INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (dinner_id) REFERENCES dinners(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_dinner_guests_dinner ON dinner_guests(dinner_id);

	CREATE TABLE IF NOT EXISTS dinner_expenses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dinner_id INTEGER NOT NULL,
		descr TEXT,
		amount_cents INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (dinner_id) REFERENCES dinners(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_dinner_expenses_dinner ON dinner_expenses(dinner_id);

	CREATE TABLE IF NOT EXISTS beneficiaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		balance_cents INTEGER NOT NULL DEFAULT 0 CHECK (balance_cents >= 0)
	);

	CREATE TABLE IF NOT EXISTS allocations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		beneficiary_id INTEGER NOT NULL,
		amount_cents INTEGER NOT NULL CHECK (amount_cents >= 0),
		note TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (beneficiary_id) REFERENCES beneficiaries(id)
	);
	CREATE INDEX IF NOT EXISTS idx_allocations_beneficiary ON allocations(beneficiary_id);
	CREATE INDEX IF NOT EXISTS idx_allocations_created ON allocations(created_at DESC);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		line1 TEXT,
		line2 TEXT,
		block_cents INTEGER NOT NULL DEFAULT 500000,
		rotation_start_id INTEGER,
		blocks_applied INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		data_json TEXT,
		metadata_json TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_events_type ON audit_events(event_type);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.seed()
}

// seed inserts the fixed rows: the settings singleton, the generic
// movement categories, and the household accounts on a fresh database.
func (s *Store) seed() error {
	if _, err := s.db.Exec(
		`INSERT OR IGNORE INTO settings (id, line1, line2) VALUES (1, 'Festival Committee', '')`,
	); err != nil {
		return err
	}
	for _, kind := range []fund.CategoryKind{fund.KindRevenue, fund.KindExpense} {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO categories (name, kind) VALUES ('General', ?)`, string(kind),
		); err != nil {
			return err
		}
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM beneficiaries`).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		for i := 1; i <= 11; i++ {
			if _, err := s.db.Exec(
				`INSERT INTO beneficiaries (name, balance_cents) VALUES (?, 0)`,
				fmt.Sprintf("Household %d", i),
			); err != nil {
				return err
			}
		}
	}
	return nil
}

// querier is the common surface of *sql.DB and *sql.Tx. Read helpers take
// it so the same SQL serves both the public methods and the TxStore.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

// =============================================================================
// READS (fund.Reader)
// =============================================================================

func (s *Store) Movements(ctx context.Context) ([]fund.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryMovements(ctx, s.db)
}

func queryMovements(ctx context.Context, q querier) ([]fund.Movement, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT m.id, COALESCE(m.dt, ''), c.name, c.kind, COALESCE(m.descr, ''), m.amount_cents
		FROM movements m
		JOIN categories c ON c.id = m.category_id
		ORDER BY (m.dt IS NULL OR m.dt = ''), m.dt DESC, m.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var movements []fund.Movement
	for rows.Next() {
		var m fund.Movement
		var kind string
		if err := rows.Scan(&m.ID, &m.Date, &m.Category, &kind, &m.Description, &m.Amount); err != nil {
			return nil, err
		}
		m.Kind = fund.CategoryKind(kind)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (s *Store) Collections(ctx context.Context) ([]fund.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryCollections(ctx, s.db)
}

func queryCollections(ctx context.Context, q querier) ([]fund.Collection, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, COALESCE(dt, ''), COALESCE(location, ''), COALESCE(team, ''), amount_cents, COALESCE(notes, '')
		FROM collections
		ORDER BY (dt IS NULL OR dt = ''), dt, id
	`)
	if isMissingTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	var collections []fund.Collection
	for rows.Next() {
		var c fund.Collection
		if err := rows.Scan(&c.ID, &c.Date, &c.Location, &c.Team, &c.Amount, &c.Notes); err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

func (s *Store) Sponsorships(ctx context.Context) ([]fund.Sponsorship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querySponsorships(ctx, s.db)
}

func querySponsorships(ctx context.Context, q querier) ([]fund.Sponsorship, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, COALESCE(contact, ''), promised_cents, delivered_cents, COALESCE(notes, '')
		FROM sponsorships
		ORDER BY name COLLATE NOCASE, id
	`)
	if isMissingTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sponsorships: %w", err)
	}
	defer rows.Close()

	var sponsorships []fund.Sponsorship
	for rows.Next() {
		var sp fund.Sponsorship
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.Contact, &sp.Promised, &sp.Delivered, &sp.Notes); err != nil {
			return nil, err
		}
		sponsorships = append(sponsorships, sp)
	}
	return sponsorships, rows.Err()
}

func (s *Store) Dinners(ctx context.Context) ([]fund.Dinner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryDinners(ctx, s.db)
}

func queryDinners(ctx context.Context, q querier) ([]fund.Dinner, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, COALESCE(dt, ''), COALESCE(title, ''), guest_count, price_person_cents, expenses_cents
		FROM dinners
		ORDER BY (dt IS NULL OR dt = ''), dt DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dinners: %w", err)
	}
	defer rows.Close()

	var dinners []fund.Dinner
	index := make(map[fund.DinnerID]int)
	for rows.Next() {
		var d fund.Dinner
		if err := rows.Scan(&d.ID, &d.Date, &d.Title, &d.GuestCount, &d.BasePrice, &d.Expense); err != nil {
			return nil, err
		}
		index[d.ID] = len(dinners)
		dinners = append(dinners, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	guests, err := queryGuests(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, g := range guests {
		if i, ok := index[g.DinnerID]; ok {
			dinners[i].Guests = append(dinners[i].Guests, g)
		}
	}

	items, err := queryExpenseItems(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, e := range items {
		if i, ok := index[e.DinnerID]; ok {
			dinners[i].Expenses = append(dinners[i].Expenses, e)
		}
	}
	return dinners, nil
}

func queryGuests(ctx context.Context, q querier) ([]fund.Guest, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, dinner_id, COALESCE(name, ''), COALESCE(contact, ''), price_cents, paid_cents, present
		FROM dinner_guests
		ORDER BY dinner_id, id
	`)
	if isMissingTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dinner guests: %w", err)
	}
	defer rows.Close()

	var guests []fund.Guest
	for rows.Next() {
		var g fund.Guest
		var present int
		if err := rows.Scan(&g.ID, &g.DinnerID, &g.Name, &g.Contact, &g.Price, &g.Paid, &present); err != nil {
			return nil, err
		}
		g.Present = present != 0
		guests = append(guests, g)
	}
	return guests, rows.Err()
}

func queryExpenseItems(ctx context.Context, q querier) ([]fund.ExpenseItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, dinner_id, COALESCE(descr, ''), amount_cents
		FROM dinner_expenses
		ORDER BY dinner_id, id
	`)
	if isMissingTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dinner expenses: %w", err)
	}
	defer rows.Close()

	var items []fund.ExpenseItem
	for rows.Next() {
		var e fund.ExpenseItem
		if err := rows.Scan(&e.ID, &e.DinnerID, &e.Description, &e.Amount); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (s *Store) Beneficiaries(ctx context.Context) ([]fund.Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryBeneficiaries(ctx, s.db)
}

func queryBeneficiaries(ctx context.Context, q querier) ([]fund.Beneficiary, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, balance_cents FROM beneficiaries ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query beneficiaries: %w", err)
	}
	defer rows.Close()

	var beneficiaries []fund.Beneficiary
	for rows.Next() {
		var b fund.Beneficiary
		if err := rows.Scan(&b.ID, &b.Name, &b.Balance); err != nil {
			return nil, err
		}
		beneficiaries = append(beneficiaries, b)
	}
	return beneficiaries, rows.Err()
}

func (s *Store) Beneficiary(ctx context.Context, id fund.BeneficiaryID) (*fund.Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryBeneficiary(ctx, s.db, id)
}

func queryBeneficiary(ctx context.Context, q querier, id fund.BeneficiaryID) (*fund.Beneficiary, error) {
	var b fund.Beneficiary
	err := q.QueryRowContext(ctx,
		`SELECT id, name, balance_cents FROM beneficiaries WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.Balance)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) Allocations(ctx context.Context) ([]fund.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryAllocations(ctx, s.db)
}

func queryAllocations(ctx context.Context, q querier) ([]fund.Allocation, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, beneficiary_id, amount_cents, COALESCE(note, ''), created_at
		FROM allocations
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var allocations []fund.Allocation
	for rows.Next() {
		var a fund.Allocation
		var createdAt string
		if err := rows.Scan(&a.ID, &a.BeneficiaryID, &a.Amount, &a.Note, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func (s *Store) Allocation(ctx context.Context, id fund.AllocationID) (*fund.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryAllocation(ctx, s.db, id)
}

func queryAllocation(ctx context.Context, q querier, id fund.AllocationID) (*fund.Allocation, error) {
	var a fund.Allocation
	var createdAt string
	err := q.QueryRowContext(ctx,
		`SELECT id, beneficiary_id, amount_cents, COALESCE(note, ''), created_at FROM allocations WHERE id = ?`, id,
	).Scan(&a.ID, &a.BeneficiaryID, &a.Amount, &a.Note, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func (s *Store) Settings(ctx context.Context) (fund.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querySettings(ctx, s.db)
}

func querySettings(ctx context.Context, q querier) (fund.Settings, error) {
	var st fund.Settings
	var line1, line2 sql.NullString
	var startID sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT line1, line2, block_cents, rotation_start_id, blocks_applied FROM settings WHERE id = 1`,
	).Scan(&line1, &line2, &st.BlockSize, &startID, &st.BlocksApplied)
	if err == sql.ErrNoRows {
		return fund.Settings{BlockSize: fund.DefaultBlockSize}, nil
	}
	if err != nil {
		return st, err
	}
	st.Line1 = line1.String
	st.Line2 = line2.String
	if startID.Valid {
		st.RotationStartID = fund.BeneficiaryID(startID.Int64)
	}
	return st, nil
}

// =============================================================================
// TRANSACTIONS (fund.Store / fund.TxStore)
// =============================================================================

// WithTx executes fn within a single database transaction. The TxStore
// handed to fn reads and writes through that transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx fund.TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Movements(ctx context.Context) ([]fund.Movement, error) {
	return queryMovements(ctx, ts.tx)
}

func (ts *txStore) Collections(ctx context.Context) ([]fund.Collection, error) {
	return queryCollections(ctx, ts.tx)
}

func (ts *txStore) Sponsorships(ctx context.Context) ([]fund.Sponsorship, error) {
	return querySponsorships(ctx, ts.tx)
}

func (ts *txStore) Dinners(ctx context.Context) ([]fund.Dinner, error) {
	return queryDinners(ctx, ts.tx)
}

func (ts *txStore) Beneficiaries(ctx context.Context) ([]fund.Beneficiary, error) {
	return queryBeneficiaries(ctx, ts.tx)
}

func (ts *txStore) Beneficiary(ctx context.Context, id fund.BeneficiaryID) (*fund.Beneficiary, error) {
	return queryBeneficiary(ctx, ts.tx, id)
}

func (ts *txStore) Allocations(ctx context.Context) ([]fund.Allocation, error) {
	return queryAllocations(ctx, ts.tx)
}

func (ts *txStore) Allocation(ctx context.Context, id fund.AllocationID) (*fund.Allocation, error) {
	return queryAllocation(ctx, ts.tx, id)
}

func (ts *txStore) Settings(ctx context.Context) (fund.Settings, error) {
	return querySettings(ctx, ts.tx)
}

func (ts *txStore) InsertAllocation(ctx context.Context, a fund.Allocation) (fund.AllocationID, error) {
	res, err := ts.tx.ExecContext(ctx,
		`INSERT INTO allocations (beneficiary_id, amount_cents, note, created_at) VALUES (?, ?, ?, ?)`,
		a.BeneficiaryID, a.Amount, a.Note, a.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert allocation: %w", err)
	}
	id, err := res.LastInsertId()
	return fund.AllocationID(id), err
}

func (ts *txStore) UpdateAllocationAmount(ctx context.Context, id fund.AllocationID, amount int64) error {
	_, err := ts.tx.ExecContext(ctx,
		`UPDATE allocations SET amount_cents = ? WHERE id = ?`, amount, id,
	)
	return err
}

func (ts *txStore) DeleteAllocation(ctx context.Context, id fund.AllocationID) error {
	_, err := ts.tx.ExecContext(ctx, `DELETE FROM allocations WHERE id = ?`, id)
	return err
}

// AdjustBeneficiaryBalance applies delta to a household balance, clamping
// the result at zero. Reports whether clamping occurred.
func (ts *txStore) AdjustBeneficiaryBalance(ctx context.Context, id fund.BeneficiaryID, delta int64) (bool, error) {
	var balance int64
	err := ts.tx.QueryRowContext(ctx,
		`SELECT balance_cents FROM beneficiaries WHERE id = ?`, id,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return false, &fund.NotFoundError{Kind: "beneficiary", ID: int64(id)}
	}
	if err != nil {
		return false, err
	}

	next := balance + delta
	clamped := next < 0
	if clamped {
		next = 0
	}
	if _, err := ts.tx.ExecContext(ctx,
		`UPDATE beneficiaries SET balance_cents = ? WHERE id = ?`, next, id,
	); err != nil {
		return false, fmt.Errorf("failed to adjust beneficiary balance: %w", err)
	}
	return clamped, nil
}

func (ts *txStore) AddBlocksApplied(ctx context.Context, n int) error {
	_, err := ts.tx.ExecContext(ctx,
		`UPDATE settings SET blocks_applied = blocks_applied + ? WHERE id = 1`, n,
	)
	return err
}
