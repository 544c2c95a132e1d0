package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/festa/fund-ledger/fund"
)

// ErrAlreadyPosted is returned by PostDinner when a matching revenue
// movement already exists for the dinner.
var ErrAlreadyPosted = errors.New("dinner already posted")

// =============================================================================
// MOVEMENTS
// =============================================================================

// InsertMovement records a transaction, resolving (or creating) the named
// category under the movement's kind. An empty category name falls back to
// the seeded General category.
func (s *Store) InsertMovement(ctx context.Context, m fund.Movement) (fund.MovementID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertMovement(ctx, s.db, m)
}

func insertMovement(ctx context.Context, q querier, m fund.Movement) (fund.MovementID, error) {
	catID, err := ensureCategory(ctx, q, m.Category, m.Kind)
	if err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO movements (dt, category_id, descr, amount_cents) VALUES (?, ?, ?, ?)`,
		nullIfEmpty(m.Date), catID, m.Description, m.Amount,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert movement: %w", err)
	}
	id, err := res.LastInsertId()
	return fund.MovementID(id), err
}

func ensureCategory(ctx context.Context, q querier, name string, kind fund.CategoryKind) (int64, error) {
	if name == "" {
		name = "General"
	}
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE name = ? AND kind = ?`, name, string(kind),
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO categories (name, kind) VALUES (?, ?)`, name, string(kind),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create category: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) UpdateMovement(ctx context.Context, m fund.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	catID, err := ensureCategory(ctx, s.db, m.Category, m.Kind)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE movements SET dt = ?, category_id = ?, descr = ?, amount_cents = ? WHERE id = ?`,
		nullIfEmpty(m.Date), catID, m.Description, m.Amount, m.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "movement", int64(m.ID))
}

func (s *Store) DeleteMovement(ctx context.Context, id fund.MovementID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM movements WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "movement", int64(id))
}

// =============================================================================
// COLLECTIONS
// =============================================================================

func (s *Store) InsertCollection(ctx context.Context, c fund.Collection) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (dt, location, team, amount_cents, notes) VALUES (?, ?, ?, ?, ?)`,
		nullIfEmpty(c.Date), c.Location, c.Team, c.Amount, c.Notes,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert collection: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) UpdateCollection(ctx context.Context, c fund.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE collections SET dt = ?, location = ?, team = ?, amount_cents = ?, notes = ? WHERE id = ?`,
		nullIfEmpty(c.Date), c.Location, c.Team, c.Amount, c.Notes, c.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "collection", c.ID)
}

func (s *Store) DeleteCollection(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "collection", id)
}

// =============================================================================
// SPONSORSHIPS
// =============================================================================

func (s *Store) InsertSponsorship(ctx context.Context, sp fund.Sponsorship) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sponsorships (name, contact, promised_cents, delivered_cents, notes) VALUES (?, ?, ?, ?, ?)`,
		sp.Name, sp.Contact, sp.Promised, sp.Delivered, sp.Notes,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sponsorship: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) UpdateSponsorship(ctx context.Context, sp fund.Sponsorship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE sponsorships SET name = ?, contact = ?, promised_cents = ?, delivered_cents = ?, notes = ? WHERE id = ?`,
		sp.Name, sp.Contact, sp.Promised, sp.Delivered, sp.Notes, sp.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "sponsorship", sp.ID)
}

func (s *Store) DeleteSponsorship(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM sponsorships WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "sponsorship", id)
}

// =============================================================================
// DINNERS
// =============================================================================

func (s *Store) InsertDinner(ctx context.Context, d fund.Dinner) (fund.DinnerID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO dinners (dt, title, guest_count, price_person_cents, expenses_cents) VALUES (?, ?, ?, ?, ?)`,
		nullIfEmpty(d.Date), d.Title, d.GuestCount, d.BasePrice, d.Expense,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert dinner: %w", err)
	}
	id, err := res.LastInsertId()
	return fund.DinnerID(id), err
}

func (s *Store) UpdateDinner(ctx context.Context, d fund.Dinner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE dinners SET dt = ?, title = ?, guest_count = ?, price_person_cents = ?, expenses_cents = ? WHERE id = ?`,
		nullIfEmpty(d.Date), d.Title, d.GuestCount, d.BasePrice, d.Expense, d.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "dinner", int64(d.ID))
}

func (s *Store) DeleteDinner(ctx context.Context, id fund.DinnerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Guests and line-item expenses cascade.
	res, err := s.db.ExecContext(ctx, `DELETE FROM dinners WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "dinner", int64(id))
}

func (s *Store) Dinner(ctx context.Context, id fund.DinnerID) (*fund.Dinner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryDinner(ctx, s.db, id)
}

func queryDinner(ctx context.Context, q querier, id fund.DinnerID) (*fund.Dinner, error) {
	var d fund.Dinner
	err := q.QueryRowContext(ctx, `
		SELECT id, COALESCE(dt, ''), COALESCE(title, ''), guest_count, price_person_cents, expenses_cents
		FROM dinners WHERE id = ?
	`, id).Scan(&d.ID, &d.Date, &d.Title, &d.GuestCount, &d.BasePrice, &d.Expense)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	guests, err := queryGuests(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, g := range guests {
		if g.DinnerID == d.ID {
			d.Guests = append(d.Guests, g)
		}
	}
	items, err := queryExpenseItems(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, e := range items {
		if e.DinnerID == d.ID {
			d.Expenses = append(d.Expenses, e)
		}
	}
	return &d, nil
}

func (s *Store) InsertGuest(ctx context.Context, g fund.Guest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO dinner_guests (dinner_id, name, contact, price_cents, paid_cents, present) VALUES (?, ?, ?, ?, ?, ?)`,
		g.DinnerID, g.Name, g.Contact, g.Price, g.Paid, boolToInt(g.Present),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert guest: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) UpdateGuest(ctx context.Context, g fund.Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE dinner_guests SET name = ?, contact = ?, price_cents = ?, paid_cents = ?, present = ? WHERE id = ? AND dinner_id = ?`,
		g.Name, g.Contact, g.Price, g.Paid, boolToInt(g.Present), g.ID, g.DinnerID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "guest", g.ID)
}

func (s *Store) DeleteGuest(ctx context.Context, dinnerID fund.DinnerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dinner_guests WHERE id = ? AND dinner_id = ?`, id, dinnerID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "guest", id)
}

func (s *Store) InsertExpenseItem(ctx context.Context, e fund.ExpenseItem) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO dinner_expenses (dinner_id, descr, amount_cents) VALUES (?, ?, ?)`,
		e.DinnerID, e.Description, e.Amount,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert dinner expense: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) UpdateExpenseItem(ctx context.Context, e fund.ExpenseItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE dinner_expenses SET descr = ?, amount_cents = ? WHERE id = ? AND dinner_id = ?`,
		e.Description, e.Amount, e.ID, e.DinnerID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "dinner expense", e.ID)
}

func (s *Store) DeleteExpenseItem(ctx context.Context, dinnerID fund.DinnerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dinner_expenses WHERE id = ? AND dinner_id = ?`, id, dinnerID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "dinner expense", id)
}

// PostDinner writes the dinner's projected revenue (and expenses, when
// non-zero) into the movements book as one atomic step. Posting twice is
// rejected: the revenue check and the inserts share a transaction.
func (s *Store) PostDinner(ctx context.Context, id fund.DinnerID) (*fund.Dinner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	d, err := queryDinner(ctx, sqlTx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, &fund.NotFoundError{Kind: "dinner", ID: int64(id)}
	}

	movements, err := queryMovements(ctx, sqlTx)
	if err != nil {
		return nil, err
	}
	if fund.IsPosted(*d, movements) {
		return nil, ErrAlreadyPosted
	}

	revenue := fund.DinnerRevenue(*d)
	if _, err := insertMovement(ctx, sqlTx, fund.Movement{
		Date:        d.Date,
		Kind:        fund.KindRevenue,
		Description: fund.PostingDescription(*d),
		Amount:      revenue,
	}); err != nil {
		return nil, err
	}

	if expenses := fund.DinnerExpenses(*d); expenses > 0 {
		if _, err := insertMovement(ctx, sqlTx, fund.Movement{
			Date:        d.Date,
			Kind:        fund.KindExpense,
			Description: fund.PostingExpenseDescription(*d),
			Amount:      expenses,
		}); err != nil {
			return nil, err
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, err
	}
	return d, nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) UpdateSettings(ctx context.Context, st fund.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var startID any
	if st.RotationStartID != 0 {
		startID = int64(st.RotationStartID)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE settings SET line1 = ?, line2 = ?, block_cents = ?, rotation_start_id = ? WHERE id = 1
	`, st.Line1, st.Line2, st.EffectiveBlockSize(), startID)
	return err
}

// SetRotationStart records which household the next rotation deal begins
// from. A zero id clears the override.
func (s *Store) SetRotationStart(ctx context.Context, id fund.BeneficiaryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == 0 {
		_, err := s.db.ExecContext(ctx, `UPDATE settings SET rotation_start_id = NULL WHERE id = 1`)
		return err
	}

	b, err := queryBeneficiary(ctx, s.db, id)
	if err != nil {
		return err
	}
	if b == nil {
		return &fund.NotFoundError{Kind: "beneficiary", ID: int64(id)}
	}
	_, err = s.db.ExecContext(ctx, `UPDATE settings SET rotation_start_id = ? WHERE id = 1`, id)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func requireRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &fund.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
