package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the HTTP/API and services.
//
// It is intentionally small and explicit. Migrations that create the expected
// schema live under db/migrations. This package focuses on mapping between the
// domain entities and SQL rows and running the necessary statements/transactions.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storeops/finledger/internal/dictionary"
	"github.com/storeops/finledger/internal/errs"
	"github.com/storeops/finledger/internal/finance"
	"github.com/storeops/finledger/internal/meta"
	"github.com/storeops/finledger/internal/slug"
)

// Store holds a pgx connection pool and implements the read/write interfaces
// used across the service layer. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// SeedDev inserts the starter chart of accounts (groups + common ledgers) for
// quick local testing. Existing rows with the same codes are left alone.
func (s *Store) SeedDev(ctx context.Context, currency string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	groupIDs := make(map[string]uuid.UUID)
	for _, gt := range []finance.GroupType{finance.GroupTypeAsset, finance.GroupTypeLiability, finance.GroupTypeEquity, finance.GroupTypeIncome, finance.GroupTypeExpense} {
		t := gt
		for _, def := range dictionary.GroupsFor(&t) {
			id := uuid.New()
			var existing uuid.UUID
			err := tx.QueryRow(ctx, `select id from account_groups where lower(name) = lower($1) and type = $2`, def.Label, string(gt)).Scan(&existing)
			if err == nil {
				groupIDs[def.Code] = existing
				continue
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			if _, err := tx.Exec(ctx, `
				insert into account_groups (id, name, type, description, active)
				values ($1,$2,$3,$4,true)
			`, id, def.Label, string(gt), def.Description); err != nil {
				return err
			}
			groupIDs[def.Code] = id
		}
	}
	for _, def := range dictionary.StarterLedgers() {
		gid, ok := groupIDs[def.GroupCode]
		if !ok {
			continue
		}
		if _, err := tx.Exec(ctx, `
			insert into ledgers (id, group_id, name, code, currency, opening_balance_minor, description, created_by, metadata, active, created_at)
			values ($1,$2,$3,$4,$5,0,'','system','{}',true,now())
			on conflict (code) do nothing
		`, uuid.New(), gid, def.Label, def.Code, strings.ToUpper(currency)); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// --- Account group reads ---

// ListGroups returns all account groups ordered by type then name.
func (s *Store) ListGroups(ctx context.Context) ([]finance.AccountGroup, error) {
	rows, err := s.pool.Query(ctx, `
		select id, name, type, description, active
		from account_groups
		order by type, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finance.AccountGroup, 0)
	for rows.Next() {
		var g finance.AccountGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Type, &g.Description, &g.Active); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetGroup fetches a single account group by id.
func (s *Store) GetGroup(ctx context.Context, id uuid.UUID) (finance.AccountGroup, error) {
	var g finance.AccountGroup
	err := s.pool.QueryRow(ctx, `
		select id, name, type, description, active
		from account_groups
		where id = $1
	`, id).Scan(&g.ID, &g.Name, &g.Type, &g.Description, &g.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.AccountGroup{}, errs.ErrNotFound
	}
	if err != nil {
		return finance.AccountGroup{}, err
	}
	return g, nil
}

// --- Account group writes ---

func (s *Store) CreateGroup(ctx context.Context, g finance.AccountGroup) (finance.AccountGroup, error) {
	_, err := s.pool.Exec(ctx, `
		insert into account_groups (id, name, type, description, active)
		values ($1,$2,$3,$4,$5)
	`, g.ID, g.Name, string(g.Type), g.Description, g.Active)
	if err != nil {
		return finance.AccountGroup{}, err
	}
	return g, nil
}

func (s *Store) UpdateGroup(ctx context.Context, g finance.AccountGroup) (finance.AccountGroup, error) {
	ct, err := s.pool.Exec(ctx, `
		update account_groups
		set name=$1, description=$2, active=$3
		where id=$4
	`, g.Name, g.Description, g.Active, g.ID)
	if err != nil {
		return finance.AccountGroup{}, err
	}
	if ct.RowsAffected() == 0 {
		return finance.AccountGroup{}, errs.ErrNotFound
	}
	return g, nil
}

// --- Ledger reads ---

// ListLedgers returns all ledgers ordered by code.
func (s *Store) ListLedgers(ctx context.Context) ([]finance.Ledger, error) {
	rows, err := s.pool.Query(ctx, `
		select id, group_id, name, code, currency, opening_balance_minor, description, created_by, metadata, active, created_at
		from ledgers
		order by code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finance.Ledger, 0)
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetLedger fetches a single ledger by id.
func (s *Store) GetLedger(ctx context.Context, id uuid.UUID) (finance.Ledger, error) {
	row := s.pool.QueryRow(ctx, `
		select id, group_id, name, code, currency, opening_balance_minor, description, created_by, metadata, active, created_at
		from ledgers
		where id = $1
	`, id)
	l, err := scanLedger(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.Ledger{}, errs.ErrNotFound
	}
	if err != nil {
		return finance.Ledger{}, err
	}
	return l, nil
}

// LedgersByIDs returns the subset of ledgers matching the given ids.
func (s *Store) LedgersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]finance.Ledger, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]finance.Ledger{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		select id, group_id, name, code, currency, opening_balance_minor, description, created_by, metadata, active, created_at
		from ledgers
		where id = any($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]finance.Ledger)
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		out[l.ID] = l
	}
	return out, rows.Err()
}

// --- Ledger writes ---

func (s *Store) CreateLedger(ctx context.Context, l finance.Ledger) (finance.Ledger, error) {
	if err := l.Metadata.Validate(); err != nil {
		return finance.Ledger{}, err
	}
	md, _ := l.Metadata.MarshalStableJSON()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		insert into ledgers (id, group_id, name, code, currency, opening_balance_minor, description, created_by, metadata, active, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, l.ID, l.GroupID, l.Name, slug.Slugify(l.Name), strings.ToUpper(l.Currency), l.OpeningBalanceMinor, l.Description, l.CreatedBy, md, l.Active, l.CreatedAt)
	if err != nil {
		return finance.Ledger{}, err
	}
	l.Code = slug.Slugify(l.Name)
	return l, nil
}

// UpdateLedger updates mutable fields (name, description, metadata, active).
func (s *Store) UpdateLedger(ctx context.Context, l finance.Ledger) (finance.Ledger, error) {
	if err := l.Metadata.Validate(); err != nil {
		return finance.Ledger{}, err
	}
	md, _ := l.Metadata.MarshalStableJSON()
	ct, err := s.pool.Exec(ctx, `
		update ledgers
		set name=$1, description=$2, metadata=$3, active=$4
		where id=$5
	`, l.Name, l.Description, md, l.Active, l.ID)
	if err != nil {
		return finance.Ledger{}, err
	}
	if ct.RowsAffected() == 0 {
		return finance.Ledger{}, errs.ErrNotFound
	}
	return l, nil
}

// --- Transaction reads ---

// ListTransactions returns transactions matching the filter ordered by
// (date, seq) with entries populated.
func (s *Store) ListTransactions(ctx context.Context, f finance.TransactionFilter) ([]finance.Transaction, error) {
	q := strings.Builder{}
	q.WriteString(`
		select id, seq, date, type, status, currency, description, notes, created_by, actioned_by, actioned_at, metadata
		from transactions
		where 1=1
	`)
	args := make([]any, 0, 5)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.From != nil {
		q.WriteString(" and date >= " + arg(*f.From))
	}
	if f.To != nil {
		q.WriteString(" and date <= " + arg(*f.To))
	}
	if f.Status != nil {
		q.WriteString(" and status = " + arg(string(*f.Status)))
	}
	if f.Type != nil {
		q.WriteString(" and type = " + arg(string(*f.Type)))
	}
	if f.LedgerID != nil {
		q.WriteString(" and id in (select transaction_id from transaction_entries where ledger_id = " + arg(*f.LedgerID) + ")")
	}
	q.WriteString(" order by date asc, seq asc")
	rows, err := s.pool.Query(ctx, q.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	txs := make([]finance.Transaction, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
		ids = append(ids, tx.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return txs, nil
	}
	if err := s.attachEntries(ctx, txs, ids); err != nil {
		return nil, err
	}
	return txs, nil
}

// GetTransaction returns a transaction by id with entries populated.
func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (finance.Transaction, error) {
	row := s.pool.QueryRow(ctx, `
		select id, seq, date, type, status, currency, description, notes, created_by, actioned_by, actioned_at, metadata
		from transactions
		where id = $1
	`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.Transaction{}, errs.ErrNotFound
	}
	if err != nil {
		return finance.Transaction{}, err
	}
	txs := []finance.Transaction{tx}
	if err := s.attachEntries(ctx, txs, []uuid.UUID{id}); err != nil {
		return finance.Transaction{}, err
	}
	return txs[0], nil
}

// attachEntries loads entry rows for the given transactions and fills the
// Entries slices in line order.
func (s *Store) attachEntries(ctx context.Context, txs []finance.Transaction, ids []uuid.UUID) error {
	rows, err := s.pool.Query(ctx, `
		select id, transaction_id, ledger_id, side, amount_minor, description
		from transaction_entries
		where transaction_id = any($1)
		order by line_no asc
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	idx := make(map[uuid.UUID]*finance.Transaction, len(txs))
	for i := range txs {
		idx[txs[i].ID] = &txs[i]
	}
	for rows.Next() {
		var e finance.Entry
		var minor int64
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.LedgerID, &e.Side, &minor, &e.Description); err != nil {
			return err
		}
		tx := idx[e.TransactionID]
		if tx == nil {
			continue
		}
		amt, _ := money.NewAmountFromMinorUnits(tx.Currency, minor)
		e.Amount = amt
		tx.Entries = append(tx.Entries, e)
	}
	return rows.Err()
}

// --- Transaction writes ---

// CreateTransaction inserts the header + entries in one database transaction.
// The seq column is assigned by the database (bigserial).
func (s *Store) CreateTransaction(ctx context.Context, t finance.Transaction) (finance.Transaction, error) {
	dbtx, err := s.pool.Begin(ctx)
	if err != nil {
		return finance.Transaction{}, err
	}
	defer func() { _ = dbtx.Rollback(ctx) }()
	md, _ := t.Metadata.MarshalStableJSON()
	err = dbtx.QueryRow(ctx, `
		insert into transactions (id, date, type, status, currency, description, notes, created_by, actioned_by, actioned_at, metadata)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		returning seq
	`, t.ID, t.Date, string(t.Type), string(t.Status), strings.ToUpper(t.Currency), t.Description, t.Notes, t.CreatedBy, t.ActionedBy, t.ActionedAt, md).Scan(&t.Seq)
	if err != nil {
		return finance.Transaction{}, err
	}
	for i, e := range t.Entries {
		minor, _ := e.Amount.MinorUnits()
		if _, err := dbtx.Exec(ctx, `
			insert into transaction_entries (id, transaction_id, ledger_id, line_no, side, amount_minor, description)
			values ($1,$2,$3,$4,$5,$6,$7)
		`, e.ID, t.ID, e.LedgerID, i, string(e.Side), minor, e.Description); err != nil {
			return finance.Transaction{}, fmt.Errorf("insert entry: %w", err)
		}
	}
	if err := dbtx.Commit(ctx); err != nil {
		return finance.Transaction{}, err
	}
	return t, nil
}

// TransitionStatus performs a guarded status update. The from-status guard is
// part of the UPDATE predicate, so two concurrent approvers cannot both win.
func (s *Store) TransitionStatus(ctx context.Context, id uuid.UUID, from []finance.TransactionStatus, to finance.TransactionStatus, actor string, at time.Time) (finance.Transaction, error) {
	fromStrs := make([]string, len(from))
	for i, st := range from {
		fromStrs[i] = string(st)
	}
	ct, err := s.pool.Exec(ctx, `
		update transactions
		set status=$1, actioned_by=$2, actioned_at=$3
		where id=$4 and status = any($5)
	`, string(to), actor, at, id, fromStrs)
	if err != nil {
		return finance.Transaction{}, err
	}
	if ct.RowsAffected() == 0 {
		// Distinguish missing row from an ineligible status.
		var status string
		err := s.pool.QueryRow(ctx, `select status from transactions where id = $1`, id).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return finance.Transaction{}, errs.ErrNotFound
		}
		if err != nil {
			return finance.Transaction{}, err
		}
		return finance.Transaction{}, errs.ErrAlreadyTerminal
	}
	return s.GetTransaction(ctx, id)
}

// --- Idempotency ---

// GetTransactionByIdempotencyKey resolves a transaction and the stored body
// hash by idempotency key.
func (s *Store) GetTransactionByIdempotencyKey(ctx context.Context, key string) (finance.Transaction, string, bool, error) {
	var id uuid.UUID
	var bodyHash string
	err := s.pool.QueryRow(ctx, `
		select transaction_id, body_hash from transaction_idempotency where key=$1
	`, key).Scan(&id, &bodyHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return finance.Transaction{}, "", false, nil
	}
	if err != nil {
		return finance.Transaction{}, "", false, err
	}
	tx, err := s.GetTransaction(ctx, id)
	if err != nil {
		return finance.Transaction{}, "", false, err
	}
	return tx, bodyHash, true, nil
}

// SaveIdempotencyKey stores a mapping from key to transaction id plus the
// request body hash. The first binding wins.
func (s *Store) SaveIdempotencyKey(ctx context.Context, key string, txID uuid.UUID, bodyHash string) error {
	_, err := s.pool.Exec(ctx, `
		insert into transaction_idempotency (key, transaction_id, body_hash)
		values ($1,$2,$3)
		on conflict (key) do nothing
	`, key, txID, bodyHash)
	return err
}

// rowScanner covers pgx.Row and pgx.Rows for the shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedger(row rowScanner) (finance.Ledger, error) {
	var l finance.Ledger
	var mdBytes []byte
	err := row.Scan(&l.ID, &l.GroupID, &l.Name, &l.Code, &l.Currency, &l.OpeningBalanceMinor, &l.Description, &l.CreatedBy, &mdBytes, &l.Active, &l.CreatedAt)
	if err != nil {
		return finance.Ledger{}, err
	}
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil {
			l.Metadata = m
		}
	}
	return l, nil
}

func scanTransaction(row rowScanner) (finance.Transaction, error) {
	var t finance.Transaction
	var mdBytes []byte
	err := row.Scan(&t.ID, &t.Seq, &t.Date, &t.Type, &t.Status, &t.Currency, &t.Description, &t.Notes, &t.CreatedBy, &t.ActionedBy, &t.ActionedAt, &mdBytes)
	if err != nil {
		return finance.Transaction{}, err
	}
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil {
			t.Metadata = m
		}
	}
	return t, nil
}
