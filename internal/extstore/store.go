// Package extstore is a local stand-in for the ERP's extension-table MI
// programs. It serves the alpha and numeric KPI transactions and the
// authority lookup from SQLite so the screen can run without a backend.
package extstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/matthewbaird/ioncon/internal/database"
	"github.com/matthewbaird/ioncon/internal/mi"
)

// MI error codes returned by the store.
const (
	CodeDuplicate    = "WPK0101"
	CodeNotFound     = "XRE0103"
	CodeMissingKey   = "WKEY001"
	CodeUnknownTx    = "XTR0001"
	defaultMaxRecs   = 100
	programExtension = "CUSEXTMI"
	programAuthority = "MDBREADMI"
)

var (
	keyColumns     = []string{"KPID", "PK01", "PK02", "PK03"}
	alphaColumns   = []string{"PK04", "AL30", "AL31", "AL32", "AL33", "AL34", "AL35", "AL36"}
	numericColumns = []string{"N096", "N196", "N296", "N396", "N496", "N596", "N696", "N796", "N896", "N996"}
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS kpi_alpha (
		KPID TEXT NOT NULL, PK01 TEXT NOT NULL, PK02 TEXT NOT NULL, PK03 TEXT NOT NULL,
		PK04 TEXT NOT NULL DEFAULT '',
		AL30 TEXT NOT NULL DEFAULT '', AL31 TEXT NOT NULL DEFAULT '', AL32 TEXT NOT NULL DEFAULT '',
		AL33 TEXT NOT NULL DEFAULT '', AL34 TEXT NOT NULL DEFAULT '', AL35 TEXT NOT NULL DEFAULT '',
		AL36 TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (KPID, PK01, PK02, PK03)
	)`,
	`CREATE TABLE IF NOT EXISTS kpi_numeric (
		KPID TEXT NOT NULL, PK01 TEXT NOT NULL, PK02 TEXT NOT NULL, PK03 TEXT NOT NULL,
		N096 TEXT NOT NULL DEFAULT '0', N196 TEXT NOT NULL DEFAULT '0', N296 TEXT NOT NULL DEFAULT '0',
		N396 TEXT NOT NULL DEFAULT '0', N496 TEXT NOT NULL DEFAULT '0', N596 TEXT NOT NULL DEFAULT '0',
		N696 TEXT NOT NULL DEFAULT '0', N796 TEXT NOT NULL DEFAULT '0', N896 TEXT NOT NULL DEFAULT '0',
		N996 TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (KPID, PK01, PK02, PK03)
	)`,
	`CREATE TABLE IF NOT EXISTS authority (
		DIVI TEXT NOT NULL, USID TEXT NOT NULL, PGNM TEXT NOT NULL, ALO TEXT NOT NULL,
		PRIMARY KEY (DIVI, USID, PGNM)
	)`,
}

// Store implements mi.Gateway on SQLite.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// New creates the tables if needed.
func New(ctx context.Context, db *sql.DB, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := database.Migrate(ctx, db, schema...); err != nil {
		return nil, err
	}
	return &Store{db: db, log: log.Named("extstore")}, nil
}

// GrantAuthority sets the authority bitstring of user for program in
// division. An empty division applies company wide.
func (s *Store) GrantAuthority(ctx context.Context, division, user, program, alo string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO authority (DIVI, USID, PGNM, ALO) VALUES (?, ?, ?, ?)
		 ON CONFLICT(DIVI, USID, PGNM) DO UPDATE SET ALO = excluded.ALO`,
		division, user, program, alo)
	if err != nil {
		return fmt.Errorf("granting authority: %w", err)
	}
	return nil
}

// Execute implements mi.Gateway.
func (s *Store) Execute(ctx context.Context, program, transaction string, req mi.Request, opts ...mi.Option) (*mi.Response, error) {
	o := mi.ApplyOptions(opts)
	limit := defaultMaxRecs
	if o.MaxRecordsSet {
		limit = o.MaxRecords
	}

	rows, err := s.dispatch(ctx, program, transaction, req, limit)
	if err != nil {
		miErr := mi.AsError(err, program, transaction, req)
		miErr.Program, miErr.Transaction, miErr.RequestData = program, transaction, req.Clone()
		s.log.Debug("transaction failed",
			zap.String("program", program),
			zap.String("transaction", transaction),
			zap.String("code", miErr.ErrorCode),
			zap.String("message", miErr.ErrorMessage))
		return nil, miErr
	}
	if len(o.ReturnColumns) > 0 {
		rows = project(rows, o.ReturnColumns)
	}
	return mi.NewResponse(program, transaction, rows), nil
}

func (s *Store) dispatch(ctx context.Context, program, transaction string, req mi.Request, limit int) ([]mi.Record, error) {
	switch program + "." + transaction {
	case programExtension + ".LstAlphaKPI":
		return s.list(ctx, req, limit)
	case programExtension + ".GetAlphaKPI":
		return s.get(ctx, "kpi_alpha", alphaColumns, req)
	case programExtension + ".GetNumericKPI":
		return s.get(ctx, "kpi_numeric", numericColumns, req)
	case programExtension + ".AddAlphaKPI":
		return nil, s.add(ctx, "kpi_alpha", alphaColumns, req)
	case programExtension + ".AddNumericKPI":
		return nil, s.add(ctx, "kpi_numeric", numericColumns, req)
	case programExtension + ".ChgAlphaKPI":
		return nil, s.change(ctx, "kpi_alpha", alphaColumns, req)
	case programExtension + ".ChgNumericKPI":
		return nil, s.change(ctx, "kpi_numeric", numericColumns, req)
	case programExtension + ".DelAlphaKPI":
		return nil, s.delete(ctx, "kpi_alpha", req)
	case programExtension + ".DelNumericKPI":
		return nil, s.delete(ctx, "kpi_numeric", req)
	case programAuthority + ".SelCMNPUS30":
		return s.authority(ctx, req, limit)
	}
	return nil, &mi.Error{
		ErrorCode:    CodeUnknownTx,
		ErrorMessage: fmt.Sprintf("Transaction %s does not exist in program %s", transaction, program),
	}
}

func (s *Store) list(ctx context.Context, req mi.Request, limit int) ([]mi.Record, error) {
	cols := append(append([]string{}, keyColumns...), alphaColumns...)
	query := `SELECT ` + strings.Join(cols, ", ") + ` FROM kpi_alpha WHERE KPID >= ? ORDER BY KPID, PK01, PK02, PK03`
	args := []any{req["KPID"]}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, cols, query, args...)
}

func (s *Store) get(ctx context.Context, table string, payload []string, req mi.Request) ([]mi.Record, error) {
	if err := requireKey(req); err != nil {
		return nil, err
	}
	cols := append(append([]string{}, keyColumns...), payload...)
	rows, err := s.query(ctx, cols,
		`SELECT `+strings.Join(cols, ", ")+` FROM `+table+` WHERE KPID = ? AND PK01 = ? AND PK02 = ? AND PK03 = ?`,
		keyArgs(req)...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound()
	}
	return rows, nil
}

func (s *Store) add(ctx context.Context, table string, payload []string, req mi.Request) error {
	if err := requireKey(req); err != nil {
		return err
	}
	cols := append([]string{}, keyColumns...)
	args := keyArgs(req)
	for _, c := range payload {
		if v, ok := req[c]; ok {
			cols = append(cols, c)
			args = append(args, v)
		}
	}
	exists, err := s.exists(ctx, table, req)
	if err != nil {
		return err
	}
	if exists {
		return &mi.Error{ErrorCode: CodeDuplicate, ErrorField: "PK01", ErrorMessage: "Record already exists"}
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO `+table+` (`+strings.Join(cols, ", ")+`) VALUES (`+placeholders+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}
	return nil
}

func (s *Store) change(ctx context.Context, table string, payload []string, req mi.Request) error {
	if err := requireKey(req); err != nil {
		return err
	}
	var sets []string
	var args []any
	for _, c := range payload {
		if v, ok := req[c]; ok {
			sets = append(sets, c+" = ?")
			args = append(args, v)
		}
	}
	if len(sets) == 0 {
		ok, err := s.exists(ctx, table, req)
		if err != nil {
			return err
		}
		if !ok {
			return notFound()
		}
		return nil
	}
	args = append(args, keyArgs(req)...)
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+table+` SET `+strings.Join(sets, ", ")+` WHERE KPID = ? AND PK01 = ? AND PK02 = ? AND PK03 = ?`,
		args...)
	if err != nil {
		return fmt.Errorf("updating %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound()
	}
	return nil
}

func (s *Store) delete(ctx context.Context, table string, req mi.Request) error {
	if err := requireKey(req); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE KPID = ? AND PK01 = ? AND PK02 = ? AND PK03 = ?`,
		keyArgs(req)...)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound()
	}
	return nil
}

func (s *Store) authority(ctx context.Context, req mi.Request, limit int) ([]mi.Record, error) {
	cols := []string{"DIVI", "USID", "PGNM", "ALO"}
	query := `SELECT DIVI, USID, PGNM, ALO FROM authority WHERE DIVI = ? AND USID = ? AND PGNM = ?`
	args := []any{req["DIVI"], req["USID"], req["PGNM"]}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, cols, query, args...)
}

func (s *Store) exists(ctx context.Context, table string, req mi.Request) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE KPID = ? AND PK01 = ? AND PK02 = ? AND PK03 = ?`,
		keyArgs(req)...).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", table, err)
	}
	return n > 0, nil
}

func (s *Store) query(ctx context.Context, cols []string, query string, args ...any) ([]mi.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}
	defer rows.Close()

	var out []mi.Record
	for rows.Next() {
		vals := make([]string, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning: %w", err)
		}
		rec := make(mi.Record, len(cols))
		for i, c := range cols {
			rec[c] = vals[i]
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func requireKey(req mi.Request) error {
	for _, c := range keyColumns {
		if strings.TrimSpace(req[c]) == "" {
			return &mi.Error{
				ErrorCode:    CodeMissingKey,
				ErrorField:   c,
				ErrorMessage: c + " must be entered",
			}
		}
	}
	return nil
}

func keyArgs(req mi.Request) []any {
	return []any{req["KPID"], req["PK01"], req["PK02"], req["PK03"]}
}

func notFound() error {
	return &mi.Error{ErrorCode: CodeNotFound, ErrorMessage: "Record does not exist"}
}

func project(rows []mi.Record, cols []string) []mi.Record {
	out := make([]mi.Record, len(rows))
	for i, r := range rows {
		p := make(mi.Record, len(cols))
		for _, c := range cols {
			if v, ok := r[c]; ok {
				p[c] = v
			}
		}
		out[i] = p
	}
	return out
}
