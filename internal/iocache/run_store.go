package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // SQLite driver
)

// Table names for run history.
const (
	runsTable     = "envgap_runs"
	entitiesTable = "envgap_run_entities"
)

// entityColumns lists the derived columns of entitiesTable in IndexRow order.
var entityColumns = []string{
	"composite", "exposure", "residual", "expected", "companion",
	"composite_z", "exposure_z",
	"composite_pct", "exposure_pct", "residual_pct", "companion_pct",
}

// RunStoreImpl implements the RunStore interface.
type RunStoreImpl struct {
	db         *sql.DB
	backend    schema.DatabaseBackend
	driverName string
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// driverFor returns the database/sql driver name for a backend.
func driverFor(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", eris.Errorf("iocache: unsupported backend %q", backend)
	}
}

// openDB opens and pings a database for the backend. An empty SQLite
// connection string uses the default history file.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, string, error) {
	driverName, err := driverFor(backend)
	if err != nil {
		return nil, "", err
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetHistoryDBFilePath()
	}

	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, "", eris.Wrapf(err, "iocache: open %s database", backend)
	}
	if backend == schema.SQLiteBackend {
		// A single connection avoids "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		var detail string
		switch backend {
		case schema.MySQLBackend:
			detail = "check that MySQL is running and the connection string is user:password@tcp(host:port)/dbname?parseTime=true"
		case schema.PostgreSQLBackend:
			detail = "check that PostgreSQL is running and the connection string has host= and dbname="
		default:
			detail = "check that the directory is writable"
		}
		return nil, "", eris.Wrapf(err, "iocache: connect to %s database (%s)", backend, detail)
	}
	return db, driverName, nil
}

// NewRunStore creates a new RunStore with the specified backend.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (contract.RunStore, error) {
	if backend == schema.NoneBackend {
		// No-op store for disabled tracking
		return &RunStoreImpl{backend: backend}, nil
	}

	db, driverName, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	if err := createTables(db, backend); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &RunStoreImpl{db: db, backend: backend, driverName: driverName}, nil
}

// createTables applies every up migration for the backend. The statements
// are idempotent, so this is safe on a database managed by MigrateHistory.
func createTables(db *sql.DB, backend schema.DatabaseBackend) error {
	sub, err := migrationSource(backend)
	if err != nil {
		return err
	}
	entries, err := fs.ReadDir(sub, ".")
	if err != nil {
		return eris.Wrap(err, "iocache: list migrations")
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".up.sql") {
			continue
		}
		query, err := fs.ReadFile(sub, e.Name())
		if err != nil {
			return eris.Wrapf(err, "iocache: read migration %s", e.Name())
		}
		if _, err := db.Exec(string(query)); err != nil {
			return eris.Wrapf(err, "iocache: apply %s", e.Name())
		}
	}
	return nil
}

func (s *RunStoreImpl) disabled() bool {
	return s.backend == schema.NoneBackend || s.db == nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *RunStoreImpl) rebind(query string) string {
	if s.backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// BeginRun creates a new run and returns its unique ID.
func (s *RunStoreImpl) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	if s.disabled() {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, eris.Wrap(err, "iocache: marshal config params")
	}

	var runID int64
	if s.backend == schema.PostgreSQLBackend {
		query := s.rebind(fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?) RETURNING run_id`, runsTable))
		err = s.db.QueryRow(query, startTime, string(configJSON)).Scan(&runID)
	} else {
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, runsTable)
		var result sql.Result
		result, err = s.db.Exec(query, formatTime(startTime, s.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, eris.Wrap(err, "iocache: insert run")
	}
	return runID, nil
}

// RecordEntity stores the derived values of one entity for a run.
func (s *RunStoreImpl) RecordEntity(runID int64, record schema.EntityRecord) error {
	if s.disabled() {
		return nil
	}

	row := record.Row()
	values := rowValues(row)
	args := make([]any, 0, len(values)+4)
	args = append(args, runID, record.ID, nullString(record.Name))
	for _, v := range values {
		args = append(args, nullFloat(v))
	}
	args = append(args, boolInt(row.HasGap))

	cols := append([]string{"run_id", "entity_id", "name"}, entityColumns...)
	cols = append(cols, "has_gap")
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := s.rebind(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, entitiesTable, strings.Join(cols, ", "), marks))

	if _, err := s.db.Exec(query, args...); err != nil {
		return eris.Wrapf(err, "iocache: insert entity %s for run %d", record.ID, runID)
	}
	return nil
}

// EndRun updates the run with completion data.
func (s *RunStoreImpl) EndRun(runID int64, endTime time.Time, regression schema.RegressionResult, totalEntities int) error {
	if s.disabled() {
		return nil
	}

	row := s.db.QueryRow(s.rebind(fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = ?`, runsTable)), runID)
	startTime, err := s.scanTime(row)
	if err != nil {
		return eris.Wrapf(err, "iocache: get start_time for run %d", runID)
	}
	durationMs := endTime.Sub(startTime).Milliseconds()

	query := s.rebind(fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, total_entities = ?,
		slope = ?, intercept = ?, r_squared = ?, pairs = ? WHERE run_id = ?`, runsTable))
	_, err = s.db.Exec(query,
		formatTime(endTime, s.backend), durationMs, totalEntities,
		regression.Slope, regression.Intercept, regression.RSquared, regression.N, runID)
	if err != nil {
		return eris.Wrapf(err, "iocache: update run %d", runID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. A non-positive limit
// returns every run.
func (s *RunStoreImpl) ListRuns(limit int) ([]schema.RunSummary, error) {
	if s.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, start_time, end_time, run_duration_ms, total_entities,
		slope, intercept, r_squared, pairs, config_params FROM %s ORDER BY run_id DESC`, runsTable)
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, eris.Wrap(err, "iocache: query runs")
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunSummary
	for rows.Next() {
		var (
			r          schema.RunSummary
			duration   sql.NullInt64
			params     sql.NullString
			startValue any
			endValue   any
		)
		if err := rows.Scan(&r.RunID, &startValue, &endValue, &duration, &r.TotalEntities,
			&r.Regression.Slope, &r.Regression.Intercept, &r.Regression.RSquared, &r.Regression.N, &params); err != nil {
			return nil, eris.Wrap(err, "iocache: scan run")
		}
		if r.StartTime, err = parseTime(startValue); err != nil {
			return nil, eris.Wrapf(err, "iocache: parse start_time of run %d", r.RunID)
		}
		if endValue != nil {
			end, err := parseTime(endValue)
			if err != nil {
				return nil, eris.Wrapf(err, "iocache: parse end_time of run %d", r.RunID)
			}
			r.EndTime = &end
		}
		if duration.Valid {
			r.DurationMs = &duration.Int64
		}
		r.ConfigParams = params.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iocache: iterate runs")
	}
	return results, nil
}

// ListEntities returns the stored rows of a run ordered by entity id. A
// non-positive runID returns the rows of every run.
func (s *RunStoreImpl) ListEntities(runID int64) ([]schema.RunEntity, error) {
	if s.disabled() {
		return nil, nil
	}

	cols := append([]string{"run_id", "entity_id", "name"}, entityColumns...)
	cols = append(cols, "has_gap")
	query := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(cols, ", "), entitiesTable)
	var args []any
	if runID > 0 {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}
	query += " ORDER BY run_id, entity_id"

	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, eris.Wrap(err, "iocache: query entities")
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunEntity
	for rows.Next() {
		var (
			e      schema.RunEntity
			name   sql.NullString
			hasGap int
			floats = make([]sql.NullFloat64, len(entityColumns))
		)
		dest := []any{&e.RunID, &e.ID, &name}
		for i := range floats {
			dest = append(dest, &floats[i])
		}
		dest = append(dest, &hasGap)
		if err := rows.Scan(dest...); err != nil {
			return nil, eris.Wrap(err, "iocache: scan entity")
		}
		e.Name = name.String
		e.Values = rowFromValues(floats, hasGap != 0)
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iocache: iterate entities")
	}
	return results, nil
}

// GetStatus returns status information about the run store.
func (s *RunStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:   s.backend,
		Connected: s.db != nil,
	}
	if s.disabled() {
		return status, nil
	}

	if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runsTable)).Scan(&status.TotalRuns); err != nil {
		return status, eris.Wrap(err, "iocache: count runs")
	}
	if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", entitiesTable)).Scan(&status.TotalEntities); err != nil {
		return status, eris.Wrap(err, "iocache: count entities")
	}
	if status.TotalRuns == 0 {
		return status, nil
	}

	var err error
	row := s.db.QueryRow(fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", runsTable))
	var lastValue any
	if err := row.Scan(&status.LastRunID, &lastValue); err != nil {
		return status, eris.Wrap(err, "iocache: get last run")
	}
	if status.LastRunTime, err = parseTime(lastValue); err != nil {
		return status, eris.Wrap(err, "iocache: parse last run time")
	}

	row = s.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", runsTable))
	if status.OldestRunTime, err = s.scanTime(row); err != nil {
		return status, eris.Wrap(err, "iocache: get oldest run")
	}
	return status, nil
}

// Clear removes every run and its entity rows.
func (s *RunStoreImpl) Clear() error {
	if s.disabled() {
		return nil
	}
	for _, table := range []string{entitiesTable, runsTable} {
		if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return eris.Wrapf(err, "iocache: clear %s", table)
		}
	}
	return nil
}

// Close closes the underlying connection.
func (s *RunStoreImpl) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *RunStoreImpl) scanTime(row *sql.Row) (time.Time, error) {
	var v any
	if err := row.Scan(&v); err != nil {
		return time.Time{}, err
	}
	return parseTime(v)
}

// formatTime converts a time.Time to the storage format of the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	if backend == schema.SQLiteBackend {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t
}

// parseTime accepts the representations the drivers hand back: native
// time.Time, or RFC 3339 text from SQLite.
func parseTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		return time.Parse(time.RFC3339Nano, x)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(x))
	default:
		return time.Time{}, eris.Errorf("unexpected time value %T", v)
	}
}

func rowValues(r schema.IndexRow) []*float64 {
	return []*float64{
		r.Composite, r.Exposure, r.Residual, r.Expected, r.Companion,
		r.CompositeZ, r.ExposureZ,
		r.CompositePct, r.ExposurePct, r.ResidualPct, r.CompanionPct,
	}
}

func rowFromValues(v []sql.NullFloat64, hasGap bool) schema.IndexRow {
	p := func(i int) *float64 {
		if !v[i].Valid {
			return nil
		}
		return schema.FloatPtr(v[i].Float64)
	}
	return schema.IndexRow{
		Composite:    p(0),
		Exposure:     p(1),
		Residual:     p(2),
		Expected:     p(3),
		Companion:    p(4),
		CompositeZ:   p(5),
		ExposureZ:    p(6),
		CompositePct: p(7),
		ExposurePct:  p(8),
		ResidualPct:  p(9),
		CompanionPct: p(10),
		HasGap:       hasGap,
	}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if !schema.IsValid(p) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
