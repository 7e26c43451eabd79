// Package journal records safety verdicts to SQLite as a flight recorder.
// Nothing is ever read back into the evaluator.
package journal

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
	_ "modernc.org/sqlite"

	"github.com/jeyong/simsafety/internal/monitoring"
	"github.com/jeyong/simsafety/internal/safety"
	"github.com/jeyong/simsafety/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var logf = monitoring.Component("Journal")

// Entry is one recorded verdict. Risk distances round-trip exactly,
// including -Inf (no obstacle) and NaN (not evaluated).
type Entry struct {
	ID           string
	RecordedAt   time.Time
	Query        string
	IsSafe       bool
	Reason       string
	CurPos       r3.Vec
	DestPos      r3.Vec
	CurRiskDist  float64
	DestRiskDist float64
	SuggestedVec r3.Vec
	Message      string
}

// Journal is safe for concurrent use.
type Journal struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Open opens or creates the journal at path and applies pending migrations.
// A nil clock means timeutil.RealClock.
func Open(path string, clock timeutil.Clock) (*Journal, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// one connection so that ":memory:" journals see a single database
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db, clock: clock}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Note: m is not closed because that would close the underlying DB connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Record appends a verdict and returns its ID.
func (j *Journal) Record(query string, r safety.EvalResult) (string, error) {
	id := uuid.New().String()
	_, err := j.db.Exec(`
		INSERT INTO verdicts (
			verdict_id, recorded_at, query, is_safe, reason,
			cur_x, cur_y, cur_z, dest_x, dest_y, dest_z,
			cur_risk_dist, dest_risk_dist, cur_risk_inf, dest_risk_inf,
			suggested_x, suggested_y, suggested_z, message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, j.clock.Now().UnixNano(), query, r.IsSafe, r.Reason.String(),
		r.CurPos.X, r.CurPos.Y, r.CurPos.Z, r.DestPos.X, r.DestPos.Y, r.DestPos.Z,
		finite(r.CurRiskDist), finite(r.DestRiskDist), infSign(r.CurRiskDist), infSign(r.DestRiskDist),
		r.SuggestedVec.X, r.SuggestedVec.Y, r.SuggestedVec.Z, r.Message,
	)
	if err != nil {
		logf("record failed: %v", err)
		return "", fmt.Errorf("record verdict: %w", err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	rows, err := j.db.Query(`
		SELECT verdict_id, recorded_at, query, is_safe, reason,
			cur_x, cur_y, cur_z, dest_x, dest_y, dest_z,
			cur_risk_dist, dest_risk_dist, cur_risk_inf, dest_risk_inf,
			suggested_x, suggested_y, suggested_z, message
		FROM verdicts
		ORDER BY recorded_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var nanos int64
		var curRisk, destRisk sql.NullFloat64
		var curInf, destInf int
		if err := rows.Scan(
			&e.ID, &nanos, &e.Query, &e.IsSafe, &e.Reason,
			&e.CurPos.X, &e.CurPos.Y, &e.CurPos.Z, &e.DestPos.X, &e.DestPos.Y, &e.DestPos.Z,
			&curRisk, &destRisk, &curInf, &destInf,
			&e.SuggestedVec.X, &e.SuggestedVec.Y, &e.SuggestedVec.Z, &e.Message,
		); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		e.RecordedAt = time.Unix(0, nanos)
		e.CurRiskDist = riskFrom(curRisk, curInf)
		e.DestRiskDist = riskFrom(destRisk, destInf)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Counts returns the number of recorded verdicts and how many were unsafe.
func (j *Journal) Counts() (total, unsafe int, err error) {
	err = j.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_safe = 0 THEN 1 ELSE 0 END), 0)
		FROM verdicts`).Scan(&total, &unsafe)
	if err != nil {
		return 0, 0, fmt.Errorf("count verdicts: %w", err)
	}
	return total, unsafe, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func finite(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func infSign(v float64) int {
	switch {
	case math.IsInf(v, 1):
		return 1
	case math.IsInf(v, -1):
		return -1
	}
	return 0
}

// riskFrom rebuilds a risk distance from its stored value and infinity sign.
func riskFrom(v sql.NullFloat64, inf int) float64 {
	switch {
	case inf != 0:
		return math.Inf(inf)
	case !v.Valid:
		return math.NaN()
	}
	return v.Float64
}
