package decoder

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

// OpenRunLog connects to the run log database with any registered driver,
// "mysql" for the lab database or "sqlite" for a local file.
func OpenRunLog(driver, dsn string) (*RunLog, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to run log database: %w", err)
	}
	return NewRunLog(db)
}

var runLogSchema = []string{
	`CREATE TABLE IF NOT EXISTS hr_passes (
		run_id VARCHAR(36) NOT NULL,
		test VARCHAR(32) NOT NULL,
		pass_number INTEGER NOT NULL,
		recorded_at BIGINT NOT NULL,
		events INTEGER NOT NULL,
		truncated INTEGER NOT NULL,
		bad_address INTEGER NOT NULL,
		sequence_violations INTEGER NOT NULL,
		decoding_errors INTEGER NOT NULL,
		stray_words INTEGER NOT NULL,
		lost_triggers INTEGER NOT NULL,
		hits BIGINT NOT NULL,
		PRIMARY KEY (run_id, test, pass_number)
	)`,
	`CREATE TABLE IF NOT EXISTS hr_measurements (
		run_id VARCHAR(36) NOT NULL,
		name VARCHAR(64) NOT NULL,
		measured DOUBLE NOT NULL,
		uncertainty DOUBLE NOT NULL,
		unit VARCHAR(16) NOT NULL,
		PRIMARY KEY (run_id, name)
	)`,
}

// RunLog stores the data quality summary of every pass and the derived
// measurements of a run.
type RunLog struct {
	db    *sqlx.DB
	RunID string
	now   func() time.Time
}

func NewRunLog(db *sqlx.DB) (*RunLog, error) {
	for _, statement := range runLogSchema {
		if _, err := db.Exec(statement); err != nil {
			return nil, fmt.Errorf("error creating run log tables: %w", err)
		}
	}
	return &RunLog{db: db, RunID: uuid.NewString(), now: time.Now}, nil
}

type PassRecord struct {
	RunID              string `db:"run_id"`
	Test               string `db:"test"`
	PassNumber         int    `db:"pass_number"`
	RecordedAt         int64  `db:"recorded_at"`
	Events             int    `db:"events"`
	Truncated          int    `db:"truncated"`
	BadAddress         int    `db:"bad_address"`
	SequenceViolations int    `db:"sequence_violations"`
	DecodingErrors     int    `db:"decoding_errors"`
	StrayWords         int    `db:"stray_words"`
	LostTriggers       int    `db:"lost_triggers"`
	Hits               int64  `db:"hits"`
}

type MeasurementRecord struct {
	RunID       string  `db:"run_id"`
	Name        string  `db:"name"`
	Measured    float64 `db:"measured"`
	Uncertainty float64 `db:"uncertainty"`
	Unit        string  `db:"unit"`
}

func (l *RunLog) RecordPass(ctx context.Context, test string, pass int, summary PassSummary) error {
	record := PassRecord{
		RunID:              l.RunID,
		Test:               test,
		PassNumber:         pass,
		RecordedAt:         l.now().Unix(),
		Events:             summary.Events,
		Truncated:          summary.Truncated,
		BadAddress:         summary.BadAddress,
		SequenceViolations: summary.SequenceViolations,
		DecodingErrors:     summary.DecodingErrors,
		StrayWords:         summary.StrayWords,
		LostTriggers:       summary.LostTriggers,
		Hits:               int64(summary.Hits),
	}
	query := `INSERT INTO hr_passes (run_id, test, pass_number, recorded_at, events, truncated, bad_address,
		sequence_violations, decoding_errors, stray_words, lost_triggers, hits)
		VALUES (:run_id, :test, :pass_number, :recorded_at, :events, :truncated, :bad_address,
		:sequence_violations, :decoding_errors, :stray_words, :lost_triggers, :hits)`
	if _, err := l.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("error recording pass %d of %s: %w", pass, test, err)
	}
	return nil
}

func (l *RunLog) RecordMeasurement(ctx context.Context, name string, m Measurement, unit string) error {
	record := MeasurementRecord{
		RunID:       l.RunID,
		Name:        name,
		Measured:    m.Value,
		Uncertainty: m.Error,
		Unit:        unit,
	}
	query := `INSERT INTO hr_measurements (run_id, name, measured, uncertainty, unit)
		VALUES (:run_id, :name, :measured, :uncertainty, :unit)`
	if _, err := l.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("error recording measurement %s: %w", name, err)
	}
	return nil
}

func (l *RunLog) Passes(ctx context.Context) ([]PassRecord, error) {
	var passes []PassRecord
	query := l.db.Rebind(`SELECT * FROM hr_passes WHERE run_id = ? ORDER BY test, pass_number`)
	if err := l.db.SelectContext(ctx, &passes, query, l.RunID); err != nil {
		return nil, fmt.Errorf("error reading passes: %w", err)
	}
	return passes, nil
}

func (l *RunLog) Measurements(ctx context.Context) ([]MeasurementRecord, error) {
	var measurements []MeasurementRecord
	query := l.db.Rebind(`SELECT * FROM hr_measurements WHERE run_id = ? ORDER BY name`)
	if err := l.db.SelectContext(ctx, &measurements, query, l.RunID); err != nil {
		return nil, fmt.Errorf("error reading measurements: %w", err)
	}
	return measurements, nil
}

func (l *RunLog) Close() error {
	return l.db.Close()
}
