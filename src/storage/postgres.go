package storage

import (
	"fmt"
	"time"

	"database/sql"

	"alert-relay/src/logger"
	"alert-relay/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	return &PostgresDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	query := `
		CREATE TABLE IF NOT EXISTS alert_events (
			client_id TEXT,
			symbol TEXT,
			price DOUBLE PRECISION,
			threshold DOUBLE PRECISION,
			direction TEXT,
			timestamp BIGINT
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create alert_events: %w", err)
	}

	if _, err := d.DB.Exec("CREATE INDEX IF NOT EXISTS idx_alert_events_ts ON alert_events (timestamp)"); err != nil {
		return fmt.Errorf("failed to create alert_events index: %w", err)
	}

	d.Logger.Info("PostgresDB initialized successfully")
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveAlertsBulk(events []models.MAlertEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO alert_events (client_id, symbol, price, threshold, direction, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		_, err := stmt.Exec(e.ClientID, e.Symbol, e.Price, e.Threshold, e.Direction, e.Timestamp)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData() error {
	retention := d.Config.Storage.RetentionDays
	if retention <= 0 {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -retention).Unix()
	res, err := d.DB.Exec("DELETE FROM alert_events WHERE timestamp < $1", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup alert_events: %w", err)
	}

	if rows, err := res.RowsAffected(); err == nil && rows > 0 {
		d.Logger.Info("Cleaned up %d old alert events", rows)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
