package interfaces

import "alert-relay/src/models"

// -----------------------------------------------------------------------------
// IAlertStore defines the contract for alert-history storage.
// -----------------------------------------------------------------------------

type IAlertStore interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveAlertsBulk inserts a batch of emitted alerts.
	SaveAlertsBulk(events []models.MAlertEvent) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes alerts older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
