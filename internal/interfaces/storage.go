package interfaces

import "github.com/bobmcallan/stockreplay/internal/models"

// ReferenceStore is the read-only index over the stock reference dataset.
// Errors are only ever dataset load errors.
type ReferenceStore interface {
	// Initialize loads the dataset; repeated calls return the first result
	Initialize() error

	// GetByCode finds a record by code, ignoring a .TW/.TWO suffix
	GetByCode(code string) (models.StockRecord, bool, error)

	// SearchByName returns records whose name contains query, exact matches first
	SearchByName(query string, limit int) ([]models.StockRecord, error)

	// Contains reports whether code is a known stock
	Contains(code string) bool

	// Len returns the number of records
	Len() int

	// Records returns a copy of every record in dataset order
	Records() ([]models.StockRecord, error)
}
