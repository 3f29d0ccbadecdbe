// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"time"

	"github.com/huangsam/envgap/schema"
)

// StoreManager defines the interface for managing the history store.
// This allows the persistence layer to be mocked for testing.
type StoreManager interface {
	GetRunStore() RunStore
}

// RunStore defines the interface for tracking index runs and their derived rows.
// The store is an audit log; nothing in the pipeline reads it back.
type RunStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// RecordEntity stores the derived values of one entity for a run
	RecordEntity(runID int64, record schema.EntityRecord) error

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, regression schema.RegressionResult, totalEntities int) error

	// ListRuns returns the most recent runs, newest first
	ListRuns(limit int) ([]schema.RunSummary, error)

	// ListEntities returns the stored rows of a run
	ListEntities(runID int64) ([]schema.RunEntity, error)

	// GetStatus returns status information about the store
	GetStatus() (schema.HistoryStatus, error)

	// Clear removes every run
	Clear() error

	// Close closes the underlying connection
	Close() error
}
