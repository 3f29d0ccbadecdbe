// Package iocache persists pipeline runs and their derived rows to a SQL
// history store.
package iocache

import (
	"sync"

	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/schema"
	"github.com/rotisserie/eris"
)

// RunStoreManager owns the process-wide run store.
type RunStoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	runs         contract.RunStore
}

var _ contract.StoreManager = &RunStoreManager{} // Compile-time check

// GetRunStore returns the run store, or nil before InitStores.
func (mgr *RunStoreManager) GetRunStore() contract.RunStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.runs
}

// Global Manager instance for main logic.
var (
	Manager   = &RunStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// InitStores initializes the global manager's run store. An empty backend
// leaves history tracking disabled.
func InitStores(backend schema.DatabaseBackend, connStr string) error {
	var initErr error
	initOnce.Do(func() {
		if backend == "" {
			return
		}
		store, err := NewRunStore(backend, connStr)
		if err != nil {
			initErr = eris.Wrap(err, "iocache: initialize run store")
			return
		}
		Manager.Lock()
		Manager.runs = store
		Manager.Unlock()
	})
	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() {
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.runs != nil {
			_ = Manager.runs.Close()
		}
	})
}
