package iocache

import (
	"time"

	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetRunStore implements the StoreManager interface.
func (m *MockStoreManager) GetRunStore() contract.RunStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.RunStore)
	return store
}

// MockRunStore is a mock implementation of RunStore for testing.
type MockRunStore struct {
	mock.Mock
}

var _ contract.RunStore = &MockRunStore{} // Compile-time check

// BeginRun implements the RunStore interface.
func (m *MockRunStore) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	args := m.Called(startTime, configParams)
	return args.Get(0).(int64), args.Error(1)
}

// RecordEntity implements the RunStore interface.
func (m *MockRunStore) RecordEntity(runID int64, record schema.EntityRecord) error {
	args := m.Called(runID, record)
	return args.Error(0)
}

// EndRun implements the RunStore interface.
func (m *MockRunStore) EndRun(runID int64, endTime time.Time, regression schema.RegressionResult, totalEntities int) error {
	args := m.Called(runID, endTime, regression, totalEntities)
	return args.Error(0)
}

// ListRuns implements the RunStore interface.
func (m *MockRunStore) ListRuns(limit int) ([]schema.RunSummary, error) {
	args := m.Called(limit)
	runs, _ := args.Get(0).([]schema.RunSummary)
	return runs, args.Error(1)
}

// ListEntities implements the RunStore interface.
func (m *MockRunStore) ListEntities(runID int64) ([]schema.RunEntity, error) {
	args := m.Called(runID)
	entities, _ := args.Get(0).([]schema.RunEntity)
	return entities, args.Error(1)
}

// GetStatus implements the RunStore interface.
func (m *MockRunStore) GetStatus() (schema.HistoryStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.HistoryStatus), args.Error(1)
}

// Clear implements the RunStore interface.
func (m *MockRunStore) Clear() error {
	args := m.Called()
	return args.Error(0)
}

// Close implements the RunStore interface.
func (m *MockRunStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
