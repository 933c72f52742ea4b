package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kamal-hamza/stasher/internal/core/domain"
)

// MockRecordRepository is an in-memory RecordRepository for testing
type MockRecordRepository struct {
	mu     sync.RWMutex
	tables map[string]map[int64]map[string]string
	nextID map[string]int64

	// Calls counts invocations per method name
	Calls map[string]int

	// FailUpdate makes Update return this error when set
	FailUpdate error
	// FailDelete makes Delete and DeleteAll return this error when set
	FailDelete error
}

// NewMockRecordRepository creates a new mock repository
func NewMockRecordRepository() *MockRecordRepository {
	return &MockRecordRepository{
		tables: make(map[string]map[int64]map[string]string),
		nextID: make(map[string]int64),
		Calls:  make(map[string]int),
	}
}

func (m *MockRecordRepository) table(name string) map[int64]map[string]string {
	t, ok := m.tables[name]
	if !ok {
		t = make(map[int64]map[string]string)
		m.tables[name] = t
	}
	return t
}

func copyFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Insert stores a row under the next id of its table
func (m *MockRecordRepository) Insert(ctx context.Context, table string, fields map[string]string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Insert"]++

	m.nextID[table]++
	id := m.nextID[table]
	m.table(table)[id] = copyFields(fields)
	return id, nil
}

// Update overwrites a row
func (m *MockRecordRepository) Update(ctx context.Context, table string, id int64, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Update"]++

	if m.FailUpdate != nil {
		return m.FailUpdate
	}
	t := m.table(table)
	if _, ok := t[id]; !ok {
		return fmt.Errorf("%w: %s/%d", domain.ErrRecordNotFound, table, id)
	}
	t[id] = copyFields(fields)
	return nil
}

// Get returns a loaded record
func (m *MockRecordRepository) Get(ctx context.Context, table string, id int64) (*domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fields, ok := m.tables[table][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", domain.ErrRecordNotFound, table, id)
	}
	rec := domain.NewRecord(table)
	rec.LoadValues(id, fields)
	return rec, nil
}

// List returns every record of table ordered by id
func (m *MockRecordRepository) List(ctx context.Context, table string) ([]*domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.tables[table]))
	for id := range m.tables[table] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	records := make([]*domain.Record, 0, len(ids))
	for _, id := range ids {
		rec := domain.NewRecord(table)
		rec.LoadValues(id, m.tables[table][id])
		records = append(records, rec)
	}
	return records, nil
}

// Delete removes a row
func (m *MockRecordRepository) Delete(ctx context.Context, table string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Delete"]++

	if m.FailDelete != nil {
		return m.FailDelete
	}
	t := m.table(table)
	if _, ok := t[id]; !ok {
		return fmt.Errorf("%w: %s/%d", domain.ErrRecordNotFound, table, id)
	}
	delete(t, id)
	return nil
}

// DeleteAll removes the given rows, or all of them when ids is nil
func (m *MockRecordRepository) DeleteAll(ctx context.Context, table string, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["DeleteAll"]++

	if m.FailDelete != nil {
		return m.FailDelete
	}
	if ids == nil {
		m.tables[table] = make(map[int64]map[string]string)
		return nil
	}
	t := m.table(table)
	for _, id := range ids {
		delete(t, id)
	}
	return nil
}

// Count returns the number of rows in table
func (m *MockRecordRepository) Count(table string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables[table])
}

// --- MockUploadVerifier ---

// MockUploadVerifier accepts exactly the paths registered with Receive
type MockUploadVerifier struct {
	mu       sync.Mutex
	received map[string]bool
}

func NewMockUploadVerifier() *MockUploadVerifier {
	return &MockUploadVerifier{received: make(map[string]bool)}
}

// Receive marks path as a genuine upload
func (m *MockUploadVerifier) Receive(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received[path] = true
}

func (m *MockUploadVerifier) IsUpload(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.received[path]
}
