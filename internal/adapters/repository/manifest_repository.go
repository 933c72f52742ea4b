package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/kamal-hamza/stasher/internal/core/domain"
	"github.com/kamal-hamza/stasher/internal/core/ports"
)

// ManifestRepository keeps each table in a JSON manifest file. It suits small
// deployments and tests that do not want a database.
type ManifestRepository struct {
	fs     afero.Fs
	dir    string
	prefix string
	mu     sync.RWMutex
	cache  map[string]*manifest
}

var _ ports.RecordRepository = (*ManifestRepository)(nil)

type manifest struct {
	NextID int64                       `json:"next_id"`
	Rows   map[int64]map[string]string `json:"rows"`
}

// NewManifestRepository stores manifests under dir
func NewManifestRepository(fs afero.Fs, dir, tablePrefix string) *ManifestRepository {
	return &ManifestRepository{
		fs:     fs,
		dir:    dir,
		prefix: tablePrefix,
		cache:  make(map[string]*manifest),
	}
}

func (r *ManifestRepository) manifestPath(table string) string {
	return filepath.Join(r.dir, r.prefix+table+".json")
}

// load reads the manifest of table from disk. Callers hold the lock.
func (r *ManifestRepository) load(table string) (*manifest, error) {
	if err := domain.ValidateTable(table); err != nil {
		return nil, err
	}
	if m, ok := r.cache[table]; ok {
		return m, nil
	}

	m := &manifest{Rows: make(map[int64]map[string]string)}
	data, err := afero.ReadFile(r.fs, r.manifestPath(table))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("corrupt manifest for %s: %w", table, err)
		}
		if m.Rows == nil {
			m.Rows = make(map[int64]map[string]string)
		}
	}

	r.cache[table] = m
	return m, nil
}

// flush writes the manifest of table to disk. Callers hold the lock.
func (r *ManifestRepository) flush(table string, m *manifest) error {
	if err := r.fs.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	// Write then rename so a crash never truncates the manifest.
	tmp := r.manifestPath(table) + ".tmp"
	if err := afero.WriteFile(r.fs, tmp, data, 0o644); err != nil {
		return err
	}
	return r.fs.Rename(tmp, r.manifestPath(table))
}

func cloneFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (r *ManifestRepository) Insert(ctx context.Context, table string, fields map[string]string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load(table)
	if err != nil {
		return 0, err
	}
	m.NextID++
	id := m.NextID
	m.Rows[id] = cloneFields(fields)

	if err := r.flush(table, m); err != nil {
		delete(m.Rows, id)
		return 0, fmt.Errorf("failed to write manifest: %w", err)
	}
	return id, nil
}

func (r *ManifestRepository) Update(ctx context.Context, table string, id int64, fields map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load(table)
	if err != nil {
		return err
	}
	previous, ok := m.Rows[id]
	if !ok {
		return fmt.Errorf("%w: %s/%d", domain.ErrRecordNotFound, table, id)
	}
	m.Rows[id] = cloneFields(fields)

	if err := r.flush(table, m); err != nil {
		m.Rows[id] = previous
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func (r *ManifestRepository) Get(ctx context.Context, table string, id int64) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load(table)
	if err != nil {
		return nil, err
	}
	fields, ok := m.Rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", domain.ErrRecordNotFound, table, id)
	}
	rec := domain.NewRecord(table)
	rec.LoadValues(id, fields)
	return rec, nil
}

func (r *ManifestRepository) List(ctx context.Context, table string) ([]*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load(table)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(m.Rows))
	for id := range m.Rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	records := make([]*domain.Record, 0, len(ids))
	for _, id := range ids {
		rec := domain.NewRecord(table)
		rec.LoadValues(id, m.Rows[id])
		records = append(records, rec)
	}
	return records, nil
}

func (r *ManifestRepository) Delete(ctx context.Context, table string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load(table)
	if err != nil {
		return err
	}
	previous, ok := m.Rows[id]
	if !ok {
		return fmt.Errorf("%w: %s/%d", domain.ErrRecordNotFound, table, id)
	}
	delete(m.Rows, id)

	if err := r.flush(table, m); err != nil {
		m.Rows[id] = previous
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func (r *ManifestRepository) DeleteAll(ctx context.Context, table string, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load(table)
	if err != nil {
		return err
	}
	rows := m.Rows
	if ids == nil {
		m.Rows = make(map[int64]map[string]string)
	} else {
		m.Rows = make(map[int64]map[string]string, len(rows))
		for id, fields := range rows {
			m.Rows[id] = fields
		}
		for _, id := range ids {
			delete(m.Rows, id)
		}
	}

	if err := r.flush(table, m); err != nil {
		m.Rows = rows
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

var _ ports.TableLister = (*ManifestRepository)(nil)

// Tables lists the tables that have a manifest, without prefix
func (r *ManifestRepository) Tables(ctx context.Context) ([]string, error) {
	entries, err := afero.ReadDir(r.fs, r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}

	var out []string
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok {
			continue
		}
		if table, ok := strings.CutPrefix(name, r.prefix); ok && domain.ValidateTable(table) == nil {
			out = append(out, table)
		}
	}
	return out, nil
}
