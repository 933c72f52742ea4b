package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/kamal-hamza/stasher/internal/core/domain"
	"github.com/kamal-hamza/stasher/pkg/logging"
)

// FilesConfig locates the committed files of every table
type FilesConfig struct {
	// Roots maps a connection name to its files root
	Roots map[string]string
	// Connection selects the root used by this service
	Connection  string
	TablePrefix string
}

// EntityFiles owns the table-scoped directories holding committed files.
// Directory lookups are memoized per connection and table.
type EntityFiles struct {
	fs     afero.Fs
	root   string
	cfg    FilesConfig
	logger *log.Logger
	dirs   sync.Map
}

// NewEntityFiles resolves the files root of the configured connection.
// A missing root is a *domain.ConfigError. The root itself is created on first
// attach, like the table directories below it.
func NewEntityFiles(fs afero.Fs, cfg FilesConfig, logger *log.Logger) (*EntityFiles, error) {
	setting := "orm_files." + cfg.Connection
	root, ok := cfg.Roots[cfg.Connection]
	if !ok || root == "" {
		return nil, &domain.ConfigError{Setting: setting, Err: domain.ErrDirectoryUnset}
	}
	if logger == nil {
		logger = logging.Get()
	}
	return &EntityFiles{fs: fs, root: root, cfg: cfg, logger: logger}, nil
}

// Dir returns the directory holding the committed files of table.
func (e *EntityFiles) Dir(table string) string {
	key := e.cfg.Connection + "/" + table
	if dir, ok := e.dirs.Load(key); ok {
		return dir.(string)
	}
	dir := filepath.Join(e.root, e.cfg.TablePrefix+table)
	e.dirs.Store(key, dir)
	return dir
}

// Path returns the committed path of field's current value, or "" when the
// field is empty or the record has no identity yet.
func (e *EntityFiles) Path(rec *domain.Record, field string) string {
	stored := rec.Get(field)
	if stored == "" || !rec.Loaded() {
		return ""
	}
	return filepath.Join(e.Dir(rec.Table), domain.CommittedFilename(rec.ID, field, stored))
}

// EnsureDir creates the table directory if needed and checks it is writable.
func (e *EntityFiles) EnsureDir(table string) (string, error) {
	dir := e.Dir(table)
	if ok, _ := afero.DirExists(e.fs, dir); !ok {
		if err := e.fs.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("%w: create %s: %w", domain.ErrFilesystem, dir, err)
		}
	}
	if !isWritableDir(e.fs, dir) {
		return "", fmt.Errorf("%w: %w: %s", domain.ErrFilesystem, domain.ErrNotWritable, dir)
	}
	return dir, nil
}

// Materialize moves or copies src to the committed location of field and
// returns the destination path.
func (e *EntityFiles) Materialize(table string, id int64, field string, src domain.Source, stored string) (string, error) {
	dir, err := e.EnsureDir(table)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(dir, domain.CommittedFilename(id, field, stored))

	switch src.Kind {
	case domain.SourceCopy:
		err = copyFile(e.fs, src.Path, dst)
	case domain.SourceUpload, domain.SourceStash, domain.SourceMove:
		err = moveFile(e.fs, src.Path, dst)
	default:
		err = fmt.Errorf("unknown source kind %s", src.Kind)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s %s: %w", domain.ErrFilesystem, src.Kind, src.Path, err)
	}
	return dst, nil
}

// Remove deletes one committed file. A missing file is not an error.
func (e *EntityFiles) Remove(path string) error {
	return removeIfExists(e.fs, path)
}

// RemoveFor deletes every file of record id. Failures do not stop the sweep;
// they are logged and returned joined.
func (e *EntityFiles) RemoveFor(ctx context.Context, table string, id int64) (int, error) {
	return e.sweep(table, domain.RecordFilePrefix(id))
}

// RemoveAll deletes every file in the table directory.
func (e *EntityFiles) RemoveAll(ctx context.Context, table string) (int, error) {
	return e.sweep(table, "")
}

func (e *EntityFiles) sweep(table, prefix string) (int, error) {
	dir := e.Dir(table)
	entries, err := afero.ReadDir(e.fs, dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := removeIfExists(e.fs, path); err != nil {
			e.logger.Warn("failed to remove record file", "file", path, "err", err)
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
