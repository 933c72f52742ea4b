package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/kamal-hamza/stasher/internal/core/domain"
	"github.com/kamal-hamza/stasher/internal/core/ports"
	"github.com/kamal-hamza/stasher/pkg/logging"
)

const (
	// DefaultStashLifetime applies when the configured lifetime is not positive
	DefaultStashLifetime = 7200 * time.Second
	// DefaultGCProbability is the percent chance a save triggers collection
	DefaultGCProbability = 25

	contentSuffix = "_file"
	metaSuffix    = "_meta"
)

// StashConfig configures the stash directory and its expiry policy
type StashConfig struct {
	Directory     string
	Lifetime      time.Duration
	GCProbability int
}

// StashService is a token-addressed temporary file store. Every entry is a
// pair of files: <token>_file holds the bytes, <token>_meta the descriptor.
type StashService struct {
	fs            afero.Fs
	dir           string
	lifetime      time.Duration
	gcProbability int
	verifier      ports.UploadVerifier
	logger        *log.Logger
	now           func() time.Time
	roll          func() int
}

// StashOption customizes a StashService
type StashOption func(*StashService)

// WithStashClock overrides the time source used for expiry
func WithStashClock(now func() time.Time) StashOption {
	return func(s *StashService) { s.now = now }
}

// WithStashRoll overrides the 1..100 dice used to decide on collection
func WithStashRoll(roll func() int) StashOption {
	return func(s *StashService) { s.roll = roll }
}

// WithStashLogger sets the logger
func WithStashLogger(l *log.Logger) StashOption {
	return func(s *StashService) { s.logger = l }
}

// NewStashService validates the stash directory and returns the service.
// A directory that is unset, missing or unwritable yields a *domain.ConfigError.
func NewStashService(fs afero.Fs, cfg StashConfig, verifier ports.UploadVerifier, opts ...StashOption) (*StashService, error) {
	if cfg.Directory == "" {
		return nil, &domain.ConfigError{Setting: "stash.directory", Err: domain.ErrDirectoryUnset}
	}
	if ok, err := afero.DirExists(fs, cfg.Directory); err != nil || !ok {
		return nil, &domain.ConfigError{Setting: "stash.directory", Path: cfg.Directory, Err: domain.ErrDirectoryMissing}
	}
	if !isWritableDir(fs, cfg.Directory) {
		return nil, &domain.ConfigError{Setting: "stash.directory", Path: cfg.Directory, Err: domain.ErrNotWritable}
	}

	lifetime := cfg.Lifetime
	if lifetime <= 0 {
		lifetime = DefaultStashLifetime
	}

	s := &StashService{
		fs:            fs,
		dir:           cfg.Directory,
		lifetime:      lifetime,
		gcProbability: cfg.GCProbability,
		verifier:      verifier,
		logger:        logging.Get(),
		now:           time.Now,
		roll:          func() int { return rand.Intn(100) + 1 },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Directory returns the stash directory
func (s *StashService) Directory() string {
	return s.dir
}

// Lifetime returns the effective entry lifetime
func (s *StashService) Lifetime() time.Duration {
	return s.lifetime
}

func (s *StashService) contentPath(token string) string {
	return filepath.Join(s.dir, token+contentSuffix)
}

func (s *StashService) metaPath(token string) string {
	return filepath.Join(s.dir, token+metaSuffix)
}

// Save moves a received upload into the stash and returns its token.
func (s *StashService) Save(ctx context.Context, upload domain.UploadDescriptor) (string, error) {
	if upload.TmpName == "" || s.verifier == nil || !s.verifier.IsUpload(upload.TmpName) {
		return "", domain.ErrNoFile
	}

	token, err := domain.NewToken()
	if err != nil {
		return "", err
	}

	meta, err := json.Marshal(upload.Metadata())
	if err != nil {
		return "", fmt.Errorf("failed to encode stash metadata: %w", err)
	}

	content := s.contentPath(token)
	if err := moveFile(s.fs, upload.TmpName, content); err != nil {
		return "", fmt.Errorf("%w: stash %s: %w", domain.ErrFilesystem, upload.Name, err)
	}
	if err := afero.WriteFile(s.fs, s.metaPath(token), meta, 0o644); err != nil {
		removeIfExists(s.fs, content)
		return "", fmt.Errorf("%w: write stash metadata: %w", domain.ErrFilesystem, err)
	}

	s.logger.Debug("stashed upload", "token", token, "name", upload.Name)

	if s.roll() <= s.gcProbability {
		if _, err := s.GarbageCollect(ctx); err != nil {
			s.logger.Warn("stash garbage collection failed", "err", err)
		}
	}

	return token, nil
}

// Valid reports whether token names a complete stash entry. The format is
// checked before the token is used to build any path.
func (s *StashService) Valid(token string) bool {
	if !domain.ValidTokenFormat(token) {
		return false
	}
	contentOK, _ := afero.Exists(s.fs, s.contentPath(token))
	metaOK, _ := afero.Exists(s.fs, s.metaPath(token))
	return contentOK && metaOK
}

// Load returns the stored metadata of token plus the content path.
func (s *StashService) Load(token string) (*domain.StashedFile, error) {
	if !s.Valid(token) {
		return nil, domain.ErrInvalidToken
	}

	data, err := afero.ReadFile(s.fs, s.metaPath(token))
	if err != nil {
		// Collected between the validity check and the read.
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to read stash metadata: %w", err)
	}

	meta := domain.Metadata{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: corrupt metadata: %v", domain.ErrInvalidToken, err)
	}

	content := s.contentPath(token)
	meta[domain.MetaContentPath] = content

	return &domain.StashedFile{
		Token:       token,
		ContentPath: content,
		Meta:        meta,
	}, nil
}

// LoadKey returns one metadata entry of token.
func (s *StashService) LoadKey(token, key string) (any, error) {
	f, err := s.Load(token)
	if err != nil {
		return nil, err
	}
	v, ok := f.Meta[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingKey, key)
	}
	return v, nil
}

// Discard removes whatever is left of a stash entry.
func (s *StashService) Discard(token string) error {
	if !domain.ValidTokenFormat(token) {
		return domain.ErrInvalidToken
	}
	return errors.Join(
		removeIfExists(s.fs, s.contentPath(token)),
		removeIfExists(s.fs, s.metaPath(token)),
	)
}

// GCResult summarizes one garbage collection pass
type GCResult struct {
	Cutoff  time.Time
	Scanned int
	Removed int
	Failed  int
}

// GarbageCollect deletes stash files created before now minus the lifetime.
// When one file of a pair has expired both are removed, so a pass never
// leaves half an entry behind. A file exactly at the cutoff is kept.
// Individual unlink failures are logged and counted, not returned.
func (s *StashService) GarbageCollect(ctx context.Context) (*GCResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read stash directory: %w", err)
	}

	result := &GCResult{Cutoff: s.now().Add(-s.lifetime)}

	expired := make(map[string]bool)
	expiredTokens := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		result.Scanned++
		if entry.ModTime().Before(result.Cutoff) {
			expired[entry.Name()] = true
			if token, ok := splitStashName(entry.Name()); ok {
				expiredTokens[token] = true
			}
		}
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		token, paired := splitStashName(name)
		if !expired[name] && !(paired && expiredTokens[token]) {
			continue
		}

		if err := removeIfExists(s.fs, filepath.Join(s.dir, name)); err != nil {
			result.Failed++
			s.logger.Warn("failed to remove expired stash file", "file", name, "err", err)
			continue
		}
		result.Removed++
	}

	if result.Removed > 0 || result.Failed > 0 {
		s.logger.Info("stash garbage collected", "removed", result.Removed, "failed", result.Failed)
	}
	return result, nil
}

// List returns every complete stash entry, oldest first.
func (s *StashService) List(ctx context.Context) ([]domain.StashEntry, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read stash directory: %w", err)
	}

	var out []domain.StashEntry
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), contentSuffix) {
			continue
		}
		token, ok := splitStashName(entry.Name())
		if !ok {
			continue
		}

		f, err := s.Load(token)
		if err != nil {
			continue
		}
		out = append(out, domain.StashEntry{
			Token:   token,
			Name:    f.Name(),
			Type:    f.Meta.String(domain.MetaType),
			Size:    entry.Size(),
			Created: entry.ModTime(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out, nil
}

// splitStashName extracts the token from "<token>_file" or "<token>_meta".
func splitStashName(name string) (string, bool) {
	for _, suffix := range []string{contentSuffix, metaSuffix} {
		if token, ok := strings.CutSuffix(name, suffix); ok && domain.ValidTokenFormat(token) {
			return token, true
		}
	}
	return "", false
}
