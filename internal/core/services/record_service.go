package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kamal-hamza/stasher/internal/core/domain"
	"github.com/kamal-hamza/stasher/internal/core/ports"
	"github.com/kamal-hamza/stasher/pkg/logging"
)

// RecordService ties records to their files: it hands out AttachmentStates,
// commits them on save and sweeps files on delete.
type RecordService struct {
	repo      ports.RecordRepository
	files     *EntityFiles
	stash     *StashService
	verifier  ports.UploadVerifier
	committer *Committer
	logger    *log.Logger
}

// RecordOption customizes a RecordService
type RecordOption func(*RecordService)

// WithRecordClock overrides the time used for committed filenames
func WithRecordClock(now func() time.Time) RecordOption {
	return func(s *RecordService) { s.committer.now = now }
}

// WithRecordLogger sets the logger
func WithRecordLogger(l *log.Logger) RecordOption {
	return func(s *RecordService) {
		s.logger = l
		s.committer.logger = l
	}
}

// NewRecordService creates a new record service
func NewRecordService(repo ports.RecordRepository, files *EntityFiles, stash *StashService, verifier ports.UploadVerifier, opts ...RecordOption) *RecordService {
	logger := logging.Get()
	s := &RecordService{
		repo:      repo,
		files:     files,
		stash:     stash,
		verifier:  verifier,
		committer: NewCommitter(repo, files, stash, logger),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Files returns the committed-file store
func (s *RecordService) Files() *EntityFiles {
	return s.files
}

// New returns staging state for an unsaved record of table.
func (s *RecordService) New(table string) (*AttachmentState, error) {
	if err := domain.ValidateTable(table); err != nil {
		return nil, err
	}
	return NewAttachmentState(domain.NewRecord(table), s.files, s.stash, s.verifier), nil
}

// Get loads a record and returns fresh staging state for it.
func (s *RecordService) Get(ctx context.Context, table string, id int64) (*AttachmentState, error) {
	if err := domain.ValidateTable(table); err != nil {
		return nil, err
	}
	rec, err := s.repo.Get(ctx, table, id)
	if err != nil {
		return nil, err
	}
	return NewAttachmentState(rec, s.files, s.stash, s.verifier), nil
}

// Reload re-reads st's record from the store, discarding staged changes.
func (s *RecordService) Reload(ctx context.Context, st *AttachmentState) error {
	rec := st.Record()
	if !rec.Loaded() {
		return fmt.Errorf("%w: %s record was never saved", domain.ErrRecordNotFound, rec.Table)
	}
	stored, err := s.repo.Get(ctx, rec.Table, rec.ID)
	if err != nil {
		return err
	}
	st.LoadValues(stored.ID, stored.Fields())
	return nil
}

// List returns every record of table
func (s *RecordService) List(ctx context.Context, table string) ([]*domain.Record, error) {
	if err := domain.ValidateTable(table); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, table)
}

// Save persists the record and resolves its staged files.
func (s *RecordService) Save(ctx context.Context, st *AttachmentState) error {
	return s.committer.Commit(ctx, st)
}

// CleanupResult reports the file sweep that follows a record deletion. Err
// holds unlink failures; the rows are already gone when it is set.
type CleanupResult struct {
	Removed int
	Err     error
}

// Delete removes the record id of table and then its files.
func (s *RecordService) Delete(ctx context.Context, table string, id int64) (*CleanupResult, error) {
	if err := domain.ValidateTable(table); err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, table, id); err != nil {
		return nil, err
	}

	removed, err := s.files.RemoveFor(ctx, table, id)
	if err != nil {
		s.logger.Warn("record deleted but file cleanup failed", "table", table, "id", id, "err", err)
	}
	return &CleanupResult{Removed: removed, Err: err}, nil
}

// DeleteRecord removes the record behind st, which must have been saved.
func (s *RecordService) DeleteRecord(ctx context.Context, st *AttachmentState) (*CleanupResult, error) {
	rec := st.Record()
	if !rec.Loaded() {
		return nil, fmt.Errorf("%w: %s record was never saved", domain.ErrRecordNotFound, rec.Table)
	}
	result, err := s.Delete(ctx, rec.Table, rec.ID)
	if err != nil {
		return nil, err
	}
	st.LoadValues(0, nil)
	rec.Unload()
	return result, nil
}

// DeleteIDs removes the listed records and their files.
func (s *RecordService) DeleteIDs(ctx context.Context, table string, ids []int64) (*CleanupResult, error) {
	if err := domain.ValidateTable(table); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	if err := s.repo.DeleteAll(ctx, table, ids); err != nil {
		return nil, err
	}

	result := &CleanupResult{}
	var errs []error
	for _, id := range ids {
		removed, err := s.files.RemoveFor(ctx, table, id)
		result.Removed += removed
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		result.Err = errors.Join(errs...)
		s.logger.Warn("records deleted but file cleanup failed", "table", table, "err", result.Err)
	}
	return result, nil
}

// DeleteAll removes every record of table and every file in its directory.
func (s *RecordService) DeleteAll(ctx context.Context, table string) (*CleanupResult, error) {
	if err := domain.ValidateTable(table); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteAll(ctx, table, nil); err != nil {
		return nil, err
	}

	removed, err := s.files.RemoveAll(ctx, table)
	if err != nil {
		s.logger.Warn("table purged but file cleanup failed", "table", table, "err", err)
	}
	return &CleanupResult{Removed: removed, Err: err}, nil
}
