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

// Committer resolves the staged changes of an AttachmentState when its record
// is saved.
//
// Order matters: removals first, then identity allocation for new records,
// then the file moves, then the final write of the field values. A field is
// only assigned after its file is in place, and a failure part way through
// still writes the fields resolved so far, so a stored field never names a
// missing file. A failure can orphan a file on disk.
type Committer struct {
	repo   ports.RecordRepository
	files  *EntityFiles
	stash  *StashService
	logger *log.Logger
	now    func() time.Time
}

// NewCommitter creates a committer. stash may be nil.
func NewCommitter(repo ports.RecordRepository, files *EntityFiles, stash *StashService, logger *log.Logger) *Committer {
	if logger == nil {
		logger = logging.Get()
	}
	return &Committer{
		repo:   repo,
		files:  files,
		stash:  stash,
		logger: logger,
		now:    time.Now,
	}
}

// Commit saves the record behind st together with its staged files.
func (c *Committer) Commit(ctx context.Context, st *AttachmentState) error {
	rec := st.Record()

	for _, r := range st.PendingRemovals() {
		if err := c.files.Remove(r.Path); err != nil {
			return c.abort(ctx, rec, fmt.Errorf("%w: remove %s: %w", domain.ErrFilesystem, r.Path, err))
		}
		rec.Set(r.Field, "")
		st.clearRemoval(r.Field)
		c.logger.Debug("removed record file", "table", rec.Table, "id", rec.ID, "field", r.Field)
	}

	pending := st.PendingAttachments()
	if len(pending) > 0 && !rec.Loaded() {
		id, err := c.repo.Insert(ctx, rec.Table, rec.Fields())
		if err != nil {
			return fmt.Errorf("failed to allocate %s record: %w", rec.Table, err)
		}
		rec.MarkSaved(id)
	}

	for _, p := range pending {
		stored := domain.ComposeStoredName(c.now().Unix(), p.Source.Name)
		path, err := c.files.Materialize(rec.Table, rec.ID, p.Field, p.Source, stored)
		if err != nil {
			return c.abort(ctx, rec, fmt.Errorf("failed to attach %s: %w", p.Field, err))
		}

		rec.Set(p.Field, stored)
		st.clearAttachment(p.Field)

		if p.Source.Kind == domain.SourceStash && c.stash != nil {
			if err := c.stash.Discard(p.Source.Token); err != nil {
				c.logger.Warn("failed to discard stash entry", "token", p.Source.Token, "err", err)
			}
		}
		c.logger.Debug("attached record file", "table", rec.Table, "id", rec.ID, "field", p.Field, "path", path)
	}

	return c.persist(ctx, rec)
}

// abort writes whatever was resolved before err so the stored row matches the
// files on disk, then returns err joined with any write failure.
func (c *Committer) abort(ctx context.Context, rec *domain.Record, err error) error {
	if !rec.Loaded() {
		return err
	}
	if perr := c.persist(ctx, rec); perr != nil {
		c.logger.Error("failed to record partial save", "table", rec.Table, "id", rec.ID, "err", perr)
		return errors.Join(err, perr)
	}
	return err
}

func (c *Committer) persist(ctx context.Context, rec *domain.Record) error {
	if !rec.Loaded() {
		id, err := c.repo.Insert(ctx, rec.Table, rec.Fields())
		if err != nil {
			return fmt.Errorf("failed to insert %s record: %w", rec.Table, err)
		}
		rec.MarkSaved(id)
		return nil
	}

	if !rec.IsDirty() {
		return nil
	}
	if err := c.repo.Update(ctx, rec.Table, rec.ID, rec.Fields()); err != nil {
		return fmt.Errorf("failed to update %s record %d: %w", rec.Table, rec.ID, err)
	}
	rec.MarkSaved(rec.ID)
	return nil
}
