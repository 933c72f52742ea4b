package services

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/kamal-hamza/stasher/internal/core/domain"
	"github.com/kamal-hamza/stasher/internal/core/ports"
)

// AttachmentState stages file changes for one record until it is saved.
// Each field holds at most one pending attachment or one pending removal.
// It is not safe for concurrent use.
type AttachmentState struct {
	record   *domain.Record
	files    *EntityFiles
	stash    *StashService
	verifier ports.UploadVerifier
	fs       afero.Fs

	pending  map[string]domain.PendingAttachment
	removals map[string]domain.PendingRemoval
}

// NewAttachmentState wraps rec. stash and verifier may be nil when the
// corresponding attach variants are not used.
func NewAttachmentState(rec *domain.Record, files *EntityFiles, stash *StashService, verifier ports.UploadVerifier) *AttachmentState {
	return &AttachmentState{
		record:   rec,
		files:    files,
		stash:    stash,
		verifier: verifier,
		fs:       files.fs,
		pending:  make(map[string]domain.PendingAttachment),
		removals: make(map[string]domain.PendingRemoval),
	}
}

// Record returns the wrapped record
func (a *AttachmentState) Record() *domain.Record {
	return a.record
}

// AttachUpload stages a received upload for field.
func (a *AttachmentState) AttachUpload(field string, upload domain.UploadDescriptor) error {
	if err := domain.ValidateField(field); err != nil {
		return err
	}
	if upload.TmpName == "" || a.verifier == nil || !a.verifier.IsUpload(upload.TmpName) {
		return domain.ErrNoFile
	}
	a.stage(field, domain.UploadSource(upload))
	return nil
}

// AttachStashToken resolves token through the stash and stages it for field.
func (a *AttachmentState) AttachStashToken(field, token string) error {
	if err := domain.ValidateField(field); err != nil {
		return err
	}
	if a.stash == nil {
		return domain.ErrInvalidToken
	}
	f, err := a.stash.Load(token)
	if err != nil {
		return err
	}
	return a.AttachStashed(field, f)
}

// AttachStashed stages an already loaded stash entry for field.
func (a *AttachmentState) AttachStashed(field string, f *domain.StashedFile) error {
	if err := domain.ValidateField(field); err != nil {
		return err
	}
	if f == nil || f.ContentPath == "" {
		return domain.ErrInvalidToken
	}
	a.stage(field, domain.StashSource(f))
	return nil
}

// AttachLocal stages a file already on disk. With move the file is moved on
// save and its directory must be writable; otherwise it is copied and must be
// readable.
func (a *AttachmentState) AttachLocal(field, path string, move bool) error {
	if err := domain.ValidateField(field); err != nil {
		return err
	}

	info, err := a.fs.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
	}

	if move {
		if !isWritableDir(a.fs, filepath.Dir(path)) {
			return fmt.Errorf("%w: cannot move %s", domain.ErrNotWritable, path)
		}
	} else if !isReadable(a.fs, path) {
		return fmt.Errorf("%w: cannot copy %s", domain.ErrNotReadable, path)
	}

	a.stage(field, domain.LocalSource(path, move))
	return nil
}

func (a *AttachmentState) stage(field string, src domain.Source) {
	a.Remove(field)
	a.pending[field] = domain.PendingAttachment{Field: field, Source: src}
}

// Remove drops any pending attachment for field and schedules its committed
// file, if there is one, for deletion on save.
func (a *AttachmentState) Remove(field string) {
	delete(a.pending, field)
	if path, ok := a.Path(field); ok {
		a.removals[field] = domain.PendingRemoval{Field: field, Path: path}
	}
}

// Has reports whether field will hold a file after the next save.
func (a *AttachmentState) Has(field string) bool {
	if _, ok := a.pending[field]; ok {
		return true
	}
	if _, ok := a.removals[field]; ok {
		return false
	}
	return a.record.Get(field) != ""
}

// Path returns where the bytes of field currently live: the pending source,
// or the committed file. It reports false when field has no file or its file
// is scheduled for removal.
func (a *AttachmentState) Path(field string) (string, bool) {
	if p, ok := a.pending[field]; ok {
		return p.Source.Path, true
	}
	if _, ok := a.removals[field]; ok {
		return "", false
	}
	path := a.files.Path(a.record, field)
	return path, path != ""
}

// LoadValues replaces the record's fields with stored values and forgets all
// staged changes.
func (a *AttachmentState) LoadValues(id int64, values map[string]string) {
	a.pending = make(map[string]domain.PendingAttachment)
	a.removals = make(map[string]domain.PendingRemoval)
	a.record.LoadValues(id, values)
}

// PendingAttachments returns the staged attachments ordered by field
func (a *AttachmentState) PendingAttachments() []domain.PendingAttachment {
	out := make([]domain.PendingAttachment, 0, len(a.pending))
	for _, p := range a.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// PendingRemovals returns the staged removals ordered by field
func (a *AttachmentState) PendingRemovals() []domain.PendingRemoval {
	out := make([]domain.PendingRemoval, 0, len(a.removals))
	for _, r := range a.removals {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func (a *AttachmentState) clearRemoval(field string) {
	delete(a.removals, field)
}

func (a *AttachmentState) clearAttachment(field string) {
	delete(a.pending, field)
}
