package ports

import (
	"context"

	"github.com/kamal-hamza/stasher/internal/core/domain"
)

// RecordRepository defines the port for record persistence
type RecordRepository interface {
	// Insert stores a new row and returns its allocated primary key.
	// An empty field set is valid: it only allocates the identity.
	Insert(ctx context.Context, table string, fields map[string]string) (int64, error)

	// Update overwrites the stored fields of an existing row
	Update(ctx context.Context, table string, id int64, fields map[string]string) error

	// Get loads a row; domain.ErrRecordNotFound if absent
	Get(ctx context.Context, table string, id int64) (*domain.Record, error)

	// List returns every row of table ordered by id
	List(ctx context.Context, table string) ([]*domain.Record, error)

	// Delete removes one row
	Delete(ctx context.Context, table string, id int64) error

	// DeleteAll removes the given ids, or every row when ids is nil
	DeleteAll(ctx context.Context, table string, ids []int64) error
}

// UploadVerifier decides whether a path was genuinely received by the upload
// transport. It is the only judge of upload authenticity.
type UploadVerifier interface {
	IsUpload(path string) bool
}

// TableLister is implemented by repositories that can enumerate their tables
type TableLister interface {
	Tables(ctx context.Context) ([]string, error)
}
