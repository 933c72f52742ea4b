package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"

	"github.com/kamal-hamza/stasher/internal/core/domain"
	"github.com/kamal-hamza/stasher/internal/core/ports"
)

// InboxVerifier treats a regular file sitting directly in the inbox directory
// as a received upload. Anything else, including symlinks and files in
// subdirectories, is rejected.
type InboxVerifier struct {
	fs  afero.Fs
	dir string
}

var _ ports.UploadVerifier = (*InboxVerifier)(nil)

// NewInboxVerifier creates a verifier for dir
func NewInboxVerifier(fs afero.Fs, dir string) *InboxVerifier {
	return &InboxVerifier{fs: fs, dir: filepath.Clean(dir)}
}

// Dir returns the inbox directory
func (v *InboxVerifier) Dir() string {
	return v.dir
}

// IsUpload reports whether path is a file received into the inbox
func (v *InboxVerifier) IsUpload(path string) bool {
	if path == "" {
		return false
	}
	clean := filepath.Clean(path)
	if filepath.Dir(clean) != v.dir {
		return false
	}

	var info os.FileInfo
	var err error
	if lst, ok := v.fs.(afero.Lstater); ok {
		info, _, err = lst.LstatIfPossible(clean)
	} else {
		info, err = v.fs.Stat(clean)
	}
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Receive copies src into the inbox, the way a transport would stage an
// incoming file, and returns its descriptor. The MIME type is sniffed from
// the content.
func (v *InboxVerifier) Receive(src io.Reader, name string) (domain.UploadDescriptor, error) {
	if err := v.fs.MkdirAll(v.dir, 0o755); err != nil {
		return domain.UploadDescriptor{}, fmt.Errorf("failed to create inbox: %w", err)
	}

	tmp, err := afero.TempFile(v.fs, v.dir, "upload-")
	if err != nil {
		return domain.UploadDescriptor{}, fmt.Errorf("failed to stage upload: %w", err)
	}
	defer tmp.Close()

	size, err := io.Copy(tmp, src)
	if err != nil {
		v.fs.Remove(tmp.Name())
		return domain.UploadDescriptor{}, fmt.Errorf("failed to stage upload: %w", err)
	}

	return v.Describe(tmp.Name(), name, size)
}

// Describe builds the descriptor of a file already in the inbox.
func (v *InboxVerifier) Describe(path, name string, size int64) (domain.UploadDescriptor, error) {
	f, err := v.fs.Open(path)
	if err != nil {
		return domain.UploadDescriptor{}, err
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	contentType := "application/octet-stream"
	if err == nil {
		contentType = mtype.String()
	}

	return domain.UploadDescriptor{
		TmpName: path,
		Name:    name,
		Type:    contentType,
		Size:    size,
	}, nil
}
