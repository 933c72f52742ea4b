package domain

import "fmt"

// SourceKind is the closed set of ways a file can be attached.
type SourceKind int

const (
	SourceUpload SourceKind = iota + 1 // move out of the transport staging area
	SourceStash                        // rename out of the stash
	SourceCopy                         // copy a local file, leaving it in place
	SourceMove                         // move a local file
)

func (k SourceKind) String() string {
	switch k {
	case SourceUpload:
		return "upload"
	case SourceStash:
		return "stash"
	case SourceCopy:
		return "copy"
	case SourceMove:
		return "move"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// Moves reports whether materializing the source consumes it.
func (k SourceKind) Moves() bool {
	return k != SourceCopy
}

// Source is where the bytes of a pending attachment currently live. Build it
// with UploadSource, StashSource or LocalSource.
type Source struct {
	Kind SourceKind
	// Path is the file that will be moved or copied.
	Path string
	// Name is the filename the committed name is derived from.
	Name string
	// Token is set for stash sources.
	Token string
}

// UploadSource attaches a received upload.
func UploadSource(u UploadDescriptor) Source {
	return Source{Kind: SourceUpload, Path: u.TmpName, Name: u.Name}
}

// StashSource attaches a loaded stash entry.
func StashSource(f *StashedFile) Source {
	return Source{Kind: SourceStash, Path: f.ContentPath, Name: f.Name(), Token: f.Token}
}

// LocalSource attaches a file already on disk. The file's own name is used to
// derive the committed name.
func LocalSource(path string, move bool) Source {
	kind := SourceCopy
	if move {
		kind = SourceMove
	}
	return Source{Kind: kind, Path: path, Name: path}
}

// PendingAttachment is a staged attach for one field, resolved on save.
type PendingAttachment struct {
	Field  string
	Source Source
}

// PendingRemoval is a committed file scheduled for deletion on save.
type PendingRemoval struct {
	Field string
	Path  string
}
