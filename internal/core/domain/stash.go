package domain

import "time"

// Metadata keys written alongside stashed content.
const (
	MetaName        = "name"
	MetaType        = "type"
	MetaSize        = "size"
	MetaError       = "error"
	MetaContentPath = "content_path"
)

// UploadDescriptor is what the upload collaborator hands over once a file has
// been received. TmpName is the transport staging path and is never persisted.
type UploadDescriptor struct {
	TmpName string `json:"tmp_name,omitempty"`
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Size    int64  `json:"size"`
	Error   int    `json:"error"`
}

// Metadata returns the descriptor as a metadata map, without TmpName.
func (u UploadDescriptor) Metadata() Metadata {
	return Metadata{
		MetaName:  u.Name,
		MetaType:  u.Type,
		MetaSize:  u.Size,
		MetaError: u.Error,
	}
}

// Metadata is the stored description of a stashed upload.
type Metadata map[string]any

// String returns the value under key when it is a string.
func (m Metadata) String(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Size returns the recorded size. JSON numbers decode as float64.
func (m Metadata) Size() int64 {
	switch v := m[MetaSize].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// StashedFile is a loaded stash entry.
type StashedFile struct {
	Token       string
	ContentPath string
	Meta        Metadata
}

// Name is the client supplied filename.
func (f *StashedFile) Name() string {
	return f.Meta.String(MetaName)
}

// StashEntry is a listing row for a valid stash pair.
type StashEntry struct {
	Token   string
	Name    string
	Type    string
	Size    int64
	Created time.Time
}
