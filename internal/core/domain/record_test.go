package domain

import (
	"errors"
	"testing"
)

func TestRecord_SetTracksDirty(t *testing.T) {
	rec := NewRecord("invoices")

	if rec.Loaded() {
		t.Error("new record should not be loaded")
	}
	if rec.IsDirty() {
		t.Error("new record should not be dirty")
	}

	rec.Set("pdf", "1700000000-invoice.pdf")
	rec.Set("scan", "")

	if !rec.IsDirty() {
		t.Fatal("expected record to be dirty after Set")
	}
	if got := rec.Dirty(); len(got) != 2 || got[0] != "pdf" || got[1] != "scan" {
		t.Errorf("Dirty() = %v, want [pdf scan]", got)
	}

	rec.MarkSaved(3)

	if rec.ID != 3 || !rec.Loaded() {
		t.Errorf("expected loaded record 3, got id=%d loaded=%v", rec.ID, rec.Loaded())
	}
	if rec.IsDirty() {
		t.Error("MarkSaved should clear the dirty set")
	}
	if rec.Get("pdf") != "1700000000-invoice.pdf" {
		t.Errorf("Get(pdf) = %q", rec.Get("pdf"))
	}
}

func TestRecord_FieldsIsCopy(t *testing.T) {
	rec := NewRecord("invoices")
	rec.Set("pdf", "a")

	fields := rec.Fields()
	fields["pdf"] = "b"

	if rec.Get("pdf") != "a" {
		t.Error("mutating Fields() result must not change the record")
	}
}

func TestRecord_LoadValuesAndUnload(t *testing.T) {
	rec := NewRecord("invoices")
	rec.Set("stale", "x")

	rec.LoadValues(9, map[string]string{"pdf": "1-a.pdf"})

	if rec.ID != 9 || !rec.Loaded() || rec.IsDirty() {
		t.Errorf("unexpected state after LoadValues: id=%d loaded=%v dirty=%v", rec.ID, rec.Loaded(), rec.IsDirty())
	}
	if rec.Get("stale") != "" {
		t.Error("LoadValues should replace every field")
	}
	if names := rec.FieldNames(); len(names) != 1 || names[0] != "pdf" {
		t.Errorf("FieldNames() = %v", names)
	}

	rec.Unload()
	if rec.Loaded() || rec.ID != 0 {
		t.Error("Unload should forget the identity")
	}
}

func TestValidateTable(t *testing.T) {
	valid := []string{"invoices", "_tmp", "Table2", "a"}
	invalid := []string{"", "2fast", "drop table", "../etc", "a-b", "a.b"}

	for _, name := range valid {
		if err := ValidateTable(name); err != nil {
			t.Errorf("ValidateTable(%q) unexpected error: %v", name, err)
		}
	}
	for _, name := range invalid {
		if err := ValidateTable(name); !errors.Is(err, ErrInvalidTable) {
			t.Errorf("ValidateTable(%q) = %v, want ErrInvalidTable", name, err)
		}
	}
}

func TestValidateField(t *testing.T) {
	if err := ValidateField("scan_front"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, name := range []string{"id", "", "a/b", "x-y"} {
		if err := ValidateField(name); !errors.Is(err, ErrInvalidField) {
			t.Errorf("ValidateField(%q) = %v, want ErrInvalidField", name, err)
		}
	}
}

func TestSourceKind_Moves(t *testing.T) {
	tests := map[SourceKind]bool{
		SourceUpload: true,
		SourceStash:  true,
		SourceMove:   true,
		SourceCopy:   false,
	}
	for kind, want := range tests {
		if kind.Moves() != want {
			t.Errorf("%s.Moves() = %v, want %v", kind, kind.Moves(), want)
		}
	}
}

func TestLocalSource(t *testing.T) {
	src := LocalSource("/home/me/scan.png", true)
	if src.Kind != SourceMove || src.Path != "/home/me/scan.png" || src.Name != "/home/me/scan.png" {
		t.Errorf("unexpected source %+v", src)
	}
	if LocalSource("/x", false).Kind != SourceCopy {
		t.Error("expected copy source")
	}
}

func TestMetadata_Size(t *testing.T) {
	tests := []struct {
		meta Metadata
		want int64
	}{
		{Metadata{MetaSize: int64(5)}, 5},
		{Metadata{MetaSize: 7}, 7},
		{Metadata{MetaSize: float64(1024)}, 1024},
		{Metadata{MetaSize: "big"}, 0},
		{Metadata{}, 0},
	}
	for _, tt := range tests {
		if got := tt.meta.Size(); got != tt.want {
			t.Errorf("Size(%v) = %d, want %d", tt.meta, got, tt.want)
		}
	}
}

func TestUploadDescriptor_MetadataOmitsTmpName(t *testing.T) {
	meta := UploadDescriptor{TmpName: "/tmp/php123", Name: "a.png", Type: "image/png", Size: 3}.Metadata()

	for _, v := range meta {
		if v == "/tmp/php123" {
			t.Fatal("metadata must not carry the staging path")
		}
	}
	if meta.String(MetaName) != "a.png" {
		t.Errorf("name = %q", meta.String(MetaName))
	}
}
