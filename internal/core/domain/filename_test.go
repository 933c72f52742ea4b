package domain

import (
	"strings"
	"testing"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Graph Theory", "graph_theory"},
		{"Résumé", "resume"},
		{"  spaces  around ", "spaces_around"},
		{"Multiple---Dashes", "multiple_dashes"},
		{"ALL CAPS", "all_caps"},
		{"日本", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := GenerateSlug(tt.input); got != tt.expected {
				t.Errorf("GenerateSlug(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSplitFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantStem string
		wantExt  string
	}{
		{"plain", "report.pdf", "report", "pdf"},
		{"uppercase extension", "Photo 1.JPG", "photo_1", "jpg"},
		{"accents", "Résumé Final.pdf", "resume_final", "pdf"},
		{"long stem truncated", "a very long filename indeed.txt", "a_very_long_fil", "txt"},
		{"double extension", "archive.tar.gz", "archive_tar", "gz"},
		{"no extension", "README", "readme", ""},
		{"traversal", "../../etc/passwd.sh", "passwd_sh", "txt"},
		{"windows path", `C:\Users\bob\photo.JPG`, "photo", "jpg"},
		{"executable", "setup.exe", "setup_exe", "txt"},
		{"php", "shell.php", "shell_php", "txt"},
		{"dotfile", ".htaccess", "htaccess", "txt"},
		{"symbols only", "!!!.png", "file", "png"},
		{"empty", "", "file", ""},
		{"dot dot", "..", "file", ""},
		{"extension junk", "data.j-s*on", "data", "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stem, ext := SplitFilename(tt.input)
			if stem != tt.wantStem || ext != tt.wantExt {
				t.Errorf("SplitFilename(%q) = (%q, %q), want (%q, %q)",
					tt.input, stem, ext, tt.wantStem, tt.wantExt)
			}
		})
	}
}

func TestSplitFilename_NeverContainsSeparators(t *testing.T) {
	inputs := []string{
		"../../etc/passwd.sh",
		`..\..\windows\system32\cmd.exe`,
		"/absolute/path/file.txt",
		"a/b/c/../../d.png",
	}

	for _, input := range inputs {
		stem, ext := SplitFilename(input)
		for _, part := range []string{stem, ext} {
			if strings.ContainsAny(part, `/\`) || strings.Contains(part, "..") {
				t.Errorf("SplitFilename(%q) leaked a path component: (%q, %q)", input, stem, ext)
			}
		}
	}
}

func TestComposeStoredName(t *testing.T) {
	tests := []struct {
		original string
		expected string
	}{
		{"Photo 1.JPG", "1700000000-photo_1.jpg"},
		{"README", "1700000000-readme"},
		{"../../etc/passwd.sh", "1700000000-passwd_sh.txt"},
	}

	for _, tt := range tests {
		if got := ComposeStoredName(1700000000, tt.original); got != tt.expected {
			t.Errorf("ComposeStoredName(%q) = %q, want %q", tt.original, got, tt.expected)
		}
	}
}

func TestCommittedFilename(t *testing.T) {
	got := CommittedFilename(7, "scan", "1700000000-photo_1.jpg")
	if got != "7-scan-1700000000-photo_1.jpg" {
		t.Errorf("CommittedFilename() = %q", got)
	}

	if !strings.HasPrefix(got, RecordFilePrefix(7)) {
		t.Errorf("expected %q to start with the record prefix", got)
	}

	if strings.HasPrefix(CommittedFilename(17, "scan", "x"), RecordFilePrefix(7)) {
		t.Error("record 17's files must not match record 7's prefix")
	}
}
