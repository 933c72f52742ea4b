package domain

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxStemLength caps the part of the original filename kept in a committed name.
const MaxStemLength = 15

var (
	nonSlugPattern      = regexp.MustCompile(`[^a-z0-9]+`)
	nonExtensionPattern = regexp.MustCompile(`[^a-z0-9]`)
)

// Extensions that a web server or shell could treat as runnable. They are
// folded into the stem and replaced with txt.
var executableExtensions = map[string]bool{
	"sh": true, "bash": true, "zsh": true, "csh": true, "ksh": true,
	"php": true, "php3": true, "php4": true, "php5": true, "phtml": true, "phar": true,
	"pl": true, "py": true, "rb": true, "cgi": true, "asp": true, "aspx": true, "jsp": true,
	"js": true, "mjs": true, "exe": true, "com": true, "bat": true, "cmd": true,
	"ps1": true, "vbs": true, "msi": true, "dll": true, "so": true, "jar": true,
	"htaccess": true,
}

// GenerateSlug lowercases s, strips accents and collapses anything that is not
// a letter or digit into single underscores.
func GenerateSlug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}

	slug := strings.ToLower(ascii)
	slug = nonSlugPattern.ReplaceAllString(slug, "_")
	return strings.Trim(slug, "_")
}

// SplitFilename returns the sanitized stem and extension of name. Any
// directory part of name is discarded, whichever separator it uses.
func SplitFilename(name string) (stem, ext string) {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		base = ""
	}

	rawExt := path.Ext(base)
	rawStem := strings.TrimSuffix(base, rawExt)

	if r := []rune(rawStem); len(r) > MaxStemLength {
		rawStem = string(r[:MaxStemLength])
	}

	stem = GenerateSlug(rawStem)
	ext = nonExtensionPattern.ReplaceAllString(strings.ToLower(strings.TrimPrefix(rawExt, ".")), "")

	if executableExtensions[ext] {
		stem = strings.Trim(stem+"_"+ext, "_")
		ext = "txt"
	}
	if stem == "" {
		stem = "file"
	}
	return stem, ext
}

// ComposeStoredName builds the field value for a committed file:
// <unix>-<stem>[.<ext>].
func ComposeStoredName(unix int64, original string) string {
	stem, ext := SplitFilename(original)
	name := strconv.FormatInt(unix, 10) + "-" + stem
	if ext != "" {
		name += "." + ext
	}
	return name
}

// RecordFilePrefix is the prefix shared by every committed file of a record.
func RecordFilePrefix(id int64) string {
	return strconv.FormatInt(id, 10) + "-"
}

// CommittedFilename is the on-disk name of a field's file.
func CommittedFilename(id int64, field, stored string) string {
	return fmt.Sprintf("%s%s-%s", RecordFilePrefix(id), field, stored)
}
