package services

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/stasher/internal/core/domain"
	"github.com/kamal-hamza/stasher/internal/core/ports/mocks"
)

const (
	testStashDir  = "/data/stash"
	testFilesRoot = "/data/files"
	testUploads   = "/data/uploads"
)

var testNow = time.Now().Truncate(time.Second)

// testEnv bundles the services over an in-memory filesystem
type testEnv struct {
	fs       afero.Fs
	verifier *mocks.MockUploadVerifier
	repo     *mocks.MockRecordRepository
	stash    *StashService
	files    *EntityFiles
	records  *RecordService
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
}

func newTestEnv(t *testing.T, opts ...StashOption) *testEnv {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(testStashDir, 0o755))
	require.NoError(t, fs.MkdirAll(testUploads, 0o755))
	return newTestEnvOn(t, fs, opts...)
}

func newTestEnvOn(t *testing.T, fs afero.Fs, opts ...StashOption) *testEnv {
	t.Helper()
	env := &testEnv{
		fs:       fs,
		verifier: mocks.NewMockUploadVerifier(),
		repo:     mocks.NewMockRecordRepository(),
	}

	base := []StashOption{
		WithStashClock(func() time.Time { return testNow }),
		WithStashRoll(func() int { return 100 }),
		WithStashLogger(quietLogger()),
	}
	stash, err := NewStashService(fs, StashConfig{
		Directory:     testStashDir,
		Lifetime:      2 * time.Hour,
		GCProbability: DefaultGCProbability,
	}, env.verifier, append(base, opts...)...)
	require.NoError(t, err)
	env.stash = stash

	files, err := NewEntityFiles(fs, FilesConfig{
		Roots:      map[string]string{"default": testFilesRoot},
		Connection: "default",
	}, quietLogger())
	require.NoError(t, err)
	env.files = files

	env.records = NewRecordService(env.repo, files, stash, env.verifier,
		WithRecordClock(func() time.Time { return testNow }),
		WithRecordLogger(quietLogger()))
	return env
}

// upload writes content into the uploads area and registers it as received
func (e *testEnv) upload(t *testing.T, name, content string) domain.UploadDescriptor {
	t.Helper()
	tmp := filepath.Join(testUploads, "php"+name)
	require.NoError(t, afero.WriteFile(e.fs, tmp, []byte(content), 0o644))
	e.verifier.Receive(tmp)
	return domain.UploadDescriptor{
		TmpName: tmp,
		Name:    name,
		Type:    "application/octet-stream",
		Size:    int64(len(content)),
	}
}

// stashFile stashes content under name and returns the token
func (e *testEnv) stashFile(t *testing.T, name, content string) string {
	t.Helper()
	token, err := e.stash.Save(context.Background(), e.upload(t, name, content))
	require.NoError(t, err)
	return token
}

// localFile writes a plain file outside any managed directory
func (e *testEnv) localFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, e.fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(e.fs, path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func exists(fs afero.Fs, path string) bool {
	ok, _ := afero.Exists(fs, path)
	return ok
}

// listDir returns the sorted file names in dir, or nil when it is missing
func listDir(t *testing.T, fs afero.Fs, dir string) []string {
	t.Helper()
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// unreadableFs fails every Open, standing in for missing read permission
type unreadableFs struct {
	afero.Fs
}

func (u unreadableFs) Open(name string) (afero.File, error) {
	return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
}
