package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/stasher/internal/core/domain"
	"github.com/kamal-hamza/stasher/pkg/logging"
)

func storedName(original string) string {
	return domain.ComposeStoredName(testNow.Unix(), original)
}

func TestRecordService_Save_UnsavedRecordWithStashToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.stashFile(t, "Report Q1.pdf", "quarterly")

	st, err := env.records.New("invoices")
	require.NoError(t, err)
	require.NoError(t, st.AttachStashToken("pdf", token))

	require.NoError(t, env.records.Save(context.Background(), st))

	rec := st.Record()
	require.True(t, rec.Loaded())
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, storedName("Report Q1.pdf"), rec.Get("pdf"))
	assert.False(t, rec.IsDirty())

	path, ok := st.Path("pdf")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(testFilesRoot, "invoices", "1-pdf-"+storedName("Report Q1.pdf")), path)
	assert.Equal(t, "quarterly", readFile(t, env.fs, path))

	assert.False(t, env.stash.Valid(token))
	assert.Empty(t, listDir(t, env.fs, testStashDir), "both stash files are consumed")
	assert.Empty(t, st.PendingAttachments())

	stored, err := env.repo.Get(context.Background(), "invoices", 1)
	require.NoError(t, err)
	assert.Equal(t, storedName("Report Q1.pdf"), stored.Get("pdf"))
}

func TestRecordService_Save_Upload(t *testing.T) {
	env := newTestEnv(t)
	upload := env.upload(t, "photo.JPG", "jpeg")

	st, err := env.records.New("people")
	require.NoError(t, err)
	require.NoError(t, st.AttachUpload("avatar", upload))
	require.NoError(t, env.records.Save(context.Background(), st))

	path, ok := st.Path("avatar")
	require.True(t, ok)
	assert.Equal(t, "jpeg", readFile(t, env.fs, path))
	assert.False(t, exists(env.fs, upload.TmpName))
	assert.Equal(t, storedName("photo.JPG"), st.Record().Get("avatar"))
}

func TestRecordService_Save_ExecutableNameIsNeutralized(t *testing.T) {
	env := newTestEnv(t)
	src := env.localFile(t, "/home/me/../../etc/passwd.sh", "#!/bin/sh")

	st, err := env.records.New("docs")
	require.NoError(t, err)
	require.NoError(t, st.AttachLocal("script", src, false))
	require.NoError(t, env.records.Save(context.Background(), st))

	assert.Equal(t, fmt.Sprintf("%d-passwd_sh.txt", testNow.Unix()), st.Record().Get("script"))
	assert.Equal(t, []string{"1-script-" + st.Record().Get("script")}, listDir(t, env.fs, env.files.Dir("docs")))
}

func TestRecordService_Save_OverwriteLeavesOneFile(t *testing.T) {
	env := newTestEnv(t)

	st, err := env.records.New("invoices")
	require.NoError(t, err)
	require.NoError(t, st.AttachLocal("pdf", env.localFile(t, "/home/me/old.pdf", "old"), false))
	require.NoError(t, env.records.Save(context.Background(), st))

	reloaded, err := env.records.Get(context.Background(), "invoices", st.Record().ID)
	require.NoError(t, err)
	require.NoError(t, reloaded.AttachLocal("pdf", env.localFile(t, "/home/me/new.pdf", "new"), true))
	require.NoError(t, env.records.Save(context.Background(), reloaded))

	files := listDir(t, env.fs, env.files.Dir("invoices"))
	assert.Equal(t, []string{"1-pdf-" + storedName("new.pdf")}, files)

	path, ok := reloaded.Path("pdf")
	require.True(t, ok)
	assert.Equal(t, "new", readFile(t, env.fs, path))
	assert.Empty(t, reloaded.PendingRemovals())
}

func TestRecordService_Save_Detach(t *testing.T) {
	env := newTestEnv(t)

	st, err := env.records.New("invoices")
	require.NoError(t, err)
	require.NoError(t, st.AttachLocal("pdf", env.localFile(t, "/home/me/a.pdf", "a"), false))
	require.NoError(t, env.records.Save(context.Background(), st))
	committed, _ := st.Path("pdf")

	st.Remove("pdf")
	require.NoError(t, env.records.Save(context.Background(), st))

	assert.False(t, exists(env.fs, committed))
	assert.Equal(t, "", st.Record().Get("pdf"))

	stored, err := env.repo.Get(context.Background(), "invoices", st.Record().ID)
	require.NoError(t, err)
	assert.Equal(t, "", stored.Get("pdf"))
}

func TestRecordService_Save_NoChangesSkipsUpdate(t *testing.T) {
	env := newTestEnv(t)

	st, err := env.records.New("invoices")
	require.NoError(t, err)
	require.NoError(t, env.records.Save(context.Background(), st))
	assert.Equal(t, 1, env.repo.Calls["Insert"])

	require.NoError(t, env.records.Save(context.Background(), st))
	assert.Equal(t, 1, env.repo.Calls["Insert"])
	assert.Zero(t, env.repo.Calls["Update"])
}

func TestRecordService_Save_FilesystemFailureKeepsPending(t *testing.T) {
	env := newTestEnv(t)

	st, err := env.records.New("invoices")
	require.NoError(t, err)
	good := env.localFile(t, "/home/me/a.pdf", "a")
	doomed := env.localFile(t, "/home/me/b.pdf", "b")
	require.NoError(t, st.AttachLocal("a", good, false))
	require.NoError(t, st.AttachLocal("b", doomed, true))

	require.NoError(t, env.fs.Remove(doomed))

	err = env.records.Save(context.Background(), st)
	require.ErrorIs(t, err, domain.ErrFilesystem)

	rec := st.Record()
	assert.True(t, rec.Loaded(), "identity was allocated before materializing")
	assert.Equal(t, storedName("a.pdf"), rec.Get("a"))
	assert.Equal(t, "", rec.Get("b"), "a field never names a file that was not written")

	pending := st.PendingAttachments()
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].Field)

	stored, err := env.repo.Get(context.Background(), "invoices", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, storedName("a.pdf"), stored.Get("a"), "materialized fields are written despite the failure")
	assert.Equal(t, "", stored.Get("b"))
}

func TestRecordService_Save_FailedReplaceClearsStoredField(t *testing.T) {
	env := newTestEnv(t)

	st, err := env.records.New("invoices")
	require.NoError(t, err)
	require.NoError(t, st.AttachLocal("pdf", env.localFile(t, "/home/me/old.pdf", "old"), false))
	require.NoError(t, env.records.Save(context.Background(), st))
	old, _ := st.Path("pdf")

	reloaded, err := env.records.Get(context.Background(), "invoices", st.Record().ID)
	require.NoError(t, err)
	doomed := env.localFile(t, "/home/me/new.pdf", "new")
	require.NoError(t, reloaded.AttachLocal("pdf", doomed, true))
	require.NoError(t, env.fs.Remove(doomed))

	err = env.records.Save(context.Background(), reloaded)
	require.ErrorIs(t, err, domain.ErrFilesystem)

	assert.False(t, exists(env.fs, old), "the replaced file is removed before the new one is written")

	stored, err := env.repo.Get(context.Background(), "invoices", st.Record().ID)
	require.NoError(t, err)
	assert.Equal(t, "", stored.Get("pdf"), "the stored row must not name the removed file")

	for field, value := range stored.Fields() {
		if value == "" {
			continue
		}
		assert.True(t, exists(env.fs, env.files.Path(stored, field)), "field %s names a missing file", field)
	}
}

func TestRecordService_Save_UpdateFailure(t *testing.T) {
	env := newTestEnv(t)
	env.repo.FailUpdate = errors.New("disk full")

	st, err := env.records.New("invoices")
	require.NoError(t, err)
	require.NoError(t, st.AttachLocal("pdf", env.localFile(t, "/home/me/a.pdf", "a"), false))

	err = env.records.Save(context.Background(), st)
	assert.ErrorContains(t, err, "disk full")
}

func TestRecordService_Reload(t *testing.T) {
	env := newTestEnv(t)

	st, err := env.records.New("invoices")
	require.NoError(t, err)
	assert.ErrorIs(t, env.records.Reload(context.Background(), st), domain.ErrRecordNotFound)

	require.NoError(t, env.records.Save(context.Background(), st))
	require.NoError(t, st.AttachLocal("pdf", env.localFile(t, "/home/me/a.pdf", "a"), false))

	require.NoError(t, env.records.Reload(context.Background(), st))
	assert.Empty(t, st.PendingAttachments())
	assert.False(t, st.Has("pdf"))
}

func TestRecordService_InvalidTable(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.records.New("../etc")
	assert.ErrorIs(t, err, domain.ErrInvalidTable)

	_, err = env.records.Delete(context.Background(), "a b", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidTable)
}

// seedRecords inserts n empty rows into table and writes one committed file
// per row.
func seedRecords(t *testing.T, env *testEnv, table string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id, err := env.repo.Insert(context.Background(), table, map[string]string{"pdf": "100-f.pdf"})
		require.NoError(t, err)
		env.localFile(t, filepath.Join(env.files.Dir(table), domain.CommittedFilename(id, "pdf", "100-f.pdf")), "x")
	}
}

func TestRecordService_Delete_MatchesWholeID(t *testing.T) {
	env := newTestEnv(t)
	seedRecords(t, env, "invoices", 17)

	result, err := env.records.Delete(context.Background(), "invoices", 7)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Removed)
	assert.NoError(t, result.Err)
	assert.Equal(t, 16, env.repo.Count("invoices"))

	dir := env.files.Dir("invoices")
	assert.False(t, exists(env.fs, filepath.Join(dir, "7-pdf-100-f.pdf")))
	assert.True(t, exists(env.fs, filepath.Join(dir, "17-pdf-100-f.pdf")))
	assert.Len(t, listDir(t, env.fs, dir), 16)
}

func TestRecordService_Delete_MissingRecordKeepsFiles(t *testing.T) {
	env := newTestEnv(t)
	seedRecords(t, env, "invoices", 1)
	env.localFile(t, filepath.Join(env.files.Dir("invoices"), "5-pdf-100-f.pdf"), "orphan")

	_, err := env.records.Delete(context.Background(), "invoices", 5)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	assert.Len(t, listDir(t, env.fs, env.files.Dir("invoices")), 2)
}

func TestRecordService_Delete_RepositoryFailureKeepsFiles(t *testing.T) {
	env := newTestEnv(t)
	seedRecords(t, env, "invoices", 2)
	env.repo.FailDelete = errors.New("locked")

	_, err := env.records.Delete(context.Background(), "invoices", 1)
	assert.Error(t, err)
	assert.Len(t, listDir(t, env.fs, env.files.Dir("invoices")), 2)
}

func TestRecordService_DeleteRecord(t *testing.T) {
	env := newTestEnv(t)

	st, err := env.records.New("invoices")
	require.NoError(t, err)
	_, err = env.records.DeleteRecord(context.Background(), st)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	require.NoError(t, st.AttachLocal("pdf", env.localFile(t, "/home/me/a.pdf", "a"), false))
	require.NoError(t, env.records.Save(context.Background(), st))

	result, err := env.records.DeleteRecord(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)
	assert.False(t, st.Record().Loaded())
	assert.False(t, st.Has("pdf"))
	assert.Zero(t, env.repo.Count("invoices"))
}

func TestRecordService_DeleteIDs(t *testing.T) {
	env := newTestEnv(t)
	seedRecords(t, env, "invoices", 4)

	result, err := env.records.DeleteIDs(context.Background(), "invoices", []int64{1, 3})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Removed)
	assert.Equal(t, 2, env.repo.Count("invoices"))
	assert.Equal(t, []string{"2-pdf-100-f.pdf", "4-pdf-100-f.pdf"}, listDir(t, env.fs, env.files.Dir("invoices")))
}

func TestRecordService_DeleteIDs_EmptyDeletesNothing(t *testing.T) {
	env := newTestEnv(t)
	seedRecords(t, env, "invoices", 2)

	result, err := env.records.DeleteIDs(context.Background(), "invoices", nil)
	require.NoError(t, err)

	assert.Zero(t, result.Removed)
	assert.Equal(t, 2, env.repo.Count("invoices"))
}

func TestRecordService_DeleteAll(t *testing.T) {
	env := newTestEnv(t)
	seedRecords(t, env, "invoices", 3)
	seedRecords(t, env, "people", 1)
	env.localFile(t, filepath.Join(env.files.Dir("invoices"), "untracked.bin"), "?")

	result, err := env.records.DeleteAll(context.Background(), "invoices")
	require.NoError(t, err)

	assert.Equal(t, 4, result.Removed)
	assert.Zero(t, env.repo.Count("invoices"))
	assert.Empty(t, listDir(t, env.fs, env.files.Dir("invoices")))
	assert.Equal(t, 1, env.repo.Count("people"))
	assert.Len(t, listDir(t, env.fs, env.files.Dir("people")), 1)
}

func TestNewCommitter_DefaultsToProcessLogger(t *testing.T) {
	env := newTestEnv(t)

	c := NewCommitter(env.repo, env.files, env.stash, nil)
	assert.Same(t, logging.Get(), c.logger)
}
