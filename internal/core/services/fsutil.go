package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/afero"
)

// moveFile renames src to dst, falling back to copy and remove when the two
// paths are on different devices.
func moveFile(fs afero.Fs, src, dst string) error {
	err := fs.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	if err := copyFile(fs, src, dst); err != nil {
		return err
	}
	if err := fs.Remove(src); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("copied but failed to remove source: %w", err)
	}
	return nil
}

// copyFile writes the bytes of src to dst. A partially written dst is removed.
func copyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		fs.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		fs.Remove(dst)
		return err
	}
	return nil
}

// isWritableDir probes dir by creating and removing a temporary file.
func isWritableDir(fs afero.Fs, dir string) bool {
	f, err := afero.TempFile(fs, dir, ".stasher-probe-")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	fs.Remove(name)
	return true
}

// isReadable reports whether path can be opened for reading.
func isReadable(fs afero.Fs, path string) bool {
	f, err := fs.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// removeIfExists deletes path, treating a missing file as success.
func removeIfExists(fs afero.Fs, path string) error {
	if err := fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
