package fileutil

import (
	"context"
	"errors"
	"io"
	"os"
)

// copyChunk is the unit of work between cancellation checks.
const copyChunk = 4 << 20

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// WriteStream copies src to dst in chunks, polling the cancelled predicate
// between chunks. Cancellation or any failure removes the partial dst;
// cancellation is reported as the predicate's dedicated error so callers can
// tell it from I/O faults.
func WriteStream(dst string, src io.Reader, cancelled func() bool) error {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	for {
		if cancelled != nil && cancelled() {
			_ = out.Close()
			_ = os.Remove(dst)
			return context.Canceled
		}
		_, err := io.CopyN(out, src, copyChunk)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = out.Close()
			_ = os.Remove(dst)
			return err
		}
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}

// MoveFile renames src to dst, falling back to copy-and-remove when the two
// paths live on different filesystems.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}
