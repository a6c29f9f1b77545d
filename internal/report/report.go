// Package report consumes carving engine reports and yields carved-file
// descriptors. The engine's report contract is the only coupling between
// whittle and the recovery algorithm itself.
package report

import "context"

// ByteRun locates one contiguous span of a carved file within its source unit.
type ByteRun struct {
	ImgOffset int64
	Length    int64
}

// CarvedFile describes one file the engine recovered from a unit. Folder is
// the engine's recovery subfolder (e.g. "recup_dir.1") when the report
// records one; it becomes a virtual container directory in case storage.
type CarvedFile struct {
	Name     string
	Folder   string
	Size     int64
	ByteRuns []ByteRun
}

// Parser turns an engine report into carved-file descriptors.
type Parser interface {
	Parse(ctx context.Context, reportPath string) ([]CarvedFile, error)
}
