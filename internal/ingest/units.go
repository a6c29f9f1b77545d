package ingest

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"whittle/internal/carve"
	"whittle/internal/services"
)

// GatherUnits enumerates the units of a source path. A regular file is one
// unit; a directory contributes each of its immediate regular files, in name
// order, skipping dotfiles. Subdirectories are ignored: spool layouts keep
// one flat directory per data source.
func GatherUnits(sourcePath string) ([]carve.Unit, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, services.Wrap(services.ErrPathAccess, "intake", "stat source", sourcePath, err)
	}
	if info.Mode().IsRegular() {
		return []carve.Unit{fileUnit(sourcePath, info.Size())}, nil
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrPathAccess, "intake", "stat source",
			sourcePath+" is neither a regular file nor a directory", nil)
	}

	entries, err := os.ReadDir(sourcePath)
	if err != nil {
		return nil, services.Wrap(services.ErrPathAccess, "intake", "list source", sourcePath, err)
	}
	var units []carve.Unit
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		entryInfo, err := entry.Info()
		if err != nil || !entryInfo.Mode().IsRegular() {
			continue
		}
		units = append(units, fileUnit(filepath.Join(sourcePath, entry.Name()), entryInfo.Size()))
	}
	return units, nil
}

func fileUnit(path string, size int64) carve.Unit {
	return carve.Unit{
		Name: filepath.Base(path),
		Size: size,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// DisplayTitle turns a source path into a human-facing title for
// notifications and tables: the base name without extension, underscores and
// dashes opened up, title-cased.
func DisplayTitle(sourcePath string) string {
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return sourcePath
	}
	return titleCaser.String(base)
}
