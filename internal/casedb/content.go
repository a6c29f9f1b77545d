package casedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"whittle/internal/report"
)

// ContentType discriminates the rows of the content tree.
type ContentType string

const (
	TypeDataSource ContentType = "data_source"
	TypeVirtualDir ContentType = "virtual_dir"
	TypeCarvedFile ContentType = "carved_file"
)

// CarvedFilesDirName is the synthetic root directory created under a data
// source to hold everything the engine recovers from it.
const CarvedFilesDirName = "$CarvedFiles"

// Content is one node in the case content tree. ParentID is zero for
// top-level data sources.
type Content struct {
	ID       int64
	ParentID int64
	Name     string
	Type     ContentType
	Size     int64
}

// IsVirtualDir reports whether the node is a plain virtual-directory container.
func (c Content) IsVirtualDir() bool {
	return c.Type == TypeVirtualDir
}

// EnsureDataSource returns the top-level data source with the given name,
// creating it when absent.
func (s *Store) EnsureDataSource(ctx context.Context, name string) (Content, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Content{}, errors.New("data source name required")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM content WHERE parent_id IS NULL AND name = ? AND type = ?`,
		name, TypeDataSource,
	)
	existing, err := scanContent(row)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Content{}, fmt.Errorf("lookup data source: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO content (parent_id, name, type, size, created_at) VALUES (NULL, ?, ?, 0, ?)`,
		name, TypeDataSource, timestamp(),
	)
	if err != nil {
		return Content{}, fmt.Errorf("insert data source: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Content{}, fmt.Errorf("last insert id: %w", err)
	}
	return Content{ID: id, Name: name, Type: TypeDataSource}, nil
}

// ContentByID fetches one content node. It returns sql.ErrNoRows wrapped when
// the id is unknown.
func (s *Store) ContentByID(ctx context.Context, id int64) (Content, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content WHERE id = ?`, id)
	content, err := scanContent(row)
	if err != nil {
		return Content{}, fmt.Errorf("content by id %d: %w", id, err)
	}
	return content, nil
}

// InsertCarvedFiles commits one unit's carved files as a batch. Each file is
// parented under the data source's $CarvedFiles virtual directory, with the
// engine's recovery subfolder (when present) as an intermediate virtual
// directory. Both container levels are created on demand, so callers can
// discover which ones are new by walking the returned rows' parent chains.
func (s *Store) InsertCarvedFiles(ctx context.Context, dataSourceID int64, files []report.CarvedFile) ([]Content, error) {
	if len(files) == 0 {
		return nil, nil
	}

	// The whole transaction retries on busy: it rolls back cleanly, and
	// concurrent workers commit batches against the same data source.
	var persisted []Content
	err := retryOnBusy(ctx, func() error {
		var txErr error
		persisted, txErr = s.insertCarvedFilesTx(ctx, dataSourceID, files)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return persisted, nil
}

func (s *Store) insertCarvedFilesTx(ctx context.Context, dataSourceID int64, files []report.CarvedFile) ([]Content, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	carvedRoot, err := ensureVirtualDir(ctx, tx, dataSourceID, CarvedFilesDirName)
	if err != nil {
		return nil, err
	}

	folderIDs := make(map[string]int64)
	persisted := make([]Content, 0, len(files))
	now := timestamp()

	for _, file := range files {
		parentID := carvedRoot
		if folder := strings.TrimSpace(file.Folder); folder != "" {
			id, ok := folderIDs[folder]
			if !ok {
				id, err = ensureVirtualDir(ctx, tx, carvedRoot, folder)
				if err != nil {
					return nil, err
				}
				folderIDs[folder] = id
			}
			parentID = id
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO content (parent_id, name, type, size, created_at) VALUES (?, ?, ?, ?, ?)`,
			parentID, file.Name, TypeCarvedFile, file.Size, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert carved file %q: %w", file.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}

		for seq, run := range file.ByteRuns {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO byte_runs (content_id, seq, img_offset, length) VALUES (?, ?, ?, ?)`,
				id, seq, run.ImgOffset, run.Length,
			); err != nil {
				return nil, fmt.Errorf("insert byte run for %q: %w", file.Name, err)
			}
		}

		persisted = append(persisted, Content{
			ID:       id,
			ParentID: parentID,
			Name:     file.Name,
			Type:     TypeCarvedFile,
			Size:     file.Size,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit carved files: %w", err)
	}
	return persisted, nil
}

// CountByType returns the number of content rows per type.
func (s *Store) CountByType(ctx context.Context) (map[ContentType]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(1) FROM content GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("count content: %w", err)
	}
	defer rows.Close()

	counts := make(map[ContentType]int)
	for rows.Next() {
		var kind ContentType
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}

func ensureVirtualDir(ctx context.Context, tx *sql.Tx, parentID int64, name string) (int64, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id FROM content WHERE parent_id = ? AND name = ? AND type = ?`,
		parentID, name, TypeVirtualDir,
	)
	var id int64
	err := row.Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup virtual dir %q: %w", name, err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO content (parent_id, name, type, size, created_at) VALUES (?, ?, ?, 0, ?)`,
		parentID, name, TypeVirtualDir, timestamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert virtual dir %q: %w", name, err)
	}
	return res.LastInsertId()
}

const contentColumns = "id, parent_id, name, type, size"

func scanContent(scanner interface{ Scan(dest ...any) error }) (Content, error) {
	var (
		id       int64
		parentID sql.NullInt64
		name     string
		kind     string
		size     int64
	)
	if err := scanner.Scan(&id, &parentID, &name, &kind, &size); err != nil {
		return Content{}, err
	}
	return Content{
		ID:       id,
		ParentID: parentID.Int64,
		Name:     name,
		Type:     ContentType(kind),
		Size:     size,
	}, nil
}
