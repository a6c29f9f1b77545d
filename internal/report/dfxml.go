package report

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DFXML parses the digital forensics XML reports PhotoRec writes as
// report.xml. File objects are matched at any nesting depth because engine
// versions differ in whether they wrap them in a volume element.
type DFXML struct{}

// NewDFXML constructs the default report parser.
func NewDFXML() *DFXML {
	return &DFXML{}
}

type dfxmlFileObject struct {
	Filename string         `xml:"filename"`
	Filesize int64          `xml:"filesize"`
	ByteRuns []dfxmlByteRun `xml:"byte_runs>byte_run"`
}

type dfxmlByteRun struct {
	ImgOffset int64 `xml:"img_offset,attr"`
	Len       int64 `xml:"len,attr"`
}

// Parse reads the report at reportPath. File objects without a usable name
// or without byte runs are skipped; the engine emits such entries for
// artifacts it could not place within the unit.
func (p *DFXML) Parse(ctx context.Context, reportPath string) ([]CarvedFile, error) {
	f, err := os.Open(reportPath)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	decoder := xml.NewDecoder(f)
	var files []CarvedFile
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse report: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "fileobject" {
			continue
		}

		var obj dfxmlFileObject
		if err := decoder.DecodeElement(&obj, &start); err != nil {
			return nil, fmt.Errorf("parse report: %w", err)
		}

		trimmed := strings.TrimSpace(obj.Filename)
		name := filepath.Base(trimmed)
		if name == "" || name == "." || name == string(filepath.Separator) {
			continue
		}
		if len(obj.ByteRuns) == 0 {
			continue
		}

		carved := CarvedFile{
			Name:     name,
			Folder:   recoveryFolder(trimmed),
			Size:     obj.Filesize,
			ByteRuns: make([]ByteRun, 0, len(obj.ByteRuns)),
		}
		for _, run := range obj.ByteRuns {
			carved.ByteRuns = append(carved.ByteRuns, ByteRun{
				ImgOffset: run.ImgOffset,
				Length:    run.Len,
			})
		}
		files = append(files, carved)
	}
	return files, nil
}

// recoveryFolder extracts the immediate parent directory the engine placed
// the file in. Reports record paths like "results.1/recup_dir.1/f0001.jpg";
// only the recup_dir component is meaningful to the content hierarchy.
func recoveryFolder(reportedPath string) string {
	dir := filepath.Base(filepath.Dir(filepath.ToSlash(reportedPath)))
	if dir == "." || dir == "/" || !strings.HasPrefix(dir, "recup_dir") {
		return ""
	}
	return dir
}

var _ Parser = (*DFXML)(nil)
