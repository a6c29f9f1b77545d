package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const sampleReport = `<?xml version="1.0" encoding="UTF-8"?>
<dfxml xmloutputversion="1.0">
  <metadata>
    <dc:type xmlns:dc="http://purl.org/dc/elements/1.1/">Carve Report</dc:type>
  </metadata>
  <creator>
    <package>PhotoRec</package>
    <version>7.2</version>
  </creator>
  <source>
    <image_filename>/work/temp/42.dat</image_filename>
  </source>
  <fileobject>
    <filename>results.1/recup_dir.1/f0071803_report.doc</filename>
    <filesize>727040</filesize>
    <byte_runs>
      <byte_run offset="0" img_offset="71803392" len="727040"/>
    </byte_runs>
  </fileobject>
  <fileobject>
    <filename>f0094872.jpg</filename>
    <filesize>16384</filesize>
    <byte_runs>
      <byte_run offset="0" img_offset="94872576" len="8192"/>
      <byte_run offset="8192" img_offset="94939136" len="8192"/>
    </byte_runs>
  </fileobject>
  <fileobject>
    <filename>f0000000.bin</filename>
    <filesize>512</filesize>
  </fileobject>
</dfxml>
`

func writeReport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.xml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDFXMLParse(t *testing.T) {
	path := writeReport(t, sampleReport)

	files, err := NewDFXML().Parse(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	// The third fileobject has no byte runs and is skipped.
	if len(files) != 2 {
		t.Fatalf("expected 2 carved files, got %d", len(files))
	}

	first := files[0]
	if first.Name != "f0071803_report.doc" {
		t.Fatalf("expected base name without results prefix, got %q", first.Name)
	}
	if first.Folder != "recup_dir.1" {
		t.Fatalf("expected recovery folder recup_dir.1, got %q", first.Folder)
	}
	if first.Size != 727040 {
		t.Fatalf("unexpected size: %d", first.Size)
	}
	if len(first.ByteRuns) != 1 || first.ByteRuns[0].ImgOffset != 71803392 || first.ByteRuns[0].Length != 727040 {
		t.Fatalf("unexpected byte runs: %+v", first.ByteRuns)
	}

	second := files[1]
	if second.Name != "f0094872.jpg" {
		t.Fatalf("unexpected name: %q", second.Name)
	}
	if second.Folder != "" {
		t.Fatalf("expected no recovery folder for bare filename, got %q", second.Folder)
	}
	if len(second.ByteRuns) != 2 {
		t.Fatalf("expected 2 byte runs, got %d", len(second.ByteRuns))
	}
	if second.ByteRuns[1].ImgOffset != 94939136 || second.ByteRuns[1].Length != 8192 {
		t.Fatalf("unexpected second byte run: %+v", second.ByteRuns[1])
	}
}

func TestDFXMLParseEmptyReport(t *testing.T) {
	path := writeReport(t, `<?xml version="1.0"?><dfxml xmloutputversion="1.0"></dfxml>`)

	files, err := NewDFXML().Parse(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no carved files, got %d", len(files))
	}
}

func TestDFXMLParseVolumeWrapped(t *testing.T) {
	path := writeReport(t, `<?xml version="1.0"?>
<dfxml xmloutputversion="1.0">
  <volume>
    <fileobject>
      <filename>f0000001.png</filename>
      <filesize>2048</filesize>
      <byte_runs>
        <byte_run offset="0" img_offset="1024" len="2048"/>
      </byte_runs>
    </fileobject>
  </volume>
</dfxml>`)

	files, err := NewDFXML().Parse(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name != "f0000001.png" {
		t.Fatalf("unexpected files: %+v", files)
	}
}

func TestDFXMLParseMalformed(t *testing.T) {
	path := writeReport(t, `<?xml version="1.0"?><dfxml><fileobject><filename>`)

	if _, err := NewDFXML().Parse(context.Background(), path); err == nil {
		t.Fatal("expected error for malformed report")
	}
}

func TestDFXMLParseMissingFile(t *testing.T) {
	if _, err := NewDFXML().Parse(context.Background(), filepath.Join(t.TempDir(), "report.xml")); err == nil {
		t.Fatal("expected error for missing report")
	}
}

func TestDFXMLParseCancelled(t *testing.T) {
	path := writeReport(t, sampleReport)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewDFXML().Parse(ctx, path); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
