package preflight

import (
	"path/filepath"
	"testing"
)

func TestRequiredBytes(t *testing.T) {
	cases := []struct {
		size int64
		want int64
	}{
		{size: 0, want: 0},
		{size: -5, want: 0},
		{size: 1, want: 1},
		{size: 5, want: 6},
		{size: 100, want: 120},
		{size: 1 << 30, want: (1 << 30) + (1<<30)/5},
	}
	for _, tc := range cases {
		if got := RequiredBytes(tc.size); got != tc.want {
			t.Errorf("RequiredBytes(%d) = %d, want %d", tc.size, got, tc.want)
		}
	}
}

func TestFreeBytesKnownFilesystem(t *testing.T) {
	free := FreeBytes(t.TempDir())
	if free <= 0 {
		t.Fatalf("expected positive free space, got %d", free)
	}
}

func TestFreeBytesUnknownPath(t *testing.T) {
	free := FreeBytes(filepath.Join(t.TempDir(), "does", "not", "exist"))
	if free != -1 {
		t.Fatalf("expected -1 for unqueryable path, got %d", free)
	}
}

func TestSpaceCheckTreatsUnknownAsSufficient(t *testing.T) {
	ok, required := SpaceCheck(-1, 1<<40)
	if !ok {
		t.Fatal("expected unknown free space to count as sufficient")
	}
	if required != (1<<40)+(1<<40)/5 {
		t.Fatalf("unexpected required bytes: %d", required)
	}
}

func TestSpaceCheckVerdicts(t *testing.T) {
	if ok, _ := SpaceCheck(120, 100); !ok {
		t.Fatal("expected exactly-enough space to pass")
	}
	if ok, _ := SpaceCheck(119, 100); ok {
		t.Fatal("expected one byte short to fail")
	}
}
