package carve_test

import (
	"context"
	"errors"
	"testing"

	"whittle/internal/carve"
	"whittle/internal/casedb"
)

type mapResolver map[int64]casedb.Content

func (m mapResolver) ContentByID(ctx context.Context, id int64) (casedb.Content, error) {
	c, ok := m[id]
	if !ok {
		return casedb.Content{}, errors.New("no such content")
	}
	return c, nil
}

func carvedTree() mapResolver {
	return mapResolver{
		1: {ID: 1, Name: "image.dd", Type: casedb.TypeDataSource},
		2: {ID: 2, ParentID: 1, Name: casedb.CarvedFilesDirName, Type: casedb.TypeVirtualDir},
		3: {ID: 3, ParentID: 2, Name: "recup_dir.1", Type: casedb.TypeVirtualDir},
		4: {ID: 4, ParentID: 2, Name: "recup_dir.2", Type: casedb.TypeVirtualDir},
	}
}

func TestAncestorsSharedChainEmittedOnce(t *testing.T) {
	resolver := carvedTree()
	items := []casedb.Content{
		{ID: 10, ParentID: 3, Name: "a.jpg", Type: casedb.TypeCarvedFile},
		{ID: 11, ParentID: 3, Name: "b.jpg", Type: casedb.TypeCarvedFile},
		{ID: 12, ParentID: 3, Name: "c.jpg", Type: casedb.TypeCarvedFile},
	}
	visited := make(map[int64]struct{})

	got, err := carve.VirtualDirectoryAncestors(context.Background(), resolver, items, visited)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 2 {
		t.Fatalf("ancestors = %+v, want recup_dir.1 then its parent", got)
	}
}

func TestAncestorsFirstDiscoveryOrderAcrossSiblings(t *testing.T) {
	resolver := carvedTree()
	items := []casedb.Content{
		{ID: 10, ParentID: 3, Name: "a.jpg", Type: casedb.TypeCarvedFile},
		{ID: 11, ParentID: 4, Name: "b.jpg", Type: casedb.TypeCarvedFile},
	}
	visited := make(map[int64]struct{})

	got, err := carve.VirtualDirectoryAncestors(context.Background(), resolver, items, visited)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	// recup_dir.1 and the shared parent come from the first item; the
	// second item contributes only recup_dir.2 before hitting the
	// already-visited parent.
	want := []int64{3, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("got %d ancestors, want %d: %+v", len(got), len(want), got)
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("ancestors[%d] = %d, want %d", i, got[i].ID, id)
		}
	}
}

func TestAncestorsStopAtNonVirtualParent(t *testing.T) {
	resolver := carvedTree()
	items := []casedb.Content{
		{ID: 10, ParentID: 1, Name: "stray.bin", Type: casedb.TypeCarvedFile},
	}
	visited := make(map[int64]struct{})

	got, err := carve.VirtualDirectoryAncestors(context.Background(), resolver, items, visited)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("data source must not be recorded, got %+v", got)
	}
	if _, seen := visited[1]; !seen {
		t.Fatal("examined parent must still be marked visited")
	}
}

func TestAncestorsVisitedSetCarriesAcrossCalls(t *testing.T) {
	resolver := carvedTree()
	visited := make(map[int64]struct{})

	first := []casedb.Content{{ID: 10, ParentID: 3, Type: casedb.TypeCarvedFile}}
	if _, err := carve.VirtualDirectoryAncestors(context.Background(), resolver, first, visited); err != nil {
		t.Fatalf("first walk: %v", err)
	}

	second := []casedb.Content{{ID: 11, ParentID: 3, Type: casedb.TypeCarvedFile}}
	got, err := carve.VirtualDirectoryAncestors(context.Background(), resolver, second, visited)
	if err != nil {
		t.Fatalf("second walk: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("already-visited chain must yield nothing, got %+v", got)
	}
}

func TestAncestorsResolverFailureReturnsPartial(t *testing.T) {
	resolver := carvedTree()
	delete(resolver, 2)
	items := []casedb.Content{
		{ID: 10, ParentID: 3, Name: "a.jpg", Type: casedb.TypeCarvedFile},
	}
	visited := make(map[int64]struct{})

	got, err := carve.VirtualDirectoryAncestors(context.Background(), resolver, items, visited)
	if err == nil {
		t.Fatal("expected resolver error")
	}
	if len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("partial ancestors = %+v, want just recup_dir.1", got)
	}
}
