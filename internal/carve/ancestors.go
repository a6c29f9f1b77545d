package carve

import (
	"context"

	"whittle/internal/casedb"
)

// ParentResolver resolves a content row by identifier. The executor's Store
// satisfies it; tests supply in-memory maps.
type ParentResolver interface {
	ContentByID(ctx context.Context, id int64) (casedb.Content, error)
}

// VirtualDirectoryAncestors walks the parent chain of every item in the
// batch and returns the virtual directories that plausibly did not exist
// before the batch was inserted, each at most once, in first-discovery
// order. The visited set is shared across the whole batch and owned by the
// caller, so repeated climbs through a common chain stop at the first
// already-seen parent instead of re-querying storage.
//
// The climb from one item stops without recording when the parent has
// already been visited, when the parent is not a virtual directory, or when
// the node being ascended from is itself a data source. A resolver failure
// returns the ancestors found so far along with the error.
func VirtualDirectoryAncestors(ctx context.Context, resolver ParentResolver, items []casedb.Content, visited map[int64]struct{}) ([]casedb.Content, error) {
	var ancestors []casedb.Content
	for _, item := range items {
		current := item
		for current.ParentID != 0 {
			parentID := current.ParentID
			if _, seen := visited[parentID]; seen {
				break
			}
			visited[parentID] = struct{}{}
			parent, err := resolver.ContentByID(ctx, parentID)
			if err != nil {
				return ancestors, err
			}
			if !parent.IsVirtualDir() || current.Type == casedb.TypeDataSource {
				break
			}
			ancestors = append(ancestors, parent)
			current = parent
		}
	}
	return ancestors, nil
}
