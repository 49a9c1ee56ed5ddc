// Package spatial maintains the per-page bounding regions that link
// Dimension records to locations on the rendered drawing. It serves
// click-selection (hit tests) and cropped-preview rectangle queries.
package spatial

import (
	"sort"
	"sync"

	"github.com/heavyclick/autoballoon-sub001/internal/types"
)

// BoundingRegion ties a Dimension to a rectangle on one page. A Dimension
// may own at most one region per page; regions live only as long as the
// Dimension does.
type BoundingRegion struct {
	DimensionID int        `json:"dimension_id"`
	Page        int        `json:"page"`
	Rect        types.Rect `json:"rect"`
}

// Index holds bounding regions for one drawing, keyed by page and
// dimension id. Safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	byPage  map[int]map[int]types.Rect // page -> dimension id -> rect
	bounds  map[int]types.Rect         // page -> page raster bounds
}

// NewIndex creates an empty spatial index.
func NewIndex() *Index {
	return &Index{
		byPage: make(map[int]map[int]types.Rect),
		bounds: make(map[int]types.Rect),
	}
}

// SetPageBounds records the raster bounds for a page. Crop rectangles are
// clamped to these bounds.
func (ix *Index) SetPageBounds(page int, bounds types.Rect) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.bounds[page] = bounds
}

// Put stores or replaces the region for a dimension on a page.
func (ix *Index) Put(dimensionID, page int, rect types.Rect) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	regions, ok := ix.byPage[page]
	if !ok {
		regions = make(map[int]types.Rect)
		ix.byPage[page] = regions
	}
	regions[dimensionID] = rect
}

// RegionFor returns the region for a dimension on a page. The second
// return is false when extraction never located the dimension spatially,
// which is a valid "no preview available" state, not an error.
func (ix *Index) RegionFor(dimensionID, page int) (types.Rect, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rect, ok := ix.byPage[page][dimensionID]
	return rect, ok
}

// Regions returns every region a dimension owns, across pages.
func (ix *Index) Regions(dimensionID int) []BoundingRegion {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []BoundingRegion
	for page, regions := range ix.byPage {
		if rect, ok := regions[dimensionID]; ok {
			out = append(out, BoundingRegion{DimensionID: dimensionID, Page: page, Rect: rect})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out
}

// HitTest returns the ids of every dimension whose region contains the
// point, ordered by ascending area so the smallest, most specific region
// wins default selection.
func (ix *Index) HitTest(page int, pt types.Point) []int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	type hit struct {
		id   int
		area float64
	}
	var hits []hit
	for id, rect := range ix.byPage[page] {
		if rect.Contains(pt) {
			hits = append(hits, hit{id: id, area: rect.Area()})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].area != hits[j].area {
			return hits[i].area < hits[j].area
		}
		return hits[i].id < hits[j].id // stable order for equal areas
	})

	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids
}

// Crop returns the pixel rectangle for a dimension's zoomed preview: the
// stored region expanded by marginFraction of its own size, clamped to
// the page bounds. Returns false when the dimension has no region on the
// page.
func (ix *Index) Crop(dimensionID, page int, marginFraction float64) (types.Rect, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	rect, ok := ix.byPage[page][dimensionID]
	if !ok {
		return types.Rect{}, false
	}
	expanded := rect.Expand(marginFraction)
	if bounds, ok := ix.bounds[page]; ok && !bounds.Empty() {
		expanded = expanded.Clamp(bounds)
	}
	return expanded, true
}

// Delete removes a dimension's regions from every page.
func (ix *Index) Delete(dimensionID int) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, regions := range ix.byPage {
		delete(regions, dimensionID)
	}
}
