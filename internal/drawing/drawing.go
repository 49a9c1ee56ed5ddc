// Package drawing holds per-drawing state: rendered pages, the
// Dimension store, the spatial index and the edit scheduler.
package drawing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heavyclick/autoballoon-sub001/internal/dimension"
	"github.com/heavyclick/autoballoon-sub001/internal/editsync"
	"github.com/heavyclick/autoballoon-sub001/internal/sampling"
	"github.com/heavyclick/autoballoon-sub001/internal/spatial"
	"github.com/heavyclick/autoballoon-sub001/internal/types"
)

// Status tracks a drawing through its extraction lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusExtracting Status = "extracting"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// PageInfo describes one rendered page.
type PageInfo struct {
	Number    int        `json:"number"`
	ImagePath string     `json:"-"`
	Bounds    types.Rect `json:"bounds"`
}

// Summary reports extraction outcome per drawing: best-effort counts
// plus the pages that degraded to empty span sets.
type Summary struct {
	Spans         int   `json:"spans"`
	Dimensions    int   `json:"dimensions"`
	DegradedPages []int `json:"degraded_pages,omitempty"`
}

// Drawing is one ingested drawing and everything derived from it.
type Drawing struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`

	mu      sync.RWMutex
	status  Status
	err     string
	pages   []PageInfo
	summary Summary

	Dimensions *dimension.Store    `json:"-"`
	Index      *spatial.Index      `json:"-"`
	Edits      *editsync.Scheduler `json:"-"`
}

// SetStatus transitions the drawing's lifecycle state.
func (d *Drawing) SetStatus(s Status, errMsg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = s
	d.err = errMsg
}

// Status returns the current lifecycle state and failure reason.
func (d *Drawing) Status() (Status, string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status, d.err
}

// SetPages records the rendered pages and registers their bounds with
// the spatial index.
func (d *Drawing) SetPages(pages []PageInfo) {
	d.mu.Lock()
	d.pages = pages
	d.mu.Unlock()
	for _, p := range pages {
		d.Index.SetPageBounds(p.Number, p.Bounds)
	}
}

// Pages returns the rendered pages in page order.
func (d *Drawing) Pages() []PageInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]PageInfo, len(d.pages))
	copy(out, d.pages)
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Page returns one page by number.
func (d *Drawing) Page(number int) (PageInfo, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.pages {
		if p.Number == number {
			return p, true
		}
	}
	return PageInfo{}, false
}

// SetSummary records the extraction summary.
func (d *Drawing) SetSummary(s Summary) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.summary = s
}

// Summary returns the extraction summary.
func (d *Drawing) Summary() Summary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.summary
}

// Registry is the in-memory set of drawings, keyed by uuid.
type Registry struct {
	mu       sync.RWMutex
	drawings map[string]*Drawing

	ctx      context.Context
	debounce time.Duration
	planner  sampling.Planner
}

// NewRegistry creates a drawing registry. ctx bounds all schedulers
// created for drawings; planner backs their sampling recomputation.
func NewRegistry(ctx context.Context, debounce time.Duration, planner sampling.Planner) *Registry {
	return &Registry{
		drawings: make(map[string]*Drawing),
		ctx:      ctx,
		debounce: debounce,
		planner:  planner,
	}
}

// Create allocates a new drawing with its own store, index and edit
// scheduler.
func (r *Registry) Create(name, mimeType string) *Drawing {
	store := dimension.NewStore()
	d := &Drawing{
		ID:         uuid.New().String(),
		Name:       name,
		MimeType:   mimeType,
		CreatedAt:  time.Now().UTC(),
		status:     StatusPending,
		Dimensions: store,
		Index:      spatial.NewIndex(),
	}
	d.Edits = editsync.NewScheduler(r.ctx, store, editsync.Config{
		Debounce: r.debounce,
		Planner:  r.planner,
	})

	r.mu.Lock()
	r.drawings[d.ID] = d
	r.mu.Unlock()
	return d
}

// Get returns a drawing by id.
func (r *Registry) Get(id string) (*Drawing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drawings[id]
	if !ok {
		return nil, fmt.Errorf("drawing %s not found", id)
	}
	return d, nil
}

// List returns all drawings, newest first.
func (r *Registry) List() []*Drawing {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Drawing, 0, len(r.drawings))
	for _, d := range r.drawings {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Delete tears a drawing down, stopping its edit scheduler.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	d, ok := r.drawings[id]
	if ok {
		delete(r.drawings, id)
	}
	r.mu.Unlock()
	if ok {
		d.Edits.Close()
	}
	return ok
}
