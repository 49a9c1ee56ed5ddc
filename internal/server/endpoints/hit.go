package endpoints

import (
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/heavyclick/autoballoon-sub001/internal/api"
	"github.com/heavyclick/autoballoon-sub001/internal/types"
)

// HitResponse lists dimension ids under a point, smallest region first.
type HitResponse struct {
	DimensionIDs []int `json:"dimension_ids"`
}

// HitTestEndpoint handles GET /api/drawings/{drawing_id}/hit?page=N&x=F&y=F.
// Coordinates are page pixels at the render DPI.
type HitTestEndpoint struct{}

var _ api.Endpoint = (*HitTestEndpoint)(nil)

func (e *HitTestEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/drawings/{drawing_id}/hit", e.handler
}

func (e *HitTestEndpoint) RequiresInit() bool { return true }

func (e *HitTestEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	d, ok := drawingFromRequest(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		writeError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if errX != nil || errY != nil {
		writeError(w, http.StatusBadRequest, "x and y must be numbers")
		return
	}

	ids := d.Index.HitTest(page, types.Point{X: x, Y: y})
	if ids == nil {
		ids = []int{}
	}
	writeJSON(w, http.StatusOK, HitResponse{DimensionIDs: ids})
}

func (e *HitTestEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "hit <drawing-id> <page> <x> <y>",
		Short: "Find dimensions under a point",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HitResponse
			path := "/api/drawings/" + args[0] + "/hit?page=" + args[1] + "&x=" + args[2] + "&y=" + args[3]
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
