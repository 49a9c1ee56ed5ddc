package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/heavyclick/autoballoon-sub001/internal/api"
	"github.com/heavyclick/autoballoon-sub001/internal/dimension"
	"github.com/heavyclick/autoballoon-sub001/internal/spatial"
)

// DimensionView pairs a dimension record with its page regions.
type DimensionView struct {
	dimension.Dimension
	Regions []spatial.BoundingRegion `json:"regions,omitempty"`
}

// ListDimensionsResponse is the response for listing a drawing's dimensions.
type ListDimensionsResponse struct {
	Dimensions []DimensionView `json:"dimensions"`
	Total      int             `json:"total"`
}

// ListDimensionsEndpoint handles GET /api/drawings/{drawing_id}/dimensions.
type ListDimensionsEndpoint struct{}

var _ api.Endpoint = (*ListDimensionsEndpoint)(nil)

func (e *ListDimensionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/drawings/{drawing_id}/dimensions", e.handler
}

func (e *ListDimensionsEndpoint) RequiresInit() bool { return true }

func (e *ListDimensionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	d, ok := drawingFromRequest(w, r)
	if !ok {
		return
	}

	dims := d.Dimensions.List()
	out := make([]DimensionView, 0, len(dims))
	for _, dim := range dims {
		out = append(out, DimensionView{
			Dimension: dim,
			Regions:   d.Index.Regions(dim.ID),
		})
	}
	writeJSON(w, http.StatusOK, ListDimensionsResponse{Dimensions: out, Total: len(out)})
}

func (e *ListDimensionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list <drawing-id>",
		Short: "List a drawing's extracted dimensions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListDimensionsResponse
			if err := client.Get(cmd.Context(), "/api/drawings/"+args[0]+"/dimensions", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// EditRequest is the body of a dimension PATCH. Path is dot-delimited
// ("value", "parsed.lot_size", "parsed.plus_tolerance", ...); Value
// replaces the field.
type EditRequest struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// EditDimensionEndpoint handles PATCH /api/drawings/{drawing_id}/dimensions/{dimension_id}.
// The edit is applied synchronously; derived fields (resolved limits,
// sampling plan) reconcile in the background after the debounce window.
type EditDimensionEndpoint struct{}

var _ api.Endpoint = (*EditDimensionEndpoint)(nil)

func (e *EditDimensionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PATCH", "/api/drawings/{drawing_id}/dimensions/{dimension_id}", e.handler
}

func (e *EditDimensionEndpoint) RequiresInit() bool { return true }

func (e *EditDimensionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	d, ok := drawingFromRequest(w, r)
	if !ok {
		return
	}

	dimID, err := strconv.Atoi(r.PathValue("dimension_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "dimension_id must be an integer")
		return
	}

	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	updated, err := d.Edits.Apply(dimID, req.Path, req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (e *EditDimensionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <drawing-id> <dimension-id> <path> <value>",
		Short: "Edit one field of a dimension",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Decode the value the way the server would: numbers and
			// booleans stay typed, everything else is a string.
			var value any
			if err := json.Unmarshal([]byte(args[3]), &value); err != nil {
				value = args[3]
			}

			client := api.NewClient(getServerURL())
			var resp dimension.Dimension
			path := "/api/drawings/" + args[0] + "/dimensions/" + args[1]
			if err := client.Patch(cmd.Context(), path, EditRequest{Path: args[2], Value: value}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteDimensionEndpoint handles DELETE /api/drawings/{drawing_id}/dimensions/{dimension_id}.
// The balloon number is retired with the record; ids are never reused.
type DeleteDimensionEndpoint struct{}

var _ api.Endpoint = (*DeleteDimensionEndpoint)(nil)

func (e *DeleteDimensionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/drawings/{drawing_id}/dimensions/{dimension_id}", e.handler
}

func (e *DeleteDimensionEndpoint) RequiresInit() bool { return true }

func (e *DeleteDimensionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	d, ok := drawingFromRequest(w, r)
	if !ok {
		return
	}

	dimID, err := strconv.Atoi(r.PathValue("dimension_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "dimension_id must be an integer")
		return
	}

	if !d.Dimensions.Delete(dimID) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("dimension %d not found", dimID))
		return
	}
	d.Index.Delete(dimID)
	d.Edits.Forget(dimID)

	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteDimensionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <drawing-id> <dimension-id>",
		Short: "Delete a dimension from a drawing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			return client.Delete(cmd.Context(), "/api/drawings/"+args[0]+"/dimensions/"+args[1])
		},
	}
}
