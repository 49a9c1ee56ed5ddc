package endpoints

import (
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/heavyclick/autoballoon-sub001/internal/api"
	"github.com/heavyclick/autoballoon-sub001/internal/svcctx"
)

// CropEndpoint handles GET /api/drawings/{drawing_id}/dimensions/{dimension_id}/crop?page=N.
// It returns a PNG of the dimension's bounding region plus a margin,
// clamped to the page. 204 when the dimension has no region on the page.
type CropEndpoint struct{}

var _ api.Endpoint = (*CropEndpoint)(nil)

func (e *CropEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/drawings/{drawing_id}/dimensions/{dimension_id}/crop", e.handler
}

func (e *CropEndpoint) RequiresInit() bool { return true }

func (e *CropEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	d, ok := drawingFromRequest(w, r)
	if !ok {
		return
	}

	dimID, err := strconv.Atoi(r.PathValue("dimension_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "dimension_id must be an integer")
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
	}

	margin := 0.15
	if cm := svcctx.ConfigMgrFrom(r.Context()); cm != nil {
		margin = cm.Get().Crop.MarginFraction
	}

	rect, ok := d.Index.Crop(dimID, page, margin)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	info, ok := d.Page(page)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("page %d not found", page))
		return
	}

	f, err := os.Open(info.ImagePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to open page raster: %v", err))
		return
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to decode page raster: %v", err))
		return
	}

	// A scrubbing client cancels superseded previews; skip the encode
	// for requests that are already gone.
	if r.Context().Err() != nil {
		return
	}

	bounds := image.Rect(int(rect.X), int(rect.Y), int(rect.X+rect.W), int(rect.Y+rect.H))
	sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	})
	if !ok {
		writeError(w, http.StatusInternalServerError, "page raster does not support cropping")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_ = png.Encode(w, sub.SubImage(bounds))
}

func (e *CropEndpoint) Command(_ func() string) *cobra.Command {
	return nil
}
