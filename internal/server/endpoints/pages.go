package endpoints

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/heavyclick/autoballoon-sub001/internal/api"
	"github.com/heavyclick/autoballoon-sub001/internal/drawing"
)

// ListPagesResponse is the response for listing a drawing's pages.
type ListPagesResponse struct {
	Pages      []drawing.PageInfo `json:"pages"`
	TotalPages int                `json:"total_pages"`
}

// ListPagesEndpoint handles GET /api/drawings/{drawing_id}/pages.
type ListPagesEndpoint struct{}

var _ api.Endpoint = (*ListPagesEndpoint)(nil)

func (e *ListPagesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/drawings/{drawing_id}/pages", e.handler
}

func (e *ListPagesEndpoint) RequiresInit() bool { return true }

func (e *ListPagesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	d, ok := drawingFromRequest(w, r)
	if !ok {
		return
	}

	pages := d.Pages()
	writeJSON(w, http.StatusOK, ListPagesResponse{Pages: pages, TotalPages: len(pages)})
}

func (e *ListPagesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "pages <drawing-id>",
		Short: "List a drawing's rendered pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListPagesResponse
			if err := client.Get(cmd.Context(), "/api/drawings/"+args[0]+"/pages", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// PageImageEndpoint handles GET /api/drawings/{drawing_id}/pages/{page_num}/image.
type PageImageEndpoint struct{}

var _ api.Endpoint = (*PageImageEndpoint)(nil)

func (e *PageImageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/drawings/{drawing_id}/pages/{page_num}/image", e.handler
}

func (e *PageImageEndpoint) RequiresInit() bool { return true }

func (e *PageImageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	d, ok := drawingFromRequest(w, r)
	if !ok {
		return
	}

	pageNum, err := strconv.Atoi(r.PathValue("page_num"))
	if err != nil || pageNum < 1 {
		writeError(w, http.StatusBadRequest, "page_num must be a positive integer")
		return
	}

	info, ok := d.Page(pageNum)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("page %d not found", pageNum))
		return
	}

	file, err := os.Open(info.ImagePath)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("page %d not found", pageNum))
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	http.ServeContent(w, r, fmt.Sprintf("page_%04d.png", pageNum), fileInfo.ModTime(), file)
}

func (e *PageImageEndpoint) Command(_ func() string) *cobra.Command {
	return nil
}
