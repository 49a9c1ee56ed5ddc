package endpoints

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/heavyclick/autoballoon-sub001/internal/api"
	"github.com/heavyclick/autoballoon-sub001/internal/dimension"
	"github.com/heavyclick/autoballoon-sub001/internal/drawing"
	"github.com/heavyclick/autoballoon-sub001/internal/extract"
	"github.com/heavyclick/autoballoon-sub001/internal/ingest"
	"github.com/heavyclick/autoballoon-sub001/internal/svcctx"
)

// DrawingResponse is the public view of a drawing.
type DrawingResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	MimeType  string          `json:"mime_type"`
	CreatedAt string          `json:"created_at"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
	Pages     int             `json:"pages"`
	Summary   drawing.Summary `json:"summary"`
}

func drawingResponse(d *drawing.Drawing) DrawingResponse {
	status, errMsg := d.Status()
	return DrawingResponse{
		ID:        d.ID,
		Name:      d.Name,
		MimeType:  d.MimeType,
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
		Status:    string(status),
		Error:     errMsg,
		Pages:     len(d.Pages()),
		Summary:   d.Summary(),
	}
}

// UploadResponse is returned when a drawing upload is accepted.
type UploadResponse struct {
	Drawing DrawingResponse `json:"drawing"`
	JobID   string          `json:"job_id"`
}

// UploadDrawingEndpoint handles POST /api/drawings with a multipart file upload.
// Extraction runs as a background job; the response carries the job id.
type UploadDrawingEndpoint struct{}

var _ api.Endpoint = (*UploadDrawingEndpoint)(nil)

func (e *UploadDrawingEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/drawings", e.handler
}

func (e *UploadDrawingEndpoint) RequiresInit() bool { return true }

func (e *UploadDrawingEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 32 << 20
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	mimeType := detectMime(header.Filename, header.Header.Get("Content-Type"))
	if mimeType == "" {
		writeError(w, http.StatusBadRequest, "unsupported file format")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	drawings := svcctx.DrawingsFrom(r.Context())
	jm := svcctx.JobManagerFrom(r.Context())
	homeDir := svcctx.HomeFrom(r.Context())
	if drawings == nil || jm == nil || homeDir == nil {
		writeError(w, http.StatusServiceUnavailable, "server not fully initialized")
		return
	}

	proc, err := buildProcessor(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	d := drawings.Create(name, mimeType)
	if err := homeDir.EnsureDrawingDir(d.ID); err != nil {
		drawings.Delete(d.ID)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	pagesDir := homeDir.DrawingDir(d.ID)

	// Stage the source file next to the rendered pages so the upload
	// survives independently of the extraction output.
	originalName := filepath.Base(header.Filename)
	if originalName == "." || originalName == string(filepath.Separator) {
		originalName = "upload"
	}
	if err := homeDir.EnsureOriginalDir(d.ID); err != nil {
		drawings.Delete(d.ID)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := os.WriteFile(homeDir.OriginalPath(d.ID, originalName), fileBytes, 0o644); err != nil {
		drawings.Delete(d.ID)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Extraction uses the job manager's lifetime, not the request's:
	// the upload response returns before processing finishes.
	job := jm.Run(context.WithoutCancel(r.Context()), "extract-drawing",
		map[string]string{"drawing_id": d.ID},
		func(ctx context.Context) error {
			return proc.Process(ctx, d, fileBytes, pagesDir)
		})

	writeJSON(w, http.StatusAccepted, UploadResponse{
		Drawing: drawingResponse(d),
		JobID:   job.ID,
	})
}

func (e *UploadDrawingEndpoint) Command(getServerURL func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a drawing and start extraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp UploadResponse
			if err := client.Upload(cmd.Context(), "/api/drawings", "file", args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	return cmd
}

// detectMime maps a filename or part header to an accepted MIME type.
// Returns "" if the format is not one the ingestor accepts.
func detectMime(filename, headerType string) string {
	byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	for _, candidate := range []string{headerType, byExt} {
		if candidate == "" {
			continue
		}
		// Strip parameters like "; charset=binary".
		if base, _, err := mime.ParseMediaType(candidate); err == nil {
			candidate = base
		}
		switch candidate {
		case ingest.MimePDF, ingest.MimePNG, ingest.MimeJPEG, ingest.MimeTIFF:
			return candidate
		case "image/jpg":
			return ingest.MimeJPEG
		}
	}
	return ""
}

// buildProcessor assembles the ingest/extract/parse pipeline from the
// current configuration and provider registry. A missing OCR provider is
// not fatal: vector-rich PDFs still extract, raster pages degrade.
func buildProcessor(ctx context.Context) (*drawing.Processor, error) {
	cm := svcctx.ConfigMgrFrom(ctx)
	registry := svcctx.RegistryFrom(ctx)
	logger := svcctx.LoggerFrom(ctx)
	if cm == nil || registry == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg := cm.Get()

	ingestor := ingest.New(ingest.Config{
		RenderDPI: cfg.Ingest.RenderDPI,
		MaxPages:  cfg.Ingest.MaxPages,
		MaxPixels: cfg.Ingest.MaxPixels,
		MaxBytes:  cfg.Ingest.MaxBytes,
	}, logger)

	ocr, err := registry.OCR(cfg.Defaults.OCRProvider)
	if err != nil {
		logger.Warn("no ocr provider configured, raster pages will degrade", "provider", cfg.Defaults.OCRProvider)
		ocr = nil
	}
	pipeline := extract.New(extract.Config{
		CoverageThreshold: cfg.Extract.CoverageThreshold,
		IoUThreshold:      cfg.Extract.IoUThreshold,
		OCRTimeout:        cfg.Extract.OCRTimeout,
		Workers:           cfg.Extract.Workers,
	}, ocr, registry.LimiterFor(cfg.Defaults.OCRProvider), logger)

	classifier, err := registry.LLM(cfg.Defaults.LLMProvider)
	if err != nil {
		classifier = nil
	}
	parser := dimension.NewParser(dimension.ParserConfig{
		DefaultUnits: cfg.Parser.DefaultUnits,
	}, classifier, logger)

	return &drawing.Processor{
		Ingestor: ingestor,
		Pipeline: pipeline,
		Parser:   parser,
		Logger:   logger,
	}, nil
}

// ListDrawingsEndpoint handles GET /api/drawings.
type ListDrawingsEndpoint struct{}

var _ api.Endpoint = (*ListDrawingsEndpoint)(nil)

func (e *ListDrawingsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/drawings", e.handler
}

func (e *ListDrawingsEndpoint) RequiresInit() bool { return true }

func (e *ListDrawingsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	drawings := svcctx.DrawingsFrom(r.Context())
	if drawings == nil {
		writeError(w, http.StatusServiceUnavailable, "drawing registry not initialized")
		return
	}

	out := make([]DrawingResponse, 0)
	for _, d := range drawings.List() {
		out = append(out, drawingResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"drawings": out, "total": len(out)})
}

func (e *ListDrawingsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all drawings",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp map[string]any
			if err := client.Get(cmd.Context(), "/api/drawings", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetDrawingEndpoint handles GET /api/drawings/{drawing_id}.
type GetDrawingEndpoint struct{}

var _ api.Endpoint = (*GetDrawingEndpoint)(nil)

func (e *GetDrawingEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/drawings/{drawing_id}", e.handler
}

func (e *GetDrawingEndpoint) RequiresInit() bool { return true }

func (e *GetDrawingEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	d, ok := drawingFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, drawingResponse(d))
}

func (e *GetDrawingEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a drawing by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp DrawingResponse
			if err := client.Get(cmd.Context(), "/api/drawings/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteDrawingEndpoint handles DELETE /api/drawings/{drawing_id}.
type DeleteDrawingEndpoint struct{}

var _ api.Endpoint = (*DeleteDrawingEndpoint)(nil)

func (e *DeleteDrawingEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/drawings/{drawing_id}", e.handler
}

func (e *DeleteDrawingEndpoint) RequiresInit() bool { return true }

func (e *DeleteDrawingEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	drawings := svcctx.DrawingsFrom(r.Context())
	if drawings == nil {
		writeError(w, http.StatusServiceUnavailable, "drawing registry not initialized")
		return
	}

	id := r.PathValue("drawing_id")
	if !drawings.Delete(id) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("drawing %s not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteDrawingEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a drawing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			return client.Delete(cmd.Context(), "/api/drawings/"+args[0])
		},
	}
}

// drawingFromRequest resolves the {drawing_id} path value, writing the
// error response itself when the drawing cannot be resolved.
func drawingFromRequest(w http.ResponseWriter, r *http.Request) (*drawing.Drawing, bool) {
	drawings := svcctx.DrawingsFrom(r.Context())
	if drawings == nil {
		writeError(w, http.StatusServiceUnavailable, "drawing registry not initialized")
		return nil, false
	}

	d, err := drawings.Get(r.PathValue("drawing_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return d, true
}
