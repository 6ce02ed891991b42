package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ai_app_server/internal/ai"
	"ai_app_server/internal/ai/prompts"
	"ai_app_server/internal/archive"
	"ai_app_server/internal/auth"
	"ai_app_server/internal/design"
	"ai_app_server/internal/metrics"
	"ai_app_server/internal/preview"
	"ai_app_server/internal/recorder"
	"ai_app_server/internal/types"
	"ai_app_server/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is satisfied by the document store; used by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// APIHandler holds dependencies for API endpoints.
type APIHandler struct {
	generator      ai.Generator
	provider       string // metrics label
	recorder       *recorder.Recorder
	renderer       preview.Renderer
	extract        preview.Extractor
	extractorName  string
	designMaxBytes int64
	pinger         Pinger
	logger         *zap.Logger
}

// NewAPIHandler initializes a new API handler with its dependencies.
func NewAPIHandler(
	generator ai.Generator,
	provider string, // e.g., "gemini"
	rec *recorder.Recorder,
	renderer preview.Renderer,
	extractorName string, // "regex" or "scan"
	designMaxBytes int64,
	pinger Pinger, // may be nil
	logger *zap.Logger,
) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if extractorName == "" {
		extractorName = "regex"
	}
	return &APIHandler{
		generator:      generator,
		provider:       provider,
		recorder:       rec,
		renderer:       renderer,
		extract:        preview.ExtractorByName(extractorName),
		extractorName:  strings.ToLower(extractorName),
		designMaxBytes: designMaxBytes,
		pinger:         pinger,
		logger:         logger.Named("APIHandler"),
	}
}

// --- Structs for API Requests/Responses ---

type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

type GenerateResponse struct {
	Result string `json:"result"`
}

type ProjectRequest struct {
	Prompt    string `json:"prompt"`
	AppType   string `json:"appType"`
	Framework string `json:"framework"`
	Result    string `json:"result"`
}

type AppRequest struct {
	Prompt    string `json:"prompt" binding:"required"`
	AppType   string `json:"appType" binding:"required"`
	Framework string `json:"framework" binding:"required"`
}

type AppResponse struct {
	Prompt       string                    `json:"prompt"` // composed prompt sent upstream
	Result       string                    `json:"result"`
	Record       *types.GeneratedAppRecord `json:"record,omitempty"`
	PersistError string                    `json:"persistError,omitempty"`
}

type CodeRequest struct {
	Code      string `json:"code"`
	Framework string `json:"framework"`
}

type PreviewResponse struct {
	Fragment string `json:"fragment"`
	Language string `json:"language"`
}

// --- API Handlers ---

// POST /api/gemini
func (h *APIHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	result, err := h.generate(c.Request.Context(), req.Prompt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenerateResponse{Result: result})
}

// POST /api/projects
func (h *APIHandler) SaveProject(c *gin.Context) {
	session := auth.SessionFrom(c)
	if session == nil {
		h.respondError(c, recorder.ErrUnauthorized)
		return
	}

	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	rec, err := h.record(c.Request.Context(), session, recorder.Input{
		Prompt:    req.Prompt,
		AppType:   req.AppType,
		Framework: req.Framework,
		Result:    req.Result,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// POST /api/apps
// Compose, generate, then record. A failed write is reported in the body, not as a
// failed request.
func (h *APIHandler) GenerateApp(c *gin.Context) {
	var req AppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if !types.AppType(req.AppType).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("appType must be one of %v", types.AppTypes)})
		return
	}
	if !types.Framework(req.Framework).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("framework must be one of %v", types.Frameworks)})
		return
	}

	ctx := c.Request.Context()
	composed := prompts.Compose(req.AppType, req.Framework, req.Prompt)

	result, err := h.generate(ctx, composed)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := AppResponse{Prompt: composed, Result: result}
	rec, err := h.record(ctx, auth.SessionFrom(c), recorder.Input{
		Prompt:    req.Prompt,
		AppType:   req.AppType,
		Framework: req.Framework,
		Result:    result,
	})
	if err != nil {
		h.logger.Warn("Generated app not persisted", zap.Error(err))
		resp.PersistError = err.Error()
	} else {
		resp.Record = rec
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/preview
func (h *APIHandler) Preview(c *gin.Context) {
	req, ok := h.bindCode(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, PreviewResponse{
		Fragment: h.fragment(req.Code),
		Language: utils.PreviewLanguage(req.Framework),
	})
}

// POST /preview
func (h *APIHandler) PreviewPage(c *gin.Context) {
	req, ok := h.bindCode(c)
	if !ok {
		return
	}
	page, err := h.renderer.Render(h.fragment(req.Code), utils.PreviewLanguage(req.Framework))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// POST /api/archive
func (h *APIHandler) Archive(c *gin.Context) {
	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	data, err := archive.Pack(req.Code, utils.SourceFileName(req.Framework))
	if err != nil {
		h.respondError(c, err)
		return
	}
	metrics.Archives.Inc()

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, archive.DownloadName))
	c.Data(http.StatusOK, "application/zip", data)
}

// POST /api/design (multipart, field "designFile")
func (h *APIHandler) InspectDesign(c *gin.Context) {
	fh, err := c.FormFile("designFile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "designFile is required"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.respondError(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer f.Close()

	limit := h.designMaxBytes
	if limit <= 0 {
		limit = fh.Size
	}
	// one byte past the limit is enough to report ErrTooLarge
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		h.respondError(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	asset, err := design.Inspect(fh.Filename, data, h.designMaxBytes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

// GET /health
func (h *APIHandler) Health(c *gin.Context) {
	if h.pinger != nil {
		if err := h.pinger.Ping(c.Request.Context()); err != nil {
			h.logger.Warn("Health check: document store unreachable", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": "unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- helpers ---

func (h *APIHandler) generate(ctx context.Context, prompt string) (string, error) {
	result, err := h.generator.Generate(ctx, prompt)
	switch {
	case err != nil:
		metrics.Generations.WithLabelValues(h.provider, metrics.OutcomeError).Inc()
	case result == "":
		metrics.Generations.WithLabelValues(h.provider, metrics.OutcomeEmpty).Inc()
	default:
		metrics.Generations.WithLabelValues(h.provider, metrics.OutcomeSuccess).Inc()
	}
	return result, err
}

func (h *APIHandler) record(ctx context.Context, session *auth.Session, in recorder.Input) (*types.GeneratedAppRecord, error) {
	rec, err := h.recorder.Record(ctx, session, in)
	if err != nil {
		metrics.Records.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}
	metrics.Records.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return rec, nil
}

func (h *APIHandler) fragment(code string) string {
	metrics.Previews.WithLabelValues(h.extractorName).Inc()
	return h.extract(code)
}

func (h *APIHandler) bindCode(c *gin.Context) (CodeRequest, bool) {
	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return req, false
	}
	if req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return req, false
	}
	return req, true
}

// respondError maps domain errors to a status and an {"error": message} body.
func (h *APIHandler) respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		upErr *ai.UpstreamError
		vErr  *recorder.ValidationError
		sErr  *recorder.StorageError
	)
	switch {
	case errors.Is(err, ai.ErrEmptyPrompt):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
	case errors.Is(err, recorder.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.Is(err, archive.ErrEmptyArchive):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to download: code is empty"})
	case errors.Is(err, design.ErrUnsupportedType), errors.Is(err, design.ErrTooLarge), errors.Is(err, design.ErrEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &upErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": upErr.Message})
	case errors.As(err, &sErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store generated app"})
	default:
		h.logger.Error("Unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}
