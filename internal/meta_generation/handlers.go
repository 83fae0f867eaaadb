package meta_generation

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apierrors "github.com/eternisai/meta-optimizer/internal/errors"
	"github.com/eternisai/meta-optimizer/internal/logger"
)

const pageTemplate = "index.html"

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the page templates for gin's HTML renderer.
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

type Handler struct {
	service *Service
	logger  *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log.WithComponent("meta_generation_handler"),
	}
}

// RegisterRoutes mounts the page, the JSON API and the health check.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.ShowForm)
	r.POST("/", h.SubmitForm)
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api/v1")
	{
		api.POST("/generate", h.Generate)
	}
}

// ExampleLines accepts either one newline-separated string or an array of lines.
type ExampleLines string

func (e *ExampleLines) UnmarshalJSON(data []byte) error {
	var block string
	if err := json.Unmarshal(data, &block); err == nil {
		*e = ExampleLines(block)
		return nil
	}

	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("examples must be a string or an array of strings")
	}
	*e = ExampleLines(strings.Join(lines, "\n"))
	return nil
}

// GenerateRequest is the body of POST /api/v1/generate.
type GenerateRequest struct {
	Category string       `json:"category" binding:"required"`
	Examples ExampleLines `json:"examples" binding:"required"`
}

type pageData struct {
	Categories  []Category
	Selected    string
	Examples    string
	MinExamples int
	Notices     []Notice
	Output      string
	Year        int
}

func newPageData() pageData {
	return pageData{
		Categories:  Categories,
		Selected:    Title.Key(),
		MinExamples: MinExamples,
		Year:        time.Now().Year(),
	}
}

// ShowForm renders the empty form.
// GET /.
func (h *Handler) ShowForm(c *gin.Context) {
	c.HTML(http.StatusOK, pageTemplate, newPageData())
}

// SubmitForm runs a generation from the posted form and re-renders the page with the result.
// POST /.
func (h *Handler) SubmitForm(c *gin.Context) {
	data := newPageData()
	data.Examples = c.PostForm("examples")
	if category := c.PostForm("category"); category != "" {
		data.Selected = category
	}

	result, err := h.service.Generate(c.Request.Context(), data.Selected, data.Examples)
	if err != nil {
		h.logger.LogError(c.Request.Context(), err, "generation failed")
		data.Notices = []Notice{{Level: NoticeError, Message: "The completion service failed. Please try again."}}
		c.HTML(http.StatusBadGateway, pageTemplate, data)
		return
	}

	data.Notices = result.Notices
	data.Output = result.Output

	status := http.StatusOK
	switch result.Status {
	case StatusInvalid:
		status = http.StatusBadRequest
	case StatusRateLimited:
		status = http.StatusTooManyRequests
	}
	c.HTML(status, pageTemplate, data)
}

// Generate is the JSON form of SubmitForm.
// POST /api/v1/generate.
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.AbortWithBadRequest(c, "category & examples required", map[string]interface{}{
			"reason": err.Error(),
		})
		return
	}

	result, err := h.service.Generate(c.Request.Context(), req.Category, string(req.Examples))
	if err != nil {
		h.logger.LogError(c.Request.Context(), err, "generation failed",
			slog.String("category", req.Category))
		apierrors.AbortWithBadGateway(c, "completion service request failed", nil)
		return
	}

	switch result.Status {
	case StatusInvalid:
		apierrors.AbortWithBadRequest(c, noticeText(result.Notices), map[string]interface{}{
			"notices": result.Notices,
		})
	case StatusRateLimited:
		apierrors.AbortWithRateLimit(c, apierrors.UpstreamRetriesExhausted(result.Attempts, map[string]interface{}{
			"notices": result.Notices,
		}))
	default:
		c.JSON(http.StatusOK, result)
	}
}

// HealthCheck reports that the server is up.
// GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func noticeText(notices []Notice) string {
	if len(notices) == 0 {
		return "invalid request"
	}
	return notices[len(notices)-1].Message
}
