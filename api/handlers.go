package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fmeca-service/charts"
	"fmeca-service/grid"
	"fmeca-service/logger"
	"fmeca-service/models"
	"fmeca-service/session"
)

// Handler serves one editing session over HTTP.
type Handler struct {
	log       *logger.Logger
	sess      *session.Session
	chartOpts charts.Options
	onExit    func()
}

func NewHandler(log *logger.Logger, sess *session.Session, chartOpts charts.Options) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		log:       log.With("handler", "FMEAHandler", "session_id", sess.ID()),
		sess:      sess,
		chartOpts: chartOpts,
	}
}

// OnExit registers fn to run once an exit request allows closing.
func (h *Handler) OnExit(fn func()) {
	h.onExit = fn
}

// TablePayload is one page of a grid as sent to clients.
type TablePayload struct {
	Component *models.Component `json:"component"`
	Headers   []string          `json:"headers"`
	Rows      []grid.DisplayRow `json:"rows"`
	Offset    int               `json:"offset"`
	Total     int               `json:"total"`
	PageSize  int               `json:"page_size"`
	HasPrev   bool              `json:"has_prev"`
	HasNext   bool              `json:"has_next"`
	Threshold float64           `json:"threshold"`
	ReadOnly  bool              `json:"read_only"`
}

type EditRequest struct {
	Column string `json:"column" binding:"required"`
	Value  string `json:"value"`
}

type EditResponse struct {
	Applied bool            `json:"applied"`
	Warning string          `json:"warning,omitempty"`
	Row     grid.DisplayRow `json:"row"`
}

type ThresholdRequest struct {
	Value string `json:"value"`
}

type DetectabilityRequest struct {
	Answers []bool `json:"answers" binding:"required,len=3"`
}

type ExitRequest struct {
	Decision string `json:"decision" binding:"required,oneof=save discard cancel yes no"`
}

func componentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(c, http.StatusBadRequest, "invalid_id", err)
		return 0, false
	}
	return id, true
}

func offsetParam(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("offset", "0")
	offset, err := strconv.Atoi(raw)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_offset", err)
		return 0, false
	}
	return offset, true
}

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// ListComponents returns all components, filtered by ?q= when given.
func (h *Handler) ListComponents(c *gin.Context) {
	comps := h.sess.SearchComponents(c.Query("q"))
	if comps == nil {
		comps = []*models.Component{}
	}
	respondWithJSON(c, http.StatusOK, gin.H{"components": comps})
}

// table renders one page through a grid so the HTTP view follows the same
// column and recoloring rules as the terminal.
func (h *Handler) table(c *gin.Context, g *grid.Grid, readOnly bool) {
	id, ok := componentID(c)
	if !ok {
		return
	}
	offset, ok := offsetParam(c)
	if !ok {
		return
	}
	if err := g.Select(id); err != nil {
		respondWithSessionError(c, err)
		return
	}
	if err := g.Seek(offset); err != nil {
		respondWithSessionError(c, err)
		return
	}
	page := g.Page()
	respondWithJSON(c, http.StatusOK, TablePayload{
		Component: page.Component,
		Headers:   g.Headers(),
		Rows:      g.Rows(),
		Offset:    page.Offset,
		Total:     page.Total,
		PageSize:  page.PageSize,
		HasPrev:   page.HasPrev(),
		HasNext:   page.HasNext(),
		Threshold: h.sess.Threshold(),
		ReadOnly:  readOnly,
	})
}

// GetRows serves the editable grid.
func (h *Handler) GetRows(c *gin.Context) {
	h.table(c, grid.New(h.sess), false)
}

// GetStats serves the read-only statistics grid.
func (h *Handler) GetStats(c *gin.Context) {
	h.table(c, grid.NewReadOnly(h.sess), true)
}

// GetDefaults returns one page of the default set for a component.
func (h *Handler) GetDefaults(c *gin.Context) {
	id, ok := componentID(c)
	if !ok {
		return
	}
	offset, ok := offsetParam(c)
	if !ok {
		return
	}
	page, err := h.sess.DefaultPage(id, offset)
	if err != nil {
		respondWithSessionError(c, err)
		return
	}
	respondWithJSON(c, http.StatusOK, gin.H{
		"rows":      page.Rows,
		"offset":    page.Offset,
		"total":     page.Total,
		"page_size": page.PageSize,
		"has_prev":  page.HasPrev(),
		"has_next":  page.HasNext(),
	})
}

// EditCell applies one cell edit. A rejected value answers 422 with the
// reverted row and the reason.
func (h *Handler) EditCell(c *gin.Context) {
	id, ok := componentID(c)
	if !ok {
		return
	}
	key, err := strconv.ParseInt(c.Param("cf_id"), 10, 64)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_cf_id", err)
		return
	}
	var req EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	column, ok := models.ParseColumn(req.Column)
	if !ok {
		respondWithError(c, http.StatusBadRequest, "invalid_column", fmt.Errorf("unknown column %q", req.Column))
		return
	}

	g := grid.New(h.sess)
	if err := g.Select(id); err != nil {
		respondWithSessionError(c, err)
		return
	}
	idx, err := g.Find(key)
	if err != nil {
		respondWithSessionError(c, err)
		return
	}
	res, err := g.Edit(idx, column, req.Value)
	if err != nil {
		respondWithSessionError(c, err)
		return
	}
	status := http.StatusOK
	if !res.Applied {
		status = http.StatusUnprocessableEntity
	}
	respondWithJSON(c, status, EditResponse{Applied: res.Applied, Warning: res.Warning, Row: res.Row})
}

func (h *Handler) GetThreshold(c *gin.Context) {
	respondWithJSON(c, http.StatusOK, gin.H{"threshold": h.sess.Threshold()})
}

// SetThreshold accepts the raw text the user typed; an invalid value keeps
// the previous threshold.
func (h *Handler) SetThreshold(c *gin.Context) {
	var req ThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	v, err := h.sess.SetThreshold(req.Value)
	if err != nil {
		status, code := statusFor(err)
		c.JSON(status, gin.H{
			"error":     APIError{Message: err.Error(), Code: code},
			"threshold": h.sess.Threshold(),
		})
		return
	}
	respondWithJSON(c, http.StatusOK, gin.H{"threshold": v})
}

// Reset replaces the working set with the defaults in memory.
func (h *Handler) Reset(c *gin.Context) {
	if err := h.sess.Reset(); err != nil {
		respondWithSessionError(c, err)
		return
	}
	respondWithJSON(c, http.StatusOK, gin.H{"reset": true, "dirty": h.sess.Dirty()})
}

// Save writes the working set back to the store.
func (h *Handler) Save(c *gin.Context) {
	if err := h.sess.Persist(c.Request.Context()); err != nil {
		h.log.Error("Save failed", "error", err)
		respondWithSessionError(c, err)
		return
	}
	respondWithJSON(c, http.StatusOK, gin.H{"saved": true})
}

func (h *Handler) DetectabilityQuestions(c *gin.Context) {
	respondWithJSON(c, http.StatusOK, gin.H{"questions": session.DetectabilityQuestions})
}

func (h *Handler) RecommendDetectability(c *gin.Context) {
	var req DetectabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	rec, err := session.RecommendDetectability(req.Answers)
	if err != nil {
		respondWithSessionError(c, err)
		return
	}
	respondWithJSON(c, http.StatusOK, gin.H{"recommendation": rec})
}

func (h *Handler) buildChart(c *gin.Context) (charts.Chart, bool) {
	id, ok := componentID(c)
	if !ok {
		return charts.Chart{}, false
	}
	kind, err := charts.ParseKind(c.Param("kind"))
	if err != nil {
		respondWithSessionError(c, err)
		return charts.Chart{}, false
	}
	comp, err := h.sess.Component(id)
	if err != nil {
		respondWithSessionError(c, err)
		return charts.Chart{}, false
	}
	rows, err := h.sess.RowsFor(id)
	if err != nil {
		respondWithSessionError(c, err)
		return charts.Chart{}, false
	}
	chart, err := charts.Build(kind, comp.Name, rows)
	if err != nil {
		respondWithSessionError(c, err)
		return charts.Chart{}, false
	}
	return chart, true
}

// GetChart returns chart data as JSON.
func (h *Handler) GetChart(c *gin.Context) {
	chart, ok := h.buildChart(c)
	if !ok {
		return
	}
	respondWithJSON(c, http.StatusOK, chart)
}

// GetChartImage returns the chart rendered to PNG.
func (h *Handler) GetChartImage(c *gin.Context) {
	chart, ok := h.buildChart(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := charts.Render(&buf, chart, h.chartOpts); err != nil {
		h.log.Error("GetChartImage failed", "error", err, "kind", chart.Kind.String())
		respondWithError(c, http.StatusInternalServerError, "render_failed", err)
		return
	}
	c.Header("Content-Disposition", "inline; filename=\""+chart.Kind.String()+".png\"")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// Exit applies the save/discard/cancel contract. When closing is allowed
// the registered exit hook runs after the response is written.
func (h *Handler) Exit(c *gin.Context) {
	var req ExitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	decision, err := session.ParseExitDecision(req.Decision)
	if err != nil {
		respondWithSessionError(c, err)
		return
	}
	closing, err := h.sess.Exit(c.Request.Context(), decision)
	if err != nil {
		h.log.Error("Exit failed", "error", err, "decision", decision.String())
		respondWithSessionError(c, err)
		return
	}
	respondWithJSON(c, http.StatusOK, gin.H{"close": closing, "decision": decision.String()})
	if closing && h.onExit != nil {
		h.onExit()
	}
}
