package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/diagram-service/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/diagram-service/internal/auth"
	"github.com/GoSim-25-26J-441/diagram-service/internal/diagrams/domain"
	"github.com/GoSim-25-26J-441/diagram-service/internal/diagrams/reconcile"
	"github.com/GoSim-25-26J-441/diagram-service/internal/query"
)

// List handles GET /diagrams
func (h *Handler) List(c *gin.Context) {
	az := auth.FromContext(c)
	p := query.Parse(c.Request.URL.Query())

	items, total, err := h.svc.List(c.Request.Context(), az, p)
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]diagramResponse, 0, len(items))
	for i := range items {
		out = append(out, h.serialize(c, &items[i]))
	}
	c.JSON(http.StatusOK, query.NewResult(out, total, p))
}

// Create handles POST|PUT /diagrams
func (h *Handler) Create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body: " + err.Error()})
		return
	}

	d, err := h.svc.Create(c.Request.Context(), auth.FromContext(c), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.serialize(c, d))
}

// View handles GET /diagrams/:id
func (h *Handler) View(c *gin.Context) {
	id, ok := diagramID(c)
	if !ok {
		return
	}

	d, err := h.svc.Get(c.Request.Context(), auth.FromContext(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.serialize(c, d))
}

// Update handles POST|PUT /diagrams/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := diagramID(c)
	if !ok {
		return
	}

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body: " + err.Error()})
		return
	}

	d, err := h.svc.Update(c.Request.Context(), auth.FromContext(c), id, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.serialize(c, d))
}

// Delete handles DELETE /diagrams/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := diagramID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), auth.FromContext(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) serialize(c *gin.Context, d *domain.Diagram) diagramResponse {
	return diagramResponse{
		Diagram:   *d,
		Writeable: h.svc.Writeable(c.Request.Context(), auth.FromContext(c), d),
	}
}

// diagramID parses the :id path parameter. Anything that is not a positive
// integer cannot name a diagram and is answered with 404.
func diagramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "diagram not found"})
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "not found"})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "login required"})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
	case errors.Is(err, domain.ErrInvalidBody), errors.Is(err, reconcile.ErrMissingField):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	default:
		h.log.Error("diagram request failed",
			zap.String("request_id", middleware.GetRequestID(c.Request.Context())),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
	}
}
