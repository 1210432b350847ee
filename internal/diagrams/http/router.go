package http

import "github.com/gin-gonic/gin"

// Register registers the diagram routes. Create and update accept both
// POST and PUT.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/diagrams", h.List)
	rg.POST("/diagrams", h.Create)
	rg.PUT("/diagrams", h.Create)
	rg.GET("/diagrams/:id", h.View)
	rg.POST("/diagrams/:id", h.Update)
	rg.PUT("/diagrams/:id", h.Update)
	rg.DELETE("/diagrams/:id", h.Delete)
}
