package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/hotelops/internal/service/units"
	"github.com/gin-gonic/gin"
)

type UnitHandler struct {
	service units.UnitUseCase
}

func NewUnitHandler(service units.UnitUseCase) *UnitHandler {
	return &UnitHandler{service: service}
}

func (h *UnitHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.GET("/:id", h.get)
}

func (h *UnitHandler) list(c *gin.Context) {
	units, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, units)
}

func (h *UnitHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	unit, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}
