package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/hotelops/internal/domain"
	"github.com/Domenick1991/hotelops/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	GuestID   int64  `json:"guest_id" binding:"required"`
	UnitID    int64  `json:"unit_id" binding:"required"`
	CheckIn   string `json:"check_in" binding:"required,bookdate"`
	CheckOut  string `json:"check_out" binding:"required,bookdate"`
	Adults    int    `json:"adults" binding:"required,min=1"`
	Children  int    `json:"children" binding:"min=0"`
	CreatedBy int64  `json:"created_by"`
}

type updateDatesRequest struct {
	CheckIn  string `json:"check_in" binding:"required,bookdate"`
	CheckOut string `json:"check_out" binding:"required,bookdate"`
}

type transitionRequest struct {
	Target string `json:"target" binding:"required"`
}

type bookingResponse struct {
	Reference  string `json:"reference"`
	Status     string `json:"status"`
	GuestID    int64  `json:"guest_id"`
	UnitID     int64  `json:"unit_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Adults     int    `json:"adults"`
	Children   int    `json:"children"`
	TotalCents int64  `json:"total_cents"`
	CreatedAt  string `json:"created_at"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/:reference", h.get)
	router.PATCH("/:reference/dates", h.updateDates)
	router.POST("/:reference/transition", h.transition)
	router.DELETE("/:reference", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	checkIn, _ := parseDate(req.CheckIn)
	checkOut, _ := parseDate(req.CheckOut)

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		GuestID:   req.GuestID,
		UnitID:    req.UnitID,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Adults:    req.Adults,
		Children:  req.Children,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) get(c *gin.Context) {
	found, err := h.service.GetBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(found))
}

func (h *BookingHandler) updateDates(c *gin.Context) {
	var req updateDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	checkIn, _ := parseDate(req.CheckIn)
	checkOut, _ := parseDate(req.CheckOut)

	updated, err := h.service.UpdateDates(c.Request.Context(), c.Param("reference"), checkIn, checkOut)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) transition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.Transition(c.Request.Context(), c.Param("reference"), domain.BookingStatus(req.Target))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	cancelled, err := h.service.CancelBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(cancelled))
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		Reference:  b.Reference,
		Status:     string(b.Status),
		GuestID:    b.GuestID,
		UnitID:     b.UnitID,
		CheckIn:    b.CheckIn.Format(dateLayout),
		CheckOut:   b.CheckOut.Format(dateLayout),
		Adults:     b.Adults,
		Children:   b.Children,
		TotalCents: b.TotalCents,
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
	}
}
