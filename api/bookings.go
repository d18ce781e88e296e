package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lotusair/booking/internal/domain"
	"github.com/lotusair/booking/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	router.POST("/", h.commit)
	router.GET("/:reference", h.get)
	router.DELETE("/:reference", h.cancel)
	router.GET("/", requireAuth, h.list)
}

type commitBookingRequest struct {
	DraftID       string `json:"draft_id" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
}

type bookingResponse struct {
	Reference  string `json:"reference"`
	Status     string `json:"status"`
	TotalPrice int64  `json:"total_price"`
	Currency   string `json:"currency"`
	CreatedAt  string `json:"created_at"`
}

type ticketResponse struct {
	FlightID      int64  `json:"flight_id"`
	SeatNumber    string `json:"seat_number"`
	Class         string `json:"class"`
	PassengerName string `json:"passenger_name"`
	Leg           string `json:"leg"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		Reference:  b.Reference,
		Status:     string(b.Status),
		TotalPrice: b.TotalPrice,
		Currency:   b.Currency,
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
	}
}

func (h *BookingHandler) commit(c *gin.Context) {
	var req commitBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.Commit(c.Request.Context(), booking.CommitInput{
		DraftID:       req.DraftID,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) get(c *gin.Context) {
	details, err := h.service.Get(c.Request.Context(), c.Param("reference"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	tickets := make([]ticketResponse, 0, len(details.Tickets))
	for _, t := range details.Tickets {
		tickets = append(tickets, ticketResponse{
			FlightID:      t.FlightID,
			SeatNumber:    t.SeatNumber,
			Class:         t.Class.String(),
			PassengerName: t.PassengerName,
			Leg:           string(t.Leg),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"booking": toBookingResponse(&details.Booking),
		"tickets": tickets,
	})
}

func (h *BookingHandler) cancel(c *gin.Context) {
	cancelled, err := h.service.Cancel(c.Request.Context(), c.Param("reference"), c.Query("last_name"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(cancelled))
}

func (h *BookingHandler) list(c *gin.Context) {
	member := currentMember(c)
	bookings, err := h.service.ListForMember(c.Request.Context(), member.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		resp = append(resp, toBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, resp)
}
