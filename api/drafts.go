package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lotusair/booking/internal/domain"
	"github.com/lotusair/booking/internal/service/draft"
)

type DraftHandler struct {
	service draft.DraftUseCase
}

func NewDraftHandler(service draft.DraftUseCase) *DraftHandler {
	return &DraftHandler{service: service}
}

func (h *DraftHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/:id", h.get)
	router.PUT("/:id/fare", h.selectFare)
	router.PUT("/:id/seats", h.toggleSeat)
	router.PUT("/:id/pending", h.resolvePending)
	router.PUT("/:id/passengers", h.setPassengers)
}

type createDraftRequest struct {
	TripType       string `json:"trip_type" binding:"required"`
	PassengerCount int    `json:"passenger_count" binding:"required"`
}

type legSelectionResponse struct {
	FlightID int64  `json:"flight_id"`
	Class    string `json:"class"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
}

type draftSeatResponse struct {
	SeatNumber string `json:"seat_number"`
	Class      string `json:"class"`
	Leg        string `json:"leg"`
}

type pendingResponse struct {
	Kind       string `json:"kind"`
	Leg        string `json:"leg"`
	SeatNumber string `json:"seat_number"`
	SeatClass  string `json:"seat_class"`
}

type draftResponse struct {
	ID             string                          `json:"id"`
	TripType       string                          `json:"trip_type"`
	PassengerCount int                             `json:"passenger_count"`
	Legs           map[string]legSelectionResponse `json:"legs"`
	Seats          []draftSeatResponse             `json:"seats"`
	Pending        *pendingResponse                `json:"pending,omitempty"`
	Outcome        string                          `json:"outcome,omitempty"`
	ExpiresAt      string                          `json:"expires_at"`
}

func toDraftResponse(d *domain.Draft, outcome domain.ToggleOutcome) draftResponse {
	resp := draftResponse{
		ID:             d.ID,
		TripType:       string(d.TripType),
		PassengerCount: d.PassengerCount,
		Legs:           make(map[string]legSelectionResponse, len(d.Legs)),
		Seats:          make([]draftSeatResponse, 0, len(d.Seats)),
		Outcome:        string(outcome),
		ExpiresAt:      d.ExpiresAt.Format(time.RFC3339),
	}
	for leg, sel := range d.Legs {
		resp.Legs[string(leg)] = legSelectionResponse{
			FlightID: sel.FlightID,
			Class:    sel.Class.String(),
			Price:    sel.Amount,
			Currency: sel.Currency,
		}
	}
	for _, seat := range d.Seats {
		resp.Seats = append(resp.Seats, draftSeatResponse{
			SeatNumber: seat.SeatNumber,
			Class:      seat.Class.String(),
			Leg:        string(seat.Leg),
		})
	}
	if d.Pending != nil {
		resp.Pending = &pendingResponse{
			Kind:       string(d.Pending.Kind),
			Leg:        string(d.Pending.Leg),
			SeatNumber: d.Pending.Seat.Number,
			SeatClass:  d.Pending.Seat.Class.String(),
		}
	}
	return resp
}

func (h *DraftHandler) create(c *gin.Context) {
	var req createDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := draft.CreateDraftInput{
		TripType:       domain.TripType(req.TripType),
		PassengerCount: req.PassengerCount,
	}
	if member := currentMember(c); member != nil {
		input.MemberID = &member.ID
	}

	created, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toDraftResponse(created, ""))
}

func (h *DraftHandler) get(c *gin.Context) {
	d, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDraftResponse(d, ""))
}

type selectFareRequest struct {
	Leg      string `json:"leg" binding:"required"`
	FlightID int64  `json:"flight_id" binding:"required"`
	Class    int    `json:"class" binding:"required"`
}

func (h *DraftHandler) selectFare(c *gin.Context) {
	var req selectFareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.service.SelectFare(c.Request.Context(), c.Param("id"), domain.Leg(req.Leg), req.FlightID, domain.CabinClass(req.Class))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDraftResponse(d, ""))
}

type toggleSeatRequest struct {
	Leg        string `json:"leg" binding:"required"`
	SeatNumber string `json:"seat_number" binding:"required"`
}

func (h *DraftHandler) toggleSeat(c *gin.Context) {
	var req toggleSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, outcome, err := h.service.ToggleSeat(c.Request.Context(), c.Param("id"), domain.Leg(req.Leg), req.SeatNumber)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDraftResponse(d, outcome))
}

type resolvePendingRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

func (h *DraftHandler) resolvePending(c *gin.Context) {
	var req resolvePendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.service.ResolvePending(c.Request.Context(), c.Param("id"), *req.Accept)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDraftResponse(d, ""))
}

type passengerRequest struct {
	FirstName      string `json:"first_name" binding:"required"`
	LastName       string `json:"last_name" binding:"required"`
	DocumentNumber string `json:"document_number"`
	DateOfBirth    string `json:"date_of_birth"`
}

type setPassengersRequest struct {
	Passengers []passengerRequest `json:"passengers" binding:"required"`
	Email      string             `json:"email" binding:"required"`
	Phone      string             `json:"phone"`
}

func (h *DraftHandler) setPassengers(c *gin.Context) {
	var req setPassengersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	passengers := make([]domain.Passenger, 0, len(req.Passengers))
	for _, p := range req.Passengers {
		passenger := domain.Passenger{
			FirstName:      p.FirstName,
			LastName:       p.LastName,
			DocumentNumber: p.DocumentNumber,
		}
		if p.DateOfBirth != "" {
			dob, err := time.Parse("2006-01-02", p.DateOfBirth)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "date_of_birth must be YYYY-MM-DD"})
				return
			}
			passenger.DateOfBirth = dob
		}
		passengers = append(passengers, passenger)
	}

	d, err := h.service.SetPassengers(c.Request.Context(), c.Param("id"), passengers, domain.Contact{Email: req.Email, Phone: req.Phone})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDraftResponse(d, ""))
}
