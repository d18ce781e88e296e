package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lotusair/booking/internal/domain"
	"github.com/lotusair/booking/internal/service/flights"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.search)
	router.GET("/:id", h.get)
	router.GET("/:id/fares", h.fares)
	router.GET("/:id/seatmap", h.seatMap)
}

type flightResponse struct {
	ID            int64  `json:"id"`
	Number        string `json:"number"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureTime string `json:"departure_time"`
	ArrivalTime   string `json:"arrival_time"`
	Status        string `json:"status"`
	AirplaneType  string `json:"airplane_type"`
}

type bucketQuoteResponse struct {
	Bucket    string `json:"bucket"`
	Price     *int64 `json:"price"`
	Currency  string `json:"currency,omitempty"`
	SeatCount int    `json:"seat_count"`
	Available bool   `json:"available"`
}

type flightQuoteResponse struct {
	Flight flightResponse        `json:"flight"`
	Quotes []bucketQuoteResponse `json:"quotes"`
}

func toFlightResponse(f *domain.Flight) flightResponse {
	return flightResponse{
		ID:            f.ID,
		Number:        f.Number,
		Origin:        f.Origin,
		Destination:   f.Destination,
		DepartureTime: f.DepartureTime.Format(time.RFC3339),
		ArrivalTime:   f.ArrivalTime.Format(time.RFC3339),
		Status:        f.Status,
		AirplaneType:  f.AirplaneType,
	}
}

func toBucketQuoteResponse(q domain.FareBucketQuote) bucketQuoteResponse {
	resp := bucketQuoteResponse{
		Bucket:    string(q.Bucket),
		SeatCount: q.SeatCount,
		Available: q.Available,
	}
	// An unavailable bucket keeps a null price; zero would read as free.
	if q.Available {
		price := q.Amount
		resp.Price = &price
		resp.Currency = q.Currency
	}
	return resp
}

func (h *FlightHandler) search(c *gin.Context) {
	query := domain.SearchQuery{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
		Bucket:      domain.CabinBucket(c.Query("cabin")),
	}
	if d := c.Query("date"); d != "" {
		date, err := time.Parse("2006-01-02", d)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		query.Date = date
	}

	quotes, err := h.service.Search(c.Request.Context(), query)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := make([]flightQuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		fr := flightQuoteResponse{Flight: toFlightResponse(&q.Flight)}
		for _, bq := range q.Quotes {
			fr.Quotes = append(fr.Quotes, toBucketQuoteResponse(bq))
		}
		resp = append(resp, fr)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(flight))
}

type classAvailabilityResponse struct {
	Class     string `json:"class"`
	Price     *int64 `json:"price"`
	Currency  string `json:"currency,omitempty"`
	Available int    `json:"available"`
}

func (h *FlightHandler) fares(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	breakdown, err := h.service.FareBreakdown(c.Request.Context(), id, domain.CabinBucket(c.Query("cabin")))
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := make([]classAvailabilityResponse, 0, len(breakdown))
	for _, ca := range breakdown {
		r := classAvailabilityResponse{
			Class:     ca.Class.String(),
			Available: ca.Available,
		}
		if ca.Priced {
			price := ca.Amount
			r.Price = &price
			r.Currency = ca.Currency
		}
		resp = append(resp, r)
	}
	c.JSON(http.StatusOK, resp)
}

type seatStatusResponse struct {
	Number   string `json:"number"`
	Class    string `json:"class"`
	Blocked  bool   `json:"blocked"`
	Occupied bool   `json:"occupied"`
	Held     bool   `json:"held"`
}

func (h *FlightHandler) seatMap(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	statuses, err := h.service.SeatMap(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := make([]seatStatusResponse, 0, len(statuses))
	for _, st := range statuses {
		resp = append(resp, seatStatusResponse{
			Number:   st.Seat.Number,
			Class:    st.Seat.Class.String(),
			Blocked:  st.Seat.Blocked,
			Occupied: st.Occupied,
			Held:     st.Held,
		})
	}
	c.JSON(http.StatusOK, resp)
}
