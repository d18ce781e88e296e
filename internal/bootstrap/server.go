package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lotusair/booking/api"
	"github.com/lotusair/booking/config"
	"github.com/lotusair/booking/internal/service/booking"
	"github.com/lotusair/booking/internal/service/draft"
	"github.com/lotusair/booking/internal/service/flights"
	"github.com/lotusair/booking/internal/service/members"
)

type Services struct {
	Flights  flights.FlightUseCase
	Drafts   draft.DraftUseCase
	Bookings booking.BookingUseCase
	Members  members.MemberUseCase
}

// Run starts the HTTP server and blocks until the context is canceled
// or the server fails.
func Run(ctx context.Context, cfg *config.Config, svc Services) error {
	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: NewRouter(svc),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func NewRouter(svc Services) *gin.Engine {
	router := gin.Default()

	optionalAuth := api.Auth(svc.Members, false)
	requireAuth := api.Auth(svc.Members, true)

	v1 := router.Group("/api/v1")
	v1.Use(optionalAuth)

	api.NewFlightHandler(svc.Flights).Register(v1.Group("/flights"))
	api.NewDraftHandler(svc.Drafts).Register(v1.Group("/drafts"))
	api.NewBookingHandler(svc.Bookings).Register(v1.Group("/bookings"), requireAuth)
	api.NewMemberHandler(svc.Members).Register(v1, requireAuth)

	return router
}
