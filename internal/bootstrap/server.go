package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/Domenick1991/hotelops/api"
	"github.com/Domenick1991/hotelops/config"
	"github.com/Domenick1991/hotelops/internal/service/booking"
	"github.com/Domenick1991/hotelops/internal/service/payment"
	"github.com/Domenick1991/hotelops/internal/service/units"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Services struct {
	Units    units.UnitUseCase
	Bookings booking.BookingUseCase
	Payments payment.PaymentUseCase
	Pricer   api.Quoter
}

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, svc Services) error {
	srv := newServer(cfg, svc)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func newServer(cfg *config.Config, svc Services) *http.Server {
	api.RegisterValidations()

	router := gin.Default()

	unitsGroup := router.Group("/units")
	api.NewUnitHandler(svc.Units).Register(unitsGroup)

	bookingsGroup := router.Group("/bookings")
	api.NewBookingHandler(svc.Bookings).Register(bookingsGroup)

	paymentsGroup := router.Group("/payments")
	api.NewPaymentHandler(svc.Payments).Register(paymentsGroup, bookingsGroup)

	quotesGroup := router.Group("/quotes")
	api.NewQuoteHandler(svc.Pricer).Register(quotesGroup)

	if cfg.HTTP.SwaggerDir != "" {
		router.StaticFS("/swagger", http.Dir(cfg.HTTP.SwaggerDir))
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger/hotelops.swagger.json"),
		)))
	}

	return &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}
}
