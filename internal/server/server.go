package server

import (
	"fmt"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/metrics"
	"storefront/internal/repo"
	"storefront/internal/service"
)

type HealthChecker interface {
	Health() map[string]string
}

type Deps struct {
	DB       HealthChecker
	Users    repo.UserRepo
	Carts    service.CartService
	Orders   service.OrderService
	Checkout service.CheckoutService
	Payments service.PaymentService
	Metrics  *metrics.Metrics
}

type Server struct {
	cfg      *config.Config
	db       HealthChecker
	users    repo.UserRepo
	carts    service.CartService
	orders   service.OrderService
	checkout service.CheckoutService
	payments service.PaymentService
	metrics  *metrics.Metrics
	limiter  *userLimiter
}

func New(cfg *config.Config, deps Deps) *Server {
	return &Server{
		cfg:      cfg,
		db:       deps.DB,
		users:    deps.Users,
		carts:    deps.Carts,
		orders:   deps.Orders,
		checkout: deps.Checkout,
		payments: deps.Payments,
		metrics:  deps.Metrics,
		limiter:  newUserLimiter(cfg.InitiateRate, 1),
	}
}

// HTTPServer wraps the routes in an *http.Server listening on the configured port.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.RegisterRoutes(),
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
