package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.observe())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", s.healthHandler)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api", s.authenticate())
	{
		orders := api.Group("/orders")
		orders.GET("", s.listOrdersHandler)
		orders.POST("", s.createOrderHandler)
		orders.POST("/checkout", s.checkoutHandler)
		orders.GET("/:id", s.getOrderHandler)
		orders.PATCH("/:id", s.updateOrderHandler)
		orders.DELETE("/:id", s.deleteOrderHandler)

		cart := api.Group("/cart")
		cart.GET("", s.getCartHandler)
		cart.POST("/items", s.addCartItemHandler)
		cart.PATCH("/items/:id", s.updateCartItemHandler)
		cart.DELETE("/items/:id", s.removeCartItemHandler)
	}

	pay := r.Group("/payment")
	{
		pay.POST("/api/initiate", s.authenticate(), s.rateLimit(), s.initiatePaymentHandler)
		pay.POST("/api/success", s.paymentSuccessHandler)
		pay.POST("/api/cancel", s.paymentCancelHandler)
		pay.POST("/api/fail", s.paymentFailHandler)

		// hosted page of the mock gateway: lands straight on the success flow
		if s.cfg.Gateway.Mock {
			pay.GET("/mock/checkout", s.paymentSuccessHandler)
		}
	}

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.db.Health())
}
