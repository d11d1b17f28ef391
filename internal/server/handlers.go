package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"storefront/internal/domain"
	"storefront/internal/service"
)

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}

// bindOptionalJSON accepts an empty body as the zero value.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// orders

func (s *Server) listOrdersHandler(c *gin.Context) {
	orders, err := s.orders.List(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

// Orders only come out of checkout.
func (s *Server) createOrderHandler(c *gin.Context) {
	c.Header("Allow", "GET")
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": `Method "POST" not allowed.`})
}

type checkoutRequest struct {
	ShippingAddress *domain.ShippingAddress `json:"shipping_address"`
}

func (s *Server) checkoutHandler(c *gin.Context) {
	var req checkoutRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	order, err := s.checkout.Checkout(c.Request.Context(), service.CheckoutInput{
		UserID:  currentUser(c).ID,
		Address: req.ShippingAddress,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) getOrderHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := s.orders.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type updateOrderRequest struct {
	Status        *domain.OrderStatus   `json:"status"`
	PaymentStatus *domain.PaymentStatus `json:"payment_status"`
}

func (s *Server) updateOrderHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := s.orders.Update(c.Request.Context(), currentUser(c), id, service.OrderUpdate{
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) deleteOrderHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.orders.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// cart

func (s *Server) getCartHandler(c *gin.Context) {
	cart, err := s.carts.Get(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

type addCartItemRequest struct {
	VariantID int64 `json:"variant_detail" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
}

func (s *Server) addCartItemHandler(c *gin.Context) {
	var req addCartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := s.carts.AddItem(c.Request.Context(), currentUser(c), req.VariantID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func (s *Server) updateCartItemHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateCartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := s.carts.UpdateItem(c.Request.Context(), currentUser(c), id, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) removeCartItemHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.carts.RemoveItem(c.Request.Context(), currentUser(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// payment

type initiateRequest struct {
	Amount          decimal.Decimal        `json:"amount"`
	CartID          int64                  `json:"cartId" binding:"required"`
	TotalItems      int                    `json:"totalItems"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
}

func (s *Server) initiatePaymentHandler(c *gin.Context) {
	var req initiateRequest
	if !bindJSON(c, &req) {
		return
	}
	url, err := s.payments.Initiate(c.Request.Context(), service.InitiateInput{
		User:      currentUser(c),
		CartID:    req.CartID,
		Amount:    req.Amount,
		ItemCount: req.TotalItems,
		Address:   req.ShippingAddress,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment_url": url})
}

// callbackRequest is what the gateway posts back, as a form or as JSON.
type callbackRequest struct {
	TransactionID string `form:"tran_id" json:"tran_id"`
}

func transactionID(c *gin.Context) string {
	var req callbackRequest
	if err := c.ShouldBind(&req); err != nil {
		log.WithError(err).Debug("callback body not bound, reading tran_id from the query")
	}
	if req.TransactionID == "" {
		return c.Query("tran_id")
	}
	return req.TransactionID
}

func (s *Server) paymentSuccessHandler(c *gin.Context) {
	if _, err := s.payments.HandleSuccess(c.Request.Context(), transactionID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, s.cfg.FrontendURL+"/payment/success/")
}

func (s *Server) paymentCancelHandler(c *gin.Context) {
	s.payments.HandleCancel(c.Request.Context(), transactionID(c))
	c.Redirect(http.StatusFound, s.cfg.FrontendURL+"/payment/cancel/")
}

func (s *Server) paymentFailHandler(c *gin.Context) {
	s.payments.HandleFail(c.Request.Context(), transactionID(c))
	c.Redirect(http.StatusFound, s.cfg.FrontendURL+"/payment/fail/")
}
