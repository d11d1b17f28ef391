package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"storefront/internal/repo"
	"storefront/internal/service"
)

var badRequest = []error{
	service.ErrEmptyCart,
	service.ErrCartNotFound,
	service.ErrVariantNotFound,
	service.ErrUserNotFound,
	service.ErrInvalidToken,
	service.ErrAddressNotFound,
	service.ErrGatewayFailure,
	service.ErrGatewayUnreachable,
	service.ErrInvalidQuantity,
	service.ErrInvalidAmount,
	service.ErrInvalidStatus,
}

var notFound = []error{
	service.ErrOrderNotFound,
	service.ErrCartItemNotFound,
}

// writeError maps service errors onto status codes and a public message.
func writeError(c *gin.Context, err error) {
	var (
		stockErr *repo.InsufficientStockError
		recErr   *service.ReconciliationError
	)
	switch {
	case errors.As(err, &recErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Checkout failed after payment."})
		return
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": stockErr.Error()})
		return
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": service.ErrForbidden.Error()})
		return
	}
	for _, target := range notFound {
		if errors.Is(err, target) {
			c.JSON(http.StatusNotFound, gin.H{"error": target.Error()})
			return
		}
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			c.JSON(http.StatusBadRequest, gin.H{"error": target.Error()})
			return
		}
	}

	log.WithField("request_id", c.GetString(requestIDKey)).Errorf("unhandled error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
