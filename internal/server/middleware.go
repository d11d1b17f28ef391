package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"storefront/internal/domain"
	"storefront/internal/repo"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	userKey         = "user"
)

type Claims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// observe records request metrics and writes one access log line per request.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		handler := c.FullPath()
		if handler == "" {
			handler = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		s.metrics.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
		s.metrics.LatencyMS.WithLabelValues(handler).Observe(float64(elapsed.Milliseconds()))

		log.WithFields(log.Fields{
			"request_id": c.GetString(requestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": elapsed.Milliseconds(),
		}).Info("request")
	}
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided."})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
			return []byte(s.cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.UserID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		user, err := s.users.FindByID(c.Request.Context(), claims.UserID)
		if errors.Is(err, repo.ErrUserNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	return c.MustGet(userKey).(*domain.User)
}

// rateLimit throttles per authenticated user; it must run after authenticate.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.allow(currentUser(c).ID) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}

const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type userLimiter struct {
	mu       sync.Mutex
	visitors map[int64]*visitor
	rate     rate.Limit
	burst    int
}

func newUserLimiter(perSecond float64, burst int) *userLimiter {
	return &userLimiter{
		visitors: make(map[int64]*visitor),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *userLimiter) allow(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	v, ok := l.visitors[userID]
	if !ok {
		l.evictIdle(now)
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[userID] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *userLimiter) evictIdle(now time.Time) {
	for id, v := range l.visitors {
		if now.Sub(v.lastSeen) > limiterIdleTTL {
			delete(l.visitors, id)
		}
	}
}
