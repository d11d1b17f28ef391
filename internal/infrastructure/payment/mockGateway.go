package payment

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// MockGateway opens sessions without leaving the process. The page URL
// points straight at the success callback, so a local frontend can complete
// the whole flow. Repeated requests for one transaction id return the same
// session.
type MockGateway struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	baseURL  string
	fail     error
}

func NewMockGateway(baseURL string) *MockGateway {
	return &MockGateway{sessions: make(map[string]*Session), baseURL: baseURL}
}

// SetFail makes every new session request fail with err; nil restores it.
func (g *MockGateway) SetFail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail = err
}

func (g *MockGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if s, exists := g.sessions[req.TransactionID]; exists {
		return s, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if g.fail != nil {
		return nil, g.fail
	}

	s := &Session{
		URL:        g.baseURL + "/payment/mock/checkout?tran_id=" + url.QueryEscape(req.TransactionID),
		SessionKey: uuid.NewString(),
	}
	g.sessions[req.TransactionID] = s

	log.WithField("tran_id", req.TransactionID).Infof("[mock gateway] session opened for %s", req.Amount.StringFixed(2))
	return s, nil
}

// Session returns what was opened for a transaction id, if anything.
func (g *MockGateway) Session(transactionID string) (*Session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.sessions[transactionID]
	return s, ok
}
