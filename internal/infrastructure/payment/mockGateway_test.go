package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGateway_SameTransactionSameSession(t *testing.T) {
	gw := NewMockGateway("http://localhost:8080")

	first, err := gw.CreateSession(context.Background(), sessionRequest())
	require.NoError(t, err)
	assert.Contains(t, first.URL, "tran_id=transectionId720240115")

	second, err := gw.CreateSession(context.Background(), sessionRequest())
	require.NoError(t, err)
	assert.Equal(t, first.SessionKey, second.SessionKey)

	s, ok := gw.Session("transectionId720240115")
	require.True(t, ok)
	assert.Equal(t, first, s)
}

func TestMockGateway_Failures(t *testing.T) {
	gw := NewMockGateway("http://localhost:8080")
	gw.SetFail(ErrSessionRejected)

	_, err := gw.CreateSession(context.Background(), sessionRequest())
	assert.True(t, errors.Is(err, ErrSessionRejected))

	gw.SetFail(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gw.CreateSession(ctx, sessionRequest())
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestMockGateway_ConcurrentFailToggle(t *testing.T) {
	gw := NewMockGateway("http://localhost:8080")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				gw.SetFail(ErrSessionRejected)
			} else {
				gw.SetFail(nil)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			req := sessionRequest()
			req.TransactionID = fmt.Sprintf("transectionId%d20240115", i)
			s, err := gw.CreateSession(context.Background(), req)
			if err != nil {
				assert.ErrorIs(t, err, ErrSessionRejected)
				return
			}
			got, ok := gw.Session(req.TransactionID)
			assert.True(t, ok)
			assert.Equal(t, s, got)
		}(i)
	}
	wg.Wait()
}
