package stream

import (
	"context"
	"io"
	"sync"

	"google.golang.org/grpc"
)

// MockClient is an in-process AccountSubscriptionClient for tests and for
// any harness that exercises the claim-status cache's reconnect logic
// without a real chain runtime.
type MockClient struct {
	mu      sync.Mutex
	streams []*mockStream
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (AccountSubscription_SubscribeClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := &mockStream{updates: make(chan *AccountUpdate, 64), done: make(chan struct{})}
	c.streams = append(c.streams, s)
	return s, nil
}

// Push delivers an update to every currently-open mock stream, simulating
// a server broadcast.
func (c *MockClient) Push(u *AccountUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.streams {
		select {
		case s.updates <- u:
		case <-s.done:
		}
	}
}

// Break closes every open stream with an error, simulating a connection
// drop the cache's supervisor must reconnect from.
func (c *MockClient) Break() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.streams {
		close(s.done)
	}
	c.streams = nil
}

type mockStream struct {
	grpc.ClientStream
	updates chan *AccountUpdate
	done    chan struct{}
}

func (s *mockStream) Recv() (*AccountUpdate, error) {
	select {
	case u, ok := <-s.updates:
		if !ok {
			return nil, io.EOF
		}
		return u, nil
	case <-s.done:
		return nil, io.ErrClosedPipe
	}
}
