// internal/presence/mock.go
package presence

import (
	"errors"
	"sync"
)

// Verify mocks implement their interfaces at compile time.
var (
	_ Connector = (*MockConnector)(nil)
	_ Client    = (*MockClient)(nil)
)

// MockConnector is a test double for Connector. Each NewClient call returns
// a fresh MockClient configured from the connector's error fields.
type MockConnector struct {
	mu      sync.Mutex
	clients []*MockClient

	NewErr     error
	ConnectErr error
	SetErr     error
	ClearErr   error
	CloseErr   error
}

// NewMockConnector creates a connector whose clients always succeed.
func NewMockConnector() *MockConnector {
	return &MockConnector{}
}

func (m *MockConnector) NewClient(clientID string) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NewErr != nil {
		return nil, m.NewErr
	}
	c := &MockClient{
		ClientID:   clientID,
		connectErr: m.ConnectErr,
		setErr:     m.SetErr,
		clearErr:   m.ClearErr,
		closeErr:   m.CloseErr,
	}
	m.clients = append(m.clients, c)
	return c, nil
}

// Clients returns every client created so far.
func (m *MockConnector) Clients() []*MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*MockClient, len(m.clients))
	copy(out, m.clients)
	return out
}

// Last returns the most recently created client, or nil.
func (m *MockConnector) Last() *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.clients) == 0 {
		return nil
	}
	return m.clients[len(m.clients)-1]
}

// SetActivityErr changes the error returned by SetActivity on the last
// client and on clients created afterwards.
func (m *MockConnector) SetActivityErr(err error) {
	m.mu.Lock()
	m.SetErr = err
	var last *MockClient
	if len(m.clients) > 0 {
		last = m.clients[len(m.clients)-1]
	}
	m.mu.Unlock()
	if last != nil {
		last.mu.Lock()
		last.setErr = err
		last.mu.Unlock()
	}
}

// errUseAfterClose is recorded when a closed client is used.
var errUseAfterClose = errors.New("client used after close")

// MockClient is a test double for Client that records calls.
type MockClient struct {
	mu sync.Mutex

	ClientID string

	connectErr error
	setErr     error
	clearErr   error
	closeErr   error

	connected  bool
	closed     bool
	activities []Activity
	clears     int
	closes     int
	misuse     []error
}

func (c *MockClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.misuse = append(c.misuse, errUseAfterClose)
	}
	if c.connectErr != nil {
		return c.connectErr
	}
	c.connected = true
	return nil
}

func (c *MockClient) SetActivity(a Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.misuse = append(c.misuse, errUseAfterClose)
	}
	if c.setErr != nil {
		return c.setErr
	}
	c.activities = append(c.activities, a)
	return nil
}

func (c *MockClient) ClearActivity() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.misuse = append(c.misuse, errUseAfterClose)
	}
	if c.clearErr != nil {
		return c.clearErr
	}
	c.clears++
	return nil
}

func (c *MockClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	c.closed = true
	c.connected = false
	return c.closeErr
}

// Activities returns the activities sent so far.
func (c *MockClient) Activities() []Activity {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Activity, len(c.activities))
	copy(out, c.activities)
	return out
}

// Clears returns the number of successful ClearActivity calls.
func (c *MockClient) Clears() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clears
}

// Closes returns the number of Close calls.
func (c *MockClient) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// Closed reports whether Close was called.
func (c *MockClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Misuse returns the recorded use-after-close errors.
func (c *MockClient) Misuse() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.misuse))
	copy(out, c.misuse)
	return out
}
