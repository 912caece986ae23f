// Package discord implements presence clients on top of the Discord IPC
// socket. Payloads use the rich-go wire types; every reply is checked so
// that rejected handshakes and dropped sockets surface as errors.
package discord

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hugolgst/rich-go/client"

	"github.com/llehouerou/wavecord/internal/presence"
)

const (
	ipcVersion  = "1"
	ipcSlots    = 10 // discord-ipc-0 .. discord-ipc-9
	dialTimeout = 2 * time.Second
	ioTimeout   = 5 * time.Second
)

var (
	// ErrInvalidClientID is returned for an empty or non-numeric application ID.
	ErrInvalidClientID = errors.New("invalid application id")
	// ErrNotConnected is returned when a client is used before Connect or
	// after its socket was lost.
	ErrNotConnected = errors.New("not connected")
)

// Verify implementations at compile time.
var (
	_ presence.Connector = Connector{}
	_ presence.Client    = (*Client)(nil)
)

// Connector creates Discord clients.
type Connector struct{}

// NewClient validates the application ID and returns an unconnected client.
func (Connector) NewClient(clientID string) (presence.Client, error) {
	if clientID == "" {
		return nil, ErrInvalidClientID
	}
	if _, err := strconv.ParseUint(clientID, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidClientID, clientID)
	}
	return &Client{clientID: clientID, pid: os.Getpid()}, nil
}

// Client is one IPC connection to the local Discord client.
type Client struct {
	clientID string
	pid      int

	mu   sync.Mutex
	conn net.Conn // nil until Connect succeeds, and after the socket is lost
}

// Connect opens the IPC socket, sends the handshake and waits for READY.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	conn, err := dial()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(client.Handshake{V: ipcVersion, ClientId: c.clientID})
	if err != nil {
		conn.Close()
		return err
	}

	c.conn = conn
	r, err := c.roundTrip(opHandshake, payload, "")
	if err != nil {
		c.dropLocked()
		return err
	}
	if r.Evt != "READY" {
		c.dropLocked()
		return fmt.Errorf("unexpected handshake reply %q", r.Evt)
	}
	return nil
}

// SetActivity publishes the activity.
func (c *Client) SetActivity(a presence.Activity) error {
	return c.setActivity(toPayload(a))
}

// ClearActivity removes the published activity by sending SET_ACTIVITY
// with a null activity.
func (c *Client) ClearActivity() error {
	return c.setActivity(nil)
}

func (c *Client) setActivity(activity *client.PayloadActivity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	nonce := uuid.NewString()
	payload, err := json.Marshal(client.Frame{
		Cmd:   "SET_ACTIVITY",
		Args:  client.Args{Pid: c.pid, Activity: activity},
		Nonce: nonce,
	})
	if err != nil {
		return err
	}

	_, err = c.roundTrip(opFrame, payload, nonce)
	var rpcErr *RPCError
	if err != nil && !errors.As(err, &rpcErr) {
		// The stream is unusable after an I/O failure.
		c.dropLocked()
	}
	return err
}

// Close releases the socket. It is safe to call repeatedly.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// roundTrip writes one frame and reads until the matching reply. An empty
// nonce accepts the first message frame. Pings are answered on the way.
func (c *Client) roundTrip(op uint32, payload []byte, nonce string) (reply, error) {
	if err := c.conn.SetDeadline(time.Now().Add(ioTimeout)); err != nil {
		return reply{}, err
	}
	defer c.conn.SetDeadline(time.Time{}) //nolint:errcheck // best effort reset

	if err := writeFrame(c.conn, op, payload); err != nil {
		return reply{}, err
	}

	for {
		rop, body, err := readFrame(c.conn)
		if err != nil {
			return reply{}, err
		}
		switch rop {
		case opClose:
			return reply{}, closeError(body)
		case opPing:
			if err := writeFrame(c.conn, opPong, body); err != nil {
				return reply{}, err
			}
			continue
		case opFrame:
		default:
			continue
		}

		r, err := parseReply(body)
		if err != nil {
			return r, err
		}
		if nonce == "" || r.Nonce == nonce {
			return r, nil
		}
	}
}

// dial tries every IPC slot and returns the first that accepts.
func dial() (net.Conn, error) {
	var lastErr error
	for n := range ipcSlots {
		conn, err := dialSlot(n, dialTimeout)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("discord is not running: %w", lastErr)
}

func toPayload(a presence.Activity) *client.PayloadActivity {
	p := &client.PayloadActivity{
		State: a.State,
		Assets: client.PayloadAssets{
			LargeImage: a.LargeImage,
			LargeText:  a.LargeText,
		},
	}
	if a.Timestamps != nil {
		start := uint64(a.Timestamps.Start.UnixMilli()) //nolint:gosec // wall clock is after 1970
		end := uint64(a.Timestamps.End.UnixMilli())     //nolint:gosec // wall clock is after 1970
		p.Timestamps = &client.PayloadTimestamps{Start: &start, End: &end}
	}
	return p
}
