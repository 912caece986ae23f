package presence

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// Verify Session implements io.Closer at compile time.
var _ io.Closer = (*Session)(nil)

// Session owns at most one live presence client and serializes every
// operation on it.
//
// The lock is held for the whole operation, including the blocking IPC
// calls of the client. Presence updates happen a few times per second at
// most, so full serialization is not a bottleneck.
type Session struct {
	mu     sync.Mutex
	client Client // nil when disconnected

	clientID   string
	largeImage string
	connector  Connector
	now        func() time.Time
	log        *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLargeImage sets the asset key used for the large image.
func WithLargeImage(key string) Option {
	return func(s *Session) {
		if key != "" {
			s.largeImage = key
		}
	}
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession creates a disconnected session for the given application ID.
func NewSession(clientID string, connector Connector, opts ...Option) *Session {
	s := &Session{
		clientID:   clientID,
		largeImage: DefaultLargeImage,
		connector:  connector,
		now:        time.Now,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClientID returns the application identifier the session connects with.
func (s *Session) ClientID() string {
	return s.clientID
}

// Connect creates a new client and performs the handshake.
// A client left over from a previous connection is closed first.
// On failure the session is disconnected.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked()

	client, err := s.connector.NewClient(s.clientID)
	if err != nil {
		return newError(StageConstruct, err)
	}

	if err := client.Connect(); err != nil {
		if cerr := client.Close(); cerr != nil {
			s.log.Debug("close after failed handshake", "err", cerr)
		}
		return newError(StageHandshake, err)
	}

	s.client = client
	return nil
}

// Disconnect closes the live client, if any. It is safe to call repeatedly.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// closeLocked releases the client. Close failures are ignored: there is
// nothing left to recover once the handle is gone.
func (s *Session) closeLocked() {
	if s.client == nil {
		return
	}
	if err := s.client.Close(); err != nil {
		s.log.Debug("close presence client", "err", err)
	}
	s.client = nil
}

// Reconnect disconnects and connects again. The two steps take the lock
// separately, so a concurrent update may see the session disconnected.
func (s *Session) Reconnect() error {
	s.Disconnect()
	return s.Connect()
}

// IsConnected reports whether a client is live.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// UpdatePresence sends the now-playing state. It is a no-op when
// disconnected. Artist is accepted for callers but not displayed.
func (s *Session) UpdatePresence(
	title, artist, album string, //nolint:revive // artist kept for callers
	durationSeconds, elapsedSeconds int64,
	isPlaying bool,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	activity := BuildActivity(ActivityState{
		Title:           title,
		Album:           album,
		DurationSeconds: durationSeconds,
		ElapsedSeconds:  elapsedSeconds,
		IsPlaying:       isPlaying,
	}, s.largeImage, s.now())

	if err := s.client.SetActivity(activity); err != nil {
		return newError(StageSetActivity, err)
	}
	return nil
}

// ClearPresence removes the displayed activity. It is a no-op when
// disconnected.
func (s *Session) ClearPresence() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	if err := s.client.ClearActivity(); err != nil {
		return newError(StageClearActivity, err)
	}
	return nil
}

// Close releases the live client at shutdown.
func (s *Session) Close() error {
	s.Disconnect()
	return nil
}
