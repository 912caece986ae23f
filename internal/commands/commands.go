// Package commands maps named front-end commands onto the presence session.
package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/llehouerou/wavecord/internal/errmsg"
)

// Command names understood by the dispatcher.
const (
	CmdInit       = "init_discord"
	CmdUpdate     = "update_discord_presence"
	CmdClear      = "clear_discord_presence"
	CmdReconnect  = "reconnect_discord"
	CmdDisconnect = "disconnect_discord"
	CmdStatus     = "discord_status"
)

// ErrUnknownCommand is returned for names the dispatcher does not know.
var ErrUnknownCommand = errors.New("unknown command")

// Presence is the part of *presence.Session the dispatcher needs.
type Presence interface {
	Connect() error
	Disconnect()
	Reconnect() error
	IsConnected() bool
	UpdatePresence(title, artist, album string, durationSeconds, elapsedSeconds int64, isPlaying bool) error
	ClearPresence() error
}

// UpdateArgs are the arguments of update_discord_presence.
type UpdateArgs struct {
	SongTitle   string `json:"songTitle"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	Duration    int64  `json:"duration"`    // seconds
	CurrentTime int64  `json:"currentTime"` // seconds
	IsPlaying   bool   `json:"isPlaying"`
}

// Status is the result of discord_status.
type Status struct {
	Connected bool `json:"connected"`
}

type handler func(args json.RawMessage) (any, error)

// Dispatcher runs commands against a Presence. It is safe for concurrent use;
// serialization of the presence handle is the session's job.
type Dispatcher struct {
	presence Presence
	handlers map[string]handler

	mu          sync.Mutex
	onReconnect []func()
}

// New creates a dispatcher for p.
func New(p Presence) *Dispatcher {
	d := &Dispatcher{presence: p}
	d.handlers = map[string]handler{
		CmdInit:       d.initPresence,
		CmdUpdate:     d.updatePresence,
		CmdClear:      d.clearPresence,
		CmdReconnect:  d.reconnect,
		CmdDisconnect: d.disconnect,
		CmdStatus:     d.status,
	}
	return d
}

// OnReconnect registers fn to run after every successful (re)connect.
func (d *Dispatcher) OnReconnect(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onReconnect = append(d.onReconnect, fn)
}

// Commands returns the supported command names, sorted.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the named command. Session errors are returned unchanged.
func (d *Dispatcher) Dispatch(cmd string, args json.RawMessage) (any, error) {
	h, ok := d.handlers[cmd]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	return h(args)
}

func (d *Dispatcher) initPresence(json.RawMessage) (any, error) {
	if err := d.presence.Connect(); err != nil {
		return nil, err
	}
	d.notifyReconnect()
	return nil, nil
}

func (d *Dispatcher) updatePresence(raw json.RawMessage) (any, error) {
	var args UpdateArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return nil, d.presence.UpdatePresence(
		args.SongTitle, args.Artist, args.Album,
		args.Duration, args.CurrentTime, args.IsPlaying,
	)
}

func (d *Dispatcher) clearPresence(json.RawMessage) (any, error) {
	return nil, d.presence.ClearPresence()
}

func (d *Dispatcher) reconnect(json.RawMessage) (any, error) {
	if err := d.presence.Reconnect(); err != nil {
		return nil, err
	}
	d.notifyReconnect()
	return nil, nil
}

func (d *Dispatcher) disconnect(json.RawMessage) (any, error) {
	d.presence.Disconnect()
	return nil, nil
}

func (d *Dispatcher) status(json.RawMessage) (any, error) {
	return Status{Connected: d.presence.IsConnected()}, nil
}

func (d *Dispatcher) notifyReconnect() {
	d.mu.Lock()
	fns := make([]func(), len(d.onReconnect))
	copy(fns, d.onReconnect)
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// ArgsError reports malformed command arguments.
type ArgsError struct {
	Err error
}

func (e *ArgsError) Error() string {
	return errmsg.Format(errmsg.OpDecodeArgs, e.Err)
}

func (e *ArgsError) Unwrap() error {
	return e.Err
}

func decodeArgs(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return &ArgsError{Err: errors.New("missing arguments")}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &ArgsError{Err: err}
	}
	return nil
}

// ErrorMessage converts a dispatch error into the string returned to the
// front-end. Unknown commands get the errmsg wording; all other errors are
// passed through as-is.
func ErrorMessage(cmd string, err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrUnknownCommand) {
		return errmsg.FormatWith(errmsg.OpDispatch, cmd, ErrUnknownCommand)
	}
	return err.Error()
}
