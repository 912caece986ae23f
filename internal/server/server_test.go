package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavecord/internal/commands"
	"github.com/llehouerou/wavecord/internal/presence"
)

type fixture struct {
	server  *Server
	session *presence.Session
	conn    *presence.MockConnector
}

func newFixture(t *testing.T, origins ...string) fixture {
	t.Helper()
	conn := presence.NewMockConnector()
	session := presence.NewSession("1456601764731293911", conn)
	d := commands.New(session)
	return fixture{
		server:  New(d, session.IsConnected, origins, nil),
		session: session,
		conn:    conn,
	}
}

func invoke(t *testing.T, h http.Handler, cmd, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/invoke/"+cmd, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return w, resp
}

func TestInvoke_InitAndUpdate(t *testing.T) {
	f := newFixture(t)

	w, resp := invoke(t, f.server, commands.CmdInit, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.OK)
	assert.True(t, f.session.IsConnected())

	w, resp = invoke(t, f.server, commands.CmdUpdate,
		`{"songTitle":"T.N.T.","artist":"AC/DC","album":"High Voltage","duration":214,"currentTime":3,"isPlaying":true}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.OK)

	acts := f.conn.Last().Activities()
	require.Len(t, acts, 1)
	assert.Equal(t, "T.N.T.", acts[0].State)
}

func TestInvoke_ErrorMessage(t *testing.T) {
	f := newFixture(t)
	f.conn.NewErr = assert.AnError

	w, resp := invoke(t, f.server, commands.CmdInit, "")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "failed to create client")
}

func TestInvoke_UnknownCommand(t *testing.T) {
	f := newFixture(t)

	w, resp := invoke(t, f.server, "greet", `{"name":"you"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Failed to run command 'greet': unknown command", resp.Error)
}

func TestInvoke_OriginCheck(t *testing.T) {
	f := newFixture(t, "tauri://localhost")

	tests := []struct {
		name   string
		origin string
		want   int
	}{
		{name: "no origin", origin: "", want: http.StatusOK},
		{name: "allowed", origin: "tauri://localhost", want: http.StatusOK},
		{name: "foreign", origin: "https://evil.example", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/invoke/"+commands.CmdStatus, nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			f.server.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Connect())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var hr HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&hr))
	assert.Equal(t, "ok", hr.Status)
	assert.True(t, hr.Connected)
	assert.Contains(t, hr.Commands, commands.CmdUpdate)
	assert.Len(t, hr.Commands, 6)
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	c, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestWebSocket_Commands(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.server)
	defer ts.Close()
	c := dialWS(t, ts)

	require.NoError(t, c.WriteJSON(Request{ID: json.RawMessage(`1`), Cmd: commands.CmdInit}))
	var resp Response
	require.NoError(t, c.ReadJSON(&resp))
	assert.JSONEq(t, `1`, string(resp.ID))
	assert.True(t, resp.OK)

	require.NoError(t, c.WriteJSON(Request{ID: json.RawMessage(`"s"`), Cmd: commands.CmdStatus}))
	var status struct {
		ID     string          `json:"id"`
		OK     bool            `json:"ok"`
		Result commands.Status `json:"result"`
	}
	require.NoError(t, c.ReadJSON(&status))
	assert.Equal(t, "s", status.ID)
	assert.True(t, status.Result.Connected)
}

func TestWebSocket_BadFrame(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.server)
	defer ts.Close()
	c := dialWS(t, ts)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("not json")))
	var resp Response
	require.NoError(t, c.ReadJSON(&resp))

	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "Failed to decode request")
}

func TestWebSocket_ConcurrentRequests(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Connect())
	ts := httptest.NewServer(f.server)
	defer ts.Close()
	c := dialWS(t, ts)

	const n = 20
	for i := 0; i < n; i++ {
		args, err := json.Marshal(commands.UpdateArgs{SongTitle: "Song", Duration: 100, CurrentTime: int64(i), IsPlaying: true})
		require.NoError(t, err)
		id, err := json.Marshal(i)
		require.NoError(t, err)
		require.NoError(t, c.WriteJSON(Request{ID: id, Cmd: commands.CmdUpdate, Args: args}))
	}

	seen := make(map[string]bool)
	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
	for i := 0; i < n; i++ {
		var resp Response
		require.NoError(t, c.ReadJSON(&resp))
		assert.True(t, resp.OK)
		seen[string(resp.ID)] = true
	}
	assert.Len(t, seen, n)
	assert.Len(t, f.conn.Last().Activities(), n)
}

func TestWebSocket_ForeignOriginRejected(t *testing.T) {
	f := newFixture(t, "tauri://localhost")
	ts := httptest.NewServer(f.server)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)

	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServeAndShutdown(t *testing.T) {
	f := newFixture(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- f.server.Serve(ln) }()

	url := "http://" + ln.Addr().String() + "/invoke/" + commands.CmdInit
	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Post(url, "application/json", bytes.NewReader(nil))
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 2*time.Second, 10*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()
	require.NoError(t, ws.WriteJSON(Request{Cmd: commands.CmdStatus}))
	var status Response
	require.NoError(t, ws.ReadJSON(&status))
	require.True(t, status.OK)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.server.Shutdown(ctx))
	require.NoError(t, <-errCh)
}
