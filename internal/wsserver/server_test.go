package wsserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"

	"github.com/park285/chess-live-server/internal/auth"
	"github.com/park285/chess-live-server/internal/dispatch"
	"github.com/park285/chess-live-server/internal/msgcat"
	"github.com/park285/chess-live-server/internal/registry"
	"github.com/park285/chess-live-server/internal/session"
	"github.com/park285/chess-live-server/internal/store"
	"github.com/park285/chess-live-server/pkg/chessdto"
)

type testEnv struct {
	srv    *httptest.Server
	ws     *Server
	coord  *session.Coordinator
	hub    *Hub
	gameID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := registry.New()
	hub := NewHub(16, nil)
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	coord, err := session.New(session.Deps{
		Repo:       store.NewMemoryRepository(),
		Auth:       auth.Static{"tw": "white", "tb": "black"},
		Registry:   reg,
		Dispatcher: dispatch.New(reg, hub, nil),
		Messages:   cat,
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	ws := NewServer(coord, hub, Options{PingInterval: time.Minute}, nil)
	srv := httptest.NewServer(NewRouter(ws))
	t.Cleanup(func() {
		srv.Close()
		_ = coord.Close(context.Background())
	})
	v, err := coord.CreateGame(context.Background(), "e2e")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	return &testEnv{srv: srv, ws: ws, coord: coord, hub: hub, gameID: v.GameID}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn) chessdto.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m chessdto.ServerMessage
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return m
}

func TestWebSocketGame(t *testing.T) {
	env := newTestEnv(t)
	white := env.dial(t)
	black := env.dial(t)

	send(t, white, chessdto.Command{CommandType: chessdto.CommandJoinPlayer, AuthToken: "tw", GameID: env.gameID, PlayerColor: "WHITE"})
	if m := recv(t, white); m.ServerMessageType != chessdto.MessageLoadGame || m.Game.WhiteUsername != "white" {
		t.Fatalf("white join: %+v", m)
	}
	send(t, black, chessdto.Command{CommandType: chessdto.CommandJoinPlayer, AuthToken: "tb", GameID: env.gameID, PlayerColor: "BLACK"})
	if m := recv(t, black); m.ServerMessageType != chessdto.MessageLoadGame {
		t.Fatalf("black join: %+v", m)
	}
	if m := recv(t, white); m.ServerMessageType != chessdto.MessageNotification || !strings.Contains(m.Message, "black") {
		t.Fatalf("white should hear black join: %+v", m)
	}

	// malformed input gets an ERROR and the socket stays usable
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := white.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	cancel()
	if m := recv(t, white); m.ServerMessageType != chessdto.MessageError || m.ErrorCode != chessdto.CodeBadRequest {
		t.Fatalf("expected BAD_REQUEST, got %+v", m)
	}

	move := chessdto.Move{Start: chessdto.Position{Row: 2, Col: 5}, End: chessdto.Position{Row: 4, Col: 5}}
	send(t, white, chessdto.Command{CommandType: chessdto.CommandMakeMove, AuthToken: "tw", GameID: env.gameID, Move: &move})
	if m := recv(t, white); m.ServerMessageType != chessdto.MessageLoadGame || m.Game.State.Ply != 1 {
		t.Fatalf("white state after move: %+v", m)
	}
	if m := recv(t, black); m.ServerMessageType != chessdto.MessageLoadGame {
		t.Fatalf("black state after move: %+v", m)
	}
	if m := recv(t, black); m.Message != "white played e4" {
		t.Fatalf("black move notification: %+v", m)
	}

	_ = white.Close(websocket.StatusNormalClosure, "done")
	if m := recv(t, black); m.ServerMessageType != chessdto.MessageNotification || !strings.Contains(m.Message, "left") {
		t.Fatalf("black should see white leave: %+v", m)
	}

	resp, err := http.Get(env.srv.URL + "/api/games/" + env.gameID)
	if err != nil {
		t.Fatalf("GET game: %v", err)
	}
	defer resp.Body.Close()
	var v chessdto.GameView
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if resp.StatusCode != http.StatusOK || v.State.Ply != 1 || v.WhiteUsername != "" || v.BlackUsername != "black" {
		t.Fatalf("unexpected view %d %+v", resp.StatusCode, v)
	}
}

func TestHTTPAPI(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.srv.URL + "/healthz")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %v %v", resp, err)
	}
	resp.Body.Close()

	resp, err = http.Get(env.srv.URL + "/api/games/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing game status %d", resp.StatusCode)
	}

	resp, err = http.Post(env.srv.URL+"/api/games", "application/json", strings.NewReader(`{"gameName":"friday"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var v chessdto.GameView
	_ = json.NewDecoder(resp.Body).Decode(&v)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || v.GameID == "" || v.GameName != "friday" {
		t.Fatalf("create: %d %+v", resp.StatusCode, v)
	}

	resp, err = http.Post(env.srv.URL+"/api/games", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty name status %d", resp.StatusCode)
	}
}

func TestHubDropsSlowConsumer(t *testing.T) {
	h := NewHub(1, nil)
	c := h.register("c1")
	if err := h.Send("c1", []byte("a")); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := h.Send("c1", []byte("b")); err != ErrSlowConsumer {
		t.Fatalf("expected ErrSlowConsumer, got %v", err)
	}
	select {
	case <-c.dropped:
	default:
		t.Fatalf("client not dropped")
	}
	if c.code != websocket.StatusPolicyViolation {
		t.Fatalf("drop code %v", c.code)
	}
	if err := h.Send("zz", nil); err != ErrUnknownConn {
		t.Fatalf("expected ErrUnknownConn, got %v", err)
	}
	h.unregister("c1")
	if h.Count() != 0 {
		t.Fatalf("count after unregister %d", h.Count())
	}
}

func (e *testEnv) view(t *testing.T) chessdto.GameView {
	t.Helper()
	resp, err := http.Get(e.srv.URL + "/api/games/" + e.gameID)
	if err != nil {
		t.Fatalf("GET game: %v", err)
	}
	defer resp.Body.Close()
	var v chessdto.GameView
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET game status %d", resp.StatusCode)
	}
	return v
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (e *testEnv) seat(t *testing.T) (white, black *websocket.Conn) {
	t.Helper()
	white = e.dial(t)
	black = e.dial(t)
	send(t, white, chessdto.Command{CommandType: chessdto.CommandJoinPlayer, AuthToken: "tw", GameID: e.gameID, PlayerColor: "WHITE"})
	recv(t, white)
	send(t, black, chessdto.Command{CommandType: chessdto.CommandJoinPlayer, AuthToken: "tb", GameID: e.gameID, PlayerColor: "BLACK"})
	recv(t, black)
	recv(t, white)
	return white, black
}

func TestCloseRightAfterMove(t *testing.T) {
	env := newTestEnv(t)
	white, black := env.seat(t)

	move := chessdto.Move{Start: chessdto.Position{Row: 2, Col: 5}, End: chessdto.Position{Row: 4, Col: 5}}
	send(t, white, chessdto.Command{CommandType: chessdto.CommandMakeMove, AuthToken: "tw", GameID: env.gameID, Move: &move})
	_ = white.CloseNow()

	var v chessdto.GameView
	waitFor(t, "white to leave", func() bool {
		v = env.view(t)
		return v.WhiteUsername == ""
	})
	if v.State.Ply != 1 || len(v.MovesSAN) != 1 || v.MovesSAN[0] != "e4" {
		t.Fatalf("move was not applied before the leave: %+v", v)
	}
	if v.BlackUsername != "black" {
		t.Fatalf("black seat changed: %q", v.BlackUsername)
	}

	if m := recv(t, black); m.ServerMessageType != chessdto.MessageLoadGame || m.Game.State.Ply != 1 {
		t.Fatalf("black should get the new state first: %+v", m)
	}
	if m := recv(t, black); m.Message != "white played e4" {
		t.Fatalf("black move notification: %+v", m)
	}
	if m := recv(t, black); !strings.Contains(m.Message, "seat is open") {
		t.Fatalf("black should see the seat open last: %+v", m)
	}
}

func TestShutdownClosesSockets(t *testing.T) {
	env := newTestEnv(t)
	white, black := env.seat(t)

	// read in the background so the clients answer the close handshake
	closed := make(chan error, 2)
	for _, conn := range []*websocket.Conn{white, black} {
		go func(conn *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			for {
				if _, _, err := conn.Read(ctx); err != nil {
					closed <- err
					return
				}
			}
		}(conn)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := env.ws.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if env.hub.Count() != 0 {
		t.Fatalf("hub still holds %d connections", env.hub.Count())
	}
	for i := 0; i < 2; i++ {
		if err := <-closed; websocket.CloseStatus(err) != websocket.StatusGoingAway {
			t.Fatalf("expected going-away close, got %v", err)
		}
	}

	// every socket left its game before Shutdown returned
	v, err := env.coord.View(ctx, env.gameID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if v.WhiteUsername != "" || v.BlackUsername != "" {
		t.Fatalf("seats not freed on shutdown: %+v", v)
	}
	if err := env.coord.Close(ctx); err != nil {
		t.Fatalf("coordinator Close: %v", err)
	}

	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"
	if _, resp, err := websocket.Dial(ctx, url, nil); err == nil {
		t.Fatalf("dial after shutdown succeeded")
	} else if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("dial after shutdown: %v %v", resp, err)
	}
}
