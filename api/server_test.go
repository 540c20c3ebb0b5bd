package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/wricardo/sliding-blocks/game/config"
	"github.com/wricardo/sliding-blocks/game/engine"
	"github.com/wricardo/sliding-blocks/game/service"
	"github.com/wricardo/sliding-blocks/game/session"
	"github.com/wricardo/sliding-blocks/transport/websocket"
)

const classicPuzzle = "5 5\n.V...\n..V..\nH.T..\n..H.H\n....V\n"

// newTestServer wires the real managers over a temporary puzzle directory.
func newTestServer(t *testing.T) (*Server, *websocket.Hub) {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "classic.txt"), []byte(classicPuzzle), 0644); err != nil {
		t.Fatalf("Failed to write puzzle: %v", err)
	}

	puzzles, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create puzzle manager: %v", err)
	}

	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Close)

	svc := service.NewGameService(session.NewManager(), puzzles)
	return NewServer(svc, hub), hub
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := doRequest(t, h, "POST", "/api/sessions", map[string]string{"puzzle_id": "classic"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create session: status %d: %s", rr.Code, rr.Body.String())
	}
	var info service.SessionInfo
	decode(t, rr, &info)
	return info.ID
}

func TestHealthAndIndex(t *testing.T) {
	server, _ := newTestServer(t)

	rr := doRequest(t, server, "GET", "/health", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "healthy") {
		t.Errorf("health: %d %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, server, "GET", "/api", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("index: %d", rr.Code)
	}
}

func TestCreateSession(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantPuzzle string
	}{
		{"default puzzle with empty body", nil, http.StatusCreated, "classic"},
		{"explicit puzzle", map[string]string{"puzzle_id": "classic"}, http.StatusCreated, "classic"},
		{"unknown puzzle", map[string]string{"puzzle_id": "nope"}, http.StatusNotFound, ""},
		{"puzzle outside directory", map[string]string{"puzzle_id": "../classic"}, http.StatusNotFound, ""},
		{"bad json", "{", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, server, "POST", "/api/sessions", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantPuzzle == "" {
				return
			}
			var info service.SessionInfo
			decode(t, rr, &info)
			if info.PuzzleID != tt.wantPuzzle || info.ID == "" {
				t.Errorf("unexpected session: %+v", info)
			}
			if info.GameState == nil || info.GameState.Layout[2] != "H.T.." {
				t.Errorf("unexpected initial state: %+v", info.GameState)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	server, _ := newTestServer(t)
	id := createSession(t, server)
	createSession(t, server)

	rr := doRequest(t, server, "GET", "/api/sessions?limit=1&sort=created&order=asc", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: %d", rr.Code)
	}
	var list struct {
		Count    int                    `json:"count"`
		Total    int                    `json:"total"`
		Sessions []*service.SessionInfo `json:"sessions"`
	}
	decode(t, rr, &list)
	if list.Count != 1 || list.Total != 2 || len(list.Sessions) != 1 {
		t.Errorf("unexpected list: count=%d total=%d", list.Count, list.Total)
	}

	rr = doRequest(t, server, "GET", "/api/sessions/"+strings.ToUpper(id), nil)
	if rr.Code != http.StatusOK {
		t.Errorf("get (case-insensitive): %d", rr.Code)
	}

	rr = doRequest(t, server, "DELETE", "/api/sessions/"+id, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("delete: %d", rr.Code)
	}

	rr = doRequest(t, server, "GET", "/api/sessions/"+id, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d", rr.Code)
	}
	rr = doRequest(t, server, "DELETE", "/api/sessions/"+id, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete: %d", rr.Code)
	}
}

func TestMove(t *testing.T) {
	server, _ := newTestServer(t)
	id := createSession(t, server)
	path := "/api/sessions/" + id + "/move"

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantOK     bool
		wantReason string
	}{
		{"vertical down", map[string]interface{}{"row": 0, "col": 1, "direction": "down", "distance": 2}, http.StatusOK, true, ""},
		{"distance defaults to one", map[string]interface{}{"row": 2, "col": 1, "direction": "u", "reset": false}, http.StatusOK, true, ""},
		{"wrong axis", map[string]interface{}{"row": 2, "col": 0, "direction": "up", "distance": 1}, http.StatusOK, false, "invalid_direction"},
		{"empty cell", map[string]interface{}{"row": 4, "col": 0, "direction": "right", "distance": 1}, http.StatusOK, false, "no_piece"},
		{"off board", map[string]interface{}{"row": 2, "col": 2, "direction": "right", "distance": 5}, http.StatusOK, false, "out_of_bounds"},
		{"zero distance", map[string]interface{}{"row": 2, "col": 2, "direction": "right", "distance": 0}, http.StatusOK, false, "invalid_distance"},
		{"unknown direction", map[string]interface{}{"row": 2, "col": 2, "direction": "diagonal"}, http.StatusBadRequest, false, ""},
		{"bad json", "{", http.StatusBadRequest, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, server, "POST", path, tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if rr.Code != http.StatusOK {
				return
			}
			var result service.MoveResult
			decode(t, rr, &result)
			if result.Success != tt.wantOK || result.Reason != tt.wantReason {
				t.Errorf("success=%v reason=%q, want %v %q", result.Success, result.Reason, tt.wantOK, tt.wantReason)
			}
		})
	}

	rr := doRequest(t, server, "POST", "/api/sessions/none/move", map[string]interface{}{"row": 0, "col": 1, "direction": "down"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown session: %d", rr.Code)
	}
}

func TestMoveBlockedAndSolved(t *testing.T) {
	server, _ := newTestServer(t)
	id := createSession(t, server)
	path := "/api/sessions/" + id + "/move"

	rr := doRequest(t, server, "POST", path, map[string]interface{}{"row": 2, "col": 0, "direction": "right", "distance": 2})
	var blocked service.MoveResult
	decode(t, rr, &blocked)
	if blocked.Success || blocked.Reason != "blocked" {
		t.Fatalf("expected blocked move, got %+v", blocked)
	}
	if blocked.Step.Blocker == nil || blocked.Step.Blocker.Col != 2 {
		t.Errorf("expected blocker at column 2, got %+v", blocked.Step.Blocker)
	}

	rr = doRequest(t, server, "POST", path, map[string]interface{}{"row": 2, "col": 2, "direction": "right", "distance": 2})
	var solved service.MoveResult
	decode(t, rr, &solved)
	if !solved.Success || !solved.Solved || !solved.GameState.Solved {
		t.Fatalf("expected solving move, got %+v", solved)
	}

	rr = doRequest(t, server, "POST", path, map[string]interface{}{"row": 0, "col": 1, "direction": "down"})
	var after service.MoveResult
	decode(t, rr, &after)
	if after.Success || after.Reason != service.ReasonAlreadySolved {
		t.Errorf("expected already_solved, got %+v", after)
	}

	rr = doRequest(t, server, "GET", "/api/sessions/"+id+"/board", nil)
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("board content type = %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "H...T") {
		t.Errorf("board should show target at the exit:\n%s", rr.Body.String())
	}
}

func TestBulkMove(t *testing.T) {
	server, _ := newTestServer(t)
	id := createSession(t, server)
	path := "/api/sessions/" + id + "/bulk-move"

	body := `{"moves": ["0 1 down 2", {"row": 1, "col": 2, "direction": "up"}, "2 2 r 2", "0 2 d 1"]}`
	rr := doRequest(t, server, "POST", path, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}

	var result service.BulkMoveResult
	decode(t, rr, &result)
	if result.RequestedMoves != 4 || result.MovesExecuted != 3 {
		t.Errorf("requested=%d executed=%d, want 4/3", result.RequestedMoves, result.MovesExecuted)
	}
	if !result.Solved || result.StopReasonCode != service.ReasonSolved || result.StoppedOnMove != 3 {
		t.Errorf("expected stop on solve at move 3, got %+v", result)
	}
	if len(result.Steps) != 3 {
		t.Errorf("expected 3 steps, got %d", len(result.Steps))
	}

	rr = doRequest(t, server, "POST", path, `{"moves": ["0 1 sideways"]}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad move string: status %d", rr.Code)
	}

	rr = doRequest(t, server, "POST", path, `{"moves": ["2 0 right 2"], "reset": true}`)
	decode(t, rr, &result)
	if result.Success || result.StopReasonCode != "blocked" || result.Solved {
		t.Errorf("expected blocked after reset, got %+v", result)
	}
}

func TestResetHistoryAndMoves(t *testing.T) {
	server, _ := newTestServer(t)
	id := createSession(t, server)
	base := "/api/sessions/" + id

	for i := 0; i < 3; i++ {
		dir := "up"
		row := 1
		if i%2 == 1 {
			dir, row = "down", 0
		}
		doRequest(t, server, "POST", base+"/move", map[string]interface{}{"row": row, "col": 2, "direction": dir})
	}

	rr := doRequest(t, server, "GET", base+"/history?limit=2&order=asc", nil)
	var history service.HistoryResponse
	decode(t, rr, &history)
	if history.TotalMoves != 3 || len(history.Moves) != 2 || !history.HasNext {
		t.Errorf("unexpected history page: %+v", history)
	}
	if history.Moves[0].MoveNumber != 1 {
		t.Errorf("asc order should start at move 1, got %d", history.Moves[0].MoveNumber)
	}

	rr = doRequest(t, server, "GET", base+"/moves", nil)
	var moves struct {
		Count int                 `json:"count"`
		Moves []engine.MoveOption `json:"moves"`
	}
	decode(t, rr, &moves)
	if moves.Count == 0 || moves.Count != len(moves.Moves) {
		t.Errorf("unexpected possible moves: %+v", moves)
	}

	rr = doRequest(t, server, "POST", base+"/reset", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("reset: %d", rr.Code)
	}
	var reset struct {
		State engine.GameState `json:"state"`
	}
	decode(t, rr, &reset)
	if reset.State.Layout[1] != "..V.." || reset.State.CurrentMovesCount != 0 {
		t.Errorf("unexpected state after reset: %+v", reset.State)
	}

	rr = doRequest(t, server, "GET", "/api/sessions/none/history", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("history for unknown session: %d", rr.Code)
	}
}

func TestPuzzleEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	rr := doRequest(t, server, "POST", "/api/puzzles", map[string]interface{}{
		"name":   "tiny",
		"layout": []string{"T.", "V."},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create puzzle: %d %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, server, "POST", "/api/puzzles", map[string]interface{}{
		"name": "textual",
		"text": "1 3\nT..\n",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create puzzle from text: %d %s", rr.Code, rr.Body.String())
	}

	invalid := []struct {
		name string
		body map[string]interface{}
		code string
	}{
		{"target blocked", map[string]interface{}{"name": "x", "layout": []string{"TH"}}, "target_blocked"},
		{"two targets", map[string]interface{}{"name": "x", "layout": []string{"T.", "T."}}, "wrong_target_count"},
		{"bad glyph", map[string]interface{}{"name": "x", "text": "1 2\nTZ\n"}, "invalid_board_content"},
		{"zero size", map[string]interface{}{"name": "x", "text": "0 3\n"}, "invalid_board_size"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, server, "POST", "/api/puzzles", tt.body)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status %d, want 422: %s", rr.Code, rr.Body.String())
			}
			var body map[string]string
			decode(t, rr, &body)
			if body["code"] != tt.code {
				t.Errorf("code = %q, want %q", body["code"], tt.code)
			}
		})
	}

	rr = doRequest(t, server, "POST", "/api/puzzles", map[string]interface{}{"layout": []string{"T."}})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing name: %d", rr.Code)
	}

	rr = doRequest(t, server, "GET", "/api/puzzles", nil)
	var infos []service.PuzzleInfo
	decode(t, rr, &infos)
	if len(infos) != 3 {
		t.Errorf("expected 3 puzzles, got %d", len(infos))
	}

	rr = doRequest(t, server, "GET", "/api/puzzles/tiny.txt", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get puzzle: %d", rr.Code)
	}
	var got struct {
		PuzzleID string   `json:"puzzle_id"`
		Layout   []string `json:"layout"`
		Text     string   `json:"text"`
	}
	decode(t, rr, &got)
	if got.PuzzleID != "tiny" || got.Text != "2 2\nT.\nV.\n" {
		t.Errorf("unexpected puzzle: %+v", got)
	}

	rr = doRequest(t, server, "GET", "/api/puzzles/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing puzzle: %d", rr.Code)
	}

	// New sessions can use the stored puzzle
	rr = doRequest(t, server, "POST", "/api/sessions", map[string]string{"puzzle_id": "tiny"})
	if rr.Code != http.StatusCreated {
		t.Errorf("session on saved puzzle: %d", rr.Code)
	}
}

func TestWebSocketReceivesMoves(t *testing.T) {
	server, hub := newTestServer(t)
	ts := httptest.NewServer(server)
	defer ts.Close()

	id := createSession(t, server)

	rr := doRequest(t, server, "GET", "/ws", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing session param: %d", rr.Code)
	}
	rr = doRequest(t, server, "GET", "/ws?session=none", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown session: %d", rr.Code)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=" + id
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	read := func() websocket.Message {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg websocket.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return msg
	}

	if msg := read(); msg.Event != websocket.EventSnapshot {
		t.Errorf("first frame = %q, want snapshot", msg.Event)
	}

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount(id) != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	doRequest(t, server, "POST", "/api/sessions/"+id+"/move", map[string]interface{}{"row": 2, "col": 2, "direction": "right"})

	msg := read()
	if msg.Event != websocket.EventStateUpdate || msg.GameState.Layout[2] != "H..T." {
		t.Errorf("unexpected update: %+v", msg)
	}
}

// MockGameService implements service.GameService for error mapping tests
type MockGameService struct {
	service.GameService
	err error
}

func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	return nil, m.err
}

func (m *MockGameService) CreateSession(ctx context.Context, puzzleID string) (*service.SessionInfo, error) {
	return nil, m.err
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{fmt.Errorf("session not found: %w", session.ErrSessionNotFound), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", service.ErrPuzzleNotFound), http.StatusNotFound},
		{session.ErrSessionAlreadyExists, http.StatusConflict},
		{fmt.Errorf("%w: bad", session.ErrInvalidSessionID), http.StatusBadRequest},
		{fmt.Errorf("%w: %w", config.ErrInvalidPuzzle, engine.ErrTargetBlocked), http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			server := NewServer(&MockGameService{err: tt.err}, nil)

			rr := doRequest(t, server, "GET", "/api/sessions/abcd/state", nil)
			if rr.Code != tt.wantStatus {
				t.Errorf("state: status %d, want %d", rr.Code, tt.wantStatus)
			}
			rr = doRequest(t, server, "POST", "/api/sessions", nil)
			if rr.Code != tt.wantStatus {
				t.Errorf("create: status %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}

	server := NewServer(&MockGameService{}, nil)
	rr := doRequest(t, server, "GET", "/ws?session=abcd", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("ws without hub: %d", rr.Code)
	}
}
