package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"sheets-quiz-service/internal/app"
	"sheets-quiz-service/internal/domain"
	"sheets-quiz-service/internal/infra/memory"
)

func TestWebSocketSessionFlow(t *testing.T) {
	gateway := memory.NewGateway(twoQuestionContent(), nil)
	server := newWSTestServer(gateway)
	defer server.Close()

	conn := dialWS(t, server, "alice@x.com", "Alice")
	defer conn.Close()

	// Initial state frame.
	view := readState(t, conn)
	if view.Total != 2 || view.Index != 0 {
		t.Fatalf("unexpected initial state: %+v", view)
	}
	if view.Question.CorrectAnswer != "" {
		t.Fatalf("exam mode must not expose the correct answer: %+v", view.Question)
	}

	writeMsg(t, conn, "select", map[string]any{"option": "right"})
	view = readStateUntil(t, conn, func(v app.SessionView) bool { return v.Question.Selected == "right" })
	if view.Question.Selected != "right" {
		t.Fatalf("expected selection recorded, got %+v", view.Question)
	}

	writeMsg(t, conn, "next", nil)
	view = readStateUntil(t, conn, func(v app.SessionView) bool { return v.Index == 1 })
	if view.Index != 1 {
		t.Fatalf("expected index 1 after next, got %d", view.Index)
	}

	writeMsg(t, conn, "submit", nil)
	finished := readFinished(t, conn)
	if finished.Result.TotalQuestions != 2 || finished.Result.Score != 1 {
		t.Fatalf("expected score 1 of 2, got %d of %d", finished.Result.Score, finished.Result.TotalQuestions)
	}
	if !finished.Saved || finished.SaveError != "" {
		t.Fatalf("expected result saved, got %+v", finished)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(gateway.Results()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if rows := gateway.Results(); len(rows) != 1 || rows[0].UserEmail != "alice@x.com" {
		t.Fatalf("expected one persisted result for alice, got %+v", rows)
	}
}

func TestWebSocketRefusesSecondLiveAttempt(t *testing.T) {
	gateway := memory.NewGateway(twoQuestionContent(), nil)
	server := newWSTestServer(gateway)
	defer server.Close()

	first := dialWS(t, server, "alice@x.com", "Alice")
	defer first.Close()
	readState(t, first)

	second := dialWS(t, server, "alice@x.com", "Alice")
	defer second.Close()

	var frame wireFrame
	if err := second.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame.Type != "error" {
		t.Fatalf("expected error frame for concurrent attempt, got %q", frame.Type)
	}
}

func TestWebSocketRejectsRestrictedUser(t *testing.T) {
	content := twoQuestionContent()
	content.Settings.AllowlistEnabled = true
	gateway := memory.NewGateway(content, []string{"a@x.com"})
	server := newWSTestServer(gateway)
	defer server.Close()

	conn := dialWS(t, server, "b@x.com", "Bob")
	defer conn.Close()

	var frame wireFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame.Type != "rejected" {
		t.Fatalf("expected rejected frame, got %q", frame.Type)
	}
	var payload restrictedResponse
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.IsRestricted {
		t.Fatalf("expected isRestricted, got %+v", payload)
	}
}

// --- helpers ---

type wireFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newWSTestServer(gateway *memory.Gateway) *httptest.Server {
	quizRepo := memory.NewQuizRepository(gateway, time.Minute)
	service := app.NewQuizService("sheet-1", quizRepo, gateway, memory.NewSessionStore(), nil)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	return httptest.NewServer(mux)
}

func dialWS(t *testing.T, server *httptest.Server, email, name string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?email=" + email + "&name=" + name
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func writeMsg(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	msg := map[string]any{"type": msgType}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// readState skips periodic countdown frames until a state frame arrives.
func readState(t *testing.T, conn *websocket.Conn) app.SessionView {
	t.Helper()
	return readStateUntil(t, conn, func(app.SessionView) bool { return true })
}

// readStateUntil reads state frames until one satisfies the predicate; a
// countdown snapshot queued just before a mutation may still show older state.
func readStateUntil(t *testing.T, conn *websocket.Conn, accept func(app.SessionView) bool) app.SessionView {
	t.Helper()
	var last app.SessionView
	for i := 0; i < 10; i++ {
		var frame wireFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read: %v", err)
		}
		if frame.Type != "state" {
			continue
		}
		if err := json.Unmarshal(frame.Payload, &last); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if accept(last) {
			return last
		}
	}
	t.Fatalf("no matching state frame received, last: %+v", last)
	return app.SessionView{}
}

func readFinished(t *testing.T, conn *websocket.Conn) finishedPayload {
	t.Helper()
	for i := 0; i < 10; i++ {
		var frame wireFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read: %v", err)
		}
		if frame.Type != "finished" {
			continue
		}
		var payload finishedPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			t.Fatalf("decode finished: %v", err)
		}
		return payload
	}
	t.Fatalf("no finished frame received")
	return finishedPayload{}
}

func twoQuestionContent() domain.QuizContent {
	return domain.QuizContent{
		Settings: domain.QuizSettings{
			Title:           "WS Fixture",
			DurationMinutes: 5,
			Mode:            domain.ModeExam,
		},
		Questions: []domain.Question{
			{ID: "0", Prompt: "Pick right", Options: []string{"right", "wrong"}, CorrectAnswer: "right"},
			{ID: "1", Prompt: "Pick left", Options: []string{"left", "up"}, CorrectAnswer: "left"},
		},
	}
}
