package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"sheets-quiz-service/internal/app"
	"sheets-quiz-service/internal/domain"
)

// WSHandler hosts live quiz sessions over a websocket: it admits the user,
// runs the timed session state machine server-side, and persists the result
// when the session terminates.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Option string `json:"option"`
}

type jumpPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type finishedPayload struct {
	Result    domain.QuizResult `json:"result"`
	Saved     bool              `json:"saved"`
	SaveError string            `json:"saveError,omitempty"`
}

// ServeWS upgrades the request and runs one quiz attempt over the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	name := r.URL.Query().Get("name")
	if email == "" || name == "" {
		http.Error(w, "missing email or name", http.StatusBadRequest)
		return
	}
	user := app.User{Name: name, Email: email}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, admission, err := h.service.StartSession(r.Context(), user)
	if err != nil {
		if errors.Is(err, domain.ErrAttemptInProgress) {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
		log.Printf("start session failed for %s: %v", email, err)
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	if !admission.Allowed {
		_ = conn.WriteJSON(outboundMessage[restrictedResponse]{Type: "rejected", Payload: restrictedResponse{
			Error:            admission.Reason,
			IsRestricted:     admission.Restricted,
			AlreadyCompleted: admission.AlreadyCompleted,
		}})
		return
	}
	defer h.service.CloseSession(user)

	session.Start(r.Context())

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	countdownDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// Pushes a state frame each second and the final result when the session
	// terminates, from either trigger.
	go func() {
		defer close(countdownDone)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: session.Snapshot()}:
				case <-closeSignals:
					return
				}
			case <-session.Done():
				result, _ := session.Result()
				payload := finishedPayload{Result: result, Saved: true}
				// The connection context may be gone by the time the append
				// finishes; the save must not depend on it.
				saveAdmission, err := h.service.SubmitResult(context.Background(), result)
				if err != nil {
					log.Printf("save result failed for %s: %v", email, err)
					payload.Saved = false
					payload.SaveError = err.Error()
				} else if !saveAdmission.Allowed {
					payload.Saved = false
					payload.SaveError = saveAdmission.Reason
				}
				select {
				case send <- outboundMessage[any]{Type: "finished", Payload: payload}:
				case <-closeSignals:
				}
				return
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "state", Payload: session.Snapshot()}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid select payload"}}
				continue
			}
			session.Select(payload.Option)
		case "next":
			session.Next()
		case "prev":
			session.Prev()
		case "jump":
			var payload jumpPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid jump payload"}}
				continue
			}
			session.Jump(payload.Index)
		case "submit":
			// Termination is idempotent; the countdown goroutine emits the
			// single finished frame.
			session.Submit()
			continue
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
			continue
		}
		send <- outboundMessage[any]{Type: "state", Payload: session.Snapshot()}
	}

	close(closeSignals)
	<-countdownDone
	close(send)
	<-writerDone
}
