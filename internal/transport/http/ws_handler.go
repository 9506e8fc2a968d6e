package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"hw-quiz-service/internal/app"
	"hw-quiz-service/internal/domain"
)

// WSHandler runs the live attempt surface: one websocket per client, view
// snapshots and timer ticks flowing out, navigation and answer commands
// flowing in.
type WSHandler struct {
	auth     *app.AuthService
	attempts *app.AttemptManager
	upgrader websocket.Upgrader
}

func NewWSHandler(auth *app.AuthService, attempts *app.AttemptManager) *WSHandler {
	return &WSHandler{
		auth:     auth,
		attempts: attempts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type wsCommand struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wsOutbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type wsError struct {
	Message string `json:"message"`
}

type confirmPrompt struct {
	Unanswered int `json:"unanswered"`
}

type goToPayload struct {
	Index int `json:"index"`
}

type choicePayload struct {
	Option int `json:"option"`
}

type blankPayload struct {
	Blank int `json:"blank"`
	Token int `json:"token"`
}

type submitPayload struct {
	Confirmed bool `json:"confirmed"`
}

// ServeWS upgrades the request and binds the connection to the token's
// attempt, creating one for the selected quiz if none is live yet.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	sess, err := h.auth.RequireSession(r.Context(), token)
	if err != nil {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	selected, err := h.auth.SelectedQuiz(r.Context(), token)
	if err != nil {
		http.Error(w, "no quiz selected", http.StatusConflict)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	attempt, ok := h.attempts.Get(token)
	if !ok || attempt.Quiz() != selected {
		attempt = h.attempts.Open(token, sess.Account, r.UserAgent(), selected)
	}

	events, cancel := attempt.Subscribe()
	defer cancel()

	send := make(chan wsOutbound, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("ws write failed")
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundOf(ev):
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	h.readLoop(conn, r, token, attempt, send)

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func outboundOf(ev app.Event) wsOutbound {
	switch ev.Kind {
	case "timer":
		return wsOutbound{Type: "timer", Payload: ev.Timer}
	case "result":
		return wsOutbound{Type: "result", Payload: ev.Result}
	default:
		return wsOutbound{Type: "view", Payload: ev.View}
	}
}

func (h *WSHandler) readLoop(conn *websocket.Conn, r *http.Request, token string, attempt *app.Attempt, send chan<- wsOutbound) {
	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		switch cmd.Type {
		case "start":
			if err := attempt.Start(r.Context()); err != nil {
				send <- wsOutbound{Type: "error", Payload: wsError{Message: err.Error()}}
			}
		case "prev":
			attempt.Prev()
		case "next":
			attempt.Next()
		case "goto":
			var p goToPayload
			if decodePayload(cmd.Payload, &p, send) {
				attempt.GoTo(p.Index)
			}
		case "choice":
			var p choicePayload
			if decodePayload(cmd.Payload, &p, send) {
				attempt.SelectChoice(p.Option)
			}
		case "blank":
			var p blankPayload
			if decodePayload(cmd.Payload, &p, send) {
				attempt.SelectBlank(p.Blank, p.Token)
			}
		case "submit":
			var p submitPayload
			if !decodePayload(cmd.Payload, &p, send) {
				continue
			}
			err := attempt.Submit(p.Confirmed)
			var confirm *app.ConfirmRequiredError
			switch {
			case errors.As(err, &confirm):
				send <- wsOutbound{Type: "confirm_submit", Payload: confirmPrompt{Unanswered: confirm.Unanswered}}
			case errors.Is(err, domain.ErrAttemptLocked):
				send <- wsOutbound{Type: "error", Payload: wsError{Message: "attempt already submitted"}}
			case err != nil:
				send <- wsOutbound{Type: "error", Payload: wsError{Message: err.Error()}}
			}
		case "restart":
			if err := attempt.Restart(); err != nil {
				send <- wsOutbound{Type: "error", Payload: wsError{Message: err.Error()}}
			}
		case "back":
			attempt.BackToPicker()
			if err := h.auth.ClearSelected(r.Context(), token); err != nil {
				log.Warn().Err(err).Msg("clearing quiz selection failed")
			}
		default:
			send <- wsOutbound{Type: "error", Payload: wsError{Message: "unsupported message type"}}
		}
	}
}

func decodePayload(raw json.RawMessage, out any, send chan<- wsOutbound) bool {
	if len(raw) == 0 {
		// Zero-value payload is fine for optional bodies like submit.
		return true
	}
	if err := json.Unmarshal(raw, out); err != nil {
		send <- wsOutbound{Type: "error", Payload: wsError{Message: "invalid payload"}}
		return false
	}
	return true
}
