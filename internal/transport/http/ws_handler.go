package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quizdesk/internal/app"
)

// WSHandler exposes the quiz application over a websocket: the desktop client
// renders what it is sent (question snapshots, timer ticks, scores) and sends
// back user intents. All session state lives server-side.
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

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type startPayload struct {
	Category string `json:"category"`
}

type answerPayload struct {
	Option string `json:"option"`
}

type welcomePayload struct {
	Username   string   `json:"username"`
	Categories []string `json:"categories"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the connection and runs the message loop until the client
// goes away. Closing the connection mid-quiz abandons the session: the
// countdown is cancelled and nothing is persisted.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	var username string
	var subCancel func()
	var pumpDone chan struct{}

	// unsubscribe tears down the current session event pump, if any.
	unsubscribe := func() {
		if subCancel == nil {
			return
		}
		subCancel()
		<-pumpDone
		subCancel = nil
	}

	subscribe := func(session *app.Session) {
		events, cancel := session.Subscribe()
		subCancel = cancel
		pumpDone = make(chan struct{})
		done := pumpDone
		go func() {
			defer close(done)
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return
					}
					select {
					case send <- eventMessage(ev):
					case <-closeSignals:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}()
	}

	reply := func(msgType string, payload any) {
		select {
		case send <- outboundMessage[any]{Type: msgType, Payload: payload}:
		case <-closeSignals:
		}
	}
	fail := func(err error) {
		reply("error", errorPayload{Message: err.Error()})
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		switch inbound.Type {
		case "register":
			var creds credentialsPayload
			if err := json.Unmarshal(inbound.Payload, &creds); err != nil {
				reply("error", errorPayload{Message: "invalid register payload"})
				continue
			}
			if err := h.service.Register(ctx, creds.Username, creds.Password); err != nil {
				fail(err)
				continue
			}
			reply("registered", struct{}{})

		case "login":
			var creds credentialsPayload
			if err := json.Unmarshal(inbound.Payload, &creds); err != nil {
				reply("error", errorPayload{Message: "invalid login payload"})
				continue
			}
			account, err := h.service.Login(ctx, creds.Username, creds.Password)
			if err != nil {
				fail(err)
				continue
			}
			username = account.Username
			reply("welcome", welcomePayload{Username: account.Username, Categories: h.service.Categories()})

		case "categories":
			reply("categories", h.service.Categories())

		case "start":
			if username == "" {
				reply("error", errorPayload{Message: "login required"})
				continue
			}
			var start startPayload
			if err := json.Unmarshal(inbound.Payload, &start); err != nil {
				reply("error", errorPayload{Message: "invalid start payload"})
				continue
			}
			unsubscribe()
			session, err := h.service.StartQuiz(ctx, username, start.Category)
			if err != nil {
				fail(err)
				continue
			}
			subscribe(session)

		case "answer":
			session, err := h.sessionFor(username)
			if err != nil {
				fail(err)
				continue
			}
			var answer answerPayload
			if err := json.Unmarshal(inbound.Payload, &answer); err != nil {
				reply("error", errorPayload{Message: "invalid answer payload"})
				continue
			}
			if err := session.SelectAnswer(answer.Option); err != nil {
				fail(err)
			}

		case "next":
			session, err := h.sessionFor(username)
			if err != nil {
				fail(err)
				continue
			}
			if err := session.Next(); err != nil {
				fail(err)
			}

		case "prev":
			session, err := h.sessionFor(username)
			if err != nil {
				fail(err)
				continue
			}
			if err := session.Prev(); err != nil {
				fail(err)
			}

		case "finish":
			session, err := h.sessionFor(username)
			if err != nil {
				fail(err)
				continue
			}
			// The final score reaches the client via the finished event.
			if _, err := session.Finish(); err != nil {
				fail(err)
			}

		case "myScores":
			if username == "" {
				reply("error", errorPayload{Message: "login required"})
				continue
			}
			records, err := h.service.MyScores(ctx, username)
			if err != nil {
				fail(err)
				continue
			}
			reply("scores", records)

		case "leaderboard":
			records, err := h.service.Leaderboard(ctx)
			if err != nil {
				fail(err)
				continue
			}
			reply("leaderboard", records)

		default:
			reply("error", errorPayload{Message: "unsupported message type"})
		}
	}

	close(closeSignals)
	unsubscribe()
	if username != "" {
		h.service.Abandon(username)
	}
	close(send)
	<-writerDone
}

func (h *WSHandler) sessionFor(username string) (*app.Session, error) {
	if username == "" {
		return nil, errLoginRequired
	}
	return h.service.SessionFor(username)
}

var errLoginRequired = errors.New("login required")

func eventMessage(ev app.Event) outboundMessage[any] {
	switch ev.Type {
	case app.EventQuestion:
		return outboundMessage[any]{Type: "question", Payload: ev.Question}
	case app.EventTick:
		return outboundMessage[any]{Type: "tick", Payload: ev.Tick}
	case app.EventFinished:
		return outboundMessage[any]{Type: "finished", Payload: ev.Result}
	default:
		return outboundMessage[any]{Type: string(ev.Type)}
	}
}
