package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"quiz-live-service/internal/app"
	"quiz-live-service/internal/domain"
)

var errInvalidPayload = fmt.Errorf("%w: invalid payload", domain.ErrValidation)

// ConnectionRegistry owns the outbound queue of each local connection.
type ConnectionRegistry interface {
	Register(handle domain.ConnectionHandle) <-chan []byte
	Unregister(handle domain.ConnectionHandle)
	SendTo(handle domain.ConnectionHandle, event domain.Event)
}

type WSHandler struct {
	coordinator *app.Coordinator
	registry    ConnectionRegistry
	upgrader    websocket.Upgrader
}

func NewWSHandler(coordinator *app.Coordinator, registry ConnectionRegistry) *WSHandler {
	return &WSHandler{
		coordinator: coordinator,
		registry:    registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// connState remembers what a connection joined so later commands may omit it.
type connState struct {
	handle domain.ConnectionHandle
	code   string
	name   string
}

// ServeWS upgrades HTTP requests to websockets and wires them into the coordinator.
// Optional sessionCode and name query parameters join immediately.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	state := &connState{handle: domain.ConnectionHandle(uuid.NewString())}
	outbound := h.registry.Register(state.handle)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for data := range outbound {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("ws write error: %v", err)
				// keep draining so Unregister can close the queue
				for range outbound {
				}
				return
			}
		}
	}()

	if code, name := r.URL.Query().Get("sessionCode"), r.URL.Query().Get("name"); code != "" && name != "" {
		if err := h.join(ctx, state, joinPayload{SessionCode: code, DisplayName: name}); err != nil {
			h.registry.SendTo(state.handle, domain.NewEvent(domain.NewErrorPayload(err)))
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(ctx, state, inbound); err != nil {
			h.registry.SendTo(state.handle, domain.NewEvent(domain.NewErrorPayload(err)))
		}
	}

	// disconnect: use a fresh context, the request one is already done
	h.coordinator.Leave(context.Background(), state.handle)
	h.registry.Unregister(state.handle)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, state *connState, inbound inboundMessage) error {
	switch inbound.Type {
	case msgJoin:
		var payload joinPayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			return err
		}
		return h.join(ctx, state, payload)
	case msgStartSession:
		code, err := h.sessionCode(state, inbound.Payload)
		if err != nil {
			return err
		}
		return h.coordinator.StartSession(ctx, code)
	case msgActivateQuestion:
		var payload activatePayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			return err
		}
		code := firstNonEmpty(payload.SessionCode, state.code)
		if payload.Question == nil {
			_, err := h.coordinator.ActivateQuestionAt(ctx, code, payload.QuestionIndex)
			return err
		}
		_, err := h.coordinator.ActivateQuestion(ctx, code, payload.Question.toDomain(), payload.QuestionIndex)
		return err
	case msgSubmit:
		var payload submitPayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			return err
		}
		if payload.ChosenOptionIndex == nil {
			return domain.ErrInvalidOption
		}
		_, err := h.coordinator.Submit(ctx,
			firstNonEmpty(payload.SessionCode, state.code),
			firstNonEmpty(payload.DisplayName, state.name),
			*payload.ChosenOptionIndex,
			payload.ResponseTimeSeconds,
		)
		return err
	case msgEndSession:
		code, err := h.sessionCode(state, inbound.Payload)
		if err != nil {
			return err
		}
		return h.coordinator.EndSession(ctx, code)
	case msgRequestStatus:
		code, err := h.sessionCode(state, inbound.Payload)
		if err != nil {
			return err
		}
		return h.coordinator.RequestStatus(ctx, code, state.handle)
	default:
		return fmt.Errorf("%w: unsupported message type %q", domain.ErrValidation, inbound.Type)
	}
}

func (h *WSHandler) join(ctx context.Context, state *connState, payload joinPayload) error {
	if _, err := h.coordinator.Join(ctx, payload.SessionCode, payload.DisplayName, state.handle); err != nil {
		return err
	}
	state.code = strings.TrimSpace(payload.SessionCode)
	state.name = strings.TrimSpace(payload.DisplayName)
	return nil
}

// sessionCode reads an optional {"sessionCode": ...} payload, defaulting to the joined session.
func (h *WSHandler) sessionCode(state *connState, raw json.RawMessage) (string, error) {
	var payload sessionPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return "", errInvalidPayload
		}
	}
	code := firstNonEmpty(payload.SessionCode, state.code)
	if code == "" {
		return "", domain.ErrMissingSessionCode
	}
	return code, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
