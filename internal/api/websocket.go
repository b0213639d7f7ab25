package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coastal-clean/siteplanner/internal/interaction"
	"github.com/coastal-clean/siteplanner/internal/planner"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WebSocket message types for the pointer stream protocol
const (
	// Client -> Server messages
	MsgTypePointer = "pointer"
	MsgTypeZoom    = "zoom"
	MsgTypeRotate  = "rotate"
	MsgTypeDelete  = "delete"
	MsgTypeSelect  = "select"
	MsgTypePing    = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeState     = "state"
	MsgTypeUpdate    = "update"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

const (
	wsWriteWait = 10 * time.Second
	wsOutBuffer = 32
)

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Zoom payload; Scale wins over Direction when both are set
type WSZoomPayload struct {
	Direction string   `json:"direction,omitempty"` // "in", "out"
	Scale     *float64 `json:"scale,omitempty"`
}

// Rotate payload for the selected unit
type WSRotatePayload struct {
	Direction string `json:"direction"` // "left", "right"
}

// Select payload; an empty unit id clears the selection
type WSSelectPayload struct {
	UnitID string `json:"unitId"`
}

// WebSocket error response
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// PointerStreamHandlerImpl streams pointer input in and workspace updates out
type PointerStreamHandlerImpl struct {
	manager  WorkspaceManager
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewPointerStreamHandler creates a new websocket pointer stream handler
func NewPointerStreamHandler(manager WorkspaceManager, logger *slog.Logger) PointerStreamHandler {
	return &PointerStreamHandlerImpl{
		manager: manager,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		logger: logger,
	}
}

// HandlePointerStream upgrades the connection, pushes the current view and
// then every workspace update until the client disconnects
func (h *PointerStreamHandlerImpl) HandlePointerStream(c echo.Context) error {
	workspace, err := openWorkspace(c, h.manager)
	if err != nil {
		return err
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	log := h.logger.With("workspace", workspace.ID, "remote", c.RealIP())
	log.Info("pointer stream connected")

	updates, cancel := workspace.Subscribe()
	defer cancel()

	// gorilla connections allow one concurrent writer
	out := make(chan WSMessage, wsOutBuffer)
	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ws, out, updates, done, log)
	}()

	out <- WSMessage{Type: MsgTypeConnected, ID: workspace.ID, Timestamp: now()}
	out <- WSMessage{Type: MsgTypeState, Payload: mustJSON(workspace.View()), Timestamp: now()}

	// Main message loop
	for {
		var msg WSMessage
		err := ws.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("pointer stream read failed", "error", err)
			}
			break
		}

		if reply, ok := h.dispatch(workspace, msg); ok {
			out <- reply
		}
	}

	close(done)
	<-writerDone
	log.Info("pointer stream disconnected")
	return nil
}

// dispatch applies one client message. It returns a reply when the message
// is not answered through the update stream.
func (h *PointerStreamHandlerImpl) dispatch(workspace *planner.Workspace, msg WSMessage) (WSMessage, bool) {
	switch msg.Type {
	case MsgTypePing:
		// Respond with pong to keep connection alive
		return WSMessage{Type: MsgTypePong, ID: msg.ID, Timestamp: now()}, true

	case MsgTypePointer:
		var ev interaction.Event
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return errorMessage(msg.ID, "invalid pointer payload", "INVALID_PAYLOAD"), true
		}
		if err := validatePointer(ev); err != nil {
			return errorMessage(msg.ID, "unknown pointer kind", "INVALID_PAYLOAD"), true
		}
		workspace.Pointer(ev)

	case MsgTypeZoom:
		var p WSZoomPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return errorMessage(msg.ID, "invalid zoom payload", "INVALID_PAYLOAD"), true
		}
		switch {
		case p.Scale != nil:
			workspace.SetScale(*p.Scale)
		case p.Direction == "in":
			workspace.Zoom(1)
		case p.Direction == "out":
			workspace.Zoom(-1)
		default:
			return errorMessage(msg.ID, "zoom direction must be in or out", "INVALID_PAYLOAD"), true
		}

	case MsgTypeRotate:
		var p WSRotatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return errorMessage(msg.ID, "invalid rotate payload", "INVALID_PAYLOAD"), true
		}
		steps := 1
		switch p.Direction {
		case "left":
			steps = -1
		case "right":
		default:
			return errorMessage(msg.ID, "rotate direction must be left or right", "INVALID_PAYLOAD"), true
		}
		if err := workspace.RotateSelected(steps); err != nil {
			return selectionError(msg.ID, err), true
		}

	case MsgTypeDelete:
		if err := workspace.DeleteSelected(); err != nil {
			return selectionError(msg.ID, err), true
		}

	case MsgTypeSelect:
		var p WSSelectPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return errorMessage(msg.ID, "invalid select payload", "INVALID_PAYLOAD"), true
			}
		}
		if err := workspace.Select(p.UnitID); err != nil {
			return selectionError(msg.ID, err), true
		}

	default:
		return errorMessage(msg.ID, "Unknown message type: "+msg.Type, "INVALID_TYPE"), true
	}
	return WSMessage{}, false
}

// writeLoop is the only goroutine writing to ws
func (h *PointerStreamHandlerImpl) writeLoop(ws *websocket.Conn, out <-chan WSMessage, updates <-chan planner.Update, done <-chan struct{}, log *slog.Logger) {
	for {
		var msg WSMessage
		select {
		case <-done:
			return
		case msg = <-out:
		case u := <-updates:
			msg = WSMessage{Type: MsgTypeUpdate, Payload: mustJSON(u), Timestamp: now()}
		}

		ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := ws.WriteJSON(msg); err != nil {
			log.Warn("pointer stream write failed", "error", err)
			// Unblock the reader; it exits on the next read error
			ws.Close()
			for {
				select {
				case <-done:
					return
				case <-out:
				}
			}
		}
	}
}

// Helper methods

func errorMessage(id, message, code string) WSMessage {
	return WSMessage{
		Type:      MsgTypeError,
		ID:        id,
		Timestamp: now(),
		Payload: mustJSON(WSErrorResponse{
			Type:    MsgTypeError,
			Message: message,
			Code:    code,
		}),
	}
}

func selectionError(id string, err error) WSMessage {
	if errors.Is(err, planner.ErrUnitNotFound) {
		return errorMessage(id, "no unit selected", "NOT_FOUND")
	}
	return errorMessage(id, err.Error(), "INTERNAL_ERROR")
}

func now() int64 {
	return time.Now().UnixMilli()
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
