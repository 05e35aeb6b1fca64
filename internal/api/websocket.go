package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/cloudseed-visualizer/backend/internal/catalog"
	"github.com/cloudseed-visualizer/backend/internal/logger"
	"github.com/cloudseed-visualizer/backend/internal/metrics"
	"github.com/cloudseed-visualizer/backend/internal/models"
	"github.com/cloudseed-visualizer/backend/internal/playback"
	"github.com/cloudseed-visualizer/backend/internal/session"
)

// WebSocket message types for the playback protocol
const (
	// Client -> Server messages
	MsgTypeLoad  = "playback:load"
	MsgTypePlay  = "playback:play"
	MsgTypePause = "playback:pause"
	MsgTypeSeek  = "playback:seek"
	MsgTypeStop  = "playback:stop"
	MsgTypePing  = "ping"

	// Server -> Client messages
	MsgTypeSession  = "session"
	MsgTypePosition = "position"
	MsgTypeState    = "state"
	MsgTypeError    = "error"
	MsgTypePong     = "pong"
)

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Load payload selects the flight to open a playback session for
type LoadPayload struct {
	FlightID string `json:"flightId"`
}

// Seek payload targets a track point index
type SeekPayload struct {
	Index int `json:"index"`
}

// Session payload describes a freshly opened playback session
type SessionPayload struct {
	SessionID   string              `json:"sessionId"`
	FlightID    string              `json:"flightId"`
	DisplayName string              `json:"displayName"`
	TrackLength int                 `json:"trackLength"`
	FrameCount  int                 `json:"frameCount"`
	Bounds      models.LatLngBounds `json:"bounds"`
	StartTime   time.Time           `json:"startTime"`
	EndTime     time.Time           `json:"endTime"`
	Rules       *models.MarkerRules `json:"rules,omitempty"`
}

// Position payload carries one playhead update
type PositionPayload struct {
	Index        int                    `json:"index"`
	Total        int                    `json:"total"`
	Timestamp    time.Time              `json:"timestamp"`
	Latitude     float64                `json:"latitude"`
	Longitude    float64                `json:"longitude"`
	Category     models.SeedingCategory `json:"category"`
	SeedingCount int                    `json:"seedingCount"`
	Color        string                 `json:"color"`
	FrameIndex   int                    `json:"frameIndex"`
	FrameFile    string                 `json:"frameFile"`
	FrameChanged bool                   `json:"frameChanged"`
}

// State payload reports a transport state transition
type StatePayload struct {
	State playback.State `json:"state"`
}

// WebSocket error response
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler manages WebSocket connections for playback control
type WebSocketHandler struct {
	sessions *session.Manager
	rules    *models.MarkerRules
	met      *metrics.Collector
	lg       *logger.Logger
	upgrader websocket.Upgrader
	maxRead  int64
}

// NewWebSocketHandler creates a new playback WebSocket handler
func NewWebSocketHandler(sessions *session.Manager, rules *models.MarkerRules, met *metrics.Collector, lg *logger.Logger, maxReadBytes int64) *WebSocketHandler {
	if maxReadBytes <= 0 {
		maxReadBytes = 64 * 1024
	}
	return &WebSocketHandler{
		sessions: sessions,
		rules:    rules,
		met:      met,
		lg:       lg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		maxRead: maxReadBytes,
	}
}

// HandleWebSocket upgrades the HTTP connection and runs the playback protocol.
// Each connection owns at most one playback session; loading a new flight
// replaces the previous session.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	client := &wsClient{
		id:    uuid.New().String(),
		conn:  ws,
		mgr:   wsh.sessions,
		rules: wsh.rules,
		met:   wsh.met,
		lg:    wsh.lg,
	}

	wsh.met.WSConnected()
	wsh.lg.Infof("[WS %s] client connected from %s", client.shortID(), c.RealIP())

	defer func() {
		client.mgr.CloseOwner(client.id)
		wsh.met.WSDisconnected()
		wsh.lg.Infof("[WS %s] client disconnected", client.shortID())
	}()

	ws.SetReadLimit(wsh.maxRead)

	// Send welcome message
	client.send(WSMessage{
		Type:      "connected",
		ID:        client.id,
		Timestamp: time.Now().UnixMilli(),
	})

	// Main message loop
	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				wsh.lg.Warnf("[WS %s] connection error: %v", client.shortID(), err)
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			client.handlePing()
		case MsgTypeLoad:
			client.handleLoad(msg)
		case MsgTypePlay:
			client.handlePlay()
		case MsgTypePause:
			client.handlePause()
		case MsgTypeSeek:
			client.handleSeek(msg)
		case MsgTypeStop:
			client.handleStop()
		default:
			client.sendError("Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}

	return nil
}

// wsClient is the server side of one playback connection. The connection ID
// doubles as the session owner key in the session manager.
//
// Lock order is controller -> stateMu -> writeMu. Command handlers therefore
// never hold stateMu or writeMu while calling into the controller.
type wsClient struct {
	id    string
	conn  *websocket.Conn
	mgr   *session.Manager
	rules *models.MarkerRules
	met   *metrics.Collector
	lg    *logger.Logger

	writeMu sync.Mutex

	stateMu sync.Mutex
	sess    *session.FlightSession
	sink    *sessionSink
}

// sessionSink receives position updates for one playback session. Updates
// arriving before the session message has been sent are buffered so the
// client never sees a position for a session it does not know about yet.
type sessionSink struct {
	client  *wsClient
	ready   bool
	pending []playback.Update
}

// PositionChanged implements playback.Sink. It is called with the controller
// lock held, so it must not call back into the controller.
func (s *sessionSink) PositionChanged(u playback.Update) {
	c := s.client

	c.stateMu.Lock()
	if c.sink != s {
		// Session has been replaced; drop updates from the old controller.
		c.stateMu.Unlock()
		return
	}
	if !s.ready {
		s.pending = append(s.pending, u)
		c.stateMu.Unlock()
		c.met.PositionUpdate(u.FrameChanged)
		return
	}
	c.stateMu.Unlock()

	c.met.PositionUpdate(u.FrameChanged)
	c.writePosition(u)
}

func (c *wsClient) shortID() string {
	if len(c.id) < 8 {
		return c.id
	}
	return c.id[:8]
}

// current returns the active session, or nil when none is loaded
func (c *wsClient) current() *session.FlightSession {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.sess
}

func (c *wsClient) handlePing() {
	if sess := c.current(); sess != nil {
		c.mgr.Touch(sess.ID)
	}
	c.send(WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
}

// handleLoad opens a playback session for the requested flight. The session
// message is sent before any buffered position updates are flushed.
func (c *wsClient) handleLoad(msg WSMessage) {
	var payload LoadPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.sendError("Invalid load payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}
	if payload.FlightID == "" {
		c.sendError("flightId is required", "INVALID_PAYLOAD")
		return
	}

	sink := &sessionSink{client: c}
	c.stateMu.Lock()
	c.sess = nil
	c.sink = sink
	c.stateMu.Unlock()

	sess, err := c.mgr.Open(c.id, payload.FlightID, sink)
	if err != nil {
		c.stateMu.Lock()
		if c.sink == sink {
			c.sink = nil
		}
		c.stateMu.Unlock()

		switch {
		case errors.Is(err, catalog.ErrFlightNotFound):
			c.sendError("Flight not found: "+payload.FlightID, "FLIGHT_NOT_FOUND")
		case errors.Is(err, playback.ErrEmptySeries):
			c.sendError("Flight has no playable data: "+payload.FlightID, "EMPTY_SERIES")
		default:
			c.sendError("Failed to load flight: "+err.Error(), "LOAD_FAILED")
		}
		return
	}

	c.stateMu.Lock()
	c.sess = sess
	sink.ready = true
	pending := sink.pending
	sink.pending = nil
	c.stateMu.Unlock()

	c.send(WSMessage{
		Type:      MsgTypeSession,
		ID:        sess.ID,
		Timestamp: time.Now().UnixMilli(),
		Payload:   mustJSON(c.sessionPayload(sess)),
	})
	for _, u := range pending {
		c.writePosition(u)
	}
}

func (c *wsClient) handlePlay() {
	sess := c.current()
	if sess == nil {
		c.sendError("No session loaded", "NO_SESSION")
		return
	}

	if err := sess.Controller.Play(); err != nil {
		c.sendControllerError(err)
		return
	}
	c.mgr.Touch(sess.ID)
	c.sendState(playback.StatePlaying)
}

func (c *wsClient) handlePause() {
	sess := c.current()
	if sess == nil {
		c.sendError("No session loaded", "NO_SESSION")
		return
	}

	if err := sess.Controller.Pause(); err != nil {
		c.sendControllerError(err)
		return
	}
	c.mgr.Touch(sess.ID)
	c.sendState(playback.StatePaused)
}

// handleSeek pauses playback and jumps to the requested index. The position
// update is emitted by the controller before the state message goes out.
func (c *wsClient) handleSeek(msg WSMessage) {
	var payload SeekPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.sendError("Invalid seek payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}

	sess := c.current()
	if sess == nil {
		c.sendError("No session loaded", "NO_SESSION")
		return
	}

	if err := sess.Controller.Seek(payload.Index); err != nil {
		c.sendControllerError(err)
		return
	}
	c.mgr.Touch(sess.ID)
	c.sendState(playback.StatePaused)
}

func (c *wsClient) handleStop() {
	sess := c.current()
	if sess != nil {
		c.mgr.Close(sess.ID)
	}

	c.stateMu.Lock()
	c.sess = nil
	c.sink = nil
	c.stateMu.Unlock()

	c.sendState(playback.StateStopped)
}

func (c *wsClient) sessionPayload(sess *session.FlightSession) SessionPayload {
	p := SessionPayload{
		SessionID:   sess.ID,
		FlightID:    sess.Flight.ID,
		DisplayName: sess.Flight.DisplayName,
		TrackLength: sess.Bundle.Track.Len(),
		FrameCount:  sess.Bundle.Frames.Len(),
		Bounds:      sess.Bundle.Bounds,
		Rules:       c.rules,
	}
	if start, end, ok := sess.Bundle.Track.Span(); ok {
		p.StartTime = start
		p.EndTime = end
	}
	return p
}

func (c *wsClient) sendState(state playback.State) {
	c.send(WSMessage{
		Type:      MsgTypeState,
		Timestamp: time.Now().UnixMilli(),
		Payload:   mustJSON(StatePayload{State: state}),
	})
}

func (c *wsClient) sendControllerError(err error) {
	if errors.Is(err, playback.ErrNoSession) {
		c.sendError("No session loaded", "NO_SESSION")
		return
	}
	c.sendError(err.Error(), "PLAYBACK_ERROR")
}

func (c *wsClient) writePosition(u playback.Update) {
	c.send(WSMessage{
		Type:      MsgTypePosition,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(PositionPayload{
			Index:        u.Index,
			Total:        u.Total,
			Timestamp:    u.Point.Timestamp,
			Latitude:     u.Point.Latitude,
			Longitude:    u.Point.Longitude,
			Category:     u.Point.Category,
			SeedingCount: u.Point.SeedingCount,
			Color:        u.Color,
			FrameIndex:   u.FrameIndex,
			FrameFile:    u.Frame.File,
			FrameChanged: u.FrameChanged,
		}),
	})
}

// Helper methods

func (c *wsClient) send(msg WSMessage) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		c.lg.Warnf("[WS %s] failed to send message: %v", c.shortID(), err)
	}
}

func (c *wsClient) sendError(message, code string) {
	c.send(WSMessage{
		Type:      MsgTypeError,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSErrorResponse{
			Type:    MsgTypeError,
			Message: message,
			Code:    code,
		}),
	})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
