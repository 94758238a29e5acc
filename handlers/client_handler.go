package handlers

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"terminus-realm/mapgen/logger"
	"terminus-realm/mapgen/messages"
	"terminus-realm/mapgen/models"
	"terminus-realm/mapgen/network"
	"terminus-realm/mapgen/persistence"
	"terminus-realm/mapgen/services"
)

// ClientHandler manages a single client connection
type ClientHandler struct {
	id            string
	conn          *network.Connection
	mapService    *services.MapService
	clientManager *ClientManager
	log           *logrus.Entry
}

// HandleClientConnection serves a client until its connection closes
func HandleClientConnection(wsConn *websocket.Conn, mapService *services.MapService, clientManager *ClientManager) {
	conn := network.NewConnection(wsConn)
	handler := &ClientHandler{
		id:            uuid.New().String(),
		conn:          conn,
		mapService:    mapService,
		clientManager: clientManager,
	}
	handler.log = logger.Log.WithFields(logrus.Fields{
		"client": handler.id,
		"remote": conn.RemoteAddr(),
	})
	handler.log.Info("Client connected")

	clientManager.AddClient(handler.id, handler)

	// Start the write pump in a goroutine
	go conn.WritePump()

	// Handle the read pump in the current goroutine
	conn.ReadPump(handler)

	clientManager.RemoveClient(handler.id)
	conn.Close()
	handler.log.Info("Client disconnected")
}

// HandleMessage handles incoming messages from the client
func (h *ClientHandler) HandleMessage(conn *network.Connection, message []byte) {
	var baseMsg messages.BaseMessage
	if err := json.Unmarshal(message, &baseMsg); err != nil {
		h.log.WithError(err).Warn("Error unmarshaling message")
		h.sendError("BAD_MESSAGE", "Message is not valid JSON")
		return
	}

	switch baseMsg.Type {
	case messages.MessageTypeGenerate:
		h.handleGenerate(baseMsg.Payload)
	case messages.MessageTypeLoadMap:
		h.handleLoadMap(baseMsg.Payload)
	case messages.MessageTypeListMaps:
		h.handleListMaps()
	case messages.MessageTypeView:
		h.handleView(baseMsg.Payload)
	default:
		h.log.WithField("type", baseMsg.Type).Warn("Unknown message type")
		h.sendError("UNKNOWN_MESSAGE_TYPE", "Unknown message type received")
	}
}

// decodePayload re-decodes a generic payload into a typed message
func decodePayload(payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// handleGenerate generates a map, replies with it and announces it to others
func (h *ClientHandler) handleGenerate(payload interface{}) {
	var req messages.GenerateMessage
	if err := decodePayload(payload, &req); err != nil {
		h.log.WithError(err).Warn("Error decoding generate request")
		h.sendError("BAD_MESSAGE", "Invalid generate request")
		return
	}

	gameMap, err := h.mapService.Generate(req)
	if err != nil {
		h.log.WithError(err).Warn("Map generation failed")
		h.sendError(generationErrorCode(err), err.Error())
		return
	}

	h.send(messages.BaseMessage{
		Type:    messages.MessageTypeGenerated,
		Payload: messages.MapMessage{Map: gameMap},
	})

	h.clientManager.BroadcastToOthers(h.id, messages.BaseMessage{
		Type:    messages.MessageTypeMapAnnounced,
		Payload: messages.MapAnnouncedMessage{Map: gameMap.Summary()},
	})
}

// handleLoadMap sends a stored map
func (h *ClientHandler) handleLoadMap(payload interface{}) {
	var req messages.LoadMapMessage
	if err := decodePayload(payload, &req); err != nil {
		h.sendError("BAD_MESSAGE", "Invalid load request")
		return
	}

	gameMap, err := h.mapService.Load(req.ID)
	if err != nil {
		h.sendLookupError(err)
		return
	}

	h.send(messages.BaseMessage{
		Type:    messages.MessageTypeMap,
		Payload: messages.MapMessage{Map: gameMap},
	})
}

// handleListMaps sends the stored map summaries
func (h *ClientHandler) handleListMaps() {
	list, err := h.mapService.List()
	if err != nil {
		h.log.WithError(err).Error("Error listing maps")
		h.sendError("LIST_FAILED", "Failed to list maps")
		return
	}

	h.send(messages.BaseMessage{
		Type:    messages.MessageTypeMapList,
		Payload: messages.MapListMessage{Maps: list},
	})
}

// handleView sends a terrain window of a stored map
func (h *ClientHandler) handleView(payload interface{}) {
	var req messages.ViewMessage
	if err := decodePayload(payload, &req); err != nil {
		h.sendError("BAD_MESSAGE", "Invalid view request")
		return
	}

	view, err := h.mapService.View(req.ID, req.Level, req.X, req.Y, req.Radius)
	if err != nil {
		h.sendLookupError(err)
		return
	}

	h.send(messages.BaseMessage{
		Type:    messages.MessageTypeMapView,
		Payload: view,
	})
}

func (h *ClientHandler) sendLookupError(err error) {
	if errors.Is(err, persistence.ErrMapNotFound) {
		h.sendError("MAP_NOT_FOUND", err.Error())
		return
	}
	h.log.WithError(err).Warn("Map lookup failed")
	h.sendError("LOOKUP_FAILED", err.Error())
}

func (h *ClientHandler) send(msg messages.BaseMessage) {
	if err := h.conn.SendMessage(msg); err != nil {
		h.log.WithError(err).WithField("type", msg.Type).Error("Error sending message")
	}
}

func (h *ClientHandler) sendError(code, message string) {
	h.send(messages.BaseMessage{
		Type: messages.MessageTypeError,
		Payload: messages.ErrorMessage{
			Code:    code,
			Message: message,
		},
	})
}

// generationErrorCode maps a generator failure onto an error code
func generationErrorCode(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return "INVALID_OPTIONS"
	case errors.Is(err, models.ErrPlacementExhausted), errors.Is(err, models.ErrConnectionUnsatisfied):
		return "GENERATION_EXHAUSTED"
	default:
		return "GENERATION_FAILED"
	}
}
