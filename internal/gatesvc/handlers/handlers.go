package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/metroapp/fare-services/internal/gatesvc/store"
	"github.com/metroapp/fare-services/internal/gatesvc/ws"
)

type Handler struct {
	upgrader websocket.Upgrader
	ws       *ws.Ws
	events   *store.EventStore
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func NewHandler(s *ws.Ws, events *store.EventStore) *Handler {
	h := &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ws:     s,
		events: events,
	}
	return h
}

// HandleWebSocket registers one gate controller session per station. The
// controller identifies itself with the station query parameter; everything
// it sends afterwards is informational only.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	stationId := r.URL.Query().Get("station")
	if stationId == "" {
		http.Error(w, "station query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	h.ws.StoreStation(stationId, conn)
	log.Infof("gate controller connected for station: %s", stationId)

	go h.handleConnection(conn, stationId)
}

func (h *Handler) handleConnection(conn *websocket.Conn, stationId string) {
	defer func() {
		log.Infof("closing gate controller session for station: %s", stationId)
		conn.Close()
		h.ws.HandleDisconnect(stationId, conn)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("gate controller unexpected close for station %s: %v", stationId, err)
			} else {
				log.Infof("gate controller session closed normally for station: %s", stationId)
			}
			break
		}

		// controllers occasionally report their own state; log and move on
		log.Debugf("message from station %s controller: %s", stationId, raw)
	}
}

// RecentEventsHandler serves the short-lived tap feed for dashboards.
func (h *Handler) RecentEventsHandler(w http.ResponseWriter, r *http.Request) {
	stationId := r.URL.Query().Get("station")
	if stationId == "" {
		h.CreateResponse(w, Response{Message: "station query parameter is required", Code: http.StatusBadRequest})
		return
	}

	limit := int64(50)
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		if parsed, err := strconv.ParseInt(rawLimit, 10, 64); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	events, err := h.events.Recent(r.Context(), stationId, limit)
	if err != nil {
		log.Errorf("recent events query failed for station %s: %v", stationId, err)
		h.CreateResponse(w, Response{Message: "internal error", Code: http.StatusInternalServerError})
		return
	}

	h.CreateResponse(w, Response{Message: "events", Code: http.StatusOK, Data: events})
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "gate service is running at port " + os.Getenv("GATE_SERVICE_PORT"),
		Code:    200,
		Data:    map[string]interface{}{"stations": h.ws.Stations()},
	}
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode health response: %v", err)
	}
}
