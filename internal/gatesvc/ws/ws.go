package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Ws tracks the one live controller connection per station. A station that
// reconnects replaces its previous session; signals for stations without an
// open session are dropped by the broker, never queued.
type Ws struct {
	stationMap sync.Map // stationId -> *websocket.Conn
}

func NewWs() *Ws {
	return &Ws{}
}

func (s *Ws) StoreStation(stationId string, conn *websocket.Conn) {
	if old, ok := s.stationMap.Load(stationId); ok {
		log.Warnf("station %s reconnected, closing previous session", stationId)
		old.(*websocket.Conn).Close()
	}
	s.stationMap.Store(stationId, conn)
}

func (s *Ws) GetStation(stationId string) (*websocket.Conn, bool) {
	conn, ok := s.stationMap.Load(stationId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

func (s *Ws) HandleDisconnect(stationId string, conn *websocket.Conn) {
	// only drop the mapping if it still points at this connection
	if current, ok := s.stationMap.Load(stationId); ok && current == conn {
		s.stationMap.Delete(stationId)
	}
}

func (s *Ws) Stations() []string {
	var stations []string
	s.stationMap.Range(func(key, value interface{}) bool {
		stations = append(stations, key.(string))
		return true
	})
	return stations
}
