package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/smms/canteen-services/internal/comm"
)

// Ws tracks connected clients. A recipient (guardian or staff) may
// hold several sockets at once, one per device.
type Ws struct {
	connMap sync.Map // socketId -> *websocket.Conn
	userMap sync.Map // socketId -> userId
	writeMu sync.Mutex
}

func NewWs() *Ws {
	return &Ws{}
}

func (s *Ws) StoreConnection(socketId, userId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
	s.userMap.Store(socketId, userId)
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.userMap.Delete(socketId)
}

// SocketsForUser lists the live sockets of one recipient.
func (s *Ws) SocketsForUser(userId string) []string {
	var sockets []string
	s.userMap.Range(func(key, value interface{}) bool {
		if value.(string) == userId {
			sockets = append(sockets, key.(string))
		}
		return true // continue iterating
	})
	return sockets
}

// Deliver writes a push message to every socket the recipient has
// open. Returns how many sockets received it.
func (s *Ws) Deliver(msg comm.PushMessage) int {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal push message: %v", err)
		return 0
	}

	delivered := 0
	for _, socketId := range s.SocketsForUser(msg.RecipientId) {
		conn, ok := s.connMap.Load(socketId)
		if !ok {
			continue
		}

		s.writeMu.Lock()
		err := conn.(*websocket.Conn).WriteMessage(websocket.TextMessage, payload)
		s.writeMu.Unlock()

		if err != nil {
			log.Errorf("Failed to push to socket %s: %v", socketId, err)
			s.HandleDisconnect(socketId)
			continue
		}
		delivered++
	}
	return delivered
}
