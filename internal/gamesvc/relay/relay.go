package relay

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/guesswho-services/internal/comm"
)

// events published by the game service are consumed by the socket
// gateway on this topic and fanned out to connected clients
const Topic = "game.service"

// Relay pushes game events onto NATS. Publishing is fire-and-forget:
// a failed broadcast is logged and never fails the gameplay action
// that produced it.
type Relay struct {
	Conn *nats.Conn
}

func NewRelay(conn *nats.Conn) *Relay {
	return &Relay{Conn: conn}
}

// ToRoom publishes an event addressed to every socket in a room.
func (r *Relay) ToRoom(event string, roomCode string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Errorf("[%s] unable to marshal payload for room %s: %s", event, roomCode, err)
		return
	}

	msg := &comm.WSMessage{
		Type:     event,
		Data:     data,
		RoomCode: roomCode,
	}

	r.publish(msg)
}

// ToSocket publishes an event addressed to a single socket, used for
// private payloads like secret character assignments.
func (r *Relay) ToSocket(event string, socketId string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Errorf("[%s] unable to marshal payload for socket %s: %s", event, socketId, err)
		return
	}

	msg := &comm.WSMessage{
		Type:     event,
		Data:     data,
		SocketId: socketId,
	}

	r.publish(msg)
}

func (r *Relay) publish(msg *comm.WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	if err := r.Conn.Publish(Topic, payload); err != nil {
		log.Errorf("Error publishing to topic %s: %s", Topic, err)
	}
}
