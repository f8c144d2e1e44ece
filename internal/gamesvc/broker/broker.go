package broker

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/guesswho-services/internal/comm"
)

// Broker consumes game events from NATS and fans them out to the web
// clients. Connection lookups are injected so the broker stays free of
// the socket coordinator's types.
type Broker struct {
	Conn           *nats.Conn
	GetConnection  func(string) (*websocket.Conn, bool)
	GetRoomSockets func(string) []string
}

func NewBroker(conn *nats.Conn, fncGetConnection func(string) (*websocket.Conn, bool),
	fncGetRoomSockets func(string) []string) *Broker {
	return &Broker{
		Conn:           conn,
		GetConnection:  fncGetConnection,
		GetRoomSockets: fncGetRoomSockets,
	}
}

// consume events published by the game engine
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	err := json.Unmarshal(msgNats.Data, &message)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	switch message.Type {
	case comm.EventCharacterAssigned, comm.EventError:
		// private payloads are addressed to a single socket
		b.sendMessage(message)
	case comm.EventLobbyUpdate, comm.EventPlayerJoined, comm.EventPlayerLeft,
		comm.EventGameStarted, comm.EventQuestionAsked, comm.EventAnswerSubmitted,
		comm.EventGuessResult, comm.EventGameOver:
		b.broadcast(message)
	default:
		log.Errorf("Unknown message type %s", message.Type)
	}
}

// send socket message to the web client
func (b *Broker) sendMessage(m *comm.WSMessage) {
	socketId := m.SocketId
	if conn, ok := b.GetConnection(socketId); ok {
		if err := conn.WriteJSON(m); err != nil {
			log.Println(err)
		}
	}
}

// broadcast sends the message to every socket bound to the room
func (b *Broker) broadcast(m *comm.WSMessage) {
	for _, socketId := range b.GetRoomSockets(m.RoomCode) {
		if conn, ok := b.GetConnection(socketId); ok {
			if err := conn.WriteJSON(m); err != nil {
				log.Println(err)
			}
		}
	}
}
