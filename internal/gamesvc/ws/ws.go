package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/guesswho-services/internal/comm"
	"github.com/avvvet/guesswho-services/internal/gamesvc/engine"
	"github.com/avvvet/guesswho-services/internal/gamesvc/registry"
	"github.com/avvvet/guesswho-services/internal/gamesvc/service"
	"github.com/avvvet/guesswho-services/internal/gamesvc/store"
)

// Publisher is the outbound event channel, satisfied by relay.Relay.
// Sockets never get written to directly once registered: every event,
// errors included, goes out through here and the broker delivers it,
// keeping a single writer per connection.
type Publisher interface {
	ToRoom(event string, roomCode string, v interface{})
	ToSocket(event string, socketId string, v interface{})
}

// Ws coordinates room membership for live sockets: it admits
// connections through the registry, dispatches gameplay messages into
// the engine and pushes the resulting events through the relay.
type Ws struct {
	connMap sync.Map // socketId -> *websocket.Conn

	Registry *registry.Registry
	Engine   *engine.Engine
	Relay    Publisher
	Games    *service.GameService
	Players  *service.GamePlayerService
}

func NewWs(reg *registry.Registry, eng *engine.Engine, rel Publisher,
	games *service.GameService, players *service.GamePlayerService) *Ws {
	return &Ws{
		Registry: reg,
		Engine:   eng,
		Relay:    rel,
		Games:    games,
		Players:  players,
	}
}

// Register runs the admission checks for a new socket and stores the
// transport connection. Sockets listed for eviction are force-closed
// here so the newest connection is the only live one for the user.
func (s *Ws) Register(socketId string, userID int64, conn *websocket.Conn) registry.TrackResult {
	res := s.Registry.TrackConnection(socketId, userID)
	if !res.Allowed {
		return res
	}

	s.connMap.Store(socketId, conn)

	for _, old := range res.SocketsToEvict {
		s.ForceDisconnect(old, "Replaced by a newer connection")
	}

	return res
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.Registry.HandleDisconnect(socketId)
}

// ForceDisconnect severs a socket that the registry decided should go,
// either evicted by a newer connection or swept for inactivity.
func (s *Ws) ForceDisconnect(socketId string, reason string) {
	if conn, ok := s.GetConnection(socketId); ok {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
		if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
			log.Debugf("close message to socket %s failed: %v", socketId, err)
		}
		conn.Close()
	}
	s.HandleDisconnect(socketId)
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "join-room":
		s.handleJoinRoom(socketId, message)
	case "leave-room":
		s.handleLeaveRoom(socketId, message)
	case "update-ready":
		s.handleUpdateReady(socketId, message)
	case "start-game":
		s.handleStartGame(socketId, message)
	case "ask-question":
		s.handleAskQuestion(socketId, message)
	case "submit-answer":
		s.handleSubmitAnswer(socketId, message)
	case "submit-guess":
		s.handleSubmitGuess(socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

func (s *Ws) handleJoinRoom(socketId string, msg *comm.WSMessage) {
	var payload struct {
		RoomCode string `json:"room_code"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed join-room payload from socket %s: %s", socketId, err)
		s.sendError(socketId, "Invalid message format")
		return
	}

	ctx := context.Background()
	conn, ok := s.Registry.GetConnection(socketId)
	if !ok {
		log.Errorf("join-room from untracked socket %s", socketId)
		return
	}
	if conn.UserID == 0 {
		s.sendError(socketId, "Authentication required to join a room")
		return
	}

	game, err := s.Games.GetGameByCode(ctx, payload.RoomCode)
	if err != nil {
		log.Errorf("join-room lookup failed for socket %s: %v", socketId, err)
		s.sendError(socketId, "Something went wrong")
		return
	}
	if game == nil {
		s.sendError(socketId, "Room not found")
		return
	}

	seat, err := s.Players.GetPlayerByGameAndUser(ctx, game.ID, conn.UserID)
	if err != nil {
		log.Errorf("join-room seat lookup failed for socket %s: %v", socketId, err)
		s.sendError(socketId, "Something went wrong")
		return
	}
	if seat == nil {
		seat, err = s.Players.CreatePlayerIfLobbyOpen(ctx, game.ID, conn.UserID, payload.Username)
		if err != nil {
			if errors.Is(err, store.ErrLobbyFull) {
				s.sendError(socketId, "Room is full")
				return
			}
			log.Errorf("join-room seat create failed for socket %s: %v", socketId, err)
			s.sendError(socketId, "Something went wrong")
			return
		}
	}

	s.Registry.UpdateConnectionRoom(socketId, game.RoomCode, seat.ID)

	lobby, err := s.Engine.Lobby(ctx, game.RoomCode)
	if err != nil {
		log.Errorf("join-room lobby read failed for room %s: %v", game.RoomCode, err)
		return
	}

	s.Relay.ToRoom(comm.EventPlayerJoined, game.RoomCode, comm.PlayerEvent{
		RoomCode: game.RoomCode,
		PlayerId: seat.ID,
		Username: seat.Username,
	})
	s.Relay.ToRoom(comm.EventLobbyUpdate, game.RoomCode, comm.LobbyData{
		Game:    lobby.Game,
		Players: lobby.Players,
	})
}

func (s *Ws) handleLeaveRoom(socketId string, msg *comm.WSMessage) {
	var payload struct {
		RoomCode string `json:"room_code"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed leave-room payload from socket %s: %s", socketId, err)
		return
	}

	ctx := context.Background()
	conn, ok := s.Registry.GetConnection(socketId)
	if !ok {
		return
	}

	roomCode, playerID := conn.RoomCode, conn.PlayerID
	if roomCode == "" {
		roomCode = store.NormalizeRoomCode(payload.RoomCode)
	}
	if playerID == 0 && conn.UserID != 0 {
		// connection state lost, fall back to a lobby lookup
		if game, err := s.Games.GetGameByCode(ctx, roomCode); err == nil && game != nil {
			if seat, err := s.Players.GetPlayerByGameAndUser(ctx, game.ID, conn.UserID); err == nil && seat != nil {
				playerID = seat.ID
			}
		}
	}
	if roomCode == "" || playerID == 0 {
		return
	}

	s.Registry.UpdateConnectionRoom(socketId, "", 0)

	lobby, over, err := s.Engine.LeaveGame(ctx, roomCode, playerID)
	if err != nil {
		// leaving is best-effort, the socket is already unbound
		log.Errorf("leave-room failed for player %d in room %s: %v", playerID, roomCode, err)
		return
	}

	left := ""
	for _, p := range lobby.Players {
		if p.ID == playerID {
			left = p.Username
		}
	}
	s.Relay.ToRoom(comm.EventPlayerLeft, roomCode, comm.PlayerEvent{
		RoomCode: roomCode,
		PlayerId: playerID,
		Username: left,
	})
	s.Relay.ToRoom(comm.EventLobbyUpdate, roomCode, comm.LobbyData{
		Game:    lobby.Game,
		Players: lobby.Players,
	})

	if over != nil {
		s.Relay.ToRoom(comm.EventGameOver, roomCode, comm.GameOverData{
			Game:       over.Game,
			WinnerId:   over.WinnerPlayerID,
			Placements: over.Placements,
		})
	}
}

func (s *Ws) handleUpdateReady(socketId string, msg *comm.WSMessage) {
	var payload struct {
		RoomCode string `json:"room_code"`
		Ready    bool   `json:"ready"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed update-ready payload from socket %s: %s", socketId, err)
		s.sendError(socketId, "Invalid message format")
		return
	}

	conn, ok := s.Registry.GetConnection(socketId)
	if !ok {
		return
	}

	lobby, err := s.Engine.SetReady(context.Background(), payload.RoomCode, conn.UserID, payload.Ready)
	if err != nil {
		s.reportError(socketId, "update-ready", err)
		return
	}

	s.Relay.ToRoom(comm.EventLobbyUpdate, lobby.Game.RoomCode, comm.LobbyData{
		Game:    lobby.Game,
		Players: lobby.Players,
	})
}

func (s *Ws) handleStartGame(socketId string, msg *comm.WSMessage) {
	var payload struct {
		RoomCode string `json:"room_code"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed start-game payload from socket %s: %s", socketId, err)
		s.sendError(socketId, "Invalid message format")
		return
	}

	conn, ok := s.Registry.GetConnection(socketId)
	if !ok {
		return
	}

	res, err := s.Engine.StartGame(context.Background(), payload.RoomCode, conn.UserID)
	if err != nil {
		s.reportError(socketId, "start-game", err)
		return
	}

	s.Relay.ToRoom(comm.EventGameStarted, res.Game.RoomCode, comm.GameStartedData{
		Game:         res.Game,
		Players:      res.Players,
		Round:        res.Round,
		ActivePlayer: res.Round.ActivePlayerID,
	})

	// secret characters go to each player's socket only
	for _, a := range res.Assignments {
		target, ok := s.Registry.SocketForPlayer(res.Game.RoomCode, a.Player.ID)
		if !ok {
			log.Warnf("no socket for player %d in room %s, skipping assignment push", a.Player.ID, res.Game.RoomCode)
			continue
		}
		s.Relay.ToSocket(comm.EventCharacterAssigned, target, comm.CharacterAssignedData{
			PlayerId:  a.Player.ID,
			Character: a.Character,
		})
	}
}

func (s *Ws) handleAskQuestion(socketId string, msg *comm.WSMessage) {
	var payload struct {
		RoomCode       string `json:"room_code"`
		TargetPlayerId int64  `json:"target_player_id"`
		Text           string `json:"text"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed ask-question payload from socket %s: %s", socketId, err)
		s.sendError(socketId, "Invalid message format")
		return
	}

	conn, ok := s.Registry.GetConnection(socketId)
	if !ok {
		return
	}

	res, err := s.Engine.AskQuestion(context.Background(), payload.RoomCode, conn.UserID, payload.TargetPlayerId, payload.Text)
	if err != nil {
		s.reportError(socketId, "ask-question", err)
		return
	}

	s.Relay.ToRoom(comm.EventQuestionAsked, store.NormalizeRoomCode(payload.RoomCode), comm.QuestionData{
		Question:     res.Question,
		Round:        res.Round,
		ActivePlayer: res.Round.ActivePlayerID,
	})
}

func (s *Ws) handleSubmitAnswer(socketId string, msg *comm.WSMessage) {
	var payload struct {
		RoomCode   string `json:"room_code"`
		QuestionId int64  `json:"question_id"`
		Value      string `json:"value"`
		Note       string `json:"note"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed submit-answer payload from socket %s: %s", socketId, err)
		s.sendError(socketId, "Invalid message format")
		return
	}

	conn, ok := s.Registry.GetConnection(socketId)
	if !ok {
		return
	}

	res, err := s.Engine.SubmitAnswer(context.Background(), payload.RoomCode, conn.UserID, payload.QuestionId, payload.Value, payload.Note)
	if err != nil {
		s.reportError(socketId, "submit-answer", err)
		return
	}

	s.Relay.ToRoom(comm.EventAnswerSubmitted, store.NormalizeRoomCode(payload.RoomCode), comm.AnswerData{
		Answer:       res.Answer,
		Round:        res.Round,
		ActivePlayer: res.Round.ActivePlayerID,
	})
}

func (s *Ws) handleSubmitGuess(socketId string, msg *comm.WSMessage) {
	var payload struct {
		RoomCode       string `json:"room_code"`
		TargetPlayerId int64  `json:"target_player_id"`
		CharacterId    int64  `json:"character_id"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed submit-guess payload from socket %s: %s", socketId, err)
		s.sendError(socketId, "Invalid message format")
		return
	}

	conn, ok := s.Registry.GetConnection(socketId)
	if !ok {
		return
	}

	out, err := s.Engine.SubmitGuess(context.Background(), payload.RoomCode, conn.UserID, payload.TargetPlayerId, payload.CharacterId)
	if err != nil {
		s.reportError(socketId, "submit-guess", err)
		return
	}

	roomCode := store.NormalizeRoomCode(payload.RoomCode)
	s.Relay.ToRoom(comm.EventGuessResult, roomCode, comm.GuessResultData{
		Guess:        out.Guess,
		IsCorrect:    out.IsCorrect,
		GuesserScore: out.GuesserScore,
		ActivePlayer: out.ActivePlayerID,
		GameOver:     out.GameOver != nil,
	})

	if out.GameOver != nil {
		s.Relay.ToRoom(comm.EventGameOver, roomCode, comm.GameOverData{
			Game:       out.GameOver.Game,
			WinnerId:   out.GameOver.WinnerPlayerID,
			Placements: out.GameOver.Placements,
		})
	}
}

// reportError sends a rejection back to the acting socket. Internal
// failures are logged and replaced with a generic message so invariant
// details never reach clients.
func (s *Ws) reportError(socketId string, action string, err error) {
	if engine.IsReject(err) {
		s.sendError(socketId, err.Error())
		return
	}
	log.Errorf("%s failed for socket %s: %v", action, socketId, err)
	s.sendError(socketId, "Something went wrong")
}

func (s *Ws) sendError(socketId string, message string) {
	s.Relay.ToSocket(comm.EventError, socketId, comm.ErrorData{Message: message})
}
