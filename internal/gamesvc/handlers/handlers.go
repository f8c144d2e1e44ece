package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/guesswho-services/internal/comm"
	"github.com/avvvet/guesswho-services/internal/gamesvc/engine"
	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/avvvet/guesswho-services/internal/gamesvc/registry"
	"github.com/avvvet/guesswho-services/internal/gamesvc/relay"
	"github.com/avvvet/guesswho-services/internal/gamesvc/service"
	"github.com/avvvet/guesswho-services/internal/gamesvc/store"
)

// Handler is the REST mirror of the socket gameplay surface: the same
// engine calls, the same relay broadcasts, addressed by room code.
type Handler struct {
	engine   *engine.Engine
	relay    *relay.Relay
	registry *registry.Registry
	games    *service.GameService
	players  *service.GamePlayerService
	users    *service.UserService
	stats    *service.StatsService
}

func NewHandler(eng *engine.Engine, rel *relay.Relay, reg *registry.Registry,
	games *service.GameService, players *service.GamePlayerService,
	users *service.UserService, stats *service.StatsService) *Handler {
	return &Handler{
		engine:   eng,
		relay:    rel,
		registry: reg,
		games:    games,
		players:  players,
		users:    users,
		stats:    stats,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	json.NewEncoder(w).Encode(rsp)
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "game service is running at port " + os.Getenv("SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	json.NewEncoder(w).Encode(rsp)
}

// LoginHandler upserts the user record and issues the JWT the client
// presents on the REST surface and as the websocket token parameter.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserId int64  `json:"user_id"`
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.CreateResponse(w, Response{Message: "bad_request", Code: http.StatusBadRequest, Error: "invalid payload"})
		return
	}
	if payload.UserId == 0 || payload.Name == "" {
		h.CreateResponse(w, Response{Message: "bad_request", Code: http.StatusBadRequest, Error: "user_id and name are required"})
		return
	}

	user, err := h.users.GetOrCreateUser(r.Context(), models.User{
		UserId: payload.UserId,
		Name:   payload.Name,
		Avatar: payload.Avatar,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()
	_, tokenString, err := tokenAuth.Encode(map[string]interface{}{
		"user_id": user.UserId,
		"exp":     expirationTime,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Message: "logged in",
		Code:    http.StatusOK,
		Data: map[string]interface{}{
			"user":  user,
			"token": tokenString,
		},
	})
}

// userIDFromClaims reads the authenticated user from the verified JWT.
func userIDFromClaims(r *http.Request) int64 {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return 0
	}
	switch v := claims["user_id"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

// writeEngineError translates engine failures: rejections become 4xx
// responses with the rejection code, invariant violations become an
// opaque 500.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	var re *engine.RejectError
	if errors.As(err, &re) {
		h.CreateResponse(w, Response{
			Message: re.Code,
			Code:    rejectStatus(re.Code),
			Error:   re.Message,
		})
		return
	}

	log.Errorf("internal error: %v", err)
	h.CreateResponse(w, Response{
		Message: "internal_error",
		Code:    http.StatusInternalServerError,
		Error:   "Something went wrong",
	})
}

func rejectStatus(code string) int {
	switch code {
	case engine.CodeGameNotFound, engine.CodeTargetNotFound:
		return http.StatusNotFound
	case engine.CodeNotParticipant, engine.CodeNotYourTurn, engine.CodeNotYourQuestion, engine.CodeSelfGuess:
		return http.StatusForbidden
	case engine.CodeWrongStatus, engine.CodeWrongState, engine.CodeAlreadyAnswered,
		engine.CodeGuessLimit, engine.CodeNotReady, engine.CodeLobbySize, engine.CodeNoCharacters:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// CreateGameHandler opens a new lobby under a fresh room code and
// seats the creator.
func (h *Handler) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromClaims(r)
	if userID == 0 {
		h.CreateResponse(w, Response{Message: "unauthorized", Code: http.StatusUnauthorized, Error: "authentication required"})
		return
	}

	var payload struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.CreateResponse(w, Response{Message: "bad_request", Code: http.StatusBadRequest, Error: "invalid payload"})
		return
	}

	game, err := h.games.CreateGame(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	seat, err := h.players.CreatePlayerIfLobbyOpen(r.Context(), game.ID, userID, payload.Username)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Message: "game created",
		Code:    http.StatusCreated,
		Data: map[string]interface{}{
			"game":   game,
			"player": seat,
		},
	})
}

// JoinGameHandler seats the authenticated user in an open lobby.
func (h *Handler) JoinGameHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromClaims(r)
	if userID == 0 {
		h.CreateResponse(w, Response{Message: "unauthorized", Code: http.StatusUnauthorized, Error: "authentication required"})
		return
	}

	var payload struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.CreateResponse(w, Response{Message: "bad_request", Code: http.StatusBadRequest, Error: "invalid payload"})
		return
	}

	code := chi.URLParam(r, "code")
	game, err := h.games.GetGameByCode(r.Context(), code)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if game == nil {
		h.CreateResponse(w, Response{Message: engine.CodeGameNotFound, Code: http.StatusNotFound, Error: "game not found"})
		return
	}

	seat, err := h.players.GetPlayerByGameAndUser(r.Context(), game.ID, userID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if seat == nil {
		seat, err = h.players.CreatePlayerIfLobbyOpen(r.Context(), game.ID, userID, payload.Username)
		if err != nil {
			if errors.Is(err, store.ErrLobbyFull) {
				h.CreateResponse(w, Response{Message: engine.CodeLobbySize, Code: http.StatusConflict, Error: "room is full"})
				return
			}
			h.writeEngineError(w, err)
			return
		}
	}

	if lobby, err := h.engine.Lobby(r.Context(), game.RoomCode); err == nil {
		h.relay.ToRoom(comm.EventPlayerJoined, game.RoomCode, comm.PlayerEvent{
			RoomCode: game.RoomCode,
			PlayerId: seat.ID,
			Username: seat.Username,
		})
		h.relay.ToRoom(comm.EventLobbyUpdate, game.RoomCode, comm.LobbyData{
			Game:    lobby.Game,
			Players: lobby.Players,
		})
	}

	h.CreateResponse(w, Response{
		Message: "joined",
		Code:    http.StatusOK,
		Data:    seat,
	})
}

func (h *Handler) LeaveGameHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromClaims(r)
	code := chi.URLParam(r, "code")

	game, err := h.games.GetGameByCode(r.Context(), code)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if game == nil {
		h.CreateResponse(w, Response{Message: engine.CodeGameNotFound, Code: http.StatusNotFound, Error: "game not found"})
		return
	}

	seat, err := h.players.GetPlayerByGameAndUser(r.Context(), game.ID, userID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if seat == nil {
		h.CreateResponse(w, Response{Message: engine.CodeNotParticipant, Code: http.StatusForbidden, Error: "you are not a player in this game"})
		return
	}

	lobby, over, err := h.engine.LeaveGame(r.Context(), code, seat.ID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.relay.ToRoom(comm.EventPlayerLeft, game.RoomCode, comm.PlayerEvent{
		RoomCode: game.RoomCode,
		PlayerId: seat.ID,
		Username: seat.Username,
	})
	h.relay.ToRoom(comm.EventLobbyUpdate, game.RoomCode, comm.LobbyData{
		Game:    lobby.Game,
		Players: lobby.Players,
	})
	if over != nil {
		h.relay.ToRoom(comm.EventGameOver, game.RoomCode, comm.GameOverData{
			Game:       over.Game,
			WinnerId:   over.WinnerPlayerID,
			Placements: over.Placements,
		})
	}

	h.CreateResponse(w, Response{
		Message: "left",
		Code:    http.StatusOK,
		Data:    lobby,
	})
}

func (h *Handler) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Ready bool `json:"ready"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.CreateResponse(w, Response{Message: "bad_request", Code: http.StatusBadRequest, Error: "invalid payload"})
		return
	}

	lobby, err := h.engine.SetReady(r.Context(), chi.URLParam(r, "code"), userIDFromClaims(r), payload.Ready)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.relay.ToRoom(comm.EventLobbyUpdate, lobby.Game.RoomCode, comm.LobbyData{
		Game:    lobby.Game,
		Players: lobby.Players,
	})

	h.CreateResponse(w, Response{
		Message: "ready updated",
		Code:    http.StatusOK,
		Data:    lobby,
	})
}

func (h *Handler) StartGameHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.StartGame(r.Context(), chi.URLParam(r, "code"), userIDFromClaims(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.relay.ToRoom(comm.EventGameStarted, res.Game.RoomCode, comm.GameStartedData{
		Game:         res.Game,
		Players:      res.Players,
		Round:        res.Round,
		ActivePlayer: res.Round.ActivePlayerID,
	})

	// assignments are delivered over each player's socket, never here
	for _, a := range res.Assignments {
		target, ok := h.registry.SocketForPlayer(res.Game.RoomCode, a.Player.ID)
		if !ok {
			log.Warnf("no socket for player %d in room %s, skipping assignment push", a.Player.ID, res.Game.RoomCode)
			continue
		}
		h.relay.ToSocket(comm.EventCharacterAssigned, target, comm.CharacterAssignedData{
			PlayerId:  a.Player.ID,
			Character: a.Character,
		})
	}

	h.CreateResponse(w, Response{
		Message: "game started",
		Code:    http.StatusOK,
		Data: map[string]interface{}{
			"game":    res.Game,
			"players": res.Players,
			"round":   res.Round,
		},
	})
}

func (h *Handler) GameStateHandler(w http.ResponseWriter, r *http.Request) {
	state, err := h.engine.GameState(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Message: "game state",
		Code:    http.StatusOK,
		Data:    state,
	})
}

func (h *Handler) LobbyHandler(w http.ResponseWriter, r *http.Request) {
	lobby, err := h.engine.Lobby(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Message: "lobby",
		Code:    http.StatusOK,
		Data:    lobby,
	})
}

func (h *Handler) AskQuestionHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TargetPlayerId int64  `json:"target_player_id"`
		Text           string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.CreateResponse(w, Response{Message: "bad_request", Code: http.StatusBadRequest, Error: "invalid payload"})
		return
	}

	res, err := h.engine.AskQuestion(r.Context(), chi.URLParam(r, "code"), userIDFromClaims(r),
		payload.TargetPlayerId, payload.Text)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.relay.ToRoom(comm.EventQuestionAsked, store.NormalizeRoomCode(chi.URLParam(r, "code")), comm.QuestionData{
		Question:     res.Question,
		Round:        res.Round,
		ActivePlayer: res.Round.ActivePlayerID,
	})

	h.CreateResponse(w, Response{
		Message: "question asked",
		Code:    http.StatusCreated,
		Data:    res,
	})
}

func (h *Handler) SubmitAnswerHandler(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.CreateResponse(w, Response{Message: "bad_request", Code: http.StatusBadRequest, Error: "invalid question id"})
		return
	}

	var payload struct {
		Value string `json:"value"`
		Note  string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.CreateResponse(w, Response{Message: "bad_request", Code: http.StatusBadRequest, Error: "invalid payload"})
		return
	}

	res, err := h.engine.SubmitAnswer(r.Context(), chi.URLParam(r, "code"), userIDFromClaims(r),
		questionID, payload.Value, payload.Note)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.relay.ToRoom(comm.EventAnswerSubmitted, store.NormalizeRoomCode(chi.URLParam(r, "code")), comm.AnswerData{
		Answer:       res.Answer,
		Round:        res.Round,
		ActivePlayer: res.Round.ActivePlayerID,
	})

	h.CreateResponse(w, Response{
		Message: "answer submitted",
		Code:    http.StatusCreated,
		Data:    res,
	})
}

func (h *Handler) SubmitGuessHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TargetPlayerId int64 `json:"target_player_id"`
		CharacterId    int64 `json:"character_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.CreateResponse(w, Response{Message: "bad_request", Code: http.StatusBadRequest, Error: "invalid payload"})
		return
	}

	out, err := h.engine.SubmitGuess(r.Context(), chi.URLParam(r, "code"), userIDFromClaims(r),
		payload.TargetPlayerId, payload.CharacterId)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	roomCode := store.NormalizeRoomCode(chi.URLParam(r, "code"))
	h.relay.ToRoom(comm.EventGuessResult, roomCode, comm.GuessResultData{
		Guess:        out.Guess,
		IsCorrect:    out.IsCorrect,
		GuesserScore: out.GuesserScore,
		ActivePlayer: out.ActivePlayerID,
		GameOver:     out.GameOver != nil,
	})
	if out.GameOver != nil {
		h.relay.ToRoom(comm.EventGameOver, roomCode, comm.GameOverData{
			Game:       out.GameOver.Game,
			WinnerId:   out.GameOver.WinnerPlayerID,
			Placements: out.GameOver.Placements,
		})
	}

	h.CreateResponse(w, Response{
		Message: "guess submitted",
		Code:    http.StatusCreated,
		Data:    out,
	})
}

func (h *Handler) QuestionsHandler(w http.ResponseWriter, r *http.Request) {
	questions, err := h.engine.Questions(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Message: "questions",
		Code:    http.StatusOK,
		Data:    questions,
	})
}

func (h *Handler) AnswersHandler(w http.ResponseWriter, r *http.Request) {
	answers, err := h.engine.Answers(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Message: "answers",
		Code:    http.StatusOK,
		Data:    answers,
	})
}

func (h *Handler) ResultHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.GameOverResult(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Message: "result",
		Code:    http.StatusOK,
		Data:    result,
	})
}

// StatsHandler returns the cross-game aggregate for one user.
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		h.CreateResponse(w, Response{Message: "bad_request", Code: http.StatusBadRequest, Error: "invalid user id"})
		return
	}

	stats, err := h.stats.GetByUserID(r.Context(), userID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if stats == nil {
		h.CreateResponse(w, Response{Message: "not_found", Code: http.StatusNotFound, Error: "no stats for user"})
		return
	}

	h.CreateResponse(w, Response{
		Message: "stats",
		Code:    http.StatusOK,
		Data:    stats,
	})
}
