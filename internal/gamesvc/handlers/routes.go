package handlers

import (
	"os"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

var tokenAuth *jwtauth.JWTAuth

func SetRoutes(r *chi.Mux, h *Handler) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)
		r.Post("/auth/login", h.LoginHandler)

		// read-only game projections
		r.Get("/games/{code}", h.GameStateHandler)
		r.Get("/games/{code}/lobby", h.LobbyHandler)
		r.Get("/games/{code}/questions", h.QuestionsHandler)
		r.Get("/games/{code}/answers", h.AnswersHandler)
		r.Get("/games/{code}/result", h.ResultHandler)
		r.Get("/stats/{userID}", h.StatsHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Post("/games", h.CreateGameHandler)
			r.Post("/games/{code}/join", h.JoinGameHandler)
			r.Post("/games/{code}/leave", h.LeaveGameHandler)
			r.Post("/games/{code}/ready", h.ReadyHandler)
			r.Post("/games/{code}/start", h.StartGameHandler)
			r.Post("/games/{code}/questions", h.AskQuestionHandler)
			r.Post("/games/{code}/questions/{id}/answer", h.SubmitAnswerHandler)
			r.Post("/games/{code}/guesses", h.SubmitGuessHandler)
		})
	})
}

func InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)
}
