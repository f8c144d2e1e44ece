package ws

import (
	"net/http"
	"os"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

var tokenAuth *jwtauth.JWTAuth

func SetRoutes(r *chi.Mux, s *Ws) {
	h := NewHandler(s)
	r.Get("/v1/ws", h.HandleWebSocket)
}

func InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)
}

// userIDFromRequest resolves the connecting user from the `token`
// query parameter. Missing or invalid tokens degrade to a guest
// connection rather than failing the upgrade.
func userIDFromRequest(r *http.Request) int64 {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		return 0
	}

	token, err := tokenAuth.Decode(tokenString)
	if err != nil {
		log.Warnf("invalid websocket token: %v", err)
		return 0
	}

	claim, ok := token.Get("user_id")
	if !ok {
		return 0
	}

	switch v := claim.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		log.Warnf("unexpected user_id claim type %T", claim)
		return 0
	}
}
