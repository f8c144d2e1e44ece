package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/avvvet/guesswho-services/configs"
	mongodb "github.com/avvvet/guesswho-services/internal/db"
	"github.com/avvvet/guesswho-services/internal/gamesvc/broker"
	"github.com/avvvet/guesswho-services/internal/gamesvc/db"
	"github.com/avvvet/guesswho-services/internal/gamesvc/engine"
	handlers "github.com/avvvet/guesswho-services/internal/gamesvc/handlers"
	"github.com/avvvet/guesswho-services/internal/gamesvc/registry"
	"github.com/avvvet/guesswho-services/internal/gamesvc/relay"
	"github.com/avvvet/guesswho-services/internal/gamesvc/service"
	"github.com/avvvet/guesswho-services/internal/gamesvc/store"
	"github.com/avvvet/guesswho-services/internal/gamesvc/ws"
	nats "github.com/avvvet/guesswho-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "game"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {

	// pg connection
	dbpool, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	// mongo connection for cross-game player stats
	statsdb, cancelMongo, err := mongodb.ConnectToDB()
	if err != nil {
		log.Fatalf("Failed to connect to mongo: %v", err)
	}
	defer cancelMongo()
	log.Printf("mongo connection established successfully")

	userStore := store.NewUserStore(dbpool)
	userService := service.NewUserService(userStore)

	gameStore := store.NewGameStore(dbpool)
	gameService := service.NewGameService(gameStore)

	gamePlayerStore := store.NewGamePlayerStore(dbpool)
	gamePlayerService := service.NewGamePlayerService(gamePlayerStore)

	roundStore := store.NewRoundStore(dbpool)
	roundService := service.NewRoundService(roundStore)

	questionStore := store.NewQuestionStore(dbpool)
	questionService := service.NewQuestionService(questionStore)

	answerStore := store.NewAnswerStore(dbpool)
	answerService := service.NewAnswerService(answerStore)

	guessStore := store.NewGuessStore(dbpool)
	guessService := service.NewGuessService(guessStore)

	secretStore := store.NewSecretStore(dbpool)
	secretService := service.NewSecretService(secretStore)

	characterStore := store.NewCharacterStore(dbpool)
	characterService := service.NewCharacterService(characterStore)

	statsStore := store.NewPlayerStatsStore(statsdb)
	statsService := service.NewStatsService(statsStore)

	// Connect to NATS
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	eng := engine.New(engine.Deps{
		Games:      gameService,
		Players:    gamePlayerService,
		Rounds:     roundService,
		Questions:  questionService,
		Answers:    answerService,
		Guesses:    guessService,
		Secrets:    secretService,
		Characters: characterService,
		Stats:      statsService,
	})

	reg := registry.NewRegistry()
	rel := relay.NewRelay(n.Conn)
	wsvc := ws.NewWs(reg, eng, rel, gameService, gamePlayerService)

	// fan game events back out to the connected sockets
	b := broker.NewBroker(n.Conn, wsvc.GetConnection, reg.SocketsInRoom)
	sub, err := b.Subscribe(relay.Topic)
	if err != nil {
		log.Errorf("Error: unable to subscribe to topic %v", err)
		os.Exit(0)
	}

	reg.StartInactivityMonitoring(func(socketID string) {
		wsvc.ForceDisconnect(socketID, "Disconnected for inactivity")
	})
	defer reg.StopInactivityMonitoring()

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	handlers.InitAuth()
	ws.InitAuth()

	h := handlers.NewHandler(eng, rel, reg, gameService, gamePlayerService, userService, statsService)
	handlers.SetRoutes(r, h)
	ws.SetRoutes(r, wsvc)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("GAME_SERVICE_PORT"),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
