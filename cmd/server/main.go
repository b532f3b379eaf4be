// Command server runs the chat backend: the REST API, the websocket live
// layer, and the SQLite persistence behind both.
//
// Startup order matters: configuration and logging first, then tracing, then
// the database and services, then the hub loop, and only then the HTTP
// listener. Shutdown reverses it: stop accepting requests, stop the hub,
// flush traces.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/crazychat/chat-backend/internal/config"
	"github.com/crazychat/chat-backend/internal/domain"
	httpapi "github.com/crazychat/chat-backend/internal/http"
	"github.com/crazychat/chat-backend/internal/observability"
	"github.com/crazychat/chat-backend/internal/repo"
	"github.com/crazychat/chat-backend/internal/services"
	"github.com/crazychat/chat-backend/internal/sysutil"
	"github.com/crazychat/chat-backend/internal/ws"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// userRepoShim adapts the repository free functions to the services.UserRepo
// interface expected by the IdentityService. This keeps services decoupled
// from the concrete repo package while reusing existing functions.
type userRepoShim struct{}

func (userRepoShim) CreateUser(ctx context.Context, db *gorm.DB, username, email, passwordHash, avatar string) (*domain.User, error) {
	return repo.CreateUser(ctx, db, username, email, passwordHash, avatar)
}

func (userRepoShim) GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	return repo.GetUser(ctx, db, id)
}

func (userRepoShim) GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	return repo.GetUserByUsername(ctx, db, username)
}

func (userRepoShim) GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return repo.GetUserByEmail(ctx, db, email)
}

func (userRepoShim) ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	return repo.ListUsers(ctx, db)
}

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate schema")
	}

	idSvc := services.NewIdentityService(db, userRepoShim{}, cfg.Auth.JWTSecret)
	idSvc.TokenTTL = cfg.Auth.TokenTTL
	idSvc.BcryptCost = cfg.Auth.BcryptCost

	convSvc := services.NewConversationService(db)
	convSvc.MaxBodyRunes = cfg.WS.MessageLimit
	convSvc.HistoryLimit = cfg.HistoryLimit

	contactSvc := services.NewContactService(db)

	hub := ws.NewHub(cfg.WS, idSvc, convSvc, log.Logger)
	go hub.Run()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		Identity:  idSvc,
		Convs:     convSvc,
		Contacts:  contactSvc,
		Verifier:  idSvc,
		WSHandler: ws.NewHandler(hub, cfg.CORS.AllowedOrigins, log.Logger),
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	hub.Close()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
}
