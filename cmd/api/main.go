package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hospital-voice-agent/internal/auth"
	"hospital-voice-agent/internal/booking"
	"hospital-voice-agent/internal/config"
	"hospital-voice-agent/internal/dialogue"
	"hospital-voice-agent/internal/export"
	"hospital-voice-agent/internal/httpapi"
	"hospital-voice-agent/internal/responder"
	"hospital-voice-agent/internal/telephony"
	"hospital-voice-agent/internal/voice"
	"hospital-voice-agent/pkg/logger"
	"hospital-voice-agent/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local convenience; in deployed environments the env is real.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	var bookings booking.Repository
	switch cfg.Dialogue.BookingStore {
	case "postgres":
		db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		bookings = booking.NewPostgresRepo(db)
	default:
		bookings = booking.NewMemoryRepo()
	}

	var states dialogue.Store
	switch cfg.Dialogue.StateStore {
	case "redis":
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		// Key TTL doubles as the idle sweep for abandoned calls.
		states = dialogue.NewRedisStore(rdb, cfg.Dialogue.StateTTL)
	default:
		ms := dialogue.NewMemoryStore(cfg.Dialogue.StateTTL)
		go ms.RunSweeper(rootCtx, cfg.Dialogue.SweepInterval, log)
		states = ms
	}

	respond, err := responder.NewOpenAI(cfg.OpenAI)
	if err != nil {
		log.Error("responder init failed", "err", err)
		os.Exit(1)
	}

	var exporter export.Exporter
	if cfg.Sheets.SpreadsheetID != "" {
		sheetsExporter, err := export.NewSheetsExporter(rootCtx, cfg.Sheets)
		if err != nil {
			log.Error("sheets init failed", "err", err)
			os.Exit(1)
		}
		exporter = sheetsExporter
	} else {
		exporter = export.NewLogExporter(log)
	}

	dialer := telephony.NewRestDialer(cfg.Twilio)

	orch := voice.NewOrchestrator(voice.Options{
		Store:            states,
		Engine:           dialogue.NewEngine(cfg.Dialogue.MaxStageAttempts, cfg.Dialogue.MaxConfirmationAttempts),
		Extractor:        dialogue.NewRegexExtractor(),
		Responder:        respond,
		Bookings:         bookings,
		Exporter:         exporter,
		Logger:           log,
		ResponderTimeout: cfg.Dialogue.ResponderTimeout,
		FinalizeTimeout:  cfg.Dialogue.FinalizeTimeout,
	})

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		cfg:  cfg,
		log:  log,
		auth: authManager,
		api: httpapi.Handlers{
			Auth:          authManager,
			AdminAPIKey:   cfg.Auth.AdminAPIKey,
			Bookings:      bookings,
			Store:         states,
			Dialer:        dialer,
			PublicBaseURL: cfg.Twilio.PublicBaseURL,
			Logger:        log,
		},
		voice: &voice.Handlers{Orchestrator: orch, Logger: log},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	// Confirmed bookings already spoken to the caller must reach storage.
	orch.Wait()
	log.Info("shutdown complete")
}
