package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Octopus-Moneycoach/coaching-ai/api"
	"github.com/Octopus-Moneycoach/coaching-ai/config"
	"github.com/Octopus-Moneycoach/coaching-ai/log"
	"github.com/Octopus-Moneycoach/coaching-ai/server"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Get()
	log.SetLevel(cfg.LogLevel)

	// Gin's debug output is replaced by the zerolog request logger
	gin.SetMode(gin.ReleaseMode)

	srv, err := server.New(&server.Config{
		Port:                 cfg.Port,
		Host:                 cfg.Host,
		Env:                  cfg.Env,
		DatabasePath:         cfg.DatabasePath,
		DBLogQueries:         cfg.DBLogQueries,
		ChunkSize:            cfg.ChunkSize,
		ChunkOverlap:         cfg.ChunkOverlap,
		ChunkLookback:        cfg.ChunkLookback,
		RepairPasses:         cfg.RepairPasses,
		RequireEvidence:      cfg.RequireEvidence,
		MaxConcurrency:       cfg.MaxConcurrency,
		ChecklistPath:        cfg.ChecklistPath,
		Workers:              cfg.Workers,
		QueueSize:            cfg.QueueSize,
		MaxAttempts:          cfg.MaxAttempts,
		AssessTimeout:        cfg.AssessTimeout,
		InboxDir:             cfg.InboxDir,
		KBExamplesPerCheck:   cfg.KBExamplesPerCheck,
		KafkaEnabled:         cfg.KafkaEnabled,
		KafkaBrokers:         cfg.KafkaBrokers,
		KafkaTopicCompleted:  cfg.KafkaTopicCompleted,
		KafkaTopicEscalation: cfg.KafkaTopicEscalation,
		KafkaPrincipal:       cfg.KafkaPrincipal,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}

	api.SetupRoutes(srv.Router(), api.NewHandlers(srv))

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	log.Info().Msg("server stopped")
}
