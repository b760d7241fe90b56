package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"attendly/cmd/buildCFG"
	"attendly/internal/api/api"
	rabbitReader "attendly/internal/consumerWorker"
	"attendly/internal/mailer"
	"attendly/internal/notifier"
	"attendly/internal/rabbit"
	"attendly/internal/repo"
	"attendly/internal/service"
)

func main() {
	zlog.Init()
	log := zlog.Logger

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", "'"); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildCFG.BuildServerConfig(cfg, &log)
	port := serverCfg.Port

	masterDSN, slaveDSNs, poolOptions, err := buildCFG.BuildDBConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build DB config")
	}
	db, err := dbpg.New(masterDSN, slaveDSNs, poolOptions)
	if err != nil {
		log.Fatal().Msgf("failed to connect to DB: %v", err)
	}
	if err := db.Master.Ping(); err != nil {
		log.Fatal().Msgf("DB ping failed: %v", err)
	}
	log.Info().Msg("Database connected successfully")

	repository, err := repo.NewRepository(db, &log)
	if err != nil {
		log.Fatal().Msgf("failed to initialize repository: %v", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot get working directory")
	}
	migrationPath := filepath.Join(cwd, "migrations/postgres")

	// "rollback" drops the schema and exits instead of serving.
	if len(os.Args) > 1 && os.Args[1] == "rollback" {
		if err := repository.MigrateDown(migrationPath); err != nil {
			log.Fatal().Err(err).Msg("rollback failed")
		}
		log.Info().Msg("Migrations rolled back successfully")
		return
	}

	if err := repository.MigrateUp(migrationPath); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("Migrations applied successfully")

	rabbitCfg, err := buildCFG.BuildRabbitConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load RabbitMQ config")
	}
	rmq, err := rabbit.NewRabbit(rabbitCfg.Url, rabbitCfg.Exchange, rabbitCfg.Queue)
	if err != nil {
		log.Fatal().Msgf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rmq.Close()

	mailerCfg, err := buildCFG.BuildMailerConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load mailer config")
	}
	sender := mailer.New(mailerCfg, &log)
	dispatcher := notifier.New(sender, repository, &log)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())

	rabbitReaderer := rabbitReader.NewReader(rmq, repository, dispatcher)
	go rabbitReaderer.Start(workerCtx)

	serviceCfg, err := buildCFG.BuildServiceConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load service config")
	}
	serviceInstance := service.NewService(repository, &log, rmq, dispatcher, serviceCfg)
	app := api.NewRouters(&api.Routers{Service: serviceInstance, JWTSecret: serviceCfg.JWTSecret})

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", port)
		if err := app.Run(":" + port); err != nil {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	cancelWorkers()
	rabbitReaderer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if closer, ok := interface{}(app).(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(shutdownCtx); err != nil {
			log.Error().Msgf("Error shutting down server: %v", err)
		}
	}

	log.Info().Msg("Shutdown complete")
}
