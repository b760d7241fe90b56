// Package buildCFG assembles typed runtime configuration from the loaded
// config file and environment.
package buildCFG

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"

	"attendly/internal/mailer"
	"attendly/internal/service"
)

type ServerConfig struct {
	Port string
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		port = "8080"
		log.Warn().Msg("server.port not set, using default 8080")
	}
	return ServerConfig{Port: port}
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	masterDSN := cfg.GetString("database.master_dsn")
	if masterDSN == "" {
		return "", nil, nil, fmt.Errorf("database.master_dsn is required")
	}

	var slaveDSNs []string
	if raw := cfg.GetString("database.slave_dsns"); raw != "" {
		for _, dsn := range strings.Split(raw, ",") {
			if dsn = strings.TrimSpace(dsn); dsn != "" {
				slaveDSNs = append(slaveDSNs, dsn)
			}
		}
	}

	opts := &dbpg.Options{
		MaxOpenConns: cfg.GetInt("database.max_open_conns"),
		MaxIdleConns: cfg.GetInt("database.max_idle_conns"),
	}
	log.Info().Int("slaves", len(slaveDSNs)).Msg("database config built")
	return masterDSN, slaveDSNs, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{
		Url:      cfg.GetString("rabbit.url"),
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if rc.Url == "" {
		return RabbitConfig{}, fmt.Errorf("rabbit.url is required")
	}
	if rc.Exchange == "" {
		rc.Exchange = "notifications"
	}
	if rc.Queue == "" {
		rc.Queue = "notifications"
	}
	log.Info().Str("exchange", rc.Exchange).Str("queue", rc.Queue).Msg("rabbit config built")
	return rc, nil
}

func BuildMailerConfig(cfg *config.Config, log *zerolog.Logger) (mailer.Config, error) {
	mc := mailer.Config{
		Host:     cfg.GetString("smtp.host"),
		Port:     cfg.GetString("smtp.port"),
		Username: cfg.GetString("smtp.username"),
		Password: cfg.GetString("smtp.password"),
		From:     cfg.GetString("smtp.from"),
	}
	if mc.Host == "" {
		return mailer.Config{}, fmt.Errorf("smtp.host is required")
	}
	if mc.Port == "" {
		mc.Port = "587"
	}
	if mc.From == "" {
		mc.From = mc.Username
	}
	log.Info().Str("host", mc.Host).Msg("mailer config built")
	return mc, nil
}

func BuildServiceConfig(cfg *config.Config, log *zerolog.Logger) (service.Config, error) {
	sc := service.Config{
		FrontendURL: cfg.GetString("app.frontend_url"),
		JWTSecret:   cfg.GetString("app.jwt_secret"),
	}
	if sc.FrontendURL == "" {
		sc.FrontendURL = "http://localhost:3002"
		log.Warn().Msg("app.frontend_url not set, using default http://localhost:3002")
	}
	if sc.JWTSecret == "" {
		return service.Config{}, fmt.Errorf("app.jwt_secret is required")
	}

	ttlHours := cfg.GetInt("app.jwt_ttl_hours")
	if ttlHours <= 0 {
		ttlHours = 5
	}
	sc.JWTTTL = time.Duration(ttlHours) * time.Hour
	return sc, nil
}
