package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cyberinferno/lineserv/config"
	"github.com/cyberinferno/lineserv/event"
	"github.com/cyberinferno/lineserv/handler"
	"github.com/cyberinferno/lineserv/logger"
	"github.com/cyberinferno/lineserv/store"
	"github.com/cyberinferno/lineserv/tcpserver"
)

const serviceName = "lineserv"

func main() {
	// Load configuration from environment
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Close() }()

	// Session history backend
	recorder, err := buildRecorder(cfg)
	if err != nil {
		fatal(log, "failed to set up session store", err)
	}
	defer func() { _ = recorder.Close() }()

	// Handlers behind one registry listener
	registry := buildRegistry(cfg, log)

	// One server per configured service
	servers := make([]*tcpserver.Server, 0, len(cfg.Services))
	for _, svc := range cfg.Services {
		s := &tcpserver.Server{
			Logger:        log.With(logger.Field{Key: "server", Value: string(svc.Name)}),
			Name:          string(svc.Name),
			Addr:          svc.Addr,
			EventListener: registry,
			Mode:          tcpserver.Mode(cfg.Mode),
			MaxSessions:   cfg.MaxSessions,
			Recorder:      recorder,
		}
		if err := s.Start(); err != nil {
			for _, started := range servers {
				started.Stop()
			}
			fatal(log, "failed to start server", err)
		}
		servers = append(servers, s)
	}

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutdown signal received")
	for _, s := range servers {
		s.Stop()
	}
	log.Info("shutdown complete")
}

// buildLogger creates the console or file logger the configuration asks for.
func buildLogger(cfg *config.Config) (logger.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	if cfg.LogDir != "" {
		return logger.NewFileLogger(serviceName, cfg.LogDir, level)
	}

	return logger.NewConsole(serviceName, level), nil
}

// buildRecorder creates the configured session history backend. Redis is
// pinged up front so a bad address fails at startup, not mid-serve.
func buildRecorder(cfg *config.Config) (store.Recorder, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return store.NewMemoryRecorder(cfg.StoreRetention), nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}

		return store.NewRedisRecorder(client, cfg.StoreMaxLog), nil
	default:
		return store.NewNopRecorder(), nil
	}
}

// buildRegistry registers a handler for each handler kind the configured
// services use.
func buildRegistry(cfg *config.Config, log logger.Logger) *event.Registry {
	registry := event.NewRegistry()

	for _, svc := range cfg.Services {
		switch svc.Name {
		case config.HandlerEcho:
			registry.Register(string(config.HandlerEcho), &handler.Echo{
				Logger:   log,
				Greeting: greetingSource(cfg, handler.EchoGreeting),
			})
		case config.HandlerFile:
			registry.Register(string(config.HandlerFile), &handler.FileServe{
				DocumentRoot: cfg.DocumentRoot,
				Logger:       log,
				Greeting:     greetingSource(cfg, handler.FileServeGreeting),
			})
		}
	}

	return registry
}

// greetingSource picks the banner-file greeting when one is configured,
// otherwise the handler's default text.
func greetingSource(cfg *config.Config, fallback string) handler.GreetingSource {
	if cfg.GreetingFile == "" {
		return handler.StaticGreeting(fallback)
	}

	return handler.NewFileGreeting(cfg.GreetingFile, fallback, cfg.GreetingTTL)
}

// fatal logs the error and exits without running deferred cleanup.
func fatal(log logger.Logger, msg string, err error) {
	log.Error(msg, logger.Field{Key: "error", Value: err})
	_ = log.Close()
	os.Exit(1)
}
