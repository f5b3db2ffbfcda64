package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"eventplanner/internal/assistant"
	"eventplanner/internal/config"
	appLog "eventplanner/internal/log"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "Path to config file")
	listen := flag.String("listen", "", "HTTP listen address (overrides assistant.listen if set)")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", *configPath)
		os.Exit(1)
	}
	if *listen != "" {
		conf.Assistant.Listen = *listen
	}
	if lvl, err := appLog.ParseLevel(conf.LogLevel); err == nil {
		appLog.SetLevel(lvl)
	}

	ac := conf.Assistant
	apiKey := os.Getenv(ac.APIKeyEnv)
	if apiKey == "" {
		// Keep serving: every request answers 500 until the key is set.
		appLog.Error("API key not found in environment", errors.New("missing API key"), "env", ac.APIKeyEnv)
	}

	completer := assistant.NewCompleter(assistant.Config{
		BaseURL:     ac.BaseURL,
		Model:       ac.Model,
		APIKey:      apiKey,
		Temperature: *ac.Temperature,
		Timeout:     ac.Timeout,
	})

	mux := http.NewServeMux()
	mux.Handle("/chat", assistant.NewHandler(completer, completer.Model()))

	handler := cors.New(cors.Options{
		AllowedOrigins:   conf.AllowedOrigins,
		AllowedMethods:   []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(mux)

	srv := &http.Server{
		Addr:              ac.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()

	appLog.Info("assistant listening", "listen", "http://"+ac.Listen, "model", ac.Model, "base_url", ac.BaseURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("assistant server failed", err)
		os.Exit(1)
	}
	appLog.Info("assistant exiting")
}
