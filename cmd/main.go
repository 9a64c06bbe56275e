package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/burakmert236/courtside/app"
	"github.com/burakmert236/courtside/common/config"
)

func main() {
	env := config.NewEnvLoader("COURTSIDE")

	cfg, err := config.Load(env.GetString("CONFIG_PATH", "./config"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if env.GetBool("DEV_LOGGING", false) {
		cfg.Log.Level = "debug"
		cfg.Log.Format = "console"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, appErr := app.New(ctx, cfg)
	if appErr != nil {
		log.Fatalf("Failed to initialize application: %v", appErr)
	}

	if appErr := application.Start(); appErr != nil {
		log.Fatalf("Failed to start application: %v", appErr)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gracefully...")

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if appErr := application.Stop(); appErr != nil {
			log.Printf("Error during shutdown: %v", appErr)
		}
	}()

	select {
	case <-stopped:
	case <-time.After(env.GetDuration("SHUTDOWN_TIMEOUT", 30*time.Second)):
		log.Println("Shutdown timed out")
	}
}
