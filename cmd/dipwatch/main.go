package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dipwatch/internal/config"
	"dipwatch/internal/logger"
	"dipwatch/internal/service"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(cfg.LogLevel)

	// run service in background
	svc := service.New(cfg)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := svc.Run(ctx); err != nil {
			log.Printf("service exited: %v", err)
			cancel()
		}
	}()

	// wait for termination signals
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigs:
		log.Println("shutting down")
		cancel()
	case <-ctx.Done():
	}

	// let the service drain any in-flight sweep
	<-done
	log.Println("exited")
}
