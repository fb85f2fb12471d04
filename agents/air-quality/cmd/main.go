package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	airquality "air-quality-stack/agents/air-quality"
	"air-quality-stack/shared/config"
	"air-quality-stack/shared/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create context that responds to signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	once := len(os.Args) > 1 && os.Args[1] == "--once"
	if err := run(ctx, cfg, once); err != nil {
		cancel()
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, once bool) error {
	agent := airquality.NewAirQualityAgent(cfg)
	defer func() {
		if err := agent.Close(); err != nil {
			log.Printf("Failed to close agent connections: %v", err)
		}
	}()
	s := scheduler.New(cfg, agent)

	if once {
		fmt.Println("Running once...")
		if err := agent.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize agent: %w", err)
		}

		if err := s.RunOnce(ctx); err != nil {
			return fmt.Errorf("failed to run: %w", err)
		}
		if report := agent.LastReport(); report != nil {
			fmt.Println(airquality.RenderTerminal(report))
		}
		return nil
	}

	fmt.Println("Starting scheduler...")

	if err := s.Start(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("scheduler failed: %w", err)
	}
	return nil
}
