package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/shiftlane/onboard/internal/onboard/app"
)

func main() {
	// Missing .env is fine; config falls back to process env and defaults.
	_ = godotenv.Load()

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
