package main

import (
	"log"

	"github.com/MrSnakeDoc/localdrop/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ localdrop failed to start: %v", err)
	}
}
