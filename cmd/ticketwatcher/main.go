package main

import (
	"log"

	"github.com/joho/godotenv"

	"ticket-price-alerts/internal/cli"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
}

func main() {
	cli.Execute()
}
