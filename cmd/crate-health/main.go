package main

import (
	"github.com/joho/godotenv"

	"cratehealth/internal/cli"
)

func main() {
	// A .env in the working directory may set CRATE_HEALTH_ROOT and
	// CRATE_HEALTH_LOG_LEVEL.
	_ = godotenv.Load()
	cli.Execute()
}
