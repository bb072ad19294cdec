package main

import (
	"github.com/joho/godotenv"

	_ "github.com/ajitpratap0/launchpad/examples/addition"
	"github.com/ajitpratap0/launchpad/pkg/cli"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cli.Execute(version)
}
