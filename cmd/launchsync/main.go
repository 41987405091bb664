package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/protera/launchsync/internal/cli"
)

func main() {
	// Export .env into the process environment so the AWS SDK credential
	// chain sees it too, not just our own config layer.
	_ = godotenv.Load()

	if err := cli.Run(); err != nil {
		log.Fatal(err)
	}
}
