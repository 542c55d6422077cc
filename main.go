package main

import (
	"fmt"
	"os"
	"path/filepath"

	"ledgercat/cmd/ingest"
	"ledgercat/cmd/root"
	"ledgercat/cmd/serve"
	"ledgercat/cmd/train"

	"github.com/joho/godotenv"
)

func init() {
	// Load environment variables silently before any configuration
	// reads them.
	loadEnvSilently()

	root.Init()

	root.Cmd.AddCommand(serve.Cmd)
	root.Cmd.AddCommand(ingest.Cmd)
	root.Cmd.AddCommand(train.Cmd)
}

// loadEnvSilently loads environment variables without logging anything
func loadEnvSilently() {
	// Try to find .env file in current directory
	envFile := ".env"
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		// Try to find .env in parent directory (project root)
		envFile = filepath.Join("..", ".env")
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			return
		}
	}

	_ = godotenv.Load(envFile)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
