package main

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/incridea/capture-pipeline/pkg/capture/repo/postgres"
)

type migrateEnv struct {
	DatabaseURL string `env:"DATABASE_URL"`
}

func main() {
	var env migrateEnv
	if err := cleanenv.ReadEnv(&env); err != nil {
		fmt.Println("[ERROR]", err)
		os.Exit(1)
	}
	if env.DatabaseURL == "" {
		fmt.Println("[ERROR] DATABASE_URL is required")
		os.Exit(1)
	}

	if err := postgres.Migrate(env.DatabaseURL); err != nil {
		fmt.Println("[ERROR]", err)
		os.Exit(1)
	}
	fmt.Println("migrations applied")
}
