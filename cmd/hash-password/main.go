package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/angelmondragon/footfall-dashboard/pkg/config"
	"github.com/angelmondragon/footfall-dashboard/pkg/logger"
	"github.com/angelmondragon/footfall-dashboard/pkg/security"
)

const generatedLength = 20

// Prints an argon2id hash for FOOTFALL_OPERATOR_PASSWORD_HASH.
// Without -password or -stdin a random password is generated and printed alongside its hash.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "hash-password"})

	_ = godotenv.Load()

	password := flag.String("password", "", "password to hash")
	fromStdin := flag.Bool("stdin", false, "read the password from the first line of stdin")
	flag.Parse()

	var cfg config.PasswordConfig
	if err := envconfig.Process(config.EnvPrefix, &cfg); err != nil {
		logg.Error(ctx, "failed to load password config", err)
		os.Exit(1)
	}

	plain := *password
	if *fromStdin {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			logg.Error(ctx, "failed to read password from stdin", err)
			os.Exit(1)
		}
		plain = strings.TrimRight(line, "\r\n")
	}

	generated := false
	if plain == "" {
		value, err := security.GeneratePassword(generatedLength)
		if err != nil {
			logg.Error(ctx, "failed to generate password", err)
			os.Exit(1)
		}
		plain, generated = value, true
	}

	hash, err := security.HashPassword(plain, cfg)
	if err != nil {
		logg.Error(ctx, "failed to hash password", err)
		os.Exit(1)
	}

	if generated {
		fmt.Printf("password: %s\n", plain)
	}
	fmt.Printf("%s=%s\n", config.EnvOperatorPasswordHash, hash)
}
