package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"station-climatology/internal/config"
	"station-climatology/migrations"
	"station-climatology/pkg/database"
	"station-climatology/pkg/logging"
	"station-climatology/pkg/metrics"
)

type CmdArgs struct {
	Direction string `long:"direction" default:"up" choice:"up" choice:"down" description:"Migration direction"`
	List      bool   `long:"list" description:"Print the scripts that would run and exit"`
}

func main() {
	args := CmdArgs{}
	if _, err := flags.Parse(&args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	direction := migrations.Direction(args.Direction)

	if args.List {
		scripts, err := migrations.Scripts(direction)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read migrations: %v\n", err)
			os.Exit(1)
		}
		for _, s := range scripts {
			fmt.Println(s.Name)
		}
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("climatology-migrate", "1.0.0", cfg.LogLevel())
	defer logger.Sync()

	db, err := database.Open(cfg.DBConfig(), logger, metrics.NewCollector("climatology_migrate"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("Connected to %s database successfully\n", db.Driver())

	applied, err := db.Migrate(context.Background(), direction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute migration: %v\n", err)
		os.Exit(1)
	}

	for _, name := range applied {
		fmt.Printf("Applied: %s\n", name)
	}
	fmt.Println("Migration completed successfully")
}
