// Command migrate applies, inspects and rolls back the SkillSwap schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"skillswap/internal/config"
	"skillswap/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate/main.go <up|auto|status|down> [version]")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	switch cmd {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Println("sql migrations applied")
	case "auto":
		// Development shortcut; ApplySchema refuses it in prod-like environments.
		cfg.DBSchemaMode = string(database.SchemaModeAuto)
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("automigrations applied")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		printStatus(os.Stdout, status)
		if len(status.Pending()) > 0 {
			log.Printf("%d SkillSwap migration(s) pending; run `migrate up`", len(status.Pending()))
		}
	case "down":
		if flag.NArg() < 2 {
			return fmt.Errorf("usage: go run ./cmd/migrate/main.go down <version>")
		}
		version, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", flag.Arg(1), err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Printf("rolled back migration %d", version)
	default:
		return usage()
	}

	return nil
}

// printStatus writes one line per shipped migration, e.g.
//
//	[x] 000001_init_schema       users, skills, user skills, availability
//	[ ] 000002_swaps_and_feedback swap requests, feedback, pending-pair index
func printStatus(w io.Writer, status *database.SchemaStatus) {
	fmt.Fprintf(w, "SkillSwap schema: mode=%s env=%s sql=%t automigrate=%t\n",
		status.Mode, status.Environment, status.RunSQL, status.RunAutoMigrate)
	for _, m := range status.Migrations {
		mark := " "
		if m.Applied {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %-26s %s\n", mark, m.String(), migrationSummary[m.Name])
	}
	for _, version := range status.Unknown {
		fmt.Fprintf(w, "  [?] %06d (applied, not shipped with this binary)\n", version)
	}
}

var migrationSummary = map[string]string{
	"init_schema":        "users, skills, user skills, availability",
	"swaps_and_feedback": "swap requests, feedback, pending-pair index",
}
