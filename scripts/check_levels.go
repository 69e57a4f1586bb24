package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/elementalcave/cave-server-go/internal/board"
	"github.com/elementalcave/cave-server-go/internal/config"
	"github.com/elementalcave/cave-server-go/internal/level"
)

var intents = []board.Intent{
	board.IntentUp, board.IntentDown, board.IntentLeft, board.IntentRight,
	board.IntentAction, board.IntentSwitch, board.IntentUndo,
}

func main() {
	dir := flag.String("dir", "", "level directory (default: built-in levels)")
	configPath := flag.String("config", "", "path to configuration file")
	steps := flag.Int("steps", 2000, "random intents per level")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")
	flag.Parse()

	fmt.Println("=== Elemental Cave Level Check ===")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var levels *level.Catalog
	if *dir == "" {
		levels, err = level.Default()
	} else {
		levels, err = level.LoadDir(*dir)
	}
	if err != nil {
		log.Fatalf("Failed to load levels: %v", err)
	}
	fmt.Printf("Found %d levels, seed %d\n", levels.Len(), *seed)

	failed := 0
	for _, id := range levels.IDs() {
		if err := walk(cfg, levels, id, *steps, *seed); err != nil {
			fmt.Printf("✗ %s: %v\n", id, err)
			failed++
			continue
		}
		fmt.Printf("✓ %s\n", id)
	}

	// Report saved progress per level when a database is reachable.
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		if err := reportSaves(context.Background(), dbURL); err != nil {
			log.Printf("Warning: could not read save slots: %v", err)
		}
	}

	if failed > 0 {
		log.Fatalf("%d of %d levels failed", failed, levels.Len())
	}
	fmt.Println("All levels passed")
}

// walk plays random intents on one level with invariant checks enabled,
// resetting now and then so the early game is covered too.
func walk(cfg *config.Config, levels *level.Catalog, id string, steps int, seed uint64) error {
	lvl, err := levels.Level(id)
	if err != nil {
		return err
	}
	gen, err := cfg.Generation(lvl.Setup.Info.Generation)
	if err != nil {
		return err
	}
	// Invariant violations and settle failures are logged at error level
	// and above.
	core, logs := observer.New(zapcore.ErrorLevel)
	b, err := board.New(lvl.Setup, gen, zap.New(core), board.WithInvariantChecks(true))
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(seed, uint64(len(id))))
	for i := range steps {
		if i%250 == 249 {
			b.Reset()
		}
		in := intents[rng.IntN(len(intents))]
		if err := b.SubmitIntent(in); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, in, err)
		}
		if logs.Len() > 0 {
			return fmt.Errorf("step %d (%s): %s", i, in, logs.All()[0].Message)
		}
	}
	return b.CheckInvariants()
}

func reportSaves(ctx context.Context, dbURL string) error {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	fmt.Println("✓ Database connection established")

	rows, err := pool.Query(ctx, `SELECT level_id, COUNT(*), MAX(move_clock) FROM saves GROUP BY level_id ORDER BY level_id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			levelID  string
			count    int64
			maxClock int
		)
		if err := rows.Scan(&levelID, &count, &maxClock); err != nil {
			return err
		}
		fmt.Printf("  %s: %d saves, longest %d moves\n", levelID, count, maxClock)
	}
	return rows.Err()
}
