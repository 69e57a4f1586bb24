package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/elementalcave/cave-server-go/internal/config"
	"github.com/elementalcave/cave-server-go/internal/level"
	"github.com/elementalcave/cave-server-go/internal/replay"
	"github.com/elementalcave/cave-server-go/internal/session"
	"github.com/elementalcave/cave-server-go/internal/tui"
)

var (
	configPath = flag.String("config", "", "path to configuration file")
	levelID    = flag.String("level", "", "level to start on (default from config)")
	logPath    = flag.String("log", "cave.log", "file to write logs to")
	replayID   = flag.String("replay", "", "view a recorded replay instead of playing")
	sound      = flag.Bool("sound", false, "play sound cues")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.OutputPaths = []string{*logPath}
	zapCfg.ErrorOutputPaths = []string{*logPath}
	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.Replays.Directory, 0o755); err != nil {
		return fmt.Errorf("failed to create replay directory: %w", err)
	}
	recorder := replay.NewRecorder(logger, cfg.Replays.Directory)

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	if *replayID != "" {
		return viewReplay(cfg, recorder, screen, logger)
	}

	var levels *level.Catalog
	if cfg.Levels.Directory == "" {
		levels, err = level.Default()
	} else {
		levels, err = level.LoadDir(cfg.Levels.Directory)
	}
	if err != nil {
		return err
	}

	mgr := session.NewManager(session.Options{
		Levels:          levels,
		Generations:     cfg,
		Recorder:        recorder,
		DefaultLevel:    cfg.Levels.Default,
		LeasePeriod:     24 * time.Hour,
		InvariantChecks: cfg.Rules.InvariantChecks,
	}, logger)

	var sounds *tui.Sounds
	if *sound {
		if sounds, err = tui.NewSounds(); err != nil {
			logger.Warn("sound disabled", zap.Error(err))
		}
		defer sounds.Close()
	}

	app := tui.NewApp(screen, mgr, ownerName(), sounds, logger)
	if err := app.Start(*levelID); err != nil {
		return err
	}
	return app.Run(screen.PollEvent)
}

func viewReplay(cfg *config.Config, recorder *replay.Recorder, screen tcell.Screen, logger *zap.Logger) error {
	rec, err := recorder.Load(*replayID)
	if err != nil {
		return err
	}
	gen, err := cfg.Generation(rec.Generation)
	if err != nil {
		return err
	}
	player, err := replay.NewPlayer(rec, gen, logger)
	if err != nil {
		return err
	}
	return tui.NewViewer(screen, player, rec.LevelID).Run(screen.PollEvent)
}

func ownerName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "local"
}
