package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/elementalcave/cave-server-go/internal/board"
	"github.com/elementalcave/cave-server-go/internal/level"
	"github.com/elementalcave/cave-server-go/internal/replay"
	"github.com/elementalcave/cave-server-go/internal/session"
)

type classicOnly struct{}

func (classicOnly) Generation(string) (board.Generation, error) {
	return board.DefaultGeneration(), nil
}

func newSessions(t *testing.T) *session.Manager {
	t.Helper()
	levels, err := level.Default()
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)
	return session.NewManager(session.Options{
		Levels:       levels,
		Generations:  classicOnly{},
		Recorder:     replay.NewRecorder(logger, t.TempDir()),
		DefaultLevel: "intro",
		LeasePeriod:  time.Minute,
		MaxSessions:  10,
	}, logger)
}
