package replay

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elementalcave/cave-server-go/internal/board"
)

const fileVersion = 1

// ErrDiverged is returned by Verify when re-simulation disagrees with a
// recorded checksum.
var ErrDiverged = errors.New("replay diverged")

// Step is one recorded input: a control intent, or an out-of-band reset.
type Step struct {
	Intent   board.Intent
	Reset    bool
	Checksum string
}

// Recording is the input log of one play session from a known snapshot.
type Recording struct {
	ID         string
	SessionID  string
	LevelID    string
	Generation string
	Initial    []byte
	Steps      []Step
	mu         sync.RWMutex
}

// NewRecording starts an empty recording from the serialized initial state.
func NewRecording(sessionID, levelID, generation string, initial []byte) *Recording {
	return &Recording{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		LevelID:    levelID,
		Generation: generation,
		Initial:    append([]byte(nil), initial...),
	}
}

// Append adds a step.
func (r *Recording) Append(step Step) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Steps = append(r.Steps, step)
}

// Size returns the number of recorded steps.
func (r *Recording) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.Steps)
}

// StepsCopy returns a copy of the recorded steps.
func (r *Recording) StepsCopy() []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]Step(nil), r.Steps...)
}

// SaveToFile writes the recording to directory as <id>.replay, gzipped gob.
func (r *Recording) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", r.ID))
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	encoder := gob.NewEncoder(gzipWriter)

	metadata := replayMetadata{
		ID:         r.ID,
		SessionID:  r.SessionID,
		LevelID:    r.LevelID,
		Generation: r.Generation,
		Timestamp:  time.Now(),
		Version:    fileVersion,
		StepCount:  len(r.Steps),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := encoder.Encode(r.Initial); err != nil {
		return fmt.Errorf("failed to encode initial state: %w", err)
	}
	for i := range r.Steps {
		if err := encoder.Encode(&r.Steps[i]); err != nil {
			return fmt.Errorf("failed to encode step %d: %w", i, err)
		}
	}

	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush replay: %w", err)
	}
	return nil
}

// LoadFromFile reads the recording with the given id from directory.
func LoadFromFile(directory, id string) (*Recording, error) {
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", id))

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)

	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != fileVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	rec := &Recording{
		ID:         metadata.ID,
		SessionID:  metadata.SessionID,
		LevelID:    metadata.LevelID,
		Generation: metadata.Generation,
	}
	if err := decoder.Decode(&rec.Initial); err != nil {
		return nil, fmt.Errorf("failed to decode initial state: %w", err)
	}
	rec.Steps = make([]Step, 0, metadata.StepCount)
	for i := 0; i < metadata.StepCount; i++ {
		var step Step
		if err := decoder.Decode(&step); err != nil {
			return nil, fmt.Errorf("failed to decode step %d: %w", i, err)
		}
		rec.Steps = append(rec.Steps, step)
	}

	return rec, nil
}

type replayMetadata struct {
	ID         string
	SessionID  string
	LevelID    string
	Generation string
	Timestamp  time.Time
	Version    int
	StepCount  int
}

// Verify re-simulates rec from its initial snapshot and compares every
// recorded checksum. It returns the number of steps checked; on mismatch the
// error wraps ErrDiverged and names the first diverging step.
func Verify(rec *Recording, gen board.Generation, logger *zap.Logger) (int, error) {
	b, err := board.Restore(rec.Initial, gen, logger)
	if err != nil {
		return 0, fmt.Errorf("failed to restore initial state: %w", err)
	}
	for i, step := range rec.StepsCopy() {
		if err := apply(b, step); err != nil {
			return i, fmt.Errorf("step %d: %w", i, err)
		}
		got, err := b.Checksum()
		if err != nil {
			return i, err
		}
		if got != step.Checksum {
			return i, fmt.Errorf("%w at step %d (%s): recorded %s, simulated %s", ErrDiverged, i, describe(step), step.Checksum, got)
		}
	}
	return rec.Size(), nil
}

func apply(b *board.Board, step Step) error {
	if step.Reset {
		b.Reset()
		return nil
	}
	return b.SubmitIntent(step.Intent)
}

func describe(step Step) string {
	if step.Reset {
		return "reset"
	}
	return step.Intent.String()
}
