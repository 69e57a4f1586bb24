package replay

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Recorder keeps the live recordings of every session that records.
type Recorder struct {
	logger     *zap.Logger
	mu         sync.RWMutex
	recordings map[string]*Recording // sessionID -> Recording
	enabled    map[string]bool       // sessionID -> whether recording is enabled
	saveDir    string
}

// NewRecorder creates a recorder that saves into saveDir.
func NewRecorder(logger *zap.Logger, saveDir string) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		logger:     logger,
		recordings: make(map[string]*Recording),
		enabled:    make(map[string]bool),
		saveDir:    saveDir,
	}
}

// Start begins a new recording for a session, replacing any earlier one.
func (r *Recorder) Start(sessionID, levelID, generation string, initial []byte) *Recording {
	rec := NewRecording(sessionID, levelID, generation, initial)

	r.mu.Lock()
	r.recordings[sessionID] = rec
	r.enabled[sessionID] = true
	r.mu.Unlock()

	r.logger.Info("started replay recording",
		zap.String("session_id", sessionID),
		zap.String("replay_id", rec.ID),
		zap.String("level_id", levelID),
	)
	return rec
}

// Stop stops recording a session. The recording stays in memory.
func (r *Recorder) Stop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.enabled[sessionID] = false

	r.logger.Info("stopped replay recording", zap.String("session_id", sessionID))
}

// Record appends a step if the session is recording.
func (r *Recorder) Record(sessionID string, step Step) {
	r.mu.RLock()
	enabled := r.enabled[sessionID]
	rec := r.recordings[sessionID]
	r.mu.RUnlock()

	if !enabled || rec == nil {
		return
	}

	rec.Append(step)

	r.logger.Debug("recorded replay step",
		zap.String("session_id", sessionID),
		zap.Int("step_count", rec.Size()),
	)
}

// Get returns the recording of a session.
func (r *Recorder) Get(sessionID string) (*Recording, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.recordings[sessionID]
	return rec, ok
}

// Save writes a session's recording to disk, forgets it and returns its id.
func (r *Recorder) Save(sessionID string) (string, error) {
	r.mu.Lock()
	rec, ok := r.recordings[sessionID]
	if !ok {
		r.mu.Unlock()
		return "", fmt.Errorf("no recording for session %s", sessionID)
	}
	delete(r.recordings, sessionID)
	delete(r.enabled, sessionID)
	r.mu.Unlock()

	if err := rec.SaveToFile(r.saveDir); err != nil {
		return "", fmt.Errorf("failed to save replay: %w", err)
	}

	r.logger.Info("saved replay to disk",
		zap.String("session_id", sessionID),
		zap.String("replay_id", rec.ID),
		zap.Int("step_count", rec.Size()),
		zap.String("directory", r.saveDir),
	)
	return rec.ID, nil
}

// Load reads a saved recording by id.
func (r *Recorder) Load(id string) (*Recording, error) {
	rec, err := LoadFromFile(r.saveDir, id)
	if err != nil {
		return nil, err
	}

	r.logger.Info("loaded replay from disk",
		zap.String("replay_id", id),
		zap.Int("step_count", rec.Size()),
	)
	return rec, nil
}

// Clear forgets a session's recording without saving it.
func (r *Recorder) Clear(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.recordings, sessionID)
	delete(r.enabled, sessionID)

	r.logger.Debug("cleared replay from memory", zap.String("session_id", sessionID))
}

// IsRecording reports whether a session is recording.
func (r *Recorder) IsRecording(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.enabled[sessionID]
}
