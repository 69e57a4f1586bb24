package board

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// SnapshotVersion is bumped whenever the serialized layout changes.
const SnapshotVersion = 1

// LevelInfo is the level metadata carried by every snapshot.
type LevelInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Generation string `json:"generation,omitempty"`
}

// snapshotRecord is the persisted form of a board. Side maps are written as
// position-sorted lists so equal states always encode to equal bytes.
type snapshotRecord struct {
	Version   int               `json:"version"`
	Level     LevelInfo         `json:"level"`
	Grid      []gridChunkRecord `json:"grid"`
	Entities  []*Entity         `json:"entities"`
	Submerged []*Entity         `json:"submerged,omitempty"`
	Phased    []*Entity         `json:"phased,omitempty"`
	Fallen    []*Entity         `json:"fallen,omitempty"`
	NextID    int               `json:"next_id"`
	MoveClock int               `json:"move_clock"`
	Control   Intent            `json:"control,omitempty"`
	Pending   []Tag             `json:"pending,omitempty"`
}

// encodeState serializes the full board state.
func encodeState(info LevelInfo, grid *Grid, store *Store, moveClock int, sched *Scheduler) ([]byte, error) {
	rec := snapshotRecord{
		Version:   SnapshotVersion,
		Level:     info,
		Grid:      grid.records(),
		Entities:  store.Entities(),
		Submerged: store.Submerged(),
		Phased:    store.Phased(),
		Fallen:    store.Fallen(),
		NextID:    store.NextID(),
		MoveClock: moveClock,
	}
	if rec.Entities == nil {
		rec.Entities = []*Entity{}
	}
	if sched != nil && !sched.Empty() {
		rec.Control = sched.Control()
		rec.Pending = sched.Pending()
	}
	data, err := json.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// decodedState is a snapshot turned back into live structures.
type decodedState struct {
	info      LevelInfo
	grid      *Grid
	store     *Store
	moveClock int
	control   Intent
	pending   []Tag
}

func decodeState(data []byte) (*decodedState, error) {
	var rec snapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if rec.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", rec.Version)
	}

	grid, err := gridFromRecords(rec.Grid)
	if err != nil {
		return nil, fmt.Errorf("failed to decode grid: %w", err)
	}

	store := NewStore()
	for _, e := range rec.Entities {
		if err := validateEntity(e); err != nil {
			return nil, err
		}
		store.entities = append(store.entities, e)
	}
	for _, e := range rec.Submerged {
		if err := validateEntity(e); err != nil {
			return nil, err
		}
		if _, taken := store.submerged[e.Position.Key()]; taken {
			return nil, fmt.Errorf("two submerged entities at %s", e.Position)
		}
		store.submerged[e.Position.Key()] = e
	}
	for _, e := range rec.Phased {
		if err := validateEntity(e); err != nil {
			return nil, err
		}
		if _, taken := store.phased[e.Position.Key()]; taken {
			return nil, fmt.Errorf("two phased-out entities at %s", e.Position)
		}
		store.phased[e.Position.Key()] = e
	}
	for _, e := range rec.Fallen {
		if err := validateEntity(e); err != nil {
			return nil, err
		}
		store.fallen = append(store.fallen, e)
	}
	store.nextID = rec.NextID
	for _, e := range store.All() {
		if e.ID >= store.nextID {
			store.nextID = e.ID + 1
		}
	}

	return &decodedState{
		info:      rec.Level,
		grid:      grid,
		store:     store,
		moveClock: rec.MoveClock,
		control:   rec.Control,
		pending:   rec.Pending,
	}, nil
}

func validateEntity(e *Entity) error {
	if e == nil {
		return fmt.Errorf("snapshot holds a null entity")
	}
	switch e.Kind {
	case KindPlayer:
		if e.Player == nil {
			return fmt.Errorf("player %d has no player data", e.ID)
		}
	case KindDeco:
		if e.Deco == nil {
			return fmt.Errorf("deco %d has no deco data", e.ID)
		}
	case KindSign:
		if e.Sign == nil {
			e.Sign = &SignData{}
		}
	case KindMine, KindGoal:
	default:
		return fmt.Errorf("entity %d has unknown kind %d", e.ID, int(e.Kind))
	}
	return nil
}

// Checksum returns the hex BLAKE2b-256 digest of a serialized snapshot.
func Checksum(snapshot []byte) string {
	sum := blake2b.Sum256(snapshot)
	return hex.EncodeToString(sum[:])
}
