package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/elementalcave/cave-server-go/internal/board"
	"github.com/elementalcave/cave-server-go/internal/level"
	"github.com/elementalcave/cave-server-go/internal/repository"
	"github.com/elementalcave/cave-server-go/internal/session"
)

// caveServer implements CaveServiceServer on top of the session manager.
type caveServer struct {
	UnimplementedCaveServiceServer

	sessions      *session.Manager
	logger        *zap.Logger
	serverVersion string
}

// NewCaveServer creates the gRPC front end of the session manager.
func NewCaveServer(sessions *session.Manager, serverVersion string, logger *zap.Logger) CaveServiceServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &caveServer{
		sessions:      sessions,
		logger:        logger,
		serverVersion: serverVersion,
	}
}

// ListLevels returns the playable levels in catalog order.
func (s *caveServer) ListLevels(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	catalog := s.sessions.Levels()
	levels := make([]any, 0, catalog.Len())
	for _, id := range catalog.IDs() {
		lvl, err := catalog.Level(id)
		if err != nil {
			return nil, toStatus(err)
		}
		levels = append(levels, map[string]any{
			"id":         id,
			"name":       lvl.Setup.Info.Name,
			"generation": lvl.Setup.Info.Generation,
		})
	}
	out, err := structpb.NewStruct(map[string]any{
		"server_version": s.serverVersion,
		"levels":         levels,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode levels: %v", err)
	}
	return out, nil
}

// StartSession opens a session on a level.
func (s *caveServer) StartSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner := stringField(req, "owner")
	if owner == "" {
		owner = extractHostFromContext(ctx)
	}
	sess, err := s.sessions.Start(owner, stringField(req, "level_id"))
	if err != nil {
		s.logger.Warn("failed to start session",
			zap.String("owner", owner),
			zap.String("level_id", stringField(req, "level_id")),
			zap.Error(err),
		)
		return nil, toStatus(err)
	}
	return stateResponse(sess.State(), nil)
}

// SubmitIntent resolves one intent. A cascade that exceeds the rule limit
// is reported in the response error field alongside the state it stopped in.
func (s *caveServer) SubmitIntent(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(req)
	if err != nil {
		return nil, err
	}
	intent, err := board.ParseIntent(strings.ToLower(stringField(req, "intent")))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid intent: %v", err)
	}
	st, err := sess.Submit(intent)
	return stateResponse(st, err)
}

func (s *caveServer) Undo(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(req)
	if err != nil {
		return nil, err
	}
	st, err := sess.Undo()
	return stateResponse(st, err)
}

func (s *caveServer) Reset(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(req)
	if err != nil {
		return nil, err
	}
	return stateResponse(sess.Reset(), nil)
}

func (s *caveServer) GetState(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(req)
	if err != nil {
		return nil, err
	}
	return stateResponse(sess.State(), nil)
}

// SaveGame stores the board in a named slot of the session owner.
func (s *caveServer) SaveGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(req)
	if err != nil {
		return nil, err
	}
	slot := stringField(req, "slot")
	if slot == "" {
		return nil, status.Error(codes.InvalidArgument, "slot is required")
	}
	save, err := sess.Save(ctx, slot)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := structpb.NewStruct(map[string]any{
		"slot":       save.Slot,
		"level_id":   save.LevelID,
		"move_clock": save.MoveClock,
		"checksum":   save.Checksum,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode save: %v", err)
	}
	return out, nil
}

// LoadGame replaces the session board with a saved one.
func (s *caveServer) LoadGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(req)
	if err != nil {
		return nil, err
	}
	slot := stringField(req, "slot")
	if slot == "" {
		return nil, status.Error(codes.InvalidArgument, "slot is required")
	}
	st, err := sess.Load(ctx, slot)
	if err != nil {
		return nil, toStatus(err)
	}
	return stateResponse(st, nil)
}

// EndSession closes a session and returns the id of its replay, if one was
// recorded.
func (s *caveServer) EndSession(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "session_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	replayID, err := s.sessions.End(id)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := structpb.NewStruct(map[string]any{"session_id": id, "replay_id": replayID})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func (s *caveServer) session(req *structpb.Struct) (*session.Session, error) {
	id := stringField(req, "session_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, toStatus(err)
	}
	return sess, nil
}

// stateResponse encodes a state the way the WebSocket transport does, as
// JSON, and adds an error field when the intent failed.
func stateResponse(st session.State, failure error) (*structpb.Struct, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode state: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode state: %v", err)
	}
	if failure != nil {
		if out.Fields == nil {
			out.Fields = make(map[string]*structpb.Value)
		}
		out.Fields["error"] = structpb.NewStringValue(failure.Error())
	}
	return out, nil
}

func stringField(req *structpb.Struct, name string) string {
	return strings.TrimSpace(req.GetFields()[name].GetStringValue())
}

// toStatus maps domain errors onto gRPC status codes.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, level.ErrUnknownLevel),
		errors.Is(err, repository.ErrSaveNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, session.ErrLevelMismatch):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, session.ErrTooManySessions):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, repository.ErrCorruptSave):
		return status.Error(codes.DataLoss, err.Error())
	case errors.Is(err, board.ErrUnknownTag):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func extractHostFromContext(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != net.Addr(nil) {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
