package rpc

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/trait-profile/internal/bank"
	"github.com/danielpatrickdp/trait-profile/internal/logging"
	"github.com/danielpatrickdp/trait-profile/internal/registry"
	"github.com/danielpatrickdp/trait-profile/internal/scoring"
	"github.com/danielpatrickdp/trait-profile/internal/selection"
	"github.com/danielpatrickdp/trait-profile/internal/session"
)

// seedMask keeps seeds exactly representable as a protobuf number.
const seedMask = 1<<53 - 1

// #region server
// Server implements AssessmentServer over in-memory sessions.
//
// Request fields:
//
//	StartSession  mode (string, default "demo"), seed (number, 0 = time based), relaxed (bool)
//	Answer        session_id (string), choice (integral number)
//	Profile       session_id
//	EndNow        session_id
type Server struct {
	reg    *registry.Registry
	cfg    scoring.Config
	logger *slog.Logger

	store  *bank.Store
	bankID string
	seed   func() uint64

	mu       sync.Mutex
	sessions map[string]*entry
}

var _ AssessmentServer = (*Server)(nil)

type entry struct {
	mu   sync.Mutex
	sess *session.Session
}

// Option configures a Server.
type Option func(*Server)

// WithJournal records sessions and answers in store under bankID.
func WithJournal(store *bank.Store, bankID string) Option {
	return func(s *Server) {
		s.store = store
		s.bankID = bankID
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithSeedSource replaces the time-based seed used when a request has none.
func WithSeedSource(fn func() uint64) Option {
	return func(s *Server) { s.seed = fn }
}

// NewServer builds a server scoring against reg with cfg.
func NewServer(reg *registry.Registry, cfg scoring.Config, opts ...Option) *Server {
	if reg == nil {
		reg = registry.Empty()
	}
	s := &Server{
		reg:      reg,
		cfg:      cfg,
		logger:   slog.Default(),
		seed:     func() uint64 { return uint64(time.Now().UnixNano()) },
		sessions: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sessions returns the number of live sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) lookup(in *structpb.Struct) (*entry, error) {
	id := stringField(in, "session_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	s.mu.Lock()
	e, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, status.Errorf(codes.NotFound, "session %q not found", id)
	}
	return e, nil
}
// #endregion server

// #region start-session
// StartSession selects questions for a mode and opens a session.
func (s *Server) StartSession(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	mode := stringField(in, "mode")
	if mode == "" {
		mode = selection.ModeDemo
	}
	cfg := s.cfg
	if relaxed, ok := boolField(in, "relaxed"); ok {
		cfg.Relaxed = relaxed
	}

	var seed uint64
	if v, ok := numberField(in, "seed"); ok {
		if v < 0 || v != math.Trunc(v) {
			return nil, status.Error(codes.InvalidArgument, "seed must be a non-negative integer")
		}
		if v > seedMask {
			return nil, status.Errorf(codes.InvalidArgument, "seed must not exceed %d", uint64(seedMask))
		}
		seed = uint64(v)
	}
	if seed == 0 {
		seed = s.seed() & seedMask
	}

	questions, err := selection.NewSelector(s.reg, selection.NewRand(seed)).Select(mode)
	if err != nil {
		if errors.Is(err, selection.ErrUnknownMode) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	sess := session.New(s.reg, cfg, s.logger)
	sess.Start(questions)

	s.mu.Lock()
	s.sessions[sess.ID()] = &entry{sess: sess}
	s.mu.Unlock()

	if s.store != nil {
		ids := make([]string, len(questions))
		for i, q := range questions {
			ids[i] = string(q.ID)
		}
		rec := bank.SessionRecord{
			SessionID: sess.ID(),
			BankID:    s.bankID,
			Mode:      mode,
			Seed:      seed,
			Relaxed:   cfg.Relaxed,
			Questions: ids,
		}
		if err := s.store.CreateSession(rec); err != nil {
			s.logger.Warn("[RPC] session journal failed", "session", sess.ID(), "error", err)
		}
	}

	view := withCurrent(map[string]any{
		"session_id": sess.ID(),
		"mode":       mode,
		"seed":       float64(seed),
		"relaxed":    cfg.Relaxed,
		"total":      len(questions),
	}, sess)
	return structpb.NewStruct(view)
}
// #endregion start-session

// #region answer
// Answer submits a choice index for the session's current question.
func (s *Server) Answer(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	e, err := s.lookup(in)
	if err != nil {
		return nil, err
	}
	v, ok := numberField(in, "choice")
	if !ok || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return nil, status.Error(codes.InvalidArgument, "choice must be an integer")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.sess.Answer(int(v))
	switch {
	case errors.Is(err, session.ErrComplete):
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, session.ErrNoQuestions):
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	case err != nil:
		return nil, status.Error(codes.Internal, err.Error())
	}

	if s.store != nil {
		if err := logging.LogAnswer(s.store.DB(), logging.NewAnswerEntry(e.sess.ID(), res)); err != nil {
			s.logger.Warn("[RPC] answer journal failed", "session", e.sess.ID(), "seq", res.Seq, "error", err)
		}
	}

	view := withCurrent(map[string]any{
		"session_id":  e.sess.ID(),
		"seq":         res.Seq,
		"question_id": string(res.QuestionID),
		"outcome":     res.Outcome,
		"progress":    e.sess.Progress(),
		"complete":    e.sess.Complete(),
		"scores":      scoreView(e.sess.Registry().Traits, e.sess.Scores()),
	}, e.sess)
	return structpb.NewStruct(view)
}
// #endregion answer

// #region profile
// Profile returns the session's scores, facets and demographics.
func (s *Server) Profile(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	e, err := s.lookup(in)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return structpb.NewStruct(profileView(e.sess))
}

// EndNow recomputes the scores, marks the session complete and returns
// the profile.
func (s *Server) EndNow(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	e, err := s.lookup(in)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sess.EndNow()
	s.logger.Info("[RPC] session ended early", "session", e.sess.ID(), "answered", len(e.sess.Answers()))
	return structpb.NewStruct(profileView(e.sess))
}
// #endregion profile
