package rpc

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/trait-profile/internal/bank"
	"github.com/danielpatrickdp/trait-profile/internal/logging"
	"github.com/danielpatrickdp/trait-profile/internal/registry"
	"github.com/danielpatrickdp/trait-profile/internal/scoring"
)

func loadBank(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.LoadFile(filepath.Join("..", "registry", "testdata", "bank.json"))
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	return reg
}

// serve starts srv on an in-memory listener and returns a connected client.
func serve(t *testing.T, srv *Server) (*Client, AssessmentClient) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	RegisterAssessmentServer(gs, srv)
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	raw := NewAssessmentClient(conn)
	return NewClientWithService(raw), raw
}

func call(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

// #region session-flow
func TestFullSessionOverRPC(t *testing.T) {
	srv := NewServer(loadBank(t), scoring.DefaultConfig())
	client, _ := serve(t, srv)
	ctx := context.Background()

	started, err := client.StartSession(ctx, "demo", 7, false)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if started.SessionID == "" || started.Total != 8 || started.Seed != 7 {
		t.Fatalf("unexpected start %+v", started)
	}
	if started.Question == nil || started.Question.ID == "" || len(started.Question.Choices) == 0 {
		t.Fatalf("expected first question, got %+v", started.Question)
	}

	var last Answered
	for i := 0; i < started.Total; i++ {
		last, err = client.Answer(ctx, started.SessionID, 0)
		if err != nil {
			t.Fatalf("Answer %d: %v", i, err)
		}
		if last.Seq != i+1 {
			t.Fatalf("expected seq %d, got %d", i+1, last.Seq)
		}
	}
	if !last.Complete || last.Progress != 100 || last.Question != nil {
		t.Fatalf("expected completed session, got %+v", last)
	}
	if len(last.Scores) != 5 {
		t.Fatalf("expected 5 scores, got %v", last.Scores)
	}
	for name, v := range last.Scores {
		if v < 0.1 || v > 0.9 {
			t.Errorf("%s out of bounds: %v", name, v)
		}
	}

	prof, err := client.Profile(ctx, started.SessionID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if len(prof.Traits) != 5 || prof.Traits[0] != "Agreeableness" {
		t.Fatalf("unexpected traits %v", prof.Traits)
	}
	if v, ok := prof.Demographics["age"]; !ok || v != 0 {
		t.Fatalf("expected age answer 0, got %v", prof.Demographics)
	}
	if _, ok := prof.Facets["Agreeableness"]["Patience"]; !ok {
		t.Fatalf("expected facets, got %v", prof.Facets)
	}
	if srv.Sessions() != 1 {
		t.Fatalf("expected 1 live session, got %d", srv.Sessions())
	}
}

func TestSameSeedSameFirstQuestion(t *testing.T) {
	client, _ := serve(t, NewServer(loadBank(t), scoring.DefaultConfig()))
	ctx := context.Background()
	a, err := client.StartSession(ctx, "basic", 42, false)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	b, err := client.StartSession(ctx, "basic", 42, false)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if a.SessionID == b.SessionID {
		t.Fatal("expected distinct session ids")
	}
	if a.Question.ID != b.Question.ID {
		t.Fatalf("expected same first question, got %s and %s", a.Question.ID, b.Question.ID)
	}
}

func TestSeedSourceUsedForZeroSeed(t *testing.T) {
	srv := NewServer(loadBank(t), scoring.DefaultConfig(), WithSeedSource(func() uint64 { return 1<<60 + 9 }))
	client, _ := serve(t, srv)
	started, err := client.StartSession(context.Background(), "", 0, true)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if started.Seed != (1<<60+9)&seedMask {
		t.Fatalf("expected masked seed, got %d", started.Seed)
	}
	if started.Mode != "demo" || !started.Relaxed {
		t.Fatalf("unexpected defaults %+v", started)
	}
}

func TestEndNowCompletesSession(t *testing.T) {
	client, _ := serve(t, NewServer(loadBank(t), scoring.DefaultConfig()))
	ctx := context.Background()
	started, err := client.StartSession(ctx, "demo", 3, false)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := client.Answer(ctx, started.SessionID, 1); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	prof, err := client.EndNow(ctx, started.SessionID)
	if err != nil {
		t.Fatalf("EndNow: %v", err)
	}
	if !prof.Complete || prof.Progress != 100 {
		t.Fatalf("expected completed profile, got %+v", prof)
	}
	if _, err := client.Answer(ctx, started.SessionID, 0); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

// #endregion session-flow

// #region errors
func TestStatusCodes(t *testing.T) {
	_, raw := serve(t, NewServer(loadBank(t), scoring.DefaultConfig()))
	ctx := context.Background()

	started, err := raw.StartSession(ctx, call(t, map[string]any{"mode": "demo", "seed": 5}))
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	id := started.GetFields()["session_id"].GetStringValue()

	tests := []struct {
		name string
		do   func() error
		want codes.Code
	}{
		{"unknown mode", func() error {
			_, err := raw.StartSession(ctx, call(t, map[string]any{"mode": "marathon"}))
			return err
		}, codes.InvalidArgument},
		{"negative seed", func() error {
			_, err := raw.StartSession(ctx, call(t, map[string]any{"seed": -1}))
			return err
		}, codes.InvalidArgument},
		{"seed too large", func() error {
			_, err := raw.StartSession(ctx, call(t, map[string]any{"seed": float64(1 << 60)}))
			return err
		}, codes.InvalidArgument},
		{"missing id", func() error {
			_, err := raw.Profile(ctx, call(t, map[string]any{}))
			return err
		}, codes.InvalidArgument},
		{"unknown id", func() error {
			_, err := raw.Profile(ctx, call(t, map[string]any{"session_id": "nope"}))
			return err
		}, codes.NotFound},
		{"unknown id on end", func() error {
			_, err := raw.EndNow(ctx, call(t, map[string]any{"session_id": "nope"}))
			return err
		}, codes.NotFound},
		{"fractional choice", func() error {
			_, err := raw.Answer(ctx, call(t, map[string]any{"session_id": id, "choice": 1.5}))
			return err
		}, codes.InvalidArgument},
		{"missing choice", func() error {
			_, err := raw.Answer(ctx, call(t, map[string]any{"session_id": id}))
			return err
		}, codes.InvalidArgument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := status.Code(tc.do()); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestOutOfRangeChoiceIsSkipped(t *testing.T) {
	client, _ := serve(t, NewServer(loadBank(t), scoring.DefaultConfig()))
	ctx := context.Background()
	started, err := client.StartSession(ctx, "demo", 11, false)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	res, err := client.Answer(ctx, started.SessionID, 99)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.Outcome != "skipped" || res.Seq != 1 {
		t.Fatalf("expected skipped first answer, got %+v", res)
	}
}

// #endregion errors

// #region journal
func TestJournalRecordsSessionAndAnswers(t *testing.T) {
	reg := loadBank(t)
	store, err := bank.NewStore(filepath.Join(t.TempDir(), "traits.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	info, err := store.Import(reg, "bank.json")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	client, _ := serve(t, NewServer(reg, scoring.DefaultConfig(), WithJournal(store, info.BankID)))
	ctx := context.Background()
	started, err := client.StartSession(ctx, "demo", 21, false)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := client.Answer(ctx, started.SessionID, 2); err != nil {
			t.Fatalf("Answer: %v", err)
		}
	}

	rec, err := store.GetSession(started.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if rec.Seed != 21 || rec.Mode != "demo" || rec.BankID != info.BankID || len(rec.Questions) != 8 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Questions[0] != started.Question.ID {
		t.Fatalf("expected first question %s, got %s", started.Question.ID, rec.Questions[0])
	}

	entries, err := logging.ListSession(store.DB(), started.SessionID)
	if err != nil {
		t.Fatalf("ListSession: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 journal rows, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Seq != i+1 || e.Choice != 2 {
			t.Errorf("row %d: %+v", i, e)
		}
	}
}

// #endregion journal
