package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region types
// Question is a question as sent to clients.
type Question struct {
	ID       string
	Text     string
	Category string
	Choices  []string
}

// Started is the response of StartSession.
type Started struct {
	SessionID string
	Mode      string
	Seed      uint64
	Relaxed   bool
	Total     int
	Question  *Question
}

// Answered is the response of Answer.
type Answered struct {
	SessionID string
	Seq       int
	Outcome   string
	Progress  int
	Complete  bool
	Scores    map[string]float64
	Question  *Question // next question, nil once complete
}

// Profile is the response of Profile and EndNow.
type Profile struct {
	SessionID    string
	Traits       []string
	Scores       map[string]float64
	Facets       map[string]map[string]float64
	Demographics map[string]int
	Progress     int
	Complete     bool
}
// #endregion types

// #region client-struct
// Client is a typed wrapper over AssessmentClient.
type Client struct {
	conn   *grpc.ClientConn
	client AssessmentClient
}
// #endregion client-struct

// #region constructor
// NewClient connects to an assessment server.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		client: NewAssessmentClient(conn),
	}, nil
}

// NewClientWithService creates a Client with an injected service implementation.
func NewClientWithService(svc AssessmentClient) *Client {
	return &Client{client: svc}
}
// #endregion constructor

// Close shuts down the connection, if the client owns one.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #region calls
// StartSession opens a session. A zero seed lets the server choose.
func (c *Client) StartSession(ctx context.Context, mode string, seed uint64, relaxed bool) (Started, error) {
	req, err := structpb.NewStruct(map[string]any{
		"mode":    mode,
		"seed":    float64(seed & seedMask),
		"relaxed": relaxed,
	})
	if err != nil {
		return Started{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.StartSession(ctx, req)
	if err != nil {
		return Started{}, fmt.Errorf("start session rpc: %w", err)
	}
	f := resp.GetFields()
	return Started{
		SessionID: f["session_id"].GetStringValue(),
		Mode:      f["mode"].GetStringValue(),
		Seed:      uint64(f["seed"].GetNumberValue()),
		Relaxed:   f["relaxed"].GetBoolValue(),
		Total:     int(f["total"].GetNumberValue()),
		Question:  decodeQuestion(f["question"]),
	}, nil
}

// Answer submits a choice index.
func (c *Client) Answer(ctx context.Context, sessionID string, choice int) (Answered, error) {
	req, err := structpb.NewStruct(map[string]any{
		"session_id": sessionID,
		"choice":     choice,
	})
	if err != nil {
		return Answered{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Answer(ctx, req)
	if err != nil {
		return Answered{}, fmt.Errorf("answer rpc: %w", err)
	}
	f := resp.GetFields()
	return Answered{
		SessionID: f["session_id"].GetStringValue(),
		Seq:       int(f["seq"].GetNumberValue()),
		Outcome:   f["outcome"].GetStringValue(),
		Progress:  int(f["progress"].GetNumberValue()),
		Complete:  f["complete"].GetBoolValue(),
		Scores:    decodeScores(f["scores"]),
		Question:  decodeQuestion(f["question"]),
	}, nil
}

// Profile fetches the current profile.
func (c *Client) Profile(ctx context.Context, sessionID string) (Profile, error) {
	resp, err := c.client.Profile(ctx, sessionRequest(sessionID))
	if err != nil {
		return Profile{}, fmt.Errorf("profile rpc: %w", err)
	}
	return decodeProfile(resp), nil
}

// EndNow finishes the session early and returns the final profile.
func (c *Client) EndNow(ctx context.Context, sessionID string) (Profile, error) {
	resp, err := c.client.EndNow(ctx, sessionRequest(sessionID))
	if err != nil {
		return Profile{}, fmt.Errorf("end now rpc: %w", err)
	}
	return decodeProfile(resp), nil
}
// #endregion calls

// #region decode
func sessionRequest(id string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"session_id": structpb.NewStringValue(id),
	}}
}

func decodeQuestion(v *structpb.Value) *Question {
	s := v.GetStructValue()
	if s == nil {
		return nil
	}
	f := s.GetFields()
	q := &Question{
		ID:       f["id"].GetStringValue(),
		Text:     f["text"].GetStringValue(),
		Category: f["category"].GetStringValue(),
	}
	for _, c := range f["choices"].GetListValue().GetValues() {
		q.Choices = append(q.Choices, c.GetStringValue())
	}
	return q
}

func decodeScores(v *structpb.Value) map[string]float64 {
	fields := v.GetStructValue().GetFields()
	out := make(map[string]float64, len(fields))
	for name, n := range fields {
		out[name] = n.GetNumberValue()
	}
	return out
}

func decodeProfile(resp *structpb.Struct) Profile {
	f := resp.GetFields()
	p := Profile{
		SessionID:    f["session_id"].GetStringValue(),
		Scores:       decodeScores(f["scores"]),
		Facets:       map[string]map[string]float64{},
		Demographics: map[string]int{},
		Progress:     int(f["progress"].GetNumberValue()),
		Complete:     f["complete"].GetBoolValue(),
	}
	for _, t := range f["traits"].GetListValue().GetValues() {
		p.Traits = append(p.Traits, t.GetStringValue())
	}
	for trait, fs := range f["facets"].GetStructValue().GetFields() {
		p.Facets[trait] = decodeScores(fs)
	}
	for id, n := range f["demographics"].GetStructValue().GetFields() {
		p.Demographics[id] = int(n.GetNumberValue())
	}
	return p
}
// #endregion decode
