package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region service-desc
// ServiceName is the fully qualified gRPC service name.
const ServiceName = "traitprofile.v1.Assessment"

// Full method names.
const (
	MethodStartSession = "/" + ServiceName + "/StartSession"
	MethodAnswer       = "/" + ServiceName + "/Answer"
	MethodProfile      = "/" + ServiceName + "/Profile"
	MethodEndNow       = "/" + ServiceName + "/EndNow"
)

// AssessmentServer is the server API. Requests and responses are
// structpb.Struct messages; field names are documented on Server.
type AssessmentServer interface {
	StartSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Answer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Profile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EndNow(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// AssessmentServiceDesc registers AssessmentServer without generated stubs.
var AssessmentServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AssessmentServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartSession", Handler: unary(MethodStartSession, AssessmentServer.StartSession)},
		{MethodName: "Answer", Handler: unary(MethodAnswer, AssessmentServer.Answer)},
		{MethodName: "Profile", Handler: unary(MethodProfile, AssessmentServer.Profile)},
		{MethodName: "EndNow", Handler: unary(MethodEndNow, AssessmentServer.EndNow)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "traitprofile/v1/assessment.proto",
}

// RegisterAssessmentServer attaches srv to a gRPC server.
func RegisterAssessmentServer(s grpc.ServiceRegistrar, srv AssessmentServer) {
	s.RegisterService(&AssessmentServiceDesc, srv)
}

func unary(fullMethod string, call func(AssessmentServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AssessmentServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AssessmentServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
// #endregion service-desc

// #region client-stub
// AssessmentClient is the client API for the assessment service.
type AssessmentClient interface {
	StartSession(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Answer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Profile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	EndNow(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type assessmentClient struct {
	cc grpc.ClientConnInterface
}

// NewAssessmentClient wraps a connection in the AssessmentClient API.
func NewAssessmentClient(cc grpc.ClientConnInterface) AssessmentClient {
	return &assessmentClient{cc: cc}
}

func (c *assessmentClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *assessmentClient) StartSession(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodStartSession, in, opts)
}

func (c *assessmentClient) Answer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodAnswer, in, opts)
}

func (c *assessmentClient) Profile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodProfile, in, opts)
}

func (c *assessmentClient) EndNow(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodEndNow, in, opts)
}
// #endregion client-stub
