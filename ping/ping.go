// Package ping provides a small built-in Ping service for health checks,
// demos and end-to-end tests of a server's chains. It registers through a
// hand-written grpc.ServiceDesc, so no protobuf code generation is required.
//
// The request and response types are plain Go structs. The package installs
// a codec under the "proto" name that JSON-encodes them and delegates every
// other message to the standard proto encoding. Importing this package (or
// calling [Register]) activates the codec.
package ping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	grpcEncoding "google.golang.org/grpc/encoding"
	_ "google.golang.org/grpc/encoding/proto" // ensure default proto codec is registered first
	"google.golang.org/protobuf/proto"
)

const (
	ServiceName       = "onion.Ping"
	PingMethod        = "/onion.Ping/Ping"
	PingStreamMethod  = "/onion.Ping/PingStream"
	maxStreamMessages = 100
)

// PingRequest is the input for both methods. Count is only read by
// PingStream.
type PingRequest struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// PingResponse is the output of both methods.
type PingResponse struct {
	Message        string `json:"message"`
	Seq            int    `json:"seq,omitempty"`
	ServerTimeUnix int64  `json:"server_time_unix"`
}

// pingMsg is a marker interface satisfied by PingRequest and PingResponse.
type pingMsg interface {
	isPingMsg()
}

func (*PingRequest) isPingMsg()  {}
func (*PingResponse) isPingMsg() {}

// ResponseSender is the server side of a PingStream call.
type ResponseSender interface {
	Context() context.Context
	Send(*PingResponse) error
}

// Handler is the interface a Ping service implementation must satisfy.
type Handler interface {
	Ping(ctx context.Context, req *PingRequest) (*PingResponse, error)
	PingStream(req *PingRequest, out ResponseSender) error
}

// DefaultHandler returns a Handler that echoes the request message with the
// current server time. PingStream sends Count echoes, at most 100.
func DefaultHandler() Handler { return defaultHandler{} }

type defaultHandler struct{}

func (defaultHandler) Ping(_ context.Context, req *PingRequest) (*PingResponse, error) {
	return &PingResponse{
		Message:        req.Message,
		ServerTimeUnix: time.Now().Unix(),
	}, nil
}

func (defaultHandler) PingStream(req *PingRequest, out ResponseSender) error {
	n := min(max(req.Count, 1), maxStreamMessages)
	for i := range n {
		if err := out.Context().Err(); err != nil {
			return err
		}
		err := out.Send(&PingResponse{
			Message:        req.Message,
			Seq:            i + 1,
			ServerTimeUnix: time.Now().Unix(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ServiceDesc is the grpc.ServiceDesc for the onion.Ping service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Ping",
			Handler:    pingHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "PingStream",
			Handler:       pingStreamHandler,
			ServerStreams: true,
		},
	},
	Metadata: "onion/ping.proto",
}

func pingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(PingRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Handler).Ping(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: PingMethod,
	}
	handler := func(ctx context.Context, r any) (any, error) {
		return srv.(Handler).Ping(ctx, r.(*PingRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func pingStreamHandler(srv any, stream grpc.ServerStream) error {
	req := new(PingRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(Handler).PingStream(req, &responseSender{stream})
}

type responseSender struct {
	grpc.ServerStream
}

func (s *responseSender) Send(m *PingResponse) error {
	return s.SendMsg(m)
}

// Register registers a Ping service implementation on the given gRPC server.
func Register(s grpc.ServiceRegistrar, h Handler) {
	s.RegisterService(&ServiceDesc, h)
}

// Stream opens a PingStream call on conn and returns every response.
func Stream(ctx context.Context, conn grpc.ClientConnInterface, req *PingRequest) ([]*PingResponse, error) {
	desc := &ServiceDesc.Streams[0]
	cs, err := conn.NewStream(ctx, desc, PingStreamMethod)
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(req); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}

	var out []*PingResponse
	for {
		resp := new(PingResponse)
		if err := cs.RecvMsg(resp); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, resp)
	}
}

// ---------- codec wrapper ----------

func init() {
	// Replace the default proto codec with a thin wrapper that JSON-encodes
	// ping types and delegates all other (protobuf) messages to proto.Marshal.
	grpcEncoding.RegisterCodec(pingCodec{})
}

// pingCodec wraps the default proto codec. It handles PingRequest and
// PingResponse via JSON, and delegates all other types to proto.Marshal/Unmarshal.
type pingCodec struct{}

func (pingCodec) Name() string { return "proto" }

func (pingCodec) Marshal(v any) ([]byte, error) {
	if _, ok := v.(pingMsg); ok {
		return json.Marshal(v)
	}
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("ping codec: unsupported message type %T", v)
}

func (pingCodec) Unmarshal(data []byte, v any) error {
	if _, ok := v.(pingMsg); ok {
		return json.Unmarshal(data, v)
	}
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("ping codec: unsupported message type %T", v)
}
