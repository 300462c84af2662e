// Package interceptors embeds onion chains into a gRPC server. Each RPC
// becomes a call value that travels through the chain, with the real gRPC
// handler as the chain's tail.
package interceptors

import (
	"context"

	"github.com/Keksclan/onion"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RPC is implemented by *Call and *StreamCall. Handlers written against it
// work for unary and streaming RPCs alike.
type RPC interface {
	Context() context.Context
	SetContext(ctx context.Context)
	FullMethod() string
}

// errNoResponse is returned when a unary chain completes without an error and
// without a response, e.g. a handler returned nil instead of calling next.
var errNoResponse = status.Error(codes.Internal, "chain completed without a response")

// Call is the value a unary RPC carries through the chain. Handlers may
// replace Req before the tail runs and read or replace Resp after it. A
// handler that ends the chain successfully without calling next must set
// Resp itself.
type Call struct {
	ctx  context.Context
	Info *grpc.UnaryServerInfo
	Req  any
	Resp any
}

// NewCall creates a Call outside of a gRPC server, mostly for tests.
func NewCall(ctx context.Context, fullMethod string, req any) *Call {
	return &Call{ctx: ctx, Info: &grpc.UnaryServerInfo{FullMethod: fullMethod}, Req: req}
}

func (c *Call) Context() context.Context { return c.ctx }

func (c *Call) SetContext(ctx context.Context) { c.ctx = ctx }

func (c *Call) FullMethod() string {
	if c.Info == nil {
		return ""
	}
	return c.Info.FullMethod
}

// StreamCall is the value a streaming RPC carries through the chain.
type StreamCall struct {
	ctx    context.Context
	stream grpc.ServerStream
	Info   *grpc.StreamServerInfo
	Srv    any
}

func (c *StreamCall) Context() context.Context { return c.ctx }

func (c *StreamCall) SetContext(ctx context.Context) { c.ctx = ctx }

func (c *StreamCall) FullMethod() string {
	if c.Info == nil {
		return ""
	}
	return c.Info.FullMethod
}

// ServerStream returns the stream, reporting the call's current context from
// Context().
func (c *StreamCall) ServerStream() grpc.ServerStream {
	if c.ctx == c.stream.Context() {
		return c.stream
	}
	return &wrappedStream{ServerStream: c.stream, ctx: c.ctx}
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }

// Unary runs chain for every unary RPC. The gRPC handler is the tail and
// receives the call's context and request as they are when it is reached.
func Unary(chain onion.Composed[*Call]) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		c := &Call{ctx: ctx, Info: info, Req: req}
		err := chain(c, func(c *Call, _ onion.Next) error {
			resp, err := handler(c.ctx, c.Req)
			c.Resp = resp
			return err
		})
		if err != nil {
			return nil, err
		}
		if c.Resp == nil {
			return nil, errNoResponse
		}
		return c.Resp, nil
	}
}

// Stream runs chain for every streaming RPC.
func Stream(chain onion.Composed[*StreamCall]) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		c := &StreamCall{ctx: ss.Context(), stream: ss, Info: info, Srv: srv}
		return chain(c, func(c *StreamCall, _ onion.Next) error {
			return handler(c.Srv, c.ServerStream())
		})
	}
}
