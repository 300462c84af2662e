// Package core turns ordered handler sets into gRPC server options.
package core

import (
	"github.com/Keksclan/onion"
	"github.com/Keksclan/onion/interceptors"
	"google.golang.org/grpc"
)

// Chains holds the composed unary and stream chains of a server.
type Chains struct {
	Unary  onion.Composed[*interceptors.Call]
	Stream onion.Composed[*interceptors.StreamCall]
}

// Compose validates and composes the handlers collected by b.
func Compose(b *MiddlewareBuilder[*interceptors.Call, *interceptors.StreamCall]) (Chains, error) {
	unary, stream := b.Build()

	u, err := onion.Compose(unary)
	if err != nil {
		return Chains{}, err
	}
	s, err := onion.Compose(stream)
	if err != nil {
		return Chains{}, err
	}
	return Chains{Unary: u, Stream: s}, nil
}

// BuildServerOptions installs the chains as the server's interceptors. This
// keeps the wiring logic isolated from the public API surface.
func BuildServerOptions(c Chains) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.UnaryInterceptor(interceptors.Unary(c.Unary)),
		grpc.StreamInterceptor(interceptors.Stream(c.Stream)),
	}
}
