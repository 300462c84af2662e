package interceptors

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/Keksclan/onion"
	"github.com/Keksclan/onion/cache"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
)

var errNotProto = errors.New("interceptors: response is not a proto.Message")

// Cache returns a unary handler that serves responses for the listed methods
// from store. The key is the method plus a hash of the deterministic proto
// encoding of the request, so cached methods must not depend on the caller.
// With no methods listed nothing is cached.
func Cache(store cache.Cache, ttl time.Duration, methods ...string) onion.Handler[*Call] {
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		set[m] = struct{}{}
	}
	return cache.Handler[*Call](store, ttl, protoCodec{methods: set})
}

type protoCodec struct {
	methods map[string]struct{}
}

func (p protoCodec) Key(c *Call) (string, bool) {
	if _, ok := p.methods[c.FullMethod()]; !ok {
		return "", false
	}
	m, ok := c.Req.(proto.Message)
	if !ok {
		return "", false
	}
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(m)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(b)
	return c.FullMethod() + ":" + hex.EncodeToString(sum[:]), true
}

func (protoCodec) Encode(c *Call) ([]byte, error) {
	m, ok := c.Resp.(proto.Message)
	if !ok {
		return nil, errNotProto
	}
	a, err := anypb.New(m)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(a)
}

func (protoCodec) Decode(c *Call, data []byte) error {
	var a anypb.Any
	if err := proto.Unmarshal(data, &a); err != nil {
		return err
	}
	m, err := a.UnmarshalNew()
	if err != nil {
		return err
	}
	c.Resp = m
	return nil
}
