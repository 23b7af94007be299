package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

// jsonCodec lets the channel speak the workers' JSON messages over gRPC
// without generated protobuf types: requests and responses are plain JSON
// documents carried with content-subtype "json".
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// GRPCChannel reaches a worker over gRPC. The worker exposes one unary
// method per operation under the rotaryd.Worker service, with the same JSON
// payloads and envelope as the HTTP protocol.
type GRPCChannel struct {
	kind Kind
	conn *grpc.ClientConn
}

// NewGRPCChannel dials the worker at target ("host:port", or a grpc:// URL
// whose scheme is stripped).
func NewGRPCChannel(kind Kind, target string) (*GRPCChannel, error) {
	target = strings.TrimPrefix(target, "grpc://")
	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype("json")),
	)
	if err != nil {
		return nil, fmt.Errorf("dialling %s worker: %w", kind, err)
	}
	return &GRPCChannel{kind: kind, conn: conn}, nil
}

// Call invokes /rotaryd.Worker/<op> with the JSON payload.
func (c *GRPCChannel) Call(ctx context.Context, op string, payload any) ([]byte, error) {
	var raw json.RawMessage
	err := c.conn.Invoke(ctx, "/rotaryd.Worker/"+op, payload, &raw)
	if err != nil {
		return nil, normalizeGRPCErr(err)
	}
	return raw, nil
}

// Healthy invokes the worker's health method.
func (c *GRPCChannel) Healthy(ctx context.Context) error {
	var raw json.RawMessage
	if err := c.conn.Invoke(ctx, "/rotaryd.Worker/health", struct{}{}, &raw); err != nil {
		return normalizeGRPCErr(err)
	}
	return nil
}

// Close tears down the connection.
func (c *GRPCChannel) Close() error {
	return c.conn.Close()
}

// normalizeGRPCErr maps gRPC status codes onto the worker failure taxonomy.
func normalizeGRPCErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return context.DeadlineExceeded
	}
	switch status.Code(err) {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	case codes.Unavailable:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}

// NewChannel builds the channel matching the endpoint scheme: grpc:// uses
// gRPC, anything else the HTTP JSON protocol.
func NewChannel(kind Kind, endpoint string) (Channel, error) {
	if strings.HasPrefix(endpoint, "grpc://") {
		return NewGRPCChannel(kind, endpoint)
	}
	return NewHTTPChannel(kind, endpoint), nil
}
