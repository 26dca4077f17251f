// Package grpcserver implements a backend that calls a question answering
// inference server over gRPC. Payloads are google.protobuf.Struct messages so no
// generated stubs are needed.
package grpcserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ramili4/ml-ci-pipeline/internal/backend"
)

const (
	// ServiceName is the fully qualified gRPC service.
	ServiceName = "qa.v1.QuestionAnswering"

	// AnswerMethod is the full method name of the unary answer call.
	AnswerMethod = "/" + ServiceName + "/Answer"
)

// Backend implements backend.Backend over gRPC.
type Backend struct {
	target string
	conn   *grpc.ClientConn
	health healthpb.HealthClient

	mu        sync.RWMutex
	modelPath string
}

// NewBackend creates a client for target. Plaintext transport credentials are used
// unless opts provide others.
func NewBackend(target string, opts ...grpc.DialOption) (*Backend, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC client for %s: %w", target, err)
	}

	return &Backend{
		target: target,
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
	}, nil
}

// Provider implements backend.Backend.
func (b *Backend) Provider() backend.Provider {
	return backend.ProviderGRPC
}

// Load implements backend.Backend. The server must report SERVING for the
// question answering service.
func (b *Backend) Load(ctx context.Context, modelPath string) error {
	resp, err := b.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return fmt.Errorf("health check against %s failed: %w", b.target, err)
	}

	if status := resp.GetStatus(); status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("inference server %s not serving: %s", b.target, status)
	}

	b.mu.Lock()
	b.modelPath = modelPath
	b.mu.Unlock()

	return nil
}

// Answer implements backend.Backend.
func (b *Backend) Answer(ctx context.Context, req *backend.Request) (*backend.Response, error) {
	b.mu.RLock()
	modelPath := b.modelPath
	b.mu.RUnlock()

	if modelPath == "" {
		return nil, backend.ErrNotLoaded
	}

	in, err := structpb.NewStruct(map[string]any{
		"question":  req.Question,
		"context":   req.Context,
		"model_dir": modelPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	start := time.Now()
	out := new(structpb.Struct)
	if err := b.conn.Invoke(ctx, AnswerMethod, in, out); err != nil {
		return nil, fmt.Errorf("%s failed: %w", AnswerMethod, err)
	}

	resp, err := backend.DecodeResult(out.AsMap())
	if err != nil {
		return nil, err
	}

	resp.Metadata = &backend.ResponseMetadata{
		Provider:  backend.ProviderGRPC,
		Model:     modelPath,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
		BackendSpecific: map[string]any{
			"target": b.target,
		},
	}

	return resp, nil
}

// Close implements backend.Backend.
func (b *Backend) Close() error {
	return b.conn.Close()
}
