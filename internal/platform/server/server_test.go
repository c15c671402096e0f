package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/ogurasousui/codex-hr-compliance/internal/adapters/grpc/handler"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func startTestServer(t *testing.T) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New("bufnet", handler.NewComplianceHandler(handler.Services{}), logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		cancel()
		t.Fatalf("failed to dial: %v", err)
	}

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("server did not stop")
		}
	})
	return conn
}

func TestServer_HealthReportsServing(t *testing.T) {
	t.Parallel()

	conn := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: handler.ServiceName})
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %s", resp.GetStatus())
	}
}

func TestServer_InvokesComplianceService(t *testing.T) {
	t.Parallel()

	conn := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := structpb.NewStruct(map[string]any{
		"monthly_salary":     "600000",
		"days_worked":        30,
		"proposed_deduction": "90000",
	})
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}

	out := &structpb.Struct{}
	if err := conn.Invoke(ctx, handler.FullMethodName("ComputeDiscountCeiling"), req, out); err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if out.GetFields()["ceiling"].GetStringValue() != "90000" {
		t.Fatalf("unexpected ceiling %v", out.GetFields()["ceiling"])
	}
	if out.GetFields()["exceeds_limit"].GetBoolValue() {
		t.Fatalf("deduction equal to the ceiling must be allowed")
	}
}

func TestServer_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	conn := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := structpb.NewStruct(map[string]any{"days_worked": 30, "bonus": true})
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}

	err = conn.Invoke(ctx, handler.FullMethodName("ComputeDiscountCeiling"), req, &structpb.Struct{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestServer_RunFailsOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := New("256.0.0.1:-1", handler.NewComplianceHandler(handler.Services{}), nil)
	if err := srv.Run(context.Background()); err == nil || errors.Is(err, grpc.ErrServerStopped) {
		t.Fatalf("expected listen error, got %v", err)
	}
}
