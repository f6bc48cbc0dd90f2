package grpc

import (
	"context"
	"testing"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestHealthServerLifecycle(t *testing.T) {
	server, err := ListenHealth("127.0.0.1:0", nil, "trustmesh.engine")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- server.Serve(ctx)
	}()

	conn := dialHealthServer(t, server.Addr())
	defer conn.Close()

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer shortCancel()
	if err := WaitForHealth(shortCtx, conn, "trustmesh.engine", nil); err == nil {
		t.Fatal("expected NOT_SERVING before SetServing")
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		server.SetServing("trustmesh.engine", true)
	}()
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	if err := WaitForHealth(waitCtx, conn, "trustmesh.engine", nil); err != nil {
		t.Fatalf("wait for health: %v", err)
	}

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestListenHealthRequiresAddress(t *testing.T) {
	if _, err := ListenHealth(" ", nil); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestWaitForHealthRequiresConnection(t *testing.T) {
	if err := WaitForHealth(context.Background(), nil, "", nil); err == nil {
		t.Fatal("expected error for nil connection")
	}
}

func dialHealthServer(t *testing.T, addr string) *gogrpc.ClientConn {
	t.Helper()
	conn, err := gogrpc.NewClient(addr, gogrpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial health server: %v", err)
	}
	return conn
}
