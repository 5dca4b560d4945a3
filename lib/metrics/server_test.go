// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/matrixbot/lib/testutil"
)

func TestServer_Handler(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "matrixbot",
		Name:      "test_total",
		Help:      "Test counter.",
	})
	registry.MustRegister(counter)
	counter.Add(3)

	server := httptest.NewServer(NewServer(ServerConfig{Registry: registry}).Handler())
	defer server.Close()

	body := get(t, server.URL+"/metrics")
	if !strings.Contains(body, "matrixbot_test_total 3") {
		t.Errorf("/metrics missing counter:\n%s", body)
	}

	health := get(t, server.URL+"/health")
	if !strings.Contains(health, `"status":"healthy"`) {
		t.Errorf("/health = %q", health)
	}
}

func TestNewRegistry_RuntimeCollectors(t *testing.T) {
	families, err := NewRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := false
	for _, family := range families {
		if family.GetName() == "go_goroutines" {
			found = true
		}
	}
	if !found {
		t.Error("go_goroutines not registered")
	}
}

func TestServer_ServeUntilCancelled(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := NewServer(ServerConfig{Registry: prometheus.NewRegistry()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.serveListener(ctx, listener) }()

	get(t, "http://"+listener.Addr().String()+"/health")

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for metrics server shutdown"); err != nil {
		t.Errorf("serveListener returned %v", err)
	}
}

func TestServer_ListenFailure(t *testing.T) {
	server := NewServer(ServerConfig{Address: "256.0.0.1:bad"})
	if err := server.Serve(context.Background()); err == nil {
		t.Error("Serve on an invalid address succeeded")
	}
}

func get(t *testing.T, url string) string {
	t.Helper()
	response, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, response.StatusCode)
	}
	body, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("reading %s: %v", url, err)
	}
	return string(body)
}
