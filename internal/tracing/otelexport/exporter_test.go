package otelexport

import (
	"context"
	"testing"
)

func TestNew_EmptyEndpoint(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil {
		t.Error("expected error for empty endpoint")
	}
}

func TestNew_UnknownProtocol(t *testing.T) {
	_, err := New(context.Background(), Config{Endpoint: "localhost:4317", Protocol: "carrier-pigeon"})
	if err == nil {
		t.Error("expected error for unknown protocol")
	}
}

func TestNew_HTTPAndShutdown(t *testing.T) {
	e, err := New(context.Background(), Config{
		Endpoint:    "127.0.0.1:4318",
		Protocol:    "http",
		Insecure:    true,
		SampleRatio: 0.5,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestShutdown_NilExporter(t *testing.T) {
	var e *Exporter
	if err := e.Shutdown(context.Background()); err != nil {
		t.Errorf("nil exporter shutdown: %v", err)
	}
}
