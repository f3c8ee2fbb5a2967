package otel

import (
	"context"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(" authorization=Bearer abc , ,broken, x-team = settle ")
	if len(headers) != 2 {
		t.Fatalf("unexpected headers: %v", headers)
	}
	if headers["authorization"] != "Bearer abc" || headers["x-team"] != "settle" {
		t.Fatalf("unexpected headers: %v", headers)
	}
}

func TestInitWithoutExportersIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "settled"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := Init(context.Background(), Config{}); err == nil {
		t.Fatalf("expected service name requirement")
	}
}

func TestResourceAttributesAreOrdered(t *testing.T) {
	attrs := resourceAttributes(Config{
		ServiceName: "settled",
		Environment: "dev",
		Attributes:  map[string]string{"settle.verifying_contract": "0x9", "settle.chain_id": "31337"},
	})
	if len(attrs) != 4 {
		t.Fatalf("unexpected attributes: %v", attrs)
	}
	if string(attrs[2].Key) != "settle.chain_id" || string(attrs[3].Key) != "settle.verifying_contract" {
		t.Fatalf("custom attributes out of order: %v", attrs)
	}
}

func TestSampleRatioBounds(t *testing.T) {
	for input, want := range map[float64]float64{0: 1, -1: 1, 2: 1, 0.25: 0.25} {
		if got := sampleRatio(input); got != want {
			t.Fatalf("sampleRatio(%v) = %v, want %v", input, got, want)
		}
	}
}
