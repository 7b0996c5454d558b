package model

import (
	"reflect"
	"testing"
)

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 0, 3.14159, -0.0001}

	blob := EncodeVector(vec)
	if len(blob) != len(vec)*4 {
		t.Fatalf("expected %d bytes, got %d", len(vec)*4, len(blob))
	}

	got, err := DecodeVector(blob)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !reflect.DeepEqual(got, vec) {
		t.Errorf("round trip mismatch\n  want: %v\n  got:  %v", vec, got)
	}
}

func TestDecodeVectorBadLength(t *testing.T) {
	if _, err := DecodeVector(make([]byte, 7)); err == nil {
		t.Error("expected error for blob length not divisible by 4")
	}
}

func TestEncodeVectorEmpty(t *testing.T) {
	blob := EncodeVector(nil)
	if len(blob) != 0 {
		t.Errorf("expected empty blob, got %d bytes", len(blob))
	}
	got, err := DecodeVector(blob)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty vector, got %v", got)
	}
}
