package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunWritesHexSecret(t *testing.T) {
	var out bytes.Buffer
	if err := run(32, &out, bytes.NewReader(bytes.Repeat([]byte{0xab}, 32))); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := "SESSION_HMAC_SECRET=" + strings.Repeat("ab", 32) + "\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func TestRunRejectsShortSecret(t *testing.T) {
	var out bytes.Buffer
	if err := run(16, &out, bytes.NewReader(make([]byte, 16))); err == nil {
		t.Fatal("expected error for 16 bytes")
	}
}

func TestRunFailsOnShortReader(t *testing.T) {
	var out bytes.Buffer
	if err := run(32, &out, bytes.NewReader(make([]byte, 8))); err == nil {
		t.Fatal("expected error when reader runs dry")
	}
}
