package qr

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestDataURI(t *testing.T) {
	uri, err := DataURI("userId:1,eventId:2")
	if err != nil {
		t.Fatalf("DataURI failed: %v", err)
	}
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("missing data URI prefix: %q", uri[:min(len(uri), 40)])
	}
	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	if err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Fatal("decoded payload is not a PNG")
	}
}

func TestDataURIDeterministic(t *testing.T) {
	a, err := DataURI("http://localhost:3002/user-register?eventCode=AB12CD")
	if err != nil {
		t.Fatalf("first encode failed: %v", err)
	}
	b, err := DataURI("http://localhost:3002/user-register?eventCode=AB12CD")
	if err != nil {
		t.Fatalf("second encode failed: %v", err)
	}
	if a != b {
		t.Fatal("same payload produced different images")
	}
}

func TestDataURILongPayload(t *testing.T) {
	payload := strings.Repeat("attendly", 40) // ~320 bytes
	if _, err := DataURI(payload); err != nil {
		t.Fatalf("long payload failed: %v", err)
	}
}
