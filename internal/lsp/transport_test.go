package lsp

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestTransportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sender := NewTransport(&buf, nil)
	if err := sender.Send(Request{JSONRPC: "2.0", ID: 1, Method: "initialize"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	receiver := NewTransport(nil, bytes.NewReader(buf.Bytes()))
	raw, err := receiver.Recv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if env.Method != "initialize" {
		t.Fatalf("unexpected method: %q", env.Method)
	}
}

func TestTransportRejectsMissingContentLength(t *testing.T) {
	receiver := NewTransport(nil, bytes.NewReader([]byte("\r\n{}")))
	if _, err := receiver.Recv(); err == nil {
		t.Fatal("expected error for missing Content-Length header")
	}
}
