package httputil

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestNewStandardClient(t *testing.T) {
	if NewStandardClient(nil) != http.DefaultClient {
		t.Error("nil client should fall back to http.DefaultClient")
	}
	c := &http.Client{}
	if NewStandardClient(c) != c {
		t.Error("explicit client should be returned as-is")
	}
}

func TestMockHTTPClient_QueuedResponses(t *testing.T) {
	m := NewMockHTTPClient().
		AddResponse(http.StatusOK, `{"STATUS":"OK"}`).
		AddErrorResponse(errors.New("connection refused"))

	req, _ := http.NewRequest(http.MethodPost, "http://driver/reset", strings.NewReader("payload"))
	resp, err := m.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"STATUS":"OK"}` {
		t.Errorf("body = %q", body)
	}
	if string(m.Bodies[0]) != "payload" {
		t.Errorf("recorded body = %q, want payload", m.Bodies[0])
	}

	req, _ = http.NewRequest(http.MethodPost, "http://driver/drive", nil)
	if _, err := m.Do(req); err == nil {
		t.Error("expected queued error")
	}

	req, _ = http.NewRequest(http.MethodGet, "http://driver/", nil)
	resp, err = m.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Errorf("default response = %v, %v; want 200", resp, err)
	}
	if len(m.Requests) != 3 {
		t.Errorf("recorded %d requests, want 3", len(m.Requests))
	}
}
