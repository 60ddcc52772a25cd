package control

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/elsid/hafen-botserver/internal/protocol"
	"github.com/elsid/hafen-botserver/internal/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	manager := session.NewManager(nil, session.DefaultRegistry(), zap.NewNop())
	return NewServer(Config{BindAddress: "127.0.0.1:0"}, manager, zap.NewNop())
}

func doRequest(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest("POST", path, &buf)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestSubmitUpdateThenPollReturnsGetSessionData(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, "/submit-update", protocol.Update{
		Session: 1602331785,
		Number:  1,
		Event:   protocol.Event{Type: protocol.EventGetSessionData},
	})
	if rec.Code != 200 {
		t.Fatalf("submit-update status: %d body: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, "/poll-next-message", map[string]int64{"session": 1602331785})
	var msg protocol.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != protocol.MessageGetSessionData {
		t.Fatalf("expected first poll to be GetSessionData, got %+v", msg)
	}
}

func TestListSessionsIncludesCreatedSession(t *testing.T) {
	s := newTestServer(t)
	doRequest(t, s, "/submit-update", protocol.Update{Session: 42, Number: 1, Event: protocol.Event{Type: protocol.EventGetSessionData}})

	rec := doRequest(t, s, "/list-sessions", nil)
	var msg protocol.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, si := range msg.Sessions {
		if si.ID == 42 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected session 42 in list-sessions, got %+v", msg.Sessions)
	}
}

func TestAuthRejectsWrongKey(t *testing.T) {
	manager := session.NewManager(nil, session.DefaultRegistry(), zap.NewNop())
	hash, err := HashAPIKey("secret")
	if err != nil {
		t.Fatalf("HashAPIKey: %v", err)
	}
	s := NewServer(Config{BindAddress: "127.0.0.1:0", APIKeyHash: hash}, manager, zap.NewNop())

	req := httptest.NewRequest("POST", "/list-sessions", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	if rec.Code != 401 {
		t.Fatalf("expected 401 without api key, got %d", rec.Code)
	}

	req = httptest.NewRequest("POST", "/list-sessions", nil)
	req.Header.Set("X-Api-Key", "secret")
	rec = httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected 200 with correct api key, got %d", rec.Code)
	}
}

func TestRemoveTaskUnknownSessionReturnsNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, "/remove-task", map[string]int64{"session": 999, "task_id": 1})
	if rec.Code != 404 {
		t.Fatalf("expected 404 for unknown session, got %d", rec.Code)
	}
}
