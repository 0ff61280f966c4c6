package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/noticeboard/internal/domain"
	"github.com/tbourn/noticeboard/internal/http/middleware"
	"github.com/tbourn/noticeboard/internal/services"
)

func reactHeaders(user, key string) map[string]string {
	h := map[string]string{}
	if user != "" {
		h[middleware.HeaderUserID] = user
	}
	if key != "" {
		h[middleware.HeaderIdempotencyKey] = key
	}
	return h
}

func (s *testServer) reactions(t *testing.T, id string) ListReactionsResponse {
	t.Helper()
	w := s.do(t, http.MethodGet, "/announcements/"+id+"/reactions", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list reactions: status=%d body=%s", w.Code, w.Body.String())
	}
	var resp ListReactionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	return resp
}

func TestAddReaction_AcceptedThenDuplicate(t *testing.T) {
	s := newTestServer(t)
	s.create(t, "a1", "Notice")

	w := s.do(t, http.MethodPost, "/announcements/a1/reactions", `{"type":"up"}`, reactHeaders("u1", "k1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("accepted: status=%d body=%s", w.Code, w.Body.String())
	}
	var first AddReactionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &first)
	if first.Outcome != "accepted" || first.Duplicate || first.Reaction == nil || first.Reaction.Type != domain.ReactionUp {
		t.Fatalf("unexpected accepted body: %+v", first)
	}
	if w.Header().Get(middleware.HeaderIdempotentReplayed) != "" {
		t.Fatalf("fresh write must not be marked replayed")
	}

	// Same key, different type: still a duplicate, state untouched.
	w = s.do(t, http.MethodPost, "/announcements/a1/reactions", `{"type":"heart"}`, reactHeaders("u1", "k1"))
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate: status=%d body=%s", w.Code, w.Body.String())
	}
	if got := w.Header().Get(middleware.HeaderIdempotentReplayed); got != "true" {
		t.Fatalf("expected Idempotent-Replayed: true, got %q", got)
	}
	var dup AddReactionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &dup)
	if !dup.Duplicate || dup.Outcome != "duplicate" || dup.Reaction != nil {
		t.Fatalf("unexpected duplicate body: %+v", dup)
	}

	resp := s.reactions(t, "a1")
	if len(resp.Reactions) != 1 || resp.Counts.Up != 1 || resp.Counts.Heart != 0 || resp.Counts.Total != 1 {
		t.Fatalf("unexpected state after duplicate: %+v", resp)
	}
}

func TestAddReaction_ReplaceKeepsOnePerUser(t *testing.T) {
	s := newTestServer(t)
	s.create(t, "a1", "Notice")

	s.do(t, http.MethodPost, "/announcements/a1/reactions", `{"type":"up"}`, reactHeaders("u1", "k1"))
	s.clock.Advance(time.Second)
	s.do(t, http.MethodPost, "/announcements/a1/reactions", `{"type":"down"}`, reactHeaders("u2", "k1"))
	s.clock.Advance(time.Second)
	w := s.do(t, http.MethodPost, "/announcements/a1/reactions", `{"type":"HEART"}`, reactHeaders("u1", "k2"))
	if w.Code != http.StatusCreated {
		t.Fatalf("replace: status=%d body=%s", w.Code, w.Body.String())
	}

	resp := s.reactions(t, "a1")
	want := domain.ReactionCounts{Up: 0, Down: 1, Heart: 1, Total: 2}
	if resp.Counts != want {
		t.Fatalf("counts=%+v want %+v", resp.Counts, want)
	}
	if len(resp.Reactions) != 2 || resp.Reactions[0].UserID != "u2" || resp.Reactions[1].UserID != "u1" {
		t.Fatalf("expected oldest first [u2 u1], got %+v", resp.Reactions)
	}
}

func TestAddReaction_KeyReusableAfterTTL(t *testing.T) {
	s := newTestServer(t)
	s.create(t, "a1", "Notice")

	s.do(t, http.MethodPost, "/announcements/a1/reactions", `{"type":"up"}`, reactHeaders("u1", "k1"))
	s.clock.Advance(5*time.Minute + time.Second)

	w := s.do(t, http.MethodPost, "/announcements/a1/reactions", `{"type":"down"}`, reactHeaders("u1", "k1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected key to be fresh after TTL, status=%d", w.Code)
	}
	if got := s.reactions(t, "a1").Counts; got.Down != 1 || got.Total != 1 {
		t.Fatalf("unexpected counts %+v", got)
	}
}

func TestAddReaction_Errors(t *testing.T) {
	s := newTestServer(t)
	s.create(t, "a1", "Notice")

	cases := []struct {
		name     string
		path     string
		body     string
		headers  map[string]string
		wantCode int
		wantErr  string
	}{
		{"missing user", "/announcements/a1/reactions", `{"type":"up"}`, reactHeaders("", "k"), http.StatusBadRequest, ErrCodeMissingHeader},
		{"missing key", "/announcements/a1/reactions", `{"type":"up"}`, reactHeaders("u1", ""), http.StatusBadRequest, ErrCodeMissingIdempotencyKey},
		{"invalid type", "/announcements/a1/reactions", `{"type":"laugh"}`, reactHeaders("u1", "k"), http.StatusBadRequest, ErrCodeInvalidReactionType},
		{"missing type", "/announcements/a1/reactions", `{}`, reactHeaders("u1", "k"), http.StatusBadRequest, ErrCodeInvalidReactionType},
		{"invalid json", "/announcements/a1/reactions", `{"type":`, reactHeaders("u1", "k"), http.StatusBadRequest, ErrCodeBadRequest},
		{"unknown announcement", "/announcements/zz/reactions", `{"type":"up"}`, reactHeaders("u1", "k"), http.StatusNotFound, ErrCodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, tc.path, tc.body, tc.headers)
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d want %d body=%s", w.Code, tc.wantCode, w.Body.String())
			}
			if er := decodeError(t, w); er.Code != tc.wantErr {
				t.Fatalf("code=%q want %q", er.Code, tc.wantErr)
			}
		})
	}

	if s.guard.Len() != 0 {
		t.Fatalf("rejected writes must not leave reservations, len=%d", s.guard.Len())
	}
	if got := s.reactions(t, "a1").Counts.Total; got != 0 {
		t.Fatalf("rejected writes must not store reactions, total=%d", got)
	}
}

func TestRemoveReaction(t *testing.T) {
	s := newTestServer(t)
	s.create(t, "a1", "Notice")
	s.do(t, http.MethodPost, "/announcements/a1/reactions", `{"type":"heart"}`, reactHeaders("u1", "k1"))

	w := s.do(t, http.MethodDelete, "/announcements/a1/reactions", "", reactHeaders("u1", ""))
	if w.Code != http.StatusNoContent {
		t.Fatalf("remove: status=%d body=%s", w.Code, w.Body.String())
	}
	if got := s.reactions(t, "a1").Counts.Total; got != 0 {
		t.Fatalf("expected no reactions, total=%d", got)
	}

	w = s.do(t, http.MethodDelete, "/announcements/a1/reactions", "", reactHeaders("u1", ""))
	if w.Code != http.StatusNotFound || decodeError(t, w).Code != ErrCodeNoReaction {
		t.Fatalf("second remove: status=%d body=%s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodDelete, "/announcements/a1/reactions", "", nil)
	if w.Code != http.StatusBadRequest || decodeError(t, w).Code != ErrCodeMissingHeader {
		t.Fatalf("no user: status=%d body=%s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodDelete, "/announcements/zz/reactions", "", reactHeaders("u1", ""))
	if w.Code != http.StatusNotFound || decodeError(t, w).Code != ErrCodeNotFound {
		t.Fatalf("unknown announcement: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestListReactions_UnknownAnnouncement(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/announcements/zz/reactions", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReactionHistory_PagesAndETag(t *testing.T) {
	s := newTestServer(t)
	s.create(t, "a1", "Notice")

	s.do(t, http.MethodPost, "/announcements/a1/reactions", `{"type":"up"}`, reactHeaders("u1", "k1"))
	s.clock.Advance(time.Second)
	s.do(t, http.MethodPost, "/announcements/a1/reactions", `{"type":"up"}`, reactHeaders("u1", "k1"))
	s.clock.Advance(time.Second)
	s.do(t, http.MethodDelete, "/announcements/a1/reactions", "", reactHeaders("u1", ""))

	w := s.do(t, http.MethodGet, "/announcements/a1/reactions/history?page=1&page_size=2", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history: status=%d body=%s", w.Code, w.Body.String())
	}
	var resp ReactionHistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Pagination.Total != 3 || resp.Pagination.TotalPages != 2 || !resp.Pagination.HasNext {
		t.Fatalf("unexpected pagination: %+v", resp.Pagination)
	}
	if len(resp.Events) != 2 || resp.Events[0].Action != domain.ActionAccepted || resp.Events[1].Action != domain.ActionDuplicate {
		t.Fatalf("unexpected events: %+v", resp.Events)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header")
	}
	h := map[string]string{"If-None-Match": etag}
	w = s.do(t, http.MethodGet, "/announcements/a1/reactions/history?page=1&page_size=2", "", h)
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/announcements/a1/reactions/history?page=2&page_size=2", "", nil)
	resp = ReactionHistoryResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Events) != 1 || resp.Events[0].Action != domain.ActionRemoved || resp.Pagination.HasNext {
		t.Fatalf("unexpected page 2: %+v", resp)
	}

	w = s.do(t, http.MethodGet, "/announcements/zz/reactions/history", "", nil)
	if w.Code != http.StatusNotFound || w.Header().Get("ETag") != "" {
		t.Fatalf("unknown announcement: status=%d etag=%q", w.Code, w.Header().Get("ETag"))
	}
}

func TestReactionHistory_WildcardOnUnknownAnnouncement(t *testing.T) {
	s := newTestServer(t)
	s.create(t, "a1", "Notice")

	h := map[string]string{"If-None-Match": "*"}
	w := s.do(t, http.MethodGet, "/announcements/nope/reactions/history", "", h)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown announcement, got %d", w.Code)
	}
	if er := decodeError(t, w); er.Code != ErrCodeNotFound {
		t.Fatalf("code=%q", er.Code)
	}
	if w.Header().Get("ETag") != "" {
		t.Fatalf("404 must not carry an ETag")
	}

	w = s.do(t, http.MethodGet, "/announcements/a1/reactions/history", "", h)
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304 for existing announcement, got %d", w.Code)
	}
}

// stubReactions lets tests force service errors.
type stubReactions struct {
	err error
}

func (s stubReactions) AddOrReplace(context.Context, string, string, string, string) (*services.AddReactionResult, error) {
	return nil, s.err
}

func (s stubReactions) Remove(context.Context, string, string) error { return s.err }

func (s stubReactions) List(context.Context, string) (*services.ReactionList, error) {
	return nil, s.err
}

func (s stubReactions) History(context.Context, string, int, int) ([]domain.ReactionEvent, int64, error) {
	return nil, 0, s.err
}

func TestReactionHandlers_ServiceErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name     string
		err      error
		method   string
		path     string
		wantCode int
		wantErr  string
	}{
		{"ledger disabled", services.ErrLedgerDisabled, http.MethodGet, "/announcements/a1/reactions/history", http.StatusServiceUnavailable, ErrCodeLedgerDisabled},
		{"internal list", context.DeadlineExceeded, http.MethodGet, "/announcements/a1/reactions", http.StatusInternalServerError, ErrCodeInternal},
		{"internal add", context.Canceled, http.MethodPost, "/announcements/a1/reactions", http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := New(nil, nil, stubReactions{err: tc.err})
			r := gin.New()
			r.Use(middleware.Principal())
			mount(r, h)

			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.method == http.MethodPost {
				req = httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{"type":"up"}`))
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set(middleware.HeaderUserID, "u1")
				req.Header.Set(middleware.HeaderIdempotencyKey, "k1")
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Fatalf("status=%d want %d body=%s", w.Code, tc.wantCode, w.Body.String())
			}
			if er := decodeError(t, w); er.Code != tc.wantErr {
				t.Fatalf("code=%q want %q", er.Code, tc.wantErr)
			}
		})
	}
}
