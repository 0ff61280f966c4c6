package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAddComment_AndList(t *testing.T) {
	s := newTestServer(t)
	s.create(t, "a1", "Notice")

	w := s.do(t, http.MethodPost, "/announcements/a1/comments", `{"author":"maria","text":" first "}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	// legacy field name
	w = s.do(t, http.MethodPost, "/announcements/a1/comments", `{"authorname":"li","text":"second"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("authorname alias: status=%d body=%s", w.Code, w.Body.String())
	}
	s.do(t, http.MethodPost, "/announcements/a1/comments", `{"author":"sam","text":"third"}`, nil)

	w = s.do(t, http.MethodGet, "/announcements/a1/comments?limit=2", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d", w.Code)
	}
	var resp ListCommentsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Count != 2 || resp.Comments[0].Author != "maria" || resp.Comments[0].Text != "first" || resp.Comments[1].Author != "li" {
		t.Fatalf("unexpected comments: %+v", resp.Comments)
	}
}

func TestAddComment_Errors(t *testing.T) {
	s := newTestServer(t)
	s.create(t, "a1", "Notice")

	cases := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"invalid json", "/announcements/a1/comments", `{`, http.StatusBadRequest, ErrCodeBadRequest},
		{"missing author", "/announcements/a1/comments", `{"text":"hi"}`, http.StatusBadRequest, ErrCodeMissingField},
		{"empty text", "/announcements/a1/comments", `{"author":"a","text":"  "}`, http.StatusBadRequest, ErrCodeMissingField},
		{"too long", "/announcements/a1/comments", fmt.Sprintf(`{"author":"a","text":%q}`, strings.Repeat("x", 2001)), http.StatusBadRequest, ErrCodeCommentTooLong},
		{"unknown announcement", "/announcements/zz/comments", `{"author":"a","text":"hi"}`, http.StatusNotFound, ErrCodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, tc.path, tc.body, nil)
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d want %d body=%s", w.Code, tc.wantCode, w.Body.String())
			}
			if er := decodeError(t, w); er.Code != tc.wantErr {
				t.Fatalf("code=%q want %q", er.Code, tc.wantErr)
			}
		})
	}
}

func TestListComments_Limit(t *testing.T) {
	s := newTestServer(t)
	s.create(t, "a1", "Notice")

	for _, q := range []string{"", "?limit=", "?limit=0", "?limit=-3", "?limit=abc"} {
		w := s.do(t, http.MethodGet, "/announcements/a1/comments"+q, "", nil)
		if w.Code != http.StatusBadRequest || decodeError(t, w).Code != ErrCodeInvalidLimit {
			t.Fatalf("%q: status=%d body=%s", q, w.Code, w.Body.String())
		}
	}

	w := s.do(t, http.MethodGet, "/announcements/a1/comments?limit=5", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"comments":[]`) {
		t.Fatalf("empty comments: status=%d body=%s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/announcements/zz/comments?limit=5", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown announcement: status=%d", w.Code)
	}
}
