package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rmax-ai/orbit/pkg/film"
	"github.com/rmax-ai/orbit/pkg/gesture"
)

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestFindCandidateParsesReply(t *testing.T) {
	srv := completionServer(t, `{"title":"Fallen Angels","year":1995,"reason":"same restless neon melancholy","score":84,"director":"Wong Kar-wai"}`)
	defer srv.Close()

	r := New(srv.URL, "test-key", "test-model")
	cand, err := r.FindCandidate(context.Background(), film.Movie{ID: "chungking-express-1994", Title: "Chungking Express", Year: 1994}, gesture.DirectionLeft, film.QueryContext{})
	if err != nil {
		t.Fatalf("FindCandidate failed: %v", err)
	}
	if cand == nil {
		t.Fatal("expected a candidate")
	}
	if cand.Movie.ID != "fallen-angels-1995" {
		t.Errorf("unexpected id %q", cand.Movie.ID)
	}
	if cand.Score != 84 || cand.Movie.Director != "Wong Kar-wai" {
		t.Errorf("unexpected candidate %+v", cand)
	}
}

func TestFindCandidateUnparsableIsMiss(t *testing.T) {
	srv := completionServer(t, "I'd suggest watching Fallen Angels!")
	defer srv.Close()

	r := New(srv.URL, "test-key", "test-model")
	cand, err := r.FindCandidate(context.Background(), film.Movie{ID: "m", Title: "M"}, gesture.DirectionUp, film.QueryContext{})
	if err != nil {
		t.Fatalf("expected silent miss, got error: %v", err)
	}
	if cand != nil {
		t.Fatalf("expected nil candidate, got %+v", cand)
	}
}

func TestFindCandidateRejectsSelfRecommendation(t *testing.T) {
	srv := completionServer(t, `{"title":"Stalker","year":1979,"reason":"itself","score":100}`)
	defer srv.Close()

	r := New(srv.URL, "test-key", "test-model")
	cand, err := r.FindCandidate(context.Background(), film.Movie{ID: "stalker-1979", Title: "Stalker", Year: 1979}, gesture.DirectionDown, film.QueryContext{})
	if err != nil || cand != nil {
		t.Fatalf("expected miss for self-recommendation, got %+v, %v", cand, err)
	}
}

func TestFindCandidateHTTPErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := New(srv.URL, "test-key", "test-model")
	_, err := r.FindCandidate(context.Background(), film.Movie{ID: "m", Title: "M"}, gesture.DirectionLeft, film.QueryContext{})
	if err == nil {
		t.Fatal("expected error on HTTP 503")
	}
}

func TestFindThreeCandidatesToleratesPartialFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `{"title":"Her","year":2013,"reason":"r","score":70}`}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	r := New(srv.URL, "", "test-model")
	three, err := r.FindThreeCandidates(context.Background(), film.Movie{ID: "m", Title: "M"}, film.QueryContext{})
	if err != nil {
		t.Fatalf("FindThreeCandidates failed: %v", err)
	}
	filled := 0
	if three.Vibe != nil {
		filled++
	}
	if three.Aesthetic != nil {
		filled++
	}
	if three.Auteur != nil {
		filled++
	}
	if filled != 2 {
		t.Errorf("expected exactly 2 slots filled, got %d", filled)
	}
}

func TestParseCandidateReplyFenced(t *testing.T) {
	reply, ok := parseCandidateReply("```json\n{\"title\":\"Drive\",\"year\":2011,\"reason\":\"r\",\"score\":75}\n```")
	if !ok || reply.Title != "Drive" {
		t.Fatalf("failed to parse fenced reply: %+v ok=%v", reply, ok)
	}
}

func TestSlug(t *testing.T) {
	cases := []struct {
		title string
		year  int
		want  string
	}{
		{"In the Mood for Love", 2000, "in-the-mood-for-love-2000"},
		{"Punch-Drunk Love", 2002, "punch-drunk-love-2002"},
		{"The Double Life of Véronique", 1991, "the-double-life-of-véronique-1991"},
		{"Her", 0, "her"},
	}
	for _, tc := range cases {
		if got := Slug(tc.title, tc.year); got != tc.want {
			t.Errorf("Slug(%q, %d) = %q, want %q", tc.title, tc.year, got, tc.want)
		}
	}
}
