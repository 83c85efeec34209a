package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	restauranterrors "dinebot/internal/restaurants/errors"

	"github.com/elastic/go-elasticsearch/v8"
)

type recordedSearch struct {
	method string
	path   string
	size   string
	query  map[string]any
}

func newTestElasticIndex(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*ElasticSearchIndex, func() []recordedSearch) {
	t.Helper()

	var (
		mu       sync.Mutex
		searches []recordedSearch
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var query map[string]any
		_ = json.Unmarshal(body, &query)

		mu.Lock()
		searches = append(searches, recordedSearch{
			method: r.Method,
			path:   r.URL.Path,
			size:   r.URL.Query().Get("size"),
			query:  query,
		})
		mu.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(body))

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	return NewElasticSearchIndex(es, "restaurants", 5*time.Second), func() []recordedSearch {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedSearch(nil), searches...)
	}
}

func TestElasticSearchIndex_SearchByCuisine(t *testing.T) {
	index, searches := newTestElasticIndex(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("size") == "0" {
			_, _ = io.WriteString(w, `{"hits":{"total":{"value":3,"relation":"eq"},"hits":[]}}`)
			return
		}
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":3,"relation":"eq"},"hits":[{"_id":"a"},{"_id":"b"},{"_id":"c"}]}}`)
	})

	ids, err := index.SearchByCuisine(context.Background(), "japanese")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(ids, ",") != "a,b,c" {
		t.Errorf("unexpected ids: %v", ids)
	}

	got := searches()
	if len(got) != 2 {
		t.Fatalf("expected 2 searches, got %d", len(got))
	}
	if got[0].size != "0" || got[1].size != "3" {
		t.Errorf("expected sizes 0 then 3, got %q then %q", got[0].size, got[1].size)
	}
	if got[1].path != "/restaurants/_search" {
		t.Errorf("unexpected path: %s", got[1].path)
	}
	match, _ := got[1].query["query"].(map[string]any)["match"].(map[string]any)
	if match[FieldCuisine] != "japanese" {
		t.Errorf("expected match on cuisine=japanese, got %v", got[1].query)
	}
}

func TestElasticSearchIndex_NoHits(t *testing.T) {
	index, searches := newTestElasticIndex(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":0,"relation":"eq"},"hits":[]}}`)
	})

	ids, err := index.SearchByCuisine(context.Background(), "vegan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no ids, got %v", ids)
	}
	if n := len(searches()); n != 1 {
		t.Errorf("expected the listing query to be skipped, got %d searches", n)
	}
}

func TestElasticSearchIndex_ErrorStatus(t *testing.T) {
	index, _ := newTestElasticIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"type":"index_not_found_exception"},"status":404}`)
	})

	_, err := index.SearchByCuisine(context.Background(), "thai")
	if !errors.Is(err, restauranterrors.ErrSearchFailed) {
		t.Fatalf("expected ErrSearchFailed, got %v", err)
	}
}

func TestElasticSearchIndex_EmptyCuisine(t *testing.T) {
	index, searches := newTestElasticIndex(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := index.SearchByCuisine(context.Background(), "")
	if !errors.Is(err, restauranterrors.ErrEmptyCuisine) {
		t.Fatalf("expected ErrEmptyCuisine, got %v", err)
	}
	if n := len(searches()); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestElasticSearchIndex_PagesBeyondResultWindow(t *testing.T) {
	all := []string{"a", "b", "c", "d", "e"}

	index, searches := newTestElasticIndex(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/restaurants/_search":
			fmt.Fprintf(w, `{"hits":{"total":{"value":%d,"relation":"eq"},"hits":[]}}`, len(all))
		case r.URL.Path == "/restaurants/_pit":
			_, _ = io.WriteString(w, `{"id":"pit-1"}`)
		case r.URL.Path == "/_pit" && r.Method == http.MethodDelete:
			_, _ = io.WriteString(w, `{"succeeded":true,"num_freed":1}`)
		case r.URL.Path == "/_search":
			var body struct {
				SearchAfter []int `json:"search_after"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			start := 0
			if len(body.SearchAfter) == 1 {
				start = body.SearchAfter[0] + 1
			}
			end := min(start+2, len(all))

			hits := make([]string, 0, end-start)
			for i := start; i < end; i++ {
				hits = append(hits, fmt.Sprintf(`{"_id":%q,"sort":[%d]}`, all[i], i))
			}
			fmt.Fprintf(w, `{"pit_id":"pit-1","hits":{"total":{"value":0},"hits":[%s]}}`, strings.Join(hits, ","))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	index.maxResultWindow = 2

	ids, err := index.SearchByCuisine(context.Background(), "korean")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(ids, ",") != "a,b,c,d,e" {
		t.Fatalf("expected every match listed, got %v", ids)
	}

	var pages int
	var closed bool
	for _, s := range searches() {
		switch {
		case s.path == "/_search":
			pages++
			pit, _ := s.query["pit"].(map[string]any)
			if pit["id"] != "pit-1" {
				t.Errorf("page without point in time: %v", s.query)
			}
			if s.size != "2" {
				t.Errorf("page size = %q, want 2", s.size)
			}
		case s.path == "/_pit" && s.method == http.MethodDelete:
			closed = true
		}
	}
	if pages != 3 {
		t.Errorf("expected 3 pages, got %d", pages)
	}
	if !closed {
		t.Error("expected point in time closed")
	}
}
