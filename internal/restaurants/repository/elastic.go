package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	restauranterrors "dinebot/internal/restaurants/errors"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	// FieldCuisine is the analyzed cuisine field of the search documents.
	// Document ids are business ids.
	FieldCuisine = "cuisine"

	// Elasticsearch rejects from+size beyond index.max_result_window.
	DefaultMaxResultWindow = 10000
)

type ElasticSearchIndex struct {
	es              *elasticsearch.Client
	index           string
	timeout         time.Duration
	maxResultWindow int
}

func NewElasticSearchIndex(es *elasticsearch.Client, index string, timeout time.Duration) *ElasticSearchIndex {
	return &ElasticSearchIndex{
		es:              es,
		index:           index,
		timeout:         timeout,
		maxResultWindow: DefaultMaxResultWindow,
	}
}

// pitKeepAlive bounds how long a point in time survives between pages.
const pitKeepAlive = "1m"

type searchHit struct {
	ID   string `json:"_id"`
	Sort []any  `json:"sort"`
}

type searchResponse struct {
	PitID string `json:"pit_id"`
	Hits  struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// SearchByCuisine counts the matches first, then lists every id. Up to one
// result window is listed by a single query; larger result sets are paged
// through a point in time with search_after so no match is left out.
func (x *ElasticSearchIndex) SearchByCuisine(ctx context.Context, cuisine string) ([]string, error) {
	if cuisine == "" {
		return nil, restauranterrors.ErrEmptyCuisine
	}

	ctx, cancel := withTimeout(ctx, x.timeout)
	defer cancel()

	counted, err := x.search(ctx, matchQuery(cuisine), 0, true)
	if err != nil {
		return nil, err
	}

	total := counted.Hits.Total.Value
	switch {
	case total == 0:
		return []string{}, nil
	case total > x.maxResultWindow:
		return x.searchAll(ctx, cuisine, total)
	}

	listed, err := x.search(ctx, matchQuery(cuisine), total, true)
	if err != nil {
		return nil, err
	}
	return appendIDs(make([]string, 0, len(listed.Hits.Hits)), listed.Hits.Hits), nil
}

func (x *ElasticSearchIndex) searchAll(ctx context.Context, cuisine string, total int) ([]string, error) {
	pitID, err := x.openPointInTime(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { x.closePointInTime(ctx, pitID) }()

	ids := make([]string, 0, total)
	var after []any
	for {
		body := matchQuery(cuisine)
		body["pit"] = map[string]any{"id": pitID, "keep_alive": pitKeepAlive}
		body["sort"] = []any{map[string]any{"_shard_doc": "asc"}}
		if after != nil {
			body["search_after"] = after
		}

		page, err := x.search(ctx, body, x.maxResultWindow, false)
		if err != nil {
			return nil, err
		}
		if page.PitID != "" {
			pitID = page.PitID
		}

		hits := page.Hits.Hits
		ids = appendIDs(ids, hits)
		if len(hits) < x.maxResultWindow || len(hits[len(hits)-1].Sort) == 0 {
			return ids, nil
		}
		after = hits[len(hits)-1].Sort
	}
}

func (x *ElasticSearchIndex) openPointInTime(ctx context.Context) (string, error) {
	res, err := x.es.OpenPointInTime([]string{x.index}, pitKeepAlive,
		x.es.OpenPointInTime.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("%w: open point in time: %v", restauranterrors.ErrSearchFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return "", statusError(res.Status(), res.Body)
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil || parsed.ID == "" {
		return "", fmt.Errorf("%w: decode point in time: %v", restauranterrors.ErrSearchFailed, err)
	}
	return parsed.ID, nil
}

// closePointInTime is best effort: an unclosed point in time expires after
// pitKeepAlive.
func (x *ElasticSearchIndex) closePointInTime(ctx context.Context, pitID string) {
	body, _ := json.Marshal(map[string]string{"id": pitID})
	res, err := x.es.ClosePointInTime(
		x.es.ClosePointInTime.WithContext(context.WithoutCancel(ctx)),
		x.es.ClosePointInTime.WithBody(bytes.NewReader(body)),
	)
	if err == nil {
		res.Body.Close()
	}
}

func matchQuery(cuisine string) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"match": map[string]any{FieldCuisine: cuisine},
		},
		"_source": false,
	}
}

func appendIDs(ids []string, hits []searchHit) []string {
	for _, hit := range hits {
		if hit.ID != "" {
			ids = append(ids, hit.ID)
		}
	}
	return ids
}

// search sends body to the index, or to the point in time named in body
// when withIndex is false.
func (x *ElasticSearchIndex) search(ctx context.Context, body map[string]any, size int, withIndex bool) (*searchResponse, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", restauranterrors.ErrSearchFailed, err)
	}

	opts := []func(*esapi.SearchRequest){
		x.es.Search.WithContext(ctx),
		x.es.Search.WithBody(bytes.NewReader(encoded)),
		x.es.Search.WithSize(size),
		x.es.Search.WithTrackTotalHits(withIndex),
	}
	if withIndex {
		opts = append(opts, x.es.Search.WithIndex(x.index))
	}

	res, err := x.es.Search(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", restauranterrors.ErrSearchFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, statusError(res.Status(), res.Body)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", restauranterrors.ErrSearchFailed, err)
	}
	return &parsed, nil
}

func statusError(status string, body io.Reader) error {
	detail, _ := io.ReadAll(io.LimitReader(body, 512))
	return fmt.Errorf("%w: elasticsearch %s: %s", restauranterrors.ErrSearchFailed, status, bytes.TrimSpace(detail))
}
