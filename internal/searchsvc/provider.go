// Package searchsvc is the search backend: a thin query executor over Elasticsearch.
package searchsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const backendName = "elasticsearch"

// Provider executes a text query and returns the selected fields of each hit.
type Provider interface {
	Search(ctx context.Context, text string, searchFields, selectFields []string) ([]map[string]interface{}, error)
	Ping(ctx context.Context) error
}

type ElasticsearchProvider struct {
	client     *elasticsearch.Client
	index      string
	maxResults int
	log        logger.Logger
}

func NewElasticsearchProvider(client *elasticsearch.Client, index string, maxResults int, log logger.Logger) *ElasticsearchProvider {
	if maxResults <= 0 {
		maxResults = 50
	}
	return &ElasticsearchProvider{
		client:     client,
		index:      index,
		maxResults: maxResults,
		log:        log.WithFields(map[string]interface{}{"index": index}),
	}
}

// BuildQuery returns the search body: multi_match over searchFields, or
// match_all for blank text.
func BuildQuery(text string, searchFields, selectFields []string, size int) map[string]interface{} {
	var query map[string]interface{}
	if strings.TrimSpace(text) == "" {
		query = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		multiMatch := map[string]interface{}{"query": text}
		if len(searchFields) > 0 {
			multiMatch["fields"] = searchFields
		}
		query = map[string]interface{}{"multi_match": multiMatch}
	}

	body := map[string]interface{}{
		"query": query,
		"size":  size,
	}
	if len(selectFields) > 0 {
		body["_source"] = selectFields
	}
	return body
}

func (p *ElasticsearchProvider) Search(ctx context.Context, text string, searchFields, selectFields []string) ([]map[string]interface{}, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(BuildQuery(text, searchFields, selectFields, p.maxResults)); err != nil {
		return nil, errors.NewInternalError("failed to encode search query", err)
	}

	req := esapi.SearchRequest{
		Index: []string{p.index},
		Body:  &buf,
	}

	start := time.Now()
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return nil, errors.NewTransportError(backendName, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg := esErrorReason(res)
		p.log.Warn("elasticsearch returned an error", map[string]interface{}{
			"status": res.StatusCode,
			"reason": msg,
		})
		return nil, errors.NewBackendError(backendName, res.StatusCode, msg)
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, errors.NewInternalError("failed to parse elasticsearch response", err)
	}

	results := make([]map[string]interface{}, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		if hit.Source == nil {
			hit.Source = map[string]interface{}{}
		}
		results = append(results, hit.Source)
	}

	p.log.Debug("search executed", map[string]interface{}{
		"hits":       len(results),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return results, nil
}

func (p *ElasticsearchProvider) Ping(ctx context.Context) error {
	res, err := p.client.Ping(p.client.Ping.WithContext(ctx))
	if err != nil {
		return errors.NewTransportError(backendName, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.NewBackendError(backendName, res.StatusCode, res.Status())
	}
	return nil
}

// esErrorReason extracts error.reason from an Elasticsearch error body.
func esErrorReason(res *esapi.Response) string {
	var body struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err == nil && body.Error.Reason != "" {
		return fmt.Sprintf("%s: %s", body.Error.Type, body.Error.Reason)
	}
	return res.Status()
}
