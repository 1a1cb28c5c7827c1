// internal/search/indexer.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"scholarship-workflow/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
)

var (
	ErrIndexFailed  = errors.New("SEARCH_INDEX_FAILED")
	ErrSearchFailed = errors.New("SEARCH_QUERY_FAILED")
)

// ApplicationDocument is the denormalized view the admin dashboard searches.
type ApplicationDocument struct {
	ID              string    `json:"id"`
	ApplicationNo   string    `json:"applicationNo"`
	StudentName     string    `json:"studentName"`
	SchoolID        int64     `json:"schoolId"`
	Status          string    `json:"status"`
	RequestedAmount float64   `json:"requestedAmount"`
	ApprovedAmount  float64   `json:"approvedAmount,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Indexer keeps the application search index in step with the pipeline.
// Indexing is best-effort: callers log failures and move on, a transition
// never rolls back because Elasticsearch was down.
type Indexer struct {
	es     *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(es *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		es:     es,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search-indexer"}),
	}
}

func (i *Indexer) IndexApplication(ctx context.Context, doc *ApplicationDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: marshal document: %v", ErrIndexFailed, err)
	}

	res, err := i.es.Index(
		i.index,
		bytes.NewReader(body),
		i.es.Index.WithDocumentID(doc.ID),
		i.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrIndexFailed, res.Status())
	}

	i.logger.Debug("application indexed", map[string]interface{}{
		"applicationId": doc.ID,
		"status":        doc.Status,
	})
	return nil
}

// Search matches the query against application number and student name, with
// an optional status filter.
func (i *Indexer) Search(ctx context.Context, query, status string, size int) ([]ApplicationDocument, error) {
	if size <= 0 {
		size = 20
	}

	must := []map[string]interface{}{}
	if query != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"applicationNo", "studentName"},
			},
		})
	}

	filter := []map[string]interface{}{}
	if status != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"status": status},
		})
	}

	esQuery := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", ErrSearchFailed, err)
	}

	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source ApplicationDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}

	out := make([]ApplicationDocument, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, hit.Source)
	}
	return out, nil
}
