package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/denteo/clinic-auth/internal/events"
)

func NewClient(url, user, password string) (*elasticsearch.Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, err
	}

	res, err := client.Info()
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch error: %s: %s", res.Status(), body)
	}

	return client, nil
}

// Trail indexes auth events for later inspection. A nil Trail disables
// auditing, mirroring the optional kafka producer.
type Trail struct {
	ES    *elasticsearch.Client
	Index string
}

func (t *Trail) Record(ctx context.Context, ev events.AuthEvent) error {
	if t == nil || t.ES == nil {
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	res, err := t.ES.Index(
		t.Index,
		bytes.NewReader(data),
		t.ES.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("audit index error: %s", res.Status())
	}
	return nil
}

func (t *Trail) Search(ctx context.Context, query string, from, size int) (int64, []events.AuthEvent, error) {
	if t == nil || t.ES == nil {
		return 0, nil, fmt.Errorf("audit trail is not configured")
	}

	body := map[string]interface{}{
		"from": from,
		"size": size,
		"sort": []map[string]interface{}{
			{"occurred_at": map[string]interface{}{"order": "desc"}},
		},
	}
	if query != "" {
		body["query"] = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"type", "user_id", "email"},
			},
		}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := t.ES.Search(
		t.ES.Search.WithContext(ctx),
		t.ES.Search.WithIndex(t.Index),
		t.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("audit search error: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source events.AuthEvent `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	out := make([]events.AuthEvent, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		out[i] = hit.Source
	}
	return r.Hits.Total.Value, out, nil
}
