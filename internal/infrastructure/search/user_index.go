package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/authorization-service/internal/domain/entity"
)

// UserHit is one search result. Password hashes are never indexed.
type UserHit struct {
	ID         string   `json:"id"`
	Identifier string   `json:"identifier"`
	Username   string   `json:"username"`
	Enabled    bool     `json:"enabled"`
	Roles      []string `json:"roles"`
}

// UserIndex keeps a searchable copy of the user directory in Elasticsearch.
// A nil *UserIndex, or one without client or index, is a no-op.
type UserIndex struct {
	ES     *elasticsearch.Client
	Index  string
	Logger *logrus.Logger
}

func NewUserIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *UserIndex {
	return &UserIndex{ES: es, Index: index, Logger: logger}
}

func (x *UserIndex) enabled() bool {
	return x != nil && x.ES != nil && x.Index != ""
}

// IndexUser upserts u under its id.
func (x *UserIndex) IndexUser(ctx context.Context, u *entity.User) error {
	if !x.enabled() {
		return nil
	}
	b, err := json.Marshal(UserHit{
		ID:         u.ID(),
		Identifier: u.Identifier(),
		Username:   u.Username(),
		Enabled:    u.IsEnabled(),
		Roles:      u.Authorities(),
	})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.Index, DocumentID: u.ID(), Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		x.warn(err, u.ID(), "es index failed")
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		err := fmt.Errorf("es index: %s", res.Status())
		x.warn(err, u.ID(), "es index response error")
		return err
	}
	return nil
}

// Search runs a multi_match over identifier and username.
func (x *UserIndex) Search(ctx context.Context, q string, size int) ([]UserHit, error) {
	if !x.enabled() {
		return []UserHit{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^2", "identifier"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := x.ES.Search(
		x.ES.Search.WithContext(c),
		x.ES.Search.WithIndex(x.Index),
		x.ES.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source UserHit `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]UserHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

func (x *UserIndex) warn(err error, userID, msg string) {
	if x.Logger != nil {
		x.Logger.WithError(err).WithField("user_id", userID).Warn(msg)
	}
}
