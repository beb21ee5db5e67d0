package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
)

const esTimeout = 3 * time.Second

// UserSearch mirrors public user fields into Elasticsearch. A nil client
// turns every call into a no-op.
type UserSearch struct {
	es     *elasticsearch.Client
	index  string
	logger *logrus.Logger
}

func NewUserSearch(es *elasticsearch.Client, index string, logger *logrus.Logger) *UserSearch {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &UserSearch{es: es, index: index, logger: logger}
}

// userDocument holds public profile fields only; emails are never indexed.
type userDocument struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Name          string    `json:"name"`
	Location      string    `json:"location,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s *UserSearch) enabled() bool {
	return s != nil && s.es != nil && s.index != ""
}

// IndexUser mirrors u once its account is active. Unverified accounts are
// never searchable.
func (s *UserSearch) IndexUser(ctx context.Context, u *entity.User) {
	if !s.enabled() || u == nil || !u.IsActive {
		return
	}
	b, err := json.Marshal(userDocument{
		ID:            u.ID,
		Username:      u.Username,
		Name:          u.FullName(),
		Location:      u.Location,
		AvatarURL:     u.AvatarURL,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	})
	if err != nil {
		return
	}
	log := s.logger.WithField("user_id", u.ID)

	c, cancel := context.WithTimeout(ctx, esTimeout)
	defer cancel()
	req := esapi.IndexRequest{Index: s.index, DocumentID: u.ID, Body: bytes.NewReader(b), Refresh: "false"}
	res, err := req.Do(c, s.es)
	if err != nil {
		log.WithError(err).Warn("es index failed")
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		log.WithField("status", res.Status()).Warn("es index response error")
	}
}

// SearchHit is one matched user.
type SearchHit struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Name      string  `json:"name"`
	Location  string  `json:"location,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Score     float64 `json:"score"`
}

// Search runs a multi_match over username and name.
func (s *UserSearch) Search(ctx context.Context, q string, size int) ([]SearchHit, error) {
	if !s.enabled() {
		return []SearchHit{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^3", "name"},
			},
		},
		"size": size,
	})
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, esTimeout)
	defer cancel()
	res, err := s.es.Search(
		s.es.Search.WithContext(c),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, unavailable(err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, unavailable(fmt.Errorf("search: %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string       `json:"_id"`
				Score  float64      `json:"_score"`
				Source userDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]SearchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, SearchHit{
			ID:        h.ID,
			Username:  h.Source.Username,
			Name:      h.Source.Name,
			Location:  h.Source.Location,
			AvatarURL: h.Source.AvatarURL,
			Score:     h.Score,
		})
	}
	return out, nil
}
