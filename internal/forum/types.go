package forum

import (
	"time"

	"github.com/blueprintstore/blueprintstore-server/internal/domain"
)

// PageQuery identifies one catalog page request.
type PageQuery struct {
	Page   int
	Sort   domain.SortMode
	Bucket string
	Query  string
}

// pageEnvelope is the wire shape of GET /blueprints.
type pageEnvelope struct {
	Items   []pageItem `json:"items"`
	HasMore bool       `json:"has_more"`
	Error   string     `json:"error,omitempty"`
}

// pageItem is one listing as the backend serializes it.
type pageItem struct {
	ID        int64    `json:"id"`
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	Excerpt   string   `json:"excerpt"`
	Likes     int      `json:"likes"`
	Views     int      `json:"views"`
	Replies   int      `json:"replies"`
	Uses      int      `json:"uses"`
	ImportURL string   `json:"import_url"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// filtersEnvelope is the wire shape of GET /filters.
type filtersEnvelope struct {
	Tags  []string `json:"tags"`
	Error string   `json:"error,omitempty"`
}

// topicEnvelope is the wire shape of GET /topic/{id}.
type topicEnvelope struct {
	ID         int64    `json:"id"`
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Author     string   `json:"author"`
	Likes      int      `json:"likes"`
	Views      int      `json:"views"`
	Replies    int      `json:"replies"`
	Tags       []string `json:"tags"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
	CookedHTML string   `json:"cooked_html"`
	Error      string   `json:"error,omitempty"`
}

// TopicDetail is the enriched view of one forum topic: sanitized text,
// markdown body, and extracted blueprint import links.
type TopicDetail struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Likes       int       `json:"likes"`
	Views       int       `json:"views"`
	Replies     int       `json:"replies"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
	Excerpt     string    `json:"excerpt"`
	Description string    `json:"description"`
	ImportURL   string    `json:"import_url,omitempty"`
	ImportCount int       `json:"import_count"`
}

// toDomain converts a wire item into the domain type. Timestamps the backend
// omitted or mangled stay zero; recency ordering then falls back per
// Blueprint.RecencyKey.
func (p *pageItem) toDomain() domain.Blueprint {
	return domain.Blueprint{
		ID:        p.ID,
		Slug:      p.Slug,
		Title:     p.Title,
		Author:    p.Author,
		Excerpt:   p.Excerpt,
		Likes:     p.Likes,
		Views:     p.Views,
		Replies:   p.Replies,
		Uses:      p.Uses,
		ImportURL: p.ImportURL,
		Tags:      p.Tags,
		CreatedAt: parseTime(p.CreatedAt),
		UpdatedAt: parseTime(p.UpdatedAt),
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
