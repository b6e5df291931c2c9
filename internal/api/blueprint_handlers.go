package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/blueprintstore/blueprintstore-server/internal/domain"
)

func (s *Server) registerBlueprintRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBlueprints",
		Method:      http.MethodGet,
		Path:        "/api/blueprint_store/blueprints",
		Summary:     "List blueprints",
		Description: "Returns one page of the blueprint catalog, optionally filtered and searched",
		Tags:        []string{"Blueprints"},
	}, s.handleListBlueprints)

	huma.Register(s.api, huma.Operation{
		OperationID: "listFilters",
		Method:      http.MethodGet,
		Path:        "/api/blueprint_store/filters",
		Summary:     "List filter buckets",
		Description: "Returns the bucket names available for filtering",
		Tags:        []string{"Blueprints"},
	}, s.handleListFilters)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTopic",
		Method:      http.MethodGet,
		Path:        "/api/blueprint_store/topic/{id}",
		Summary:     "Get topic detail",
		Description: "Returns the enriched detail for one blueprint topic",
		Tags:        []string{"Blueprints"},
	}, s.handleGetTopic)

	huma.Register(s.api, huma.Operation{
		OperationID: "goToTopic",
		Method:      http.MethodGet,
		Path:        "/api/blueprint_store/go/{id}",
		Summary:     "Redirect to forum topic",
		Description: "Redirects to the public forum page for a topic",
		Tags:        []string{"Blueprints"},
	}, s.handleGoToTopic)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSpotlight",
		Method:      http.MethodGet,
		Path:        "/api/blueprint_store/spotlight",
		Summary:     "Get creator spotlight",
		Description: "Returns the most popular blueprint, busiest author, and freshest upload",
		Tags:        []string{"Blueprints"},
	}, s.handleGetSpotlight)
}

// === DTOs ===

// ListBlueprintsInput contains parameters for a catalog page.
type ListBlueprintsInput struct {
	Page   int    `query:"page" minimum:"0" doc:"Zero-based page number"`
	Sort   string `query:"sort" enum:"likes,new,title," doc:"Sort mode (default likes)"`
	Bucket string `query:"bucket" doc:"Bucket slug to filter by"`
	Query  string `query:"q_title" doc:"Free-text search query"`
}

// BlueprintResult is one catalog entry in API responses.
type BlueprintResult struct {
	ID        int64    `json:"id" doc:"Forum topic id"`
	Slug      string   `json:"slug,omitempty" doc:"Topic slug"`
	Title     string   `json:"title" doc:"Topic title"`
	Author    string   `json:"author,omitempty" doc:"Author username"`
	Excerpt   string   `json:"excerpt,omitempty" doc:"Plain-text excerpt"`
	Likes     int      `json:"likes" doc:"Like count"`
	Views     int      `json:"views" doc:"View count"`
	Replies   int      `json:"replies" doc:"Reply count"`
	Uses      int      `json:"uses" doc:"Import count"`
	Buckets   []string `json:"buckets" doc:"Assigned category buckets"`
	ImportURL string   `json:"import_url,omitempty" doc:"One-click import URL"`
	CreatedAt string   `json:"created_at,omitempty" doc:"Creation time, RFC 3339"`
	UpdatedAt string   `json:"updated_at,omitempty" doc:"Last activity time, RFC 3339"`
}

// ListBlueprintsResponse is one page of catalog results.
type ListBlueprintsResponse struct {
	Blueprints []BlueprintResult `json:"blueprints" doc:"Page items in display order"`
	Page       int               `json:"page" doc:"Zero-based page number"`
	HasMore    bool              `json:"has_more" doc:"Whether another page exists"`
}

// ListBlueprintsOutput wraps the listing response for Huma.
type ListBlueprintsOutput struct {
	Body ListBlueprintsResponse
}

// ListFiltersResponse contains the available filter buckets.
type ListFiltersResponse struct {
	Filters []string `json:"filters" doc:"Bucket slugs available for filtering"`
}

// ListFiltersOutput wraps the filters response for Huma.
type ListFiltersOutput struct {
	Body ListFiltersResponse
}

// TopicInput identifies one topic.
type TopicInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Forum topic id"`
}

// TopicResponse is the enriched detail for one topic.
type TopicResponse struct {
	ID          int64    `json:"id" doc:"Forum topic id"`
	Slug        string   `json:"slug,omitempty" doc:"Topic slug"`
	Title       string   `json:"title" doc:"Topic title"`
	Author      string   `json:"author,omitempty" doc:"Author username"`
	Likes       int      `json:"likes" doc:"Like count"`
	Views       int      `json:"views" doc:"View count"`
	Replies     int      `json:"replies" doc:"Reply count"`
	Tags        []string `json:"tags" doc:"Backend tags"`
	Excerpt     string   `json:"excerpt,omitempty" doc:"Plain-text excerpt"`
	Description string   `json:"description,omitempty" doc:"First-post body as Markdown"`
	ImportURL   string   `json:"import_url,omitempty" doc:"One-click import URL"`
	ImportCount int      `json:"import_count" doc:"Import link clicks"`
	CreatedAt   string   `json:"created_at,omitempty" doc:"Creation time, RFC 3339"`
	UpdatedAt   string   `json:"updated_at,omitempty" doc:"Last activity time, RFC 3339"`
}

// TopicOutput wraps the topic response for Huma.
type TopicOutput struct {
	Body TopicResponse
}

// GoToTopicInput identifies the topic to redirect to.
type GoToTopicInput struct {
	ID   int64  `path:"id" minimum:"1" doc:"Forum topic id"`
	Slug string `query:"slug" doc:"Optional topic slug for a prettier URL"`
}

// GoToTopicOutput issues the redirect.
type GoToTopicOutput struct {
	Status   int
	Location string `header:"Location"`
}

// SpotlightEntryResult is one highlighted entry.
type SpotlightEntryResult struct {
	ID     int64  `json:"id,omitempty" doc:"Forum topic id"`
	Title  string `json:"title,omitempty" doc:"Topic title"`
	Author string `json:"author,omitempty" doc:"Author username"`
	Likes  int    `json:"likes,omitempty" doc:"Like count"`
	Count  int    `json:"count,omitempty" doc:"Upload count, for the top uploader"`
}

// SpotlightResponse contains the creators footer data.
type SpotlightResponse struct {
	MostPopular SpotlightEntryResult `json:"most_popular" doc:"Blueprint with the most likes"`
	TopUploader SpotlightEntryResult `json:"top_uploader" doc:"Author with the most blueprints"`
	MostRecent  SpotlightEntryResult `json:"most_recent" doc:"Most recently active blueprint"`
}

// SpotlightOutput wraps the spotlight response for Huma.
type SpotlightOutput struct {
	Body SpotlightResponse
}

// === Handlers ===

func (s *Server) handleListBlueprints(ctx context.Context, input *ListBlueprintsInput) (*ListBlueprintsOutput, error) {
	res, err := s.catalog.List(ctx, input.Query, input.Sort, input.Bucket, input.Page)
	if err != nil {
		return nil, err
	}

	items := make([]BlueprintResult, 0, len(res.Items))
	for i := range res.Items {
		items = append(items, toBlueprintResult(&res.Items[i]))
	}

	return &ListBlueprintsOutput{
		Body: ListBlueprintsResponse{
			Blueprints: items,
			Page:       res.Page,
			HasMore:    res.HasMore,
		},
	}, nil
}

func (s *Server) handleListFilters(ctx context.Context, _ *struct{}) (*ListFiltersOutput, error) {
	filters, err := s.catalog.Filters(ctx)
	if err != nil {
		return nil, err
	}
	return &ListFiltersOutput{Body: ListFiltersResponse{Filters: filters}}, nil
}

func (s *Server) handleGetTopic(ctx context.Context, input *TopicInput) (*TopicOutput, error) {
	detail, err := s.catalog.Topic(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &TopicOutput{
		Body: TopicResponse{
			ID:          detail.ID,
			Slug:        detail.Slug,
			Title:       detail.Title,
			Author:      detail.Author,
			Likes:       detail.Likes,
			Views:       detail.Views,
			Replies:     detail.Replies,
			Tags:        detail.Tags,
			Excerpt:     detail.Excerpt,
			Description: detail.Description,
			ImportURL:   detail.ImportURL,
			ImportCount: detail.ImportCount,
			CreatedAt:   formatTime(detail.CreatedAt),
			UpdatedAt:   formatTime(detail.UpdatedAt),
		},
	}, nil
}

func (s *Server) handleGoToTopic(_ context.Context, input *GoToTopicInput) (*GoToTopicOutput, error) {
	target, err := s.catalog.TopicURL(input.ID, input.Slug)
	if err != nil {
		return nil, err
	}
	return &GoToTopicOutput{
		Status:   http.StatusFound,
		Location: target,
	}, nil
}

func (s *Server) handleGetSpotlight(ctx context.Context, _ *struct{}) (*SpotlightOutput, error) {
	sp, err := s.catalog.Spotlight(ctx)
	if err != nil {
		return nil, err
	}
	return &SpotlightOutput{
		Body: SpotlightResponse{
			MostPopular: toSpotlightEntry(sp.MostPopular),
			TopUploader: SpotlightEntryResult{
				Author: sp.TopUploader.Author,
				Count:  sp.TopUploader.Count,
			},
			MostRecent: toSpotlightEntry(sp.MostRecent),
		},
	}, nil
}

// === Converters ===

func toBlueprintResult(b *domain.Blueprint) BlueprintResult {
	return BlueprintResult{
		ID:        b.ID,
		Slug:      b.Slug,
		Title:     b.Title,
		Author:    b.Author,
		Excerpt:   b.Excerpt,
		Likes:     b.Likes,
		Views:     b.Views,
		Replies:   b.Replies,
		Uses:      b.Uses,
		Buckets:   b.Buckets,
		ImportURL: b.ImportURL,
		CreatedAt: formatTime(b.CreatedAt),
		UpdatedAt: formatTime(b.UpdatedAt),
	}
}

func toSpotlightEntry(e domain.SpotlightEntry) SpotlightEntryResult {
	return SpotlightEntryResult{
		ID:     e.ID,
		Title:  e.Title,
		Author: e.Author,
		Likes:  e.Likes,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
