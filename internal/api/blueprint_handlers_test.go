package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueprintstore/blueprintstore-server/internal/domain"
	"github.com/blueprintstore/blueprintstore-server/internal/errors"
	"github.com/blueprintstore/blueprintstore-server/internal/forum"
	"github.com/blueprintstore/blueprintstore-server/internal/service"
	"github.com/blueprintstore/blueprintstore-server/internal/session"
)

// fakeForum serves canned pages without the network.
type fakeForum struct {
	pages    map[int]*domain.PageResult
	filters  []string
	topics   map[int64]*forum.TopicDetail
	pageErr  error
	topicErr error
}

func (f *fakeForum) FetchPage(_ context.Context, q forum.PageQuery) (*domain.PageResult, error) {
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	if res, ok := f.pages[q.Page]; ok {
		return res, nil
	}
	return &domain.PageResult{}, nil
}

func (f *fakeForum) FetchFilters(_ context.Context) ([]string, error) {
	return f.filters, nil
}

func (f *fakeForum) FetchTopic(_ context.Context, topicID int64) (*forum.TopicDetail, error) {
	if f.topicErr != nil {
		return nil, f.topicErr
	}
	if d, ok := f.topics[topicID]; ok {
		return d, nil
	}
	return nil, errors.NotFoundf("topic %d not found", topicID)
}

func newTestAPI(t *testing.T, ff *fakeForum) humatest.TestAPI {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	sess := session.New(session.Options{Pager: ff, Logger: logger})
	t.Cleanup(sess.Close)

	catalog := service.NewCatalogService(ff, sess, nil, nil, "https://forum.example", logger)
	s := NewServer(catalog, logger)
	return humatest.Wrap(t, s.api)
}

func sampleForum() *fakeForum {
	return &fakeForum{
		pages: map[int]*domain.PageResult{
			0: {
				Items: []domain.Blueprint{
					{ID: 101, Title: "Motion Lights", Author: "alex", Likes: 40},
					{ID: 102, Title: "Door Alert", Author: "sam", Likes: 10},
				},
				HasMore: false,
			},
		},
		filters: []string{"lighting", "security-alarm"},
		topics: map[int64]*forum.TopicDetail{
			101: {
				ID:          101,
				Slug:        "motion-lights",
				Title:       "Motion Lights",
				Author:      "alex",
				Description: "# Motion Lights\n\nTurns lights on.",
				ImportURL:   "https://my.home-assistant.io/redirect/blueprint_import/?blueprint_url=x",
			},
		},
	}
}

func TestListBlueprints(t *testing.T) {
	api := newTestAPI(t, sampleForum())

	resp := api.Get("/api/blueprint_store/blueprints")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body ListBlueprintsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))

	require.Len(t, body.Blueprints, 2)
	// Default sort is likes descending.
	assert.Equal(t, int64(101), body.Blueprints[0].ID)
	assert.Equal(t, int64(102), body.Blueprints[1].ID)
	assert.False(t, body.HasMore)
	// Every item carries at least the catch-all bucket.
	for _, bp := range body.Blueprints {
		assert.NotEmpty(t, bp.Buckets)
	}
}

func TestListBlueprints_SearchRanksTitleMatchFirst(t *testing.T) {
	ff := sampleForum()
	ff.pages[0].Items[1].Excerpt = "uses a motion sensor"
	api := newTestAPI(t, ff)

	resp := api.Get("/api/blueprint_store/blueprints?q_title=motion")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body ListBlueprintsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Blueprints, 2)
	assert.Equal(t, int64(101), body.Blueprints[0].ID, "title match should outrank excerpt match")
}

func TestListBlueprints_NegativePageRejected(t *testing.T) {
	api := newTestAPI(t, sampleForum())

	resp := api.Get("/api/blueprint_store/blueprints?page=-1")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestListBlueprints_BackendFailure(t *testing.T) {
	ff := sampleForum()
	ff.pageErr = errors.Transientf("backend rate limited")
	api := newTestAPI(t, ff)

	resp := api.Get("/api/blueprint_store/blueprints")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "TRANSIENT", apiErr.Code)
}

func TestListFilters(t *testing.T) {
	api := newTestAPI(t, sampleForum())

	resp := api.Get("/api/blueprint_store/filters")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body ListFiltersResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Contains(t, body.Filters, "lighting")
	assert.Contains(t, body.Filters, "other", "catch-all bucket is always offered")
}

func TestGetTopic(t *testing.T) {
	api := newTestAPI(t, sampleForum())

	resp := api.Get("/api/blueprint_store/topic/101")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body TopicResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, int64(101), body.ID)
	assert.Contains(t, body.Description, "Motion Lights")
	assert.NotEmpty(t, body.ImportURL)
}

func TestGetTopic_NotFound(t *testing.T) {
	api := newTestAPI(t, sampleForum())

	resp := api.Get("/api/blueprint_store/topic/999")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGoToTopic_Redirect(t *testing.T) {
	api := newTestAPI(t, sampleForum())

	resp := api.Get("/api/blueprint_store/go/101?slug=motion-lights")
	require.Equal(t, http.StatusFound, resp.Code)
	assert.Equal(t, "https://forum.example/t/motion-lights/101", resp.Header().Get("Location"))
}

func TestGoToTopic_NoSlug(t *testing.T) {
	api := newTestAPI(t, sampleForum())

	resp := api.Get("/api/blueprint_store/go/101")
	require.Equal(t, http.StatusFound, resp.Code)
	assert.Equal(t, "https://forum.example/t/101", resp.Header().Get("Location"))
}

func TestGetSpotlight(t *testing.T) {
	api := newTestAPI(t, sampleForum())

	resp := api.Get("/api/blueprint_store/spotlight")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body SpotlightResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, int64(101), body.MostPopular.ID)
}

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t, sampleForum())

	resp := api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
}
