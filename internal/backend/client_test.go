// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/datachat-tui/internal/model"
)

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestChat_SendsMultipartForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathChat, r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "unemployment by state", r.FormValue("message"))

		var history []model.WireTurn
		assert.NoError(t, json.Unmarshal([]byte(r.FormValue("chat_history")), &history))
		if assert.Len(t, history, 1) {
			assert.Equal(t, model.RoleUser, history[0].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"message": "Here is what I found",
			"retrieved_information": "{\"datasets\":[]}",
			"suggested_query": "{\"dataset\":\"us_lbs/unemployment_rate\"}"
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	reply, err := client.Chat(context.Background(), "unemployment by state", []model.WireTurn{{Role: model.RoleUser, Content: "hi"}})
	require.NoError(t, err)

	assert.Equal(t, "Here is what I found", reply.Message)
	assert.Equal(t, `{"datasets":[]}`, reply.RetrievedInformation.String())
	assert.Equal(t, `{"dataset":"us_lbs/unemployment_rate"}`, reply.SuggestedQuery.String())
}

func TestChat_AuxiliaryFieldsAsObjects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"ok","retrieved_information":{"datasets":[]},"suggested_query":null}`))
	}))
	defer server.Close()

	reply, err := NewClient(server.URL).Chat(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"datasets":[]}`, reply.RetrievedInformation.String())
	assert.Empty(t, reply.SuggestedQuery)
}

func TestChat_ErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"service unavailable", http.StatusServiceUnavailable, `{"error":"Chat service is not available."}`, "Chat service is not available."},
		{"fastapi detail", http.StatusInternalServerError, `{"detail":"An internal server error occurred"}`, "An internal server error occurred"},
		{"validation detail list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, `[{"msg":"field required"}]`},
		{"plain text", http.StatusBadGateway, `upstream down`, "upstream down"},
		{"empty body", http.StatusNotFound, ``, "Not Found"},
		{"html body", http.StatusBadGateway, `<html><body>bad gateway</body></html>`, "Bad Gateway"},
		{"created is not ok", http.StatusCreated, `accepted`, "accepted"},
		{"no content is not ok", http.StatusNoContent, ``, "No Content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL).Chat(context.Background(), "hello", nil)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, PathChat, apiErr.Path)
			assert.True(t, IsStatus(err, tt.status))
		})
	}
}

func TestChat_ErrorFieldWithoutMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"model overloaded"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Chat(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

// =============================================================================
// SEARCH / QUERY TESTS
// =============================================================================

func TestSearch_EscapesQuery(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		w.Write([]byte(`[{"organization":"us_lbs","dataset_slug":"unemployment_rate"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")

	raw, err := client.SearchDatasets(context.Background(), "rate & jobs/state")
	require.NoError(t, err)
	assert.Equal(t, PathSearchDataset, gotPath)
	assert.Equal(t, "rate & jobs/state", gotQuery)
	assert.JSONEq(t, `[{"organization":"us_lbs","dataset_slug":"unemployment_rate"}]`, string(raw))

	_, err = client.SearchDatacards(context.Background(), "trend")
	require.NoError(t, err)
	assert.Equal(t, PathSearchDatacard, gotPath)
	assert.Equal(t, "trend", gotQuery)
}

func TestSearch_EmptyQuery(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1").SearchDatasets(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestQueryDataset_PostsJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathQueryDataset, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"query":"rate by year","dataset":"us_lbs/unemployment_rate"}`, string(body))
		w.Write([]byte(`[{"year":2020,"rate":8.1}]`))
	}))
	defer server.Close()

	raw, err := NewClient(server.URL).QueryDataset(context.Background(), "rate by year", "us_lbs/unemployment_rate")
	require.NoError(t, err)
	assert.Equal(t, `[{"year":2020,"rate":8.1}]`, string(raw))
}

func TestQueryDataset_StructuredQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"query":{"measures":["rate"],"limit":3},"dataset":"a/b"}`, string(body))
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).QueryDataset(context.Background(), json.RawMessage(`{"measures":["rate"],"limit":3}`), "a/b")
	require.NoError(t, err)
}

func TestQueryDataset_InvalidDatasetMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).QueryDataset(context.Background(), "select *", "unemployment_rate")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidDataset)
	assert.Equal(t, int32(0), calls.Load())
}

func TestQueryDataset_DetailError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Organization not provided in the dataset name"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).QueryDataset(context.Background(), "q", "a/b")
	require.Error(t, err)
	assert.Equal(t, "Organization not provided in the dataset name (HTTP 400)", err.Error())
}

func TestDatacard_EscapesPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/datacard/us_lbs/unemployment trend", r.URL.Path)
		w.Write([]byte(`{"title":"Trend"}`))
	}))
	defer server.Close()

	raw, err := NewClient(server.URL).Datacard(context.Background(), model.DatasetRef{Organization: "us_lbs", Slug: "unemployment trend"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Trend"}`, string(raw))
}

// =============================================================================
// TRANSPORT TESTS
// =============================================================================

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL).WithTimeout(50 * time.Millisecond)
	start := time.Now()
	_, err := client.SearchDatasets(context.Background(), "slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_MaxResponseSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"` + strings.Repeat("x", 100) + `"`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).WithMaxResponseSize(16).SearchDatasets(context.Background(), "big")
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestClient_RateLimitRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL).WithRateLimit(0.001, 1)
	_, err := client.SearchDatasets(context.Background(), "first")
	require.NoError(t, err, "burst allows the first request")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.SearchDatasets(ctx, "second")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).SearchDatacards(context.Background(), "x")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "request to /api/search_datacard failed")
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("")
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.Timeout())
	c.WithTimeout(-1)
	assert.Equal(t, DefaultTimeout, c.Timeout())
}
