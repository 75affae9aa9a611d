package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telsona/plan-assist/internal/storage"
)

func doRetrieval(t *testing.T, svc *Service, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/retrieval", strings.NewReader(body))
	rec := httptest.NewRecorder()
	NewRetrievalHandler(svc, nil)(rec, req)
	return rec
}

func TestRetrievalHandler_EmptyQueryRejectedBeforeEmbedding(t *testing.T) {
	embedder := &fakeEmbedder{t: t, forbidden: true}
	svc := newTestService(t, embedder, &fakeMatcher{})

	for _, body := range []string{`{}`, `{"query": ""}`, `{"query": "   "}`} {
		rec := doRetrieval(t, svc, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)

		var errResp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
		assert.Equal(t, "Query is required and must be a string", errResp.Error)
	}
}

func TestRetrievalHandler_MalformedBody(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{t: t, forbidden: true}, &fakeMatcher{})

	rec := doRetrieval(t, svc, `{"query": 42}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRetrievalHandler_MethodNotAllowed(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{t: t, forbidden: true}, &fakeMatcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/chat/retrieval", nil)
	rec := httptest.NewRecorder()
	NewRetrievalHandler(svc, nil)(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRetrievalHandler_Success(t *testing.T) {
	matcher := &fakeMatcher{results: []storage.SearchResult{
		{
			Content:    "Prepaid details.",
			Metadata:   storage.Metadata{Category: "prepaid", URL: "https://example.com/prepaid"},
			Similarity: 0.77,
		},
	}}
	svc := newTestService(t, &fakeEmbedder{t: t}, matcher)

	rec := doRetrieval(t, svc, `{"query": "prepaid plans", "k": 3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp RetrievalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "prepaid plans", resp.Query)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 1, resp.Results[0].Rank)
	assert.Equal(t, "https://example.com/prepaid", resp.Results[0].URL)
}

func TestRetrievalHandler_StoreFailureIs500(t *testing.T) {
	matcher := &fakeMatcher{err: errors.New("qdrant unreachable")}
	svc := newTestService(t, &fakeEmbedder{t: t}, matcher)

	rec := doRetrieval(t, svc, `{"query": "prepaid"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var errResp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "Failed to retrieve documents", errResp.Error)
	assert.Contains(t, errResp.Details, "qdrant unreachable")
}

func TestAnswerHandler_EmptyQuery(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{t: t, forbidden: true}, &fakeMatcher{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat/answer", strings.NewReader(`{"query": ""}`))
	rec := httptest.NewRecorder()
	NewAnswerHandler(svc, nil)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
