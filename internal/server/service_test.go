package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telsona/plan-assist/internal/retrieval"
	"github.com/telsona/plan-assist/internal/storage"
)

// fakeEmbedder returns a fixed vector, or fails the test outright when it
// must never be reached.
type fakeEmbedder struct {
	t         *testing.T
	forbidden bool
	err       error
	callCount int
	lastQuery string
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.forbidden {
		f.t.Fatal("EmbedQuery called for a query that must be rejected first")
	}
	f.callCount++
	f.lastQuery = text
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, storage.VectorDimension), nil
}

type fakeMatcher struct {
	results []storage.SearchResult
	err     error
}

func (f *fakeMatcher) Match(ctx context.Context, embedding []float32, threshold float64, count int) ([]storage.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func newTestService(t *testing.T, embedder *fakeEmbedder, matcher *fakeMatcher) *Service {
	t.Helper()
	engine := retrieval.NewEngine(matcher, nil)
	return NewService(embedder, engine, nil, nil)
}

func TestRetrieve_RejectsEmptyQueryBeforeEmbedding(t *testing.T) {
	embedder := &fakeEmbedder{t: t, forbidden: true}
	svc := newTestService(t, embedder, &fakeMatcher{})

	for _, query := range []string{"", "   ", "\t\n"} {
		_, err := svc.Retrieve(context.Background(), query, 5)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}
}

func TestRetrieve_FormatsRankedResults(t *testing.T) {
	embedder := &fakeEmbedder{t: t}
	matcher := &fakeMatcher{results: []storage.SearchResult{
		{
			Content: "# UV Plan\n\nThe **UV** prepaid plan.",
			Metadata: storage.Metadata{
				Category: "prepaid",
				URL:      "https://example.com/prepaid/uv",
			},
			Similarity: 0.82,
		},
		{
			Content: "Other prepaid info.",
			Metadata: storage.Metadata{
				Category: "prepaid",
				URL:      "https://example.com/prepaid",
			},
			Similarity: 0.91,
		},
	}}
	svc := newTestService(t, embedder, matcher)

	resp, err := svc.Retrieve(context.Background(), "prepaid plans", 5)
	require.NoError(t, err)

	assert.Equal(t, "prepaid plans", resp.Query)
	assert.Equal(t, 1, embedder.callCount)
	assert.Equal(t, "prepaid plans", embedder.lastQuery)
	require.Len(t, resp.Results, 2)

	for i, r := range resp.Results {
		assert.Equal(t, i+1, r.Rank)
	}
	assert.GreaterOrEqual(t, resp.Results[0].Similarity, resp.Results[1].Similarity)

	// Both raw markdown and a plain-text rendering are exposed.
	uv := resp.Results[1]
	if resp.Results[0].URL == "https://example.com/prepaid/uv" {
		uv = resp.Results[0]
	}
	assert.Contains(t, uv.ContentMarkdown, "**UV**")
	assert.Contains(t, uv.ContentPlainText, "UV prepaid plan")
	assert.NotContains(t, uv.ContentPlainText, "**")
	assert.NotContains(t, uv.ContentPlainText, "# ")
}

func TestRetrieve_EmptyResultsIsValid(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{t: t}, &fakeMatcher{})

	resp, err := svc.Retrieve(context.Background(), "unrelated nonsense", 5)
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestRetrieve_EmbedFailurePropagates(t *testing.T) {
	embedErr := errors.New("rate limited")
	svc := newTestService(t, &fakeEmbedder{t: t, err: embedErr}, &fakeMatcher{})

	_, err := svc.Retrieve(context.Background(), "prepaid", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, embedErr)
}

func TestAnswer_RejectsEmptyQuery(t *testing.T) {
	embedder := &fakeEmbedder{t: t, forbidden: true}
	svc := newTestService(t, embedder, &fakeMatcher{})

	_, err := svc.Answer(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestAnswer_RequiresTransformer(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{t: t}, &fakeMatcher{})

	_, err := svc.Answer(context.Background(), "prepaid")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyQuery)
}
