package storage

// Chunk types recognized by the reranker. "overview" chunks get a small
// preference for general queries, "faq" chunks are down-ranked unless the
// query is phrased as a question.
const (
	ChunkTypeOverview = "overview"
	ChunkTypeFAQ      = "faq"
	ChunkTypeSection  = "section"
)

// Metadata carries the indexing metadata for a plan chunk.
type Metadata struct {
	Category      string   // prepaid, postpaid, fibre, roaming, devices, or ""
	URL           string   // Canonical page link: "https://.../prepaid/uv"
	SectionHeader string   // Section heading text, may be empty
	ChunkType     string   // "overview", "faq", or "section"
	SectionIDs    []string // Anchor identifiers on the target page
}

// Document is a unit of indexed plan content. Documents are produced by the
// offline ingest pipeline and are read-only at query time.
type Document struct {
	ID        string // UUID
	Content   string // Markdown chunk body
	Metadata  Metadata
	Embedding []float32 // VectorDimension-length vector
}

// SearchResult is a single nearest-neighbor hit from the store.
type SearchResult struct {
	Content    string
	Metadata   Metadata
	Similarity float64 // Cosine similarity as returned by the store
}

// CollectionName is the single Qdrant collection for all plan chunks.
const CollectionName = "plan_chunks"

// VectorDimension is the embedding size, fixed by the embedding model.
const VectorDimension = 768
