// Package ports holds the narrow interfaces the core pipeline is written
// against. Concrete adapters (internal/llmprovider, internal/embedding,
// internal/clustering) implement these; the pipeline never imports an
// adapter package directly — selection happens once, at composition time,
// in cmd/ckexporter.
package ports

import "context"

// LLM is a chat-completion port. Implementations must acquire the
// process-wide in-flight semaphore before sending and release it on every
// return path, including errors. Chat must be safe to retry: the core
// treats it as idempotent for the purposes of its own retry loop.
type LLM interface {
	Chat(ctx context.Context, model, system, user string, temperature float64, jsonObject bool, maxTokens int) (string, error)
}

// Embedder converts text to vectors.
type Embedder interface {
	// Embed returns one L2-unit row per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedPooled chunks each text, embeds and caches at chunk granularity,
	// then pools chunk vectors into one row per input text.
	EmbedPooled(ctx context.Context, texts []string, chunkTokens, overlapTokens int, pooling string, cacheDir string) ([][]float32, error)
}

// ChunkAtoms is the shape both Pass-1 candidate extraction and Pass-2
// refinement exchange: legacy-flavored lists of facts, decisions, and open
// questions, converted to Universal Atom v2 only at the extractor boundary.
type ChunkAtoms struct {
	Facts         []RawAtom `json:"facts"`
	Decisions     []RawAtom `json:"decisions"`
	OpenQuestions []RawAtom `json:"open_questions"`
}

// RawAtom is the legacy (pre-universal) shape an LLM extraction reply uses.
type RawAtom struct {
	Type      string   `json:"type,omitempty"`
	Topic     string   `json:"topic,omitempty"`
	Statement string   `json:"statement,omitempty"`
	Question  string   `json:"question,omitempty"`
	Evidence  []string `json:"evidence,omitempty"`
}

// AtomExtractor is the two-pass LLM extraction port.
type AtomExtractor interface {
	ExtractFromChunk(ctx context.Context, text string) (ChunkAtoms, error)
	RefineAtoms(ctx context.Context, candidates ChunkAtoms, conversationID, title string) (ChunkAtoms, error)
}

// TopicLabel is the {name, description} pair a labeler produces for one
// cluster.
type TopicLabel struct {
	Name        string
	Description string
}

// TopicLabeler names and describes a cluster from its representative
// documents and keywords.
type TopicLabeler interface {
	Label(ctx context.Context, topicID int, representativeDocs []string, keywords []string) (TopicLabel, error)
}

// ClusterResult is the output of a Clusterer run: one cluster id per input
// document, in the same order as the input, plus up to ten keywords per
// non-outlier cluster. Outliers carry cluster id -1.
type ClusterResult struct {
	Labels   []int
	Keywords map[int][]string
}

// Clusterer groups document embeddings into a target number of clusters.
// This port exists because no BERTopic/HDBSCAN/UMAP equivalent is available
// in the Go ecosystem the rest of this stack draws from; see DESIGN.md.
type Clusterer interface {
	Cluster(ctx context.Context, embeddings [][]float32, targetClusters int) (ClusterResult, error)
}
