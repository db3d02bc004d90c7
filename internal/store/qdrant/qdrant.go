// Package qdrant mirrors topic centroids and conversation document
// embeddings into a Qdrant collection, optional vector-search
// infrastructure alongside the JSONL topic registry that remains the
// source of truth. Grounded on the teacher's
// internal/persistence/databases/qdrant_vector.go connection/upsert/search
// pattern.
package qdrant

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Index is an optional vector index over topic centroids and conversation
// document embeddings. A nil *Index is safe to call on (every method
// no-ops), so callers can wire it unconditionally.
type Index struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// Open connects to Qdrant at dsn (host[:port], gRPC) and ensures
// collection exists with the given vector dimensionality. Pass an empty
// dsn to get a nil *Index (Qdrant mirroring disabled).
func Open(ctx context.Context, dsn, collection string, dimensions int) (*Index, error) {
	if dsn == "" {
		return nil, nil
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("qdrant requires dimensions > 0")
	}

	var host, portStr string
	if h, p, err := net.SplitHostPort(dsn); err == nil && !strings.Contains(dsn, "://") {
		host, portStr = h, p
	} else {
		parsed, err := url.Parse(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse qdrant dsn: %w", err)
		}
		host, portStr = parsed.Hostname(), parsed.Port()
		if host == "" {
			host = dsn
		}
	}
	port := 6334
	if portStr != "" {
		if n, err := strconv.Atoi(portStr); err == nil {
			port = n
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	idx := &Index{client: client, collection: collection, dimension: dimensions}
	if err := idx.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	return idx, nil
}

func (idx *Index) ensureCollection(ctx context.Context) error {
	exists, err := idx.client.CollectionExists(ctx, idx.collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	return idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: idx.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(idx.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

// UpsertTopicCentroid indexes one topic's centroid under a deterministic
// point id derived from its topic id.
func (idx *Index) UpsertTopicCentroid(ctx context.Context, topicID int, name string, centroid []float32) error {
	if idx == nil {
		return nil
	}
	return idx.upsert(ctx, fmt.Sprintf("topic-%d", topicID), centroid, map[string]any{"name": name, "kind": "topic"})
}

// UpsertConversationEmbedding indexes one conversation's document embedding.
func (idx *Index) UpsertConversationEmbedding(ctx context.Context, conversationID, title string, vector []float32) error {
	if idx == nil {
		return nil
	}
	return idx.upsert(ctx, "conv-"+conversationID, vector, map[string]any{"title": title, "kind": "conversation"})
}

func (idx *Index) upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	pointID := qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String())
	payload["_original_id"] = id
	vec := make([]float32, len(vector))
	copy(vec, vector)
	_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.collection,
		Points: []*qdrant.PointStruct{{
			Id:      pointID,
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	return err
}

// SimilarTopics returns the k nearest topic points to query, scored by
// cosine similarity.
func (idx *Index) SimilarTopics(ctx context.Context, query []float32, k int) ([]Match, error) {
	if idx == nil {
		return nil, nil
	}
	if k <= 0 {
		k = 10
	}
	vec := make([]float32, len(query))
	copy(vec, query)
	limit := uint64(k)
	result, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch("kind", "topic")}},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(result))
	for _, hit := range result {
		id := ""
		if hit.Payload != nil {
			if v, ok := hit.Payload["_original_id"]; ok {
				id = v.GetStringValue()
			}
		}
		matches = append(matches, Match{ID: id, Score: float64(hit.Score)})
	}
	return matches, nil
}

// Match is one nearest-neighbor hit.
type Match struct {
	ID    string
	Score float64
}

// Close releases the client connection. Safe to call on a nil *Index.
func (idx *Index) Close() error {
	if idx == nil {
		return nil
	}
	return idx.client.Close()
}
