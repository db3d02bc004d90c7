// Package config loads process-wide configuration for one pipeline
// invocation: provider selection, pool bounds, thresholds, and storage
// paths. It mirrors the teacher's env-driven loader (godotenv.Overload +
// typed env parsing helpers) rather than a flag-parsing framework, since
// the CLI surface itself is explicitly out of scope.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is every option spec §6.3 names, plus the ambient/domain-stack
// connection settings the expansion adds.
type Config struct {
	// Concurrency (spec §5).
	MaxConversations    int `yaml:"max_conversations"`
	ChunkMaxConcurrency int `yaml:"chunk_max_concurrency"`
	LLMMaxInflight      int `yaml:"llm_max_inflight"`
	TopicMaxConcurrency int `yaml:"topic_max_concurrency"`
	TargetTopics        int `yaml:"target_topics"`

	// Models (spec §6.3).
	FastModel      string `yaml:"fast_model"`
	BigModel       string `yaml:"big_model"`
	EmbeddingModel string `yaml:"embedding_model"`

	// Pipeline behavior (spec §6.3).
	SkipExisting        bool `yaml:"skip_existing"`
	Limit                int `yaml:"limit"`
	PrimaryThreshold     float64 `yaml:"primary_threshold"`
	SecondaryThreshold   float64 `yaml:"secondary_threshold"`
	MaxEvidencePerItem   int  `yaml:"max_evidence_per_item"`
	IncludeDocs          bool `yaml:"include_docs"`

	// Chunking (spec §4.3).
	ChunkMaxTokens    int `yaml:"chunk_max_tokens"`
	ChunkOverlapTokens int `yaml:"chunk_overlap_tokens"`

	// Paths.
	EvidenceRoot string `yaml:"evidence_root"`
	AtomsRoot    string `yaml:"atoms_root"`
	OutDir       string `yaml:"out_dir"`
	CacheDir     string `yaml:"cache_dir"`

	// Provider selection (LLM/Embedder/TopicLabeler share one factory switch
	// each; see internal/llmprovider/factory.go).
	LLMProvider      string `yaml:"llm_provider"`
	EmbedderProvider string `yaml:"embedder_provider"`
	LabelerProvider  string `yaml:"labeler_provider"`

	OpenAI    OpenAIConfig    `yaml:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini"`

	// Logging/tracing (ambient stack).
	LogPath     string `yaml:"log_path"`
	LogLevel    string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Optional durable backends; zero-value means disabled.
	Postgres PostgresConfig `yaml:"postgres"`
	Qdrant   QdrantConfig   `yaml:"qdrant"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	S3       S3Config       `yaml:"s3"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type QdrantConfig struct {
	DSN        string `yaml:"dsn"`
	Collection string `yaml:"collection"`
	Dimensions int    `yaml:"dimensions"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type ClickHouseConfig struct {
	DSN string `yaml:"dsn"`
}

type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// Defaults returns a Config populated with spec §5/§6.3's stated defaults.
func Defaults() Config {
	return Config{
		MaxConversations:    8,
		ChunkMaxConcurrency: 4,
		LLMMaxInflight:      0, // 0 means 4 * max_conversations, resolved by Load
		TopicMaxConcurrency: 8,
		TargetTopics:        0, // 0 means auto (sqrt heuristic over conversation count)
		FastModel:           "gpt-4o-mini",
		BigModel:            "gpt-4o",
		EmbeddingModel:      "text-embedding-3-small",
		PrimaryThreshold:    0.60,
		SecondaryThreshold:  0.55,
		ChunkMaxTokens:      1800,
		ChunkOverlapTokens:  200,
		EvidenceRoot:        "evidence",
		AtomsRoot:           "atoms",
		OutDir:              "out",
		CacheDir:            "cache/embeddings",
		LLMProvider:         "openai",
		EmbedderProvider:    "openai",
		LabelerProvider:     "gemini",
		LogLevel:            "info",
		IncludeDocs:         true,
	}
}

// Load reads .env (if present), applies a YAML override file (if
// CKEXPORTER_CONFIG points at one), then layers individual environment
// variable overrides on top — mirroring the teacher's
// Overload-then-override-by-env Load() sequence.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("CKEXPORTER_CONFIG")); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	applyIntEnv("CK_MAX_CONVERSATIONS", &cfg.MaxConversations)
	applyIntEnv("CK_CHUNK_MAX_CONCURRENCY", &cfg.ChunkMaxConcurrency)
	applyIntEnv("CK_LLM_MAX_INFLIGHT", &cfg.LLMMaxInflight)
	applyIntEnv("CK_TOPIC_MAX_CONCURRENCY", &cfg.TopicMaxConcurrency)
	applyIntEnv("CK_TARGET_TOPICS", &cfg.TargetTopics)
	applyStringEnv("CK_FAST_MODEL", &cfg.FastModel)
	applyStringEnv("CK_BIG_MODEL", &cfg.BigModel)
	applyStringEnv("CK_EMBEDDING_MODEL", &cfg.EmbeddingModel)
	applyBoolEnv("CK_SKIP_EXISTING", &cfg.SkipExisting)
	applyIntEnv("CK_LIMIT", &cfg.Limit)
	applyFloatEnv("CK_PRIMARY_THRESHOLD", &cfg.PrimaryThreshold)
	applyFloatEnv("CK_SECONDARY_THRESHOLD", &cfg.SecondaryThreshold)
	applyIntEnv("CK_MAX_EVIDENCE_PER_ITEM", &cfg.MaxEvidencePerItem)
	applyBoolEnv("CK_INCLUDE_DOCS", &cfg.IncludeDocs)
	applyIntEnv("CK_CHUNK_MAX_TOKENS", &cfg.ChunkMaxTokens)
	applyIntEnv("CK_CHUNK_OVERLAP_TOKENS", &cfg.ChunkOverlapTokens)
	applyStringEnv("CK_EVIDENCE_ROOT", &cfg.EvidenceRoot)
	applyStringEnv("CK_ATOMS_ROOT", &cfg.AtomsRoot)
	applyStringEnv("CK_OUT_DIR", &cfg.OutDir)
	applyStringEnv("CK_CACHE_DIR", &cfg.CacheDir)
	applyStringEnv("CK_LLM_PROVIDER", &cfg.LLMProvider)
	applyStringEnv("CK_EMBEDDER_PROVIDER", &cfg.EmbedderProvider)
	applyStringEnv("CK_LABELER_PROVIDER", &cfg.LabelerProvider)
	applyStringEnv("OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	applyStringEnv("OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)
	applyStringEnv("ANTHROPIC_API_KEY", &cfg.Anthropic.APIKey)
	applyStringEnv("GOOGLE_API_KEY", &cfg.Gemini.APIKey)
	applyStringEnv("CK_LOG_PATH", &cfg.LogPath)
	applyStringEnv("CK_LOG_LEVEL", &cfg.LogLevel)
	applyStringEnv("CK_OTLP_ENDPOINT", &cfg.OTLPEndpoint)
	applyStringEnv("CK_POSTGRES_DSN", &cfg.Postgres.DSN)
	applyStringEnv("CK_QDRANT_DSN", &cfg.Qdrant.DSN)
	applyStringEnv("CK_QDRANT_COLLECTION", &cfg.Qdrant.Collection)
	applyIntEnv("CK_QDRANT_DIMENSIONS", &cfg.Qdrant.Dimensions)
	applyStringEnv("CK_REDIS_ADDR", &cfg.Redis.Addr)
	applyStringEnv("CK_KAFKA_TOPIC", &cfg.Kafka.Topic)
	if v := strings.TrimSpace(os.Getenv("CK_KAFKA_BROKERS")); v != "" {
		cfg.Kafka.Brokers = parseCommaSeparatedList(v)
	}
	applyStringEnv("CK_CLICKHOUSE_DSN", &cfg.ClickHouse.DSN)
	applyStringEnv("CK_S3_BUCKET", &cfg.S3.Bucket)
	applyStringEnv("CK_S3_PREFIX", &cfg.S3.Prefix)
	applyStringEnv("CK_S3_REGION", &cfg.S3.Region)
	applyStringEnv("CK_S3_ENDPOINT", &cfg.S3.Endpoint)
	applyBoolEnv("CK_S3_USE_PATH_STYLE", &cfg.S3.UsePathStyle)

	if cfg.LLMMaxInflight == 0 {
		cfg.LLMMaxInflight = 4 * cfg.MaxConversations
	}

	return cfg, nil
}

func applyStringEnv(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyIntEnv(key string, dst *int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func applyFloatEnv(key string, dst *float64) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
	}
}

func applyBoolEnv(key string, dst *bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	*dst = strings.EqualFold(v, "true") || v == "1"
}

func parseCommaSeparatedList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
