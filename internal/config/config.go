// Package config loads process configuration from the environment, with an
// optional .env overlay and a static YAML file for structured blocks such as
// default weights and cron schedules.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level process configuration.
type Config struct {
	ObjectStore  ObjectStoreConfig  `yaml:"object_store"`
	KV           KVConfig           `yaml:"kv"`
	VectorIndex  VectorIndexConfig  `yaml:"vector_index"`
	Queue        QueueConfig        `yaml:"queue"`
	Cache        CacheConfig        `yaml:"cache"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	LLM          LLMConfig          `yaml:"llm"`
	OCR          OCRConfig          `yaml:"ocr"`
	OIDC         OIDCConfig         `yaml:"oidc"`
	Schedules    []ScheduleConfig   `yaml:"schedules"`
	CSVIngest    CSVIngestConfig    `yaml:"csv_ingest"`
	LogLevel     string             `yaml:"log_level"`
}

type ObjectStoreConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

type KVConfig struct {
	DSN             string        `yaml:"-"`
	MaxConns        int32         `yaml:"max_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

type VectorIndexConfig struct {
	Addr           string `yaml:"addr"`
	APIKey         string `yaml:"-"`
	Collection     string `yaml:"collection"`
	Dimension      int    `yaml:"dimension"`
	UseTLS         bool   `yaml:"use_tls"`
}

type QueueConfig struct {
	Brokers                 []string `yaml:"brokers"`
	Topic                   string   `yaml:"topic"`
	GroupID                 string   `yaml:"group_id"`
	DocumentProcessingTopic string   `yaml:"document_processing_topic"`
}

type CacheConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"-"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type EmbeddingConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	APIKey     string        `yaml:"-"`
	Timeout    time.Duration `yaml:"timeout"`
	Dimensions int           `yaml:"dimensions"`
}

type LLMConfig struct {
	AnthropicAPIKey string        `yaml:"-"`
	OpenAIAPIKey    string        `yaml:"-"`
	Model           string        `yaml:"model"`
	Timeout         time.Duration `yaml:"timeout"`
}

type OCRConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"-"`
	Timeout  time.Duration `yaml:"timeout"`
}

type OIDCConfig struct {
	IssuerURL string `yaml:"issuer_url"`
	Audience  string `yaml:"audience"`
}

type ScheduleConfig struct {
	Name string `yaml:"name"`
	Cron string `yaml:"cron"`
	Type string `yaml:"type"`
}

type CSVIngestConfig struct {
	URL         string        `yaml:"url"`
	MaxBytes    int64         `yaml:"max_bytes"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryWait   time.Duration `yaml:"retry_wait"`
	Timeout     time.Duration `yaml:"timeout"`
	QueueTopic  string        `yaml:"queue_topic"`
}

// Load reads a .env overlay (if present), environment variables, and an
// optional YAML file, in that order of increasing specificity for
// structured blocks (YAML only supplies schedules/non-secret defaults;
// secrets always come from the environment).
func Load(yamlPath string) (*Config, error) {
	_ = godotenv.Overload()

	cfg := &Config{
		ObjectStore: ObjectStoreConfig{
			Bucket:       getenv("OBJECT_STORE_BUCKET", "govbiz-documents"),
			Region:       getenv("OBJECT_STORE_REGION", "us-east-1"),
			Endpoint:     getenv("OBJECT_STORE_ENDPOINT", ""),
			AccessKeyID:  getenv("OBJECT_STORE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getenv("OBJECT_STORE_SECRET_ACCESS_KEY", ""),
			UsePathStyle: getenvBool("OBJECT_STORE_USE_PATH_STYLE", false),
		},
		KV: KVConfig{
			DSN:             getenv("KV_DSN", "postgres://localhost:5432/govbiz?sslmode=disable"),
			MaxConns:        int32(getenvInt("KV_MAX_CONNS", 8)),
			MaxConnLifetime: getenvDuration("KV_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: getenvDuration("KV_MAX_CONN_IDLE_TIME", 5*time.Minute),
		},
		VectorIndex: VectorIndexConfig{
			Addr:       getenv("VECTOR_INDEX_ADDR", "localhost:6334"),
			APIKey:     getenv("VECTOR_INDEX_API_KEY", ""),
			Collection: getenv("VECTOR_INDEX_COLLECTION", "govbiz_embeddings"),
			Dimension:  getenvInt("VECTOR_INDEX_DIMENSION", 1024),
			UseTLS:     getenvBool("VECTOR_INDEX_USE_TLS", false),
		},
		Queue: QueueConfig{
			Brokers:                 strings.Split(getenv("QUEUE_BROKERS", "localhost:9092"), ","),
			Topic:                   getenv("QUEUE_TOPIC", "opportunity-batches"),
			GroupID:                 getenv("QUEUE_GROUP_ID", "govbiz-core"),
			DocumentProcessingTopic: getenv("QUEUE_DOCUMENT_PROCESSING_TOPIC", "document-processing"),
		},
		Cache: CacheConfig{
			Addr:     getenv("CACHE_ADDR", "localhost:6379"),
			Password: getenv("CACHE_PASSWORD", ""),
			DB:       getenvInt("CACHE_DB", 0),
			TTL:      getenvDuration("CACHE_TTL", 24*time.Hour),
		},
		Embedding: EmbeddingConfig{
			Endpoint:   getenv("EMBEDDING_ENDPOINT", "http://localhost:8081/embed"),
			APIKey:     getenv("EMBEDDING_API_KEY", ""),
			Timeout:    getenvDuration("EMBEDDING_TIMEOUT", 30*time.Second),
			Dimensions: getenvInt("EMBEDDING_DIMENSIONS", 1024),
		},
		LLM: LLMConfig{
			AnthropicAPIKey: getenv("ANTHROPIC_API_KEY", ""),
			OpenAIAPIKey:    getenv("OPENAI_API_KEY", ""),
			Model:           getenv("LLM_MODEL", "claude-3-5-haiku-latest"),
			Timeout:         getenvDuration("LLM_TIMEOUT", 60*time.Second),
		},
		OCR: OCRConfig{
			Endpoint: getenv("OCR_ENDPOINT", "http://localhost:8082/ocr"),
			APIKey:   getenv("OCR_API_KEY", ""),
			Timeout:  getenvDuration("OCR_TIMEOUT", 45*time.Second),
		},
		OIDC: OIDCConfig{
			IssuerURL: getenv("OIDC_ISSUER_URL", ""),
			Audience:  getenv("OIDC_AUDIENCE", ""),
		},
		CSVIngest: CSVIngestConfig{
			URL:        getenv("CSV_INGEST_URL", "https://s3.amazonaws.com/falextracts/Contract%20Opportunities/datagov/ContractOpportunitiesFullCSV.csv"),
			MaxBytes:   int64(getenvInt("CSV_INGEST_MAX_BYTES", 1<<30)),
			MaxRetries: getenvInt("CSV_INGEST_MAX_RETRIES", 5),
			RetryWait:  getenvDuration("CSV_INGEST_RETRY_WAIT", 2*time.Second),
			Timeout:    getenvDuration("CSV_INGEST_TIMEOUT", 10*time.Minute),
			QueueTopic: getenv("CSV_INGEST_QUEUE_TOPIC", "opportunity-rows"),
		},
		LogLevel: getenv("LOG_LEVEL", "info"),
	}

	if yamlPath != "" {
		if err := mergeYAML(cfg, yamlPath); err != nil {
			return nil, fmt.Errorf("config: load yaml %s: %w", yamlPath, err)
		}
	}

	return cfg, nil
}

func mergeYAML(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(b, cfg)
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
