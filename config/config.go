package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	General  GeneralConfig  `mapstructure:"general"`
	Provider ProviderConfig `mapstructure:"provider"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Listen         string        `mapstructure:"listen"`
	Debug          bool          `mapstructure:"debug"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ProviderConfig contains LLM provider settings
type ProviderConfig struct {
	Type            string        `mapstructure:"type"` // openai
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	CompletionModel string        `mapstructure:"completion_model"`
	EmbeddingModel  string        `mapstructure:"embedding_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

func (p ProviderConfig) Validate() error {
	if strings.TrimSpace(p.APIKey) == "" {
		return fmt.Errorf("provider.api_key required (or OPENAI_API_KEY)")
	}
	return nil
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host       string        `mapstructure:"host"`
	Port       string        `mapstructure:"port"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// QdrantConfig contains vector index settings
type QdrantConfig struct {
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	Collection string        `mapstructure:"collection"`
	Dimension  int           `mapstructure:"dimension"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func (q QdrantConfig) Validate() error {
	if strings.TrimSpace(q.URL) == "" {
		return fmt.Errorf("qdrant.url required")
	}
	if strings.TrimSpace(q.Collection) == "" {
		return fmt.Errorf("qdrant.collection required")
	}
	if q.Dimension <= 0 {
		return fmt.Errorf("qdrant.dimension must be > 0")
	}
	return nil
}

// ChatConfig bounds the query pipeline
type ChatConfig struct {
	TopK         int `mapstructure:"top_k"`         // passages per query
	HistoryTurns int `mapstructure:"history_turns"` // most recent turns kept in the prompt
}

// IngestConfig contains corpus ingestion settings
type IngestConfig struct {
	NewsAPI     NewsAPIConfig `mapstructure:"newsapi"`
	URLs        []string      `mapstructure:"urls"` // direct article URLs, extracted via readability
	RefreshCron string        `mapstructure:"refresh_cron"`
	OnStartup   bool          `mapstructure:"on_startup"`
}

// NewsAPIConfig contains NewsAPI settings
type NewsAPIConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Endpoint   string `mapstructure:"endpoint"`
	Query      string `mapstructure:"query"`
	MaxResults int    `mapstructure:"max_results"`
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("general.listen", ":10002")
	viper.SetDefault("general.default_timeout", 30*time.Second)
	viper.SetDefault("provider.type", "openai")
	viper.SetDefault("provider.completion_model", "gpt-4o-mini")
	viper.SetDefault("provider.embedding_model", "text-embedding-3-large")
	viper.SetDefault("provider.temperature", 0.2)
	viper.SetDefault("provider.max_tokens", 1024)
	viper.SetDefault("provider.timeout", 30*time.Second)
	viper.SetDefault("storage.redis.timeout", 5*time.Second)
	viper.SetDefault("storage.redis.session_ttl", time.Hour)
	viper.SetDefault("qdrant.collection", "news_articles")
	viper.SetDefault("qdrant.dimension", 1024)
	viper.SetDefault("qdrant.timeout", 15*time.Second)
	viper.SetDefault("chat.top_k", 5)
	viper.SetDefault("chat.history_turns", 6)
	viper.SetDefault("ingest.newsapi.endpoint", "https://newsapi.org/v2/top-headlines")
	viper.SetDefault("ingest.newsapi.max_results", 50)
	viper.SetDefault("ingest.on_startup", true)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("NEWSRAG")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (NEWSRAG_*)

	if err := viper.ReadInConfig(); err != nil {
		// config file is optional when everything comes from env
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if config.Provider.APIKey == "" {
		config.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := config.Storage.Redis.Validate(); err != nil {
		panic(err)
	}
	if err := config.Qdrant.Validate(); err != nil {
		panic(err)
	}
	return &config
}
