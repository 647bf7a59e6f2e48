package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	S3          S3Config          `mapstructure:"s3"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Generation  GenerationConfig  `mapstructure:"generation"`
	VectorIndex VectorIndexConfig `mapstructure:"vector_index"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// GenerationConfig configures the generative text service.
type GenerationConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	Temperature    float32       `mapstructure:"temperature"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"` // per generation call
}

type VectorIndexConfig struct {
	Path string `mapstructure:"path"`
}

// PipelineConfig tunes program generation runs.
type PipelineConfig struct {
	WorkflowTimeout              time.Duration `mapstructure:"workflow_timeout"`
	Workers                      int           `mapstructure:"workers"`
	QueueSize                    int           `mapstructure:"queue_size"`
	NormalizeConfidenceThreshold float64       `mapstructure:"normalize_confidence_threshold"`
	PruneTolerance               float64       `mapstructure:"prune_tolerance"`
	ContextExcerptLimit          int           `mapstructure:"context_excerpt_limit"` // runes
}

type SchedulerConfig struct {
	Spec string `mapstructure:"spec"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS, generation.api_key -> GENERATION_API_KEY
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		// no file: defaults and env vars only
		err = nil
	} else if err != nil {
		return
	}

	err = v.Unmarshal(&config)
	if err != nil {
		return
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "programgen")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.bucket_name", "programs")
	v.SetDefault("jwt.expiration", "1h")

	// AutomaticEnv only resolves keys viper already knows about, so secrets get an empty default.
	v.SetDefault("jwt.secret", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("generation.api_key", "")

	v.SetDefault("generation.model", "gemini-2.5-flash")
	v.SetDefault("generation.embedding_model", "gemini-embedding-001")
	v.SetDefault("generation.temperature", 0.4)
	v.SetDefault("generation.call_timeout", "3m")

	v.SetDefault("vector_index.path", "vectors.db")

	v.SetDefault("pipeline.workflow_timeout", "30m")
	v.SetDefault("pipeline.workers", 2)
	v.SetDefault("pipeline.queue_size", 16)
	v.SetDefault("pipeline.normalize_confidence_threshold", 0.9)
	v.SetDefault("pipeline.prune_tolerance", 0.2)
	v.SetDefault("pipeline.context_excerpt_limit", 1500)

	v.SetDefault("scheduler.spec", "@every 1h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}
