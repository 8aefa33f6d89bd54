package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"sync"
	"time"

	"FirstContact/internal/lib/validate"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	SubmitMarker = "marker"
	SubmitDirect = "direct"

	StateRedis = "redis"
	StateMongo = "mongo"

	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
)

type Config struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local" validate:"oneof=local dev prod"`
	Telegram struct {
		ApiKey      string `yaml:"api_key" env:"BOT_TOKEN" env-default:""`
		AdminApiKey string `yaml:"admin_api_key" env:"ADMIN_BOT_TOKEN" env-default:""`
		AdminId     int64  `yaml:"admin_id" env:"ADMIN_ID" env-default:"0"`
		BotName     string `yaml:"bot_name" env-default:"FirstContactBot"`
		Enabled     bool   `yaml:"enabled" env:"TELEGRAM_ENABLED" env-default:"false"`
	} `yaml:"telegram"`
	OpenAI struct {
		ApiKey         string `yaml:"api_key" env:"OPENAI_API_KEY" env-default:""`
		Model          string `yaml:"model" env-default:"gpt-4o"`
		EmbeddingModel string `yaml:"embedding_model" env-default:"text-embedding-3-small"`
	} `yaml:"openai"`
	Anthropic struct {
		ApiKey string `yaml:"api_key" env:"ANTHROPIC_API_KEY" env-default:""`
		Model  string `yaml:"model" env-default:"claude-sonnet-4-20250514"`
	} `yaml:"anthropic"`
	Generator struct {
		Backend       string        `yaml:"backend" env:"GENERATOR_BACKEND" env-default:"openai" validate:"oneof=openai anthropic"`
		Timeout       time.Duration `yaml:"timeout" env-default:"8s"`
		RatePerSecond float64       `yaml:"rate_per_second" env-default:"5"`
	} `yaml:"generator"`
	Knowledge struct {
		Dir          string        `yaml:"dir" env:"KNOWLEDGE_DIR" env-default:"knowledge"`
		IndexPath    string        `yaml:"index_path" env:"KNOWLEDGE_INDEX" env-default:"data/knowledge_index.json"`
		ChunkSize    int           `yaml:"chunk_size" env-default:"500" validate:"gt=0"`
		ChunkOverlap int           `yaml:"chunk_overlap" env-default:"50" validate:"gte=0,ltfield=ChunkSize"`
		TopK         int           `yaml:"top_k" env-default:"3" validate:"gt=0"`
		Timeout      time.Duration `yaml:"timeout" env-default:"3s"`
	} `yaml:"knowledge"`
	Redis struct {
		URL string `yaml:"url" env:"REDIS_URL" env-default:"redis://localhost:6379"`
	} `yaml:"redis"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:"admin"`
		Password string `yaml:"password" env-default:"pass"`
		Database string `yaml:"database" env-default:"firstcontact"`
	} `yaml:"mongo"`
	Dialog struct {
		StateBackend string        `yaml:"state_backend" env:"STATE_BACKEND" env-default:"redis" validate:"oneof=redis mongo"`
		StateTTL     time.Duration `yaml:"state_ttl" env-default:"2h"`
		SubmitMode   string        `yaml:"submit_mode" env:"SUBMIT_MODE" env-default:"marker" validate:"oneof=marker direct"`
		Channel      string        `yaml:"channel" env-default:"telegram"`
	} `yaml:"dialog"`
	Crm struct {
		WebhookURL string        `yaml:"webhook_url" env:"ALBATO_WEBHOOK_URL" env-default:""`
		PipelineID int64         `yaml:"pipeline_id" env:"CRM_PIPELINE_ID" env-default:"0"`
		Timeout    time.Duration `yaml:"timeout" env-default:"10s"`
	} `yaml:"crm"`
	Listen struct {
		BindIP string `yaml:"bind_ip" env-default:"127.0.0.1"`
		Port   string `yaml:"port" env:"PORT" env-default:"9100"`
		ApiKey string `yaml:"key" env:"API_KEY" env-default:""`
	} `yaml:"listen"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		if envErr := godotenv.Load(); envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
			log.Printf("loading .env: %v", envErr)
		}
		instance, err = Load(path)
		if err != nil {
			log.Fatal(err)
		}
	})
	return instance
}

// Load reads the YAML file at path and applies env overrides.
// A missing file falls back to env and defaults only.
func Load(path string) (*Config, error) {
	conf := &Config{}
	err := cleanenv.ReadConfig(path, conf)
	if errors.Is(err, fs.ErrNotExist) {
		err = cleanenv.ReadEnv(conf)
	}
	if err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("%s; %s", err, desc)
	}
	if err = conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// MarkerNeverEchoed reports a setup where completed leads wait for a
// marker echo that the Telegram transport never delivers.
func (c *Config) MarkerNeverEchoed() bool {
	return c.Telegram.Enabled && c.Dialog.SubmitMode != SubmitDirect
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
