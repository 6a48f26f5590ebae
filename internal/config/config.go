package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Cache    *cacheConfig
	Blob     *blobConfig
	Service  *svcConfig
	Pipeline *pipelineConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"emig"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type cacheConfig struct {
	Type     string        `envconfig:"EMIG_CACHE_TYPE" default:"redis"`
	Address  string        `envconfig:"EMIG_CACHE_ADDRESS" default:"localhost:6379"`
	Password string        `envconfig:"EMIG_CACHE_PASSWORD" default:""`
	DB       int           `envconfig:"EMIG_CACHE_DB" default:"0"`
	TTL      time.Duration `envconfig:"EMIG_CACHE_TTL" default:"168h"`
}

type blobConfig struct {
	Type            string        `envconfig:"EMIG_BLOB_TYPE" default:"redis"`
	Endpoint        string        `envconfig:"EMIG_BLOB_ENDPOINT" default:""`
	Bucket          string        `envconfig:"EMIG_BLOB_BUCKET" default:"emig-reports"`
	AccessKey       string        `envconfig:"EMIG_BLOB_ACCESS_KEY" default:""`
	SecretAccessKey string        `envconfig:"EMIG_BLOB_SECRET_KEY" default:""`
	UseSSL          bool          `envconfig:"EMIG_BLOB_USE_SSL" default:"false"`
	TTL             time.Duration `envconfig:"EMIG_BLOB_TTL" default:"168h"`
}

type svcConfig struct {
	Address            string   `envconfig:"EMIG_ADDRESS" default:":8080"`
	MetricsAddress     string   `envconfig:"EMIG_METRICS_ADDRESS" default:":8081"`
	BaseUrl            string   `envconfig:"EMIG_BASE_URL" default:"http://localhost:8080"`
	LogLevel           string   `envconfig:"EMIG_LOG_LEVEL" default:"info"`
	MigrationFolder    string   `envconfig:"EMIG_MIGRATIONS_FOLDER" default:""`
	GeneratorURL       string   `envconfig:"EMIG_GENERATOR_URL" default:"http://localhost:8000"`
	GeneratorAPIKey    string   `envconfig:"EMIG_GENERATOR_API_KEY" default:""`
	RendererURL        string   `envconfig:"EMIG_RENDERER_URL" default:"http://localhost:8090"`
	CorsAllowedOrigins []string `envconfig:"EMIG_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type pipelineConfig struct {
	MaxAttempts       int           `envconfig:"EMIG_JOB_MAX_ATTEMPTS" default:"3"`
	BatchSize         int           `envconfig:"EMIG_JOB_BATCH_SIZE" default:"5"`
	GenerationTimeout time.Duration `envconfig:"EMIG_GENERATION_TIMEOUT" default:"5m"`
	RenderTimeout     time.Duration `envconfig:"EMIG_RENDER_TIMEOUT" default:"1m"`
	TokenTTL          time.Duration `envconfig:"EMIG_TOKEN_TTL" default:"168h"`
	ProcessInterval   time.Duration `envconfig:"EMIG_PROCESS_INTERVAL" default:"1m"`
	RecoveryInterval  time.Duration `envconfig:"EMIG_RECOVERY_INTERVAL" default:"10m"`
	RetentionInterval time.Duration `envconfig:"EMIG_RETENTION_INTERVAL" default:"1h"`
	RetentionBatch    int           `envconfig:"EMIG_RETENTION_BATCH" default:"50"`
	RecoveryBatch     int           `envconfig:"EMIG_RECOVERY_BATCH" default:"100"`
}

// NewDefault returns a fresh config, bypassing the singleton. Tests use it
// and then point the database at sqlite.
func NewDefault() *Config {
	c := new(Config)
	if err := envconfig.Process("", c); err != nil {
		panic(err)
	}
	return c
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}
