package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	MinIOBucket string        `yaml:"minio_bucket"`
	App         App           `yaml:"app"`
	DB          *sql.DB       `yaml:"db"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	Storage     *minio.Client `yaml:"storage"`
	Server      Server        `yaml:"server"`
	Pipeline    Pipeline      `yaml:"pipeline"`
	Services    Services      `yaml:"services"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type RabbitMQ struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	User string `json:"user"`
	Pass string `json:"pass"`
	Kind string `json:"kind"`
}

// Pipeline carries the orchestrator tunables. The retry/backoff values
// are defaults, not law; every deployment may override them in yaml.
type Pipeline struct {
	MaxRetries         int           `yaml:"max_retries"`
	RetryBaseDelay     time.Duration `yaml:"retry_base_delay"`
	SoftTimeout        time.Duration `yaml:"soft_timeout"`
	HardTimeout        time.Duration `yaml:"hard_timeout"`
	StaleAfter         time.Duration `yaml:"stale_after"`
	SweepInterval      time.Duration `yaml:"sweep_interval"`
	ImageConcurrency   int           `yaml:"image_concurrency"`
	ImageRetryAttempts int           `yaml:"image_retry_attempts"`
	ImageRetryDelay    time.Duration `yaml:"image_retry_delay"`
	CoverFrameOffset   time.Duration `yaml:"cover_frame_offset"`
	MaxPromptLength    int           `yaml:"max_prompt_length"`
	WorkspaceRoot      string        `yaml:"workspace_root"`
}

type Services struct {
	SpeechURL string        `yaml:"speech_url"`
	ImageURL  string        `yaml:"image_url"`
	AvatarURL string        `yaml:"avatar_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("pipeline.max_retries", 3)
	viper.SetDefault("pipeline.retry_base_delay", "60s")
	viper.SetDefault("pipeline.soft_timeout", "55m")
	viper.SetDefault("pipeline.hard_timeout", "1h")
	viper.SetDefault("pipeline.stale_after", "1h")
	viper.SetDefault("pipeline.sweep_interval", "5m")
	viper.SetDefault("pipeline.image_concurrency", 4)
	viper.SetDefault("pipeline.image_retry_attempts", 3)
	viper.SetDefault("pipeline.image_retry_delay", "5s")
	viper.SetDefault("pipeline.cover_frame_offset", "1s")
	viper.SetDefault("pipeline.max_prompt_length", 500)
	viper.SetDefault("pipeline.workspace_root", "temp")
	viper.SetDefault("services.timeout", "300s")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host: viper.GetString("rabbitmq_host"),
		Port: viper.GetInt("rabbitmq_port"),
		User: viper.GetString("rabbitmq_user"),
		Pass: viper.GetString("rabbitmq_pass"),
		Kind: viper.GetString("rabbitmq_kind"),
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	return &Config{
		MinIOBucket: viper.GetString("minio.bucket"),
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
			Workers:  viper.GetInt("server.workers"),
		},
		Pipeline: Pipeline{
			MaxRetries:         viper.GetInt("pipeline.max_retries"),
			RetryBaseDelay:     viper.GetDuration("pipeline.retry_base_delay"),
			SoftTimeout:        viper.GetDuration("pipeline.soft_timeout"),
			HardTimeout:        viper.GetDuration("pipeline.hard_timeout"),
			StaleAfter:         viper.GetDuration("pipeline.stale_after"),
			SweepInterval:      viper.GetDuration("pipeline.sweep_interval"),
			ImageConcurrency:   viper.GetInt("pipeline.image_concurrency"),
			ImageRetryAttempts: viper.GetInt("pipeline.image_retry_attempts"),
			ImageRetryDelay:    viper.GetDuration("pipeline.image_retry_delay"),
			CoverFrameOffset:   viper.GetDuration("pipeline.cover_frame_offset"),
			MaxPromptLength:    viper.GetInt("pipeline.max_prompt_length"),
			WorkspaceRoot:      viper.GetString("pipeline.workspace_root"),
		},
		Services: Services{
			SpeechURL: viper.GetString("services.speech_url"),
			ImageURL:  viper.GetString("services.image_url"),
			AvatarURL: viper.GetString("services.avatar_url"),
			Timeout:   viper.GetDuration("services.timeout"),
		},
		DB:      db,
		Queue:   rabbitmq,
		Storage: minioClient,
	}, nil
}
