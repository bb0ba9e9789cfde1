package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Vision   VisionConfig   `yaml:"vision"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// VisionConfig configures the face-liveness pipeline: where its
// encrypted models live, how their decryption key is obtained, and the
// DetectorConfig thresholds.
type VisionConfig struct {
	ModelsDir string `yaml:"models_dir"`
	KeyPath   string `yaml:"key_path"`

	// EnrollWorkerCount is how many goroutines the enroller process runs
	// to drain the ENROLL queue concurrently.
	EnrollWorkerCount int `yaml:"enroll_worker_count"`

	SkipOcclusionCheck bool `yaml:"skip_occlusion_check"`
	SkipAlbedoCheck    bool `yaml:"skip_albedo_check"`
	SkipFaceCropping   bool `yaml:"skip_face_cropping"`

	LivenessThreshold     float64    `yaml:"liveness_threshold"`
	LivenessModelWeightA  float64    `yaml:"liveness_model_weight_a"`
	LivenessModelWeightB  float64    `yaml:"liveness_model_weight_b"`
	LivenessIterations    int        `yaml:"liveness_iterations"`
	OcclusionThreshold    float64    `yaml:"occlusion_threshold"`
	OcclusionIterations   int        `yaml:"occlusion_iterations"`
	CosineThreshold       float64    `yaml:"cosine_threshold"`
	SharpnessThreshold    float64    `yaml:"sharpness_threshold"`
	Realtime              bool       `yaml:"realtime"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Vision.ModelsDir == "" {
		cfg.Vision.ModelsDir = "./models"
	}
	if cfg.Vision.EnrollWorkerCount == 0 {
		cfg.Vision.EnrollWorkerCount = 4
	}
	if cfg.Vision.LivenessThreshold == 0 {
		cfg.Vision.LivenessThreshold = 0.75
	}
	if cfg.Vision.LivenessModelWeightA == 0 && cfg.Vision.LivenessModelWeightB == 0 {
		cfg.Vision.LivenessModelWeightA = 0.5
		cfg.Vision.LivenessModelWeightB = 0.5
	}
	if cfg.Vision.LivenessIterations == 0 {
		cfg.Vision.LivenessIterations = 3
	}
	if cfg.Vision.OcclusionThreshold == 0 {
		cfg.Vision.OcclusionThreshold = 0.7
	}
	if cfg.Vision.OcclusionIterations == 0 {
		cfg.Vision.OcclusionIterations = 3
	}
	if cfg.Vision.CosineThreshold == 0 {
		cfg.Vision.CosineThreshold = 0.7
	}
	if cfg.Vision.SharpnessThreshold == 0 {
		if cfg.Vision.Realtime {
			cfg.Vision.SharpnessThreshold = 100.0
		} else {
			cfg.Vision.SharpnessThreshold = 45.0
		}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FD_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FD_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("FD_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FD_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FD_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FD_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FD_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FD_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FD_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("FD_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("FD_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("FD_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("FD_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("FD_KEY_PATH"); v != "" {
		cfg.Vision.KeyPath = v
	}
}

// Weights returns the two liveness model weights as the [2]float64 that
// vision.DetectorConfig.LivenessModelWeights takes; the config package
// does not import vision, so callers copy the value across.
func (v VisionConfig) Weights() [2]float64 {
	return [2]float64{v.LivenessModelWeightA, v.LivenessModelWeightB}
}
