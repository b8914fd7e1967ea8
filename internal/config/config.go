package config

import (
	"os"
	"strconv"
	"time"
)

// GitHubConfig holds settings for the repository used as the insights backing
// store, addressed through the GitHub Contents API.
type GitHubConfig struct {
	Token          string
	Owner          string
	Repo           string
	Branch         string
	FilePath       string
	APIBaseURL     string
	CommitterName  string
	CommitterEmail string
	RequestTimeout time.Duration
}

// MinIOConfig holds object storage settings for uploaded images.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// LoaderConfig holds settings for the insights loader client.
type LoaderConfig struct {
	CacheMaxAge     time.Duration
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string
	MetricsPort string
	GitHub      GitHubConfig
	MinIO       MinIOConfig
	Loader      LoaderConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:     getEnv("APP_HOST", "localhost:8080"),
		Port:        getEnv("PORT", "8080"), // default only for non-sensitive value
		MetricsPort: getEnv("METRICS_PORT", "9090"),
		GitHub: GitHubConfig{
			Token:          getEnv("GITHUB_TOKEN", ""),
			Owner:          getEnv("GITHUB_OWNER", ""),
			Repo:           getEnv("GITHUB_REPO", ""),
			Branch:         getEnv("GITHUB_BRANCH", "main"),
			FilePath:       getEnv("INSIGHTS_FILE_PATH", "public/data/insights.json"),
			APIBaseURL:     getEnv("GITHUB_API_BASE_URL", ""),
			CommitterName:  getEnv("GIT_COMMITTER_NAME", ""),
			CommitterEmail: getEnv("GIT_COMMITTER_EMAIL", ""),
			RequestTimeout: getEnvDuration("GITHUB_REQUEST_TIMEOUT", 10*time.Second),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Loader: LoaderConfig{
			CacheMaxAge:     getEnvDuration("LOADER_CACHE_MAX_AGE", 5*time.Minute),
			RefreshInterval: getEnvDuration("LOADER_REFRESH_INTERVAL", 10*time.Minute),
			RequestTimeout:  getEnvDuration("LOADER_REQUEST_TIMEOUT", 5*time.Second),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
