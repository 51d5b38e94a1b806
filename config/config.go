package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	ProductsFile string
	DataDir      string
	ImagesDir    string
	ReadmeFile   string
	// ReadmeBaseURL prefixes image links in the generated README.
	// Empty means relative links.
	ReadmeBaseURL string

	LogLevel  string
	LogFormat string

	RenderCharts bool
	ChartFormat  string

	PostgresDSN     string
	MetricsTextfile string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		ProductsFile:  getEnv("PRODUCTS_FILE", "products.yaml"),
		DataDir:       getEnv("DATA_DIR", "data"),
		ImagesDir:     getEnv("IMAGES_DIR", "images"),
		ReadmeFile:    getEnv("README_FILE", "README.md"),
		ReadmeBaseURL: getEnv("README_BASE_URL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		RenderCharts: getEnvBool("RENDER_CHARTS", true),
		ChartFormat:  getEnv("CHART_FORMAT", "svg"),

		PostgresDSN:     getEnv("POSTGRES_DSN", ""),
		MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}
