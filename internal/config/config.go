package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr      string
	DBPath          string
	JWTSecret       string
	MinImages       int
	UploadBackend   string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3PathStyle     bool
	UploadLocalBase string
	LogLevel        string
	LogFile         string
}

func Load() *Config {
	// Optional .env for local development; a missing file is fine.
	_ = godotenv.Load()

	return &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		DBPath:          getEnv("DB_PATH", "/data/taller.db"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		MinImages:       getEnvInt("MIN_IMAGES", 2),
		UploadBackend:   getEnv("UPLOAD_BACKEND", "s3"),
		S3Bucket:        getEnv("UPLOAD_S3_BUCKET", ""),
		S3Region:        getEnv("UPLOAD_S3_REGION", "us-east-1"),
		S3Endpoint:      getEnv("UPLOAD_S3_ENDPOINT", ""),
		S3PathStyle:     getEnv("UPLOAD_S3_PATH_STYLE", "") == "true",
		UploadLocalBase: getEnv("UPLOAD_LOCAL_BASE_URL", "http://localhost:8080/files"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
