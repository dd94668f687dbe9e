package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"

	StorageDisk = "disk"
	StorageS3   = "s3"
)

type Config struct {
	LLMProvider string

	AzureAPIKey     string
	AzureEndpoint   string
	AzureDeployment string
	AzureAPIVersion string

	GeminiAPIKey string
	GeminiModel  string

	WolframAppID string

	DatabaseURL string
	HTTPPort    string
	LogLevel    string
	CORSOrigins []string

	JWTSecret    string
	AuthRequired bool
	DemoEmail    string
	DemoPassword string

	StorageBackend string
	UploadDir      string
	S3Bucket       string
	AwsRegion      string
	AwsAccessKey   string
	AwsSecretKey   string

	APIBaseURL string
}

var AppConfig Config

// LoadConfig reads .env (when present) and the process environment into
// AppConfig. Missing provider or storage settings are fatal.
func LoadConfig() *Config {
	AppConfig = LoadUnchecked()
	if err := AppConfig.Validate(); err != nil {
		log.Fatal(err)
	}
	if AppConfig.JWTSecret == "" {
		if AppConfig.AuthRequired {
			log.Fatal("JWT_SECRET environment variable is required when AUTH_REQUIRED=true")
		}
		log.Println("JWT_SECRET not set; session tokens will not survive a restart")
	}
	return &AppConfig
}

// LoadUnchecked reads .env and the environment without validating provider
// or storage settings. Commands that never start the server use it.
func LoadUnchecked() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment without validating it.
func FromEnv() Config {
	return Config{
		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderAzure)),
		AzureAPIKey:     getEnv("AZURE_API_KEY", ""),
		AzureEndpoint:   getEnv("AZURE_MODEL_ENDPOINT", ""),
		AzureDeployment: getEnv("AZURE_DEPLOYMENT", ""),
		AzureAPIVersion: getEnv("AZURE_API_VERSION", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),
		WolframAppID:    getEnv("WOLFRAM_APP_ID", ""),
		DatabaseURL:     getEnv("DATABASE_URL", "learning_helper.db"),
		HTTPPort:        getEnv("HTTP_PORT", "5001"),
		LogLevel:        strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		CORSOrigins:     getEnvAsList("CORS_ORIGINS", []string{"*"}),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		AuthRequired:    getEnvAsBool("AUTH_REQUIRED", false),
		DemoEmail:       getEnv("DEMO_EMAIL", "student@example.com"),
		DemoPassword:    getEnv("DEMO_PASSWORD", "password123"),
		StorageBackend:  strings.ToLower(getEnv("STORAGE_BACKEND", StorageDisk)),
		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		AwsRegion:       getEnv("AWS_REGION", "us-east-2"),
		AwsAccessKey:    getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:    getEnv("AWS_SECRET_KEY", ""),
		APIBaseURL:      getEnv("API_BASE_URL", "http://localhost:5001"),
	}
}

// Validate checks the settings the selected provider and storage backend need.
func (c Config) Validate() error {
	var missing []string
	switch c.LLMProvider {
	case ProviderAzure:
		if c.AzureAPIKey == "" {
			missing = append(missing, "AZURE_API_KEY")
		}
		if c.AzureEndpoint == "" {
			missing = append(missing, "AZURE_MODEL_ENDPOINT")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q (valid options: azure, gemini)", c.LLMProvider)
	}

	switch c.StorageBackend {
	case StorageDisk:
		if c.UploadDir == "" {
			missing = append(missing, "UPLOAD_DIR")
		}
	case StorageS3:
		if c.S3Bucket == "" {
			missing = append(missing, "S3_BUCKET")
		}
		if c.AwsRegion == "" {
			missing = append(missing, "AWS_REGION")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q (valid options: disk, s3)", c.StorageBackend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c Config) Debug() bool {
	return c.LogLevel == "DEBUG"
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
