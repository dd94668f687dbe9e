package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("AUTH_REQUIRED", "")

	cfg := FromEnv()
	assert.Equal(t, ProviderGemini, cfg.LLMProvider)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.AuthRequired)
}

func TestFromEnvParsesListsAndBools(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " http://localhost:3000 , ,http://localhost:5173")
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := FromEnv()
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.True(t, cfg.AuthRequired)
	assert.True(t, cfg.Debug())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "azure missing key and endpoint",
			cfg:     Config{LLMProvider: ProviderAzure, StorageBackend: StorageDisk, UploadDir: "uploads"},
			wantErr: "AZURE_API_KEY, AZURE_MODEL_ENDPOINT",
		},
		{
			name: "azure complete",
			cfg: Config{LLMProvider: ProviderAzure, AzureAPIKey: "k", AzureEndpoint: "https://x",
				StorageBackend: StorageDisk, UploadDir: "uploads"},
		},
		{
			name:    "gemini missing key",
			cfg:     Config{LLMProvider: ProviderGemini, StorageBackend: StorageDisk, UploadDir: "uploads"},
			wantErr: "GEMINI_API_KEY",
		},
		{
			name:    "s3 missing bucket",
			cfg:     Config{LLMProvider: ProviderGemini, GeminiAPIKey: "k", StorageBackend: StorageS3, AwsRegion: "us-east-2"},
			wantErr: "S3_BUCKET",
		},
		{
			name:    "unknown provider",
			cfg:     Config{LLMProvider: "bedrock"},
			wantErr: "unsupported LLM_PROVIDER",
		},
		{
			name:    "unknown storage",
			cfg:     Config{LLMProvider: ProviderGemini, GeminiAPIKey: "k", StorageBackend: "ftp"},
			wantErr: "unsupported STORAGE_BACKEND",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
