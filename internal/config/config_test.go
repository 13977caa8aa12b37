package config

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
)

// validConfig returns a Config that passes Validate().
func validConfig() *Config {
	return &Config{
		Environment:      "test",
		DataDir:          "./data",
		ChunkSize:        3000,
		ChunkOverlap:     300,
		FileExtensions:   []string{".txt"},
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "sovereign",
		PostgresPassword: "pw",
		PostgresDBName:   "sovereign",
		PostgresSSLMode:  "disable",
		VectorDimension:  768,
		Embedder: EmbedderConfig{
			Provider:   EmbedderService,
			ServiceURL: "http://localhost:8001",
		},
		Generator: GeneratorConfig{
			Provider:    GeneratorOllama,
			Model:       "llama3.2",
			Temperature: 0,
			MaxTokens:   2048,
			OllamaHost:  "http://localhost:11434",
		},
		Answer: AnswerConfig{
			TopK:              5,
			ScoreThreshold:    0.2,
			MaxQuestionLength: 5120,
			DegradeOnError:    true,
		},
		Log: LogConfig{Level: "info"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENVIRONMENT", "test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Environment != "test" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "test")
	}
	if cfg.ChunkSize != 3000 {
		t.Errorf("ChunkSize = %d, want 3000", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 300 {
		t.Errorf("ChunkOverlap = %d, want 300", cfg.ChunkOverlap)
	}
	if cfg.Answer.TopK != 5 {
		t.Errorf("Answer.TopK = %d, want 5", cfg.Answer.TopK)
	}
	if cfg.Answer.ScoreThreshold != 0.2 {
		t.Errorf("Answer.ScoreThreshold = %g, want 0.2", cfg.Answer.ScoreThreshold)
	}
	if !cfg.Answer.DegradeOnError {
		t.Error("Answer.DegradeOnError should default to true")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ENVIRONMENT", "test")

	yaml := "chunk_size: 100\nchunk_overlap: 10\nanswer:\n  top_k: 7\n"
	if err := os.WriteFile("configuration.test.yaml", []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ChunkSize != 100 {
		t.Errorf("ChunkSize = %d, want 100", cfg.ChunkSize)
	}
	if cfg.Answer.TopK != 7 {
		t.Errorf("Answer.TopK = %d, want 7", cfg.Answer.TopK)
	}
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENVIRONMENT", "staging")

	_, err := Load()
	if !errors.Is(err, ErrInvalidEnvironment) {
		t.Errorf("Load() error = %v, want ErrInvalidEnvironment", err)
	}
}

func TestLoad_UnsetEnvironmentDefaultsToLocal(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENVIRONMENT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Environment != "local" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "local")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ENVIRONMENT", "test")

	if err := os.WriteFile("configuration.test.yaml", []byte("chunk_size: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("Load() with malformed YAML should fail")
	}
}

func TestLookup(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENVIRONMENT", "test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name    string
		key     string
		want    string
		wantErr error
	}{
		{"top level", "chunk_size", "3000", nil},
		{"nested", "answer.top_k", "5", nil},
		{"missing leaf", "answer.no_such_key", "", ErrKeyNotFound},
		{"missing root", "nonexistent.key", "", ErrKeyNotFound},
		{"uppercase rejected", "Answer.top_k", "", ErrInvalidKey},
		{"space rejected", "answer .top_k", "", ErrInvalidKey},
		{"empty segment rejected", "answer..top_k", "", ErrInvalidKey},
		{"trailing dot rejected", "answer.", "", ErrInvalidKey},
		{"empty key rejected", "", "", ErrInvalidKey},
		{"hyphen and underscore ok", "log.level", "info", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cfg.Lookup(tt.key)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Lookup(%q) error = %v, want %v", tt.key, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup(%q) error = %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestConfig_MarshalJSON_MasksPassword(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "super_secret_password"

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	s := string(data)
	if strings.Contains(s, "super_secret_password") {
		t.Error("marshaled config leaks the password")
	}
	if !strings.Contains(s, maskedValue) {
		t.Error("marshaled config should contain the mask placeholder")
	}
}

func TestConfig_String_MasksPassword(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "another_secret_value"

	if strings.Contains(cfg.String(), "another_secret_value") {
		t.Error("String() leaks the password")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", maskedValue},
		{"12345678", maskedValue},
		{"my_long_secret_key", "my<" + maskedValue + ">ey"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
