package main

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Recommender != "mock" {
		t.Errorf("Recommender = %q, want mock", cfg.Recommender)
	}
	if cfg.SessionID != "default" {
		t.Errorf("SessionID = %q, want default", cfg.SessionID)
	}
	if !strings.HasSuffix(cfg.DBPath, "orbit.db") {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Resume {
		t.Error("Resume defaulted to true")
	}
}

func TestLoadConfig_RecommenderValidation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		envVars     map[string]string
		expectError bool
		errorSubstr string
		want        string
	}{
		{
			name: "mock from flag",
			args: []string{"-recommender", "mock"},
			want: "mock",
		},
		{
			name: "llm from flag",
			args: []string{"-recommender", "llm"},
			want: "llm",
		},
		{
			name:    "llm from env",
			envVars: map[string]string{"ORBIT_RECOMMENDER": "llm"},
			want:    "llm",
		},
		{
			name:    "flag overrides env",
			args:    []string{"-recommender", "mock"},
			envVars: map[string]string{"ORBIT_RECOMMENDER": "llm"},
			want:    "mock",
		},
		{
			name:        "unknown backend rejected",
			args:        []string{"-recommender", "oracle"},
			expectError: true,
			errorSubstr: "unsupported recommender",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				os.Setenv(k, v)
				defer os.Unsetenv(k)
			}

			cfg, err := LoadConfig(tt.args)

			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errorSubstr)
				}
				if !strings.Contains(err.Error(), tt.errorSubstr) {
					t.Errorf("expected error containing %q, got %q", tt.errorSubstr, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if cfg.Recommender != tt.want {
				t.Errorf("Recommender = %q, want %q", cfg.Recommender, tt.want)
			}
		})
	}
}

func TestLoadConfig_PrefetchTimeout(t *testing.T) {
	os.Setenv("ORBIT_PREFETCH_TIMEOUT", "3s")
	defer os.Unsetenv("ORBIT_PREFETCH_TIMEOUT")

	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.PrefetchTimeout != 3*time.Second {
		t.Errorf("PrefetchTimeout = %v, want 3s", cfg.PrefetchTimeout)
	}

	os.Setenv("ORBIT_PREFETCH_TIMEOUT", "soon")
	if _, err := LoadConfig(nil); err == nil {
		t.Error("expected an error for an unparsable duration")
	}
}

func TestLoadConfig_APIKeyFallback(t *testing.T) {
	os.Setenv("OPENAI_API_KEY", "sk-fallback")
	defer os.Unsetenv("OPENAI_API_KEY")

	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.LLMAPIKey != "sk-fallback" {
		t.Errorf("LLMAPIKey = %q, want the OPENAI_API_KEY fallback", cfg.LLMAPIKey)
	}

	os.Setenv("ORBIT_LLM_API_KEY", "sk-primary")
	defer os.Unsetenv("ORBIT_LLM_API_KEY")
	cfg, err = LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.LLMAPIKey != "sk-primary" {
		t.Errorf("LLMAPIKey = %q, want ORBIT_LLM_API_KEY to win", cfg.LLMAPIKey)
	}
}

func TestLoadConfig_EmptySessionRejected(t *testing.T) {
	if _, err := LoadConfig([]string{"-session", "  "}); err == nil {
		t.Error("expected an error for a blank session id")
	}
}
