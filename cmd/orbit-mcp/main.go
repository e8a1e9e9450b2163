package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rmax-ai/orbit/pkg/mcp"
	"github.com/rmax-ai/orbit/pkg/orbit"
	"github.com/rmax-ai/orbit/pkg/recommend"
	"github.com/rmax-ai/orbit/pkg/recommend/llm"
)

func main() {
	var (
		backend    string
		llmBaseURL string
		llmModel   string
	)
	flag.StringVar(&backend, "recommender", envOrDefault("ORBIT_RECOMMENDER", "mock"), "recommender backend: mock|llm")
	flag.StringVar(&llmBaseURL, "llm-base-url", os.Getenv("ORBIT_LLM_BASE_URL"), "OpenAI-compatible base URL")
	flag.StringVar(&llmModel, "llm-model", envOrDefault("ORBIT_LLM_MODEL", "gpt-4o-mini"), "model name")
	flag.Parse()

	var (
		rec      recommend.Recommender
		resolver mcp.Resolver
	)
	switch backend {
	case "llm":
		rec = llm.New(llmBaseURL, envOrDefault("ORBIT_LLM_API_KEY", os.Getenv("OPENAI_API_KEY")), llmModel)
	case "mock":
		mock := recommend.NewMock(recommend.MockConfig{Seed: time.Now().UnixNano()})
		rec = mock
		resolver = mcp.CatalogResolver(mock.Catalog())
	default:
		fmt.Fprintf(os.Stderr, "orbit-mcp: unsupported recommender %q\n", backend)
		os.Exit(1)
	}

	session := orbit.NewSession(rec, nil)
	server := mcp.NewServer(session, rec, resolver)
	if err := server.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "orbit-mcp: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
