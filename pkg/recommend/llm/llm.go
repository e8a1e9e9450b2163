package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rmax-ai/orbit/pkg/film"
	"github.com/rmax-ai/orbit/pkg/gesture"
	"github.com/rmax-ai/orbit/pkg/recommend"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Recommender asks an OpenAI-compatible chat endpoint for a similar film.
// The model is an opaque candidate source: an unparsable or empty reply is
// a miss, not an error.
type Recommender struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// New creates an adapter against an OpenAI-compatible API. baseURL may be
// empty for the default endpoint.
func New(baseURL, apiKey, model string) *Recommender {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Recommender{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

func dimensionPrompt(dir gesture.Direction) string {
	switch dir {
	case gesture.DirectionLeft:
		return "mood and emotional vibe: the feeling it leaves you with"
	case gesture.DirectionDown:
		return "visual aesthetic: color palette, framing, production design"
	case gesture.DirectionUp:
		return "authorial style: directorial voice, themes, formal signature"
	}
	return ""
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// candidateReply is the strict JSON shape the model is asked to produce.
type candidateReply struct {
	Title           string   `json:"title"`
	Year            int      `json:"year"`
	Reason          string   `json:"reason"`
	Score           float64  `json:"score"`
	Director        string   `json:"director,omitempty"`
	Cinematographer string   `json:"cinematographer,omitempty"`
	Genres          []string `json:"genres,omitempty"`
}

func (r *Recommender) FindCandidate(ctx context.Context, m film.Movie, dir gesture.Direction, qc film.QueryContext) (*recommend.Candidate, error) {
	dim := dimensionPrompt(dir)
	if dim == "" {
		return nil, fmt.Errorf("unsupported direction %q", dir)
	}

	sys := "You recommend exactly one film similar to the given one along a single dimension. " +
		"Reply with strict JSON only: {\"title\",\"year\",\"reason\",\"score\",\"director\",\"cinematographer\",\"genres\"}. " +
		"score is 0-100 similarity. reason is one short sentence. Never recommend the input film itself."

	var sb strings.Builder
	fmt.Fprintf(&sb, "Film: %s (%d)", m.Title, m.Year)
	if m.Director != "" {
		fmt.Fprintf(&sb, ", directed by %s", m.Director)
	}
	if m.Cinematographer != "" {
		fmt.Fprintf(&sb, ", shot by %s", m.Cinematographer)
	}
	if len(m.Genres) > 0 {
		fmt.Fprintf(&sb, " [%s]", strings.Join(m.Genres, ", "))
	}
	fmt.Fprintf(&sb, "\nDimension: %s", dim)
	if qc.Cinematographer != "" {
		fmt.Fprintf(&sb, "\nViewer cares about cinematography by: %s", qc.Cinematographer)
	}
	if qc.Writer != "" {
		fmt.Fprintf(&sb, "\nViewer cares about writing by: %s", qc.Writer)
	}
	if qc.VisualStyle != "" {
		fmt.Fprintf(&sb, "\nViewer's preferred visual style: %s", qc.VisualStyle)
	}

	body, err := json.Marshal(chatRequest{
		Model:       r.model,
		Temperature: 0.7,
		Messages: []chatMessage{
			{Role: "system", Content: sys},
			{Role: "user", Content: sb.String()},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recommendation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recommendation endpoint returned HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
		log.Printf("unparsable completion envelope for %s/%s", m.ID, dir)
		return nil, nil
	}

	reply, ok := parseCandidateReply(parsed.Choices[0].Message.Content)
	if !ok || reply.Title == "" {
		log.Printf("unparsable candidate reply for %s/%s", m.ID, dir)
		return nil, nil
	}
	if strings.EqualFold(reply.Title, m.Title) {
		return nil, nil
	}

	return &recommend.Candidate{
		Movie: film.Movie{
			ID:              Slug(reply.Title, reply.Year),
			Title:           reply.Title,
			Year:            reply.Year,
			Director:        reply.Director,
			Cinematographer: reply.Cinematographer,
			Genres:          reply.Genres,
		},
		Reason: reply.Reason,
		Score:  reply.Score,
	}, nil
}

func (r *Recommender) FindThreeCandidates(ctx context.Context, m film.Movie, qc film.QueryContext) (recommend.ThreeWay, error) {
	var (
		out recommend.ThreeWay
		wg  sync.WaitGroup
		mu  sync.Mutex
	)
	for _, dir := range recommend.ForwardDirections {
		wg.Add(1)
		go func(dir gesture.Direction) {
			defer wg.Done()
			c, err := r.FindCandidate(ctx, m, dir, qc)
			if err != nil {
				log.Printf("three-way lookup failed for %s/%s: %v", m.ID, dir, err)
				return
			}
			if c == nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch dir {
			case gesture.DirectionLeft:
				out.Vibe = c
			case gesture.DirectionDown:
				out.Aesthetic = c
			case gesture.DirectionUp:
				out.Auteur = c
			}
		}(dir)
	}
	wg.Wait()
	return out, nil
}

// parseCandidateReply decodes the model output, tolerating fenced code
// blocks around the JSON.
func parseCandidateReply(content string) (candidateReply, bool) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var reply candidateReply
	if err := json.Unmarshal([]byte(trimmed), &reply); err != nil {
		return candidateReply{}, false
	}
	return reply, true
}

// Slug derives a stable movie id from a title and year, e.g.
// "In the Mood for Love", 2000 -> "in-the-mood-for-love-2000".
func Slug(title string, year int) string {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			lastDash = false
		case !lastDash:
			sb.WriteRune('-')
			lastDash = true
		}
	}
	s := strings.Trim(sb.String(), "-")
	if year > 0 {
		return fmt.Sprintf("%s-%d", s, year)
	}
	return s
}
