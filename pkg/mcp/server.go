package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rmax-ai/orbit/pkg/constellation"
	"github.com/rmax-ai/orbit/pkg/film"
	"github.com/rmax-ai/orbit/pkg/gesture"
	"github.com/rmax-ai/orbit/pkg/orbit"
	"github.com/rmax-ai/orbit/pkg/recommend"
)

// Resolver turns a movie id into full movie metadata. The mock recommender's
// catalog satisfies this through CatalogResolver; an LLM-backed deployment
// can plug in a metadata service instead.
type Resolver interface {
	Resolve(id string) (film.Movie, bool)
}

// CatalogResolver resolves against a fixed movie list.
type CatalogResolver []film.Movie

func (c CatalogResolver) Resolve(id string) (film.Movie, bool) {
	for _, m := range c {
		if m.ID == id {
			return m, true
		}
	}
	return film.Movie{}, false
}

// Server exposes an orbit session over the Model Context Protocol, so an
// agent can drive the exploration the same way swipes do.
type Server struct {
	mcpServer *server.MCPServer
	session   *orbit.Session
	rec       recommend.Recommender
	resolver  Resolver
}

// NewServer creates the MCP server around a live session. The resolver may
// be nil, in which case enter_orbit requires title metadata inline.
func NewServer(session *orbit.Session, rec recommend.Recommender, resolver Resolver) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"orbit",
			"1.0.0",
		),
		session:  session,
		rec:      rec,
		resolver: resolver,
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	// orbit://constellation
	s.mcpServer.AddResource(mcp.NewResource(
		"orbit://constellation",
		"Orbit Constellation",
		mcp.WithResourceDescription("The graph of every movie visited this session and every connection traversed"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadConstellation)

	// orbit://saved
	s.mcpServer.AddResource(mcp.NewResource(
		"orbit://saved",
		"Saved Movies",
		mcp.WithResourceDescription("Movies the user saved during this session, in visit order"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadSaved)
}

// --- Tools ---

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"enter_orbit",
		mcp.WithDescription("Start an exploration session from an entry movie. Replaces any session in progress."),
		mcp.WithString("movie_id", mcp.Required(), mcp.Description("The entry movie id (e.g. 'in-the-mood-for-love-2000')")),
		mcp.WithString("title", mcp.Description("Movie title, used when the id is not in the catalog")),
		mcp.WithNumber("year", mcp.Description("Release year, used when the id is not in the catalog")),
	), s.handleEnterOrbit)

	s.mcpServer.AddTool(mcp.NewTool(
		"swipe",
		mcp.WithDescription("Navigate one step: 'left' follows the vibe, 'down' the aesthetic, 'up' the auteur, 'right' rewinds. Returns the movie landed on, or why nothing moved."),
		mcp.WithString("direction", mcp.Required(), mcp.Description("One of: left, down, up, right")),
	), s.handleSwipe)

	s.mcpServer.AddTool(mcp.NewTool(
		"jump_to_node",
		mcp.WithDescription("Jump the cursor to a history position from the constellation."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("History index (see orbit://constellation)")),
	), s.handleJumpToNode)

	s.mcpServer.AddTool(mcp.NewTool(
		"toggle_saved",
		mcp.WithDescription("Toggle the saved flag on a visited movie. Defaults to the current movie."),
		mcp.WithString("movie_id", mcp.Description("Movie id; omit for the movie under the cursor")),
	), s.handleToggleSaved)

	s.mcpServer.AddTool(mcp.NewTool(
		"scout",
		mcp.WithDescription("Preview all three forward candidates for the current movie without navigating."),
	), s.handleScout)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		"orbit-guide",
		mcp.WithPromptDescription("Explains orbit navigation concepts (directions, history, constellation)"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func (s *Server) handleReadConstellation(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if !s.session.IsActive() {
		return nil, fmt.Errorf("no session in progress; call enter_orbit first")
	}

	g := constellation.Project(s.session)
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal constellation: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleReadSaved(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	saved := s.session.GetSavedMovies()
	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal saved movies: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleEnterOrbit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	movieID := mcp.ParseString(request, "movie_id", "")
	if movieID == "" {
		return mcp.NewToolResultError("movie_id is required"), nil
	}

	mv := film.Movie{
		ID:    movieID,
		Title: mcp.ParseString(request, "title", ""),
		Year:  int(mcp.ParseFloat64(request, "year", 0)),
	}
	if s.resolver != nil {
		if resolved, ok := s.resolver.Resolve(movieID); ok {
			mv = resolved
		}
	}

	s.session.EnterOrbit(mv)
	if !s.session.IsActive() {
		return mcp.NewToolResultError(fmt.Sprintf("could not enter orbit on %q", movieID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("In orbit around %s. Swipe left for vibe, down for aesthetic, up for auteur.", describe(mv))), nil
}

func (s *Server) handleSwipe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := gesture.Direction(mcp.ParseString(request, "direction", ""))
	switch dir {
	case gesture.DirectionLeft, gesture.DirectionDown, gesture.DirectionUp, gesture.DirectionRight:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown direction %q (want left, down, up or right)", dir)), nil
	}
	if !s.session.IsActive() {
		return mcp.NewToolResultError("no session in progress; call enter_orbit first"), nil
	}

	before := s.session.HistoryIndex()
	ok := s.session.Swipe(ctx, dir)
	if !ok {
		if dir == gesture.DirectionRight {
			return mcp.NewToolResultText("Already at the entry movie; there is nothing earlier to rewind to."), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("No %s candidate was found; still on the same movie.", recommend.DimensionLabel(dir))), nil
	}

	cur, _ := s.session.Current()
	if dir == gesture.DirectionRight {
		return mcp.NewToolResultText(fmt.Sprintf("Rewound to %s (history %d -> %d).", describe(cur), before, s.session.HistoryIndex())), nil
	}

	reason := ""
	if edges := s.session.Edges(); len(edges) > 0 {
		reason = edges[len(edges)-1].Reason
	}
	return mcp.NewToolResultText(fmt.Sprintf("Now on %s via %s: %s", describe(cur), recommend.DimensionLabel(dir), reason)), nil
}

func (s *Server) handleJumpToNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index := int(mcp.ParseFloat64(request, "index", -1))
	if !s.session.JumpToNode(index) {
		return mcp.NewToolResultError(fmt.Sprintf("no history node at index %d", index)), nil
	}
	cur, _ := s.session.Current()
	return mcp.NewToolResultText(fmt.Sprintf("Jumped to %s (history index %d).", describe(cur), index)), nil
}

func (s *Server) handleToggleSaved(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	movieID := mcp.ParseString(request, "movie_id", "")
	if movieID == "" {
		cur, ok := s.session.Current()
		if !ok {
			return mcp.NewToolResultError("no session in progress; call enter_orbit first"), nil
		}
		movieID = cur.ID
	}

	if s.session.ToggleSaved(movieID) {
		return mcp.NewToolResultText(fmt.Sprintf("Saved %s.", movieID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Unsaved %s (or it was never visited).", movieID)), nil
}

func (s *Server) handleScout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cur, ok := s.session.Current()
	if !ok {
		return mcp.NewToolResultError("no session in progress; call enter_orbit first"), nil
	}

	three, err := s.rec.FindThreeCandidates(ctx, cur, film.QueryContext{})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recommender error: %v", err)), nil
	}

	out := fmt.Sprintf("From %s:\n", describe(cur))
	out += scoutLine("left (vibe)", three.Vibe)
	out += scoutLine("down (aesthetic)", three.Aesthetic)
	out += scoutLine("up (auteur)", three.Auteur)
	return mcp.NewToolResultText(out), nil
}

func scoutLine(label string, c *recommend.Candidate) string {
	if c == nil {
		return fmt.Sprintf("  %s: no candidate\n", label)
	}
	return fmt.Sprintf("  %s: %s (%.0f) %s\n", label, describe(c.Movie), c.Score, c.Reason)
}

func describe(mv film.Movie) string {
	if mv.Title == "" {
		return mv.ID
	}
	if mv.Year > 0 {
		return fmt.Sprintf("%s (%d)", mv.Title, mv.Year)
	}
	return mv.Title
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != "orbit-guide" {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are navigating Orbit, a gesture-driven film exploration engine.

Concepts:
- Entry movie: where the session started. enter_orbit begins a session.
- Directions: each swipe follows one similarity dimension.
  left = vibe (emotional tone), down = aesthetic (visual style),
  up = auteur (creative lineage), right = rewind one step in history.
- History: the linear path of movies visited. Rewinding moves a cursor;
  swiping forward from an earlier point branches, discarding the forward
  movies but keeping their connections in the constellation.
- Constellation: the full graph of visited movies and traversed
  connections, readable at orbit://constellation.

Use 'scout' to preview all three forward candidates before committing to a
swipe. Save movies the user responds to with 'toggle_saved'.
`

	return mcp.NewGetPromptResult(
		"orbit-guide",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}
