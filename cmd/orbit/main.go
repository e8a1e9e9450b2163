package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/rmax-ai/orbit/pkg/constellation"
	"github.com/rmax-ai/orbit/pkg/film"
	"github.com/rmax-ai/orbit/pkg/gesture"
	"github.com/rmax-ai/orbit/pkg/orbit"
	"github.com/rmax-ai/orbit/pkg/recommend"
	"github.com/rmax-ai/orbit/pkg/recommend/llm"
	"github.com/rmax-ai/orbit/pkg/store"
	redisstore "github.com/rmax-ai/orbit/pkg/store/redis"
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	savedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	readyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	posterStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 3).
			Align(lipgloss.Center)

	overlayStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 2)
)

// Messages

type gestureMsg struct {
	event gesture.Event
}

type swipeResultMsg struct {
	dir gesture.Direction
	ok  bool
}

type prefetchReadyMsg struct{}

type sessionStartedMsg struct {
	resumed bool
}

type flashMsg struct {
	text string
}

type clearFlashMsg struct{}

// statusFeedback translates session feedback into flash messages. It is the
// terminal stand-in for haptics.
type statusFeedback struct {
	send func(tea.Msg)
}

func (f *statusFeedback) OnSwipeComplete() { f.send(flashMsg{text: "✓"}) }
func (f *statusFeedback) OnEdgeOfHistoryReached() {
	f.send(flashMsg{text: "· edge of history ·"})
}
func (f *statusFeedback) OnSaved()            { f.send(flashMsg{text: savedStyle.Render("♥ saved")}) }
func (f *statusFeedback) OnHistoryNavigated() { f.send(flashMsg{text: "↩"}) }

type model struct {
	cfg        Config
	session    *orbit.Session
	recognizer *gesture.Recognizer
	catalog    []film.Movie
	db         *store.Store

	spinner spinner.Model
	width   int
	height  int
	flash   string
	err     error
}

// Init enters (or resumes) the orbit as a command so the prefetch fan-out,
// whose notify callback posts back to the program, cannot start before the
// program exists.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startSession)
}

func (m model) startSession() tea.Msg {
	if m.cfg.Resume && m.db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rec, err := m.db.LoadSession(ctx, m.cfg.SessionID)
		cancel()
		if err != nil {
			log.Printf("failed to load session %q: %v", m.cfg.SessionID, err)
		} else if rec != nil && rec.Apply(m.session) {
			return sessionStartedMsg{resumed: true}
		}
	}
	m.session.EnterOrbit(entryMovie(m.cfg, m.catalog))
	return sessionStartedMsg{}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case gestureMsg:
		return m.handleGesture(msg.event)

	case swipeResultMsg:
		if !msg.ok {
			m.flash = subtleStyle.Render(fmt.Sprintf("no %s connection found", recommend.DimensionLabel(msg.dir)))
		}
		return m, clearFlashLater()

	case prefetchReadyMsg:
		return m, nil

	case sessionStartedMsg:
		if msg.resumed {
			m.flash = readyStyle.Render("session resumed")
			return m, clearFlashLater()
		}
		return m, nil

	case flashMsg:
		m.flash = msg.text
		return m, clearFlashLater()

	case clearFlashMsg:
		m.flash = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recognizer.SetViewport(float64(msg.Width), float64(msg.Height))
		return m, nil
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.saveSession()
		return m, tea.Quit
	case "left":
		return m.swipe(gesture.DirectionLeft)
	case "down":
		return m.swipe(gesture.DirectionDown)
	case "up":
		return m.swipe(gesture.DirectionUp)
	case "right", "backspace":
		m.session.Swipe(context.Background(), gesture.DirectionRight)
		return m, nil
	case "s":
		if cur, ok := m.session.Current(); ok {
			m.session.ToggleSaved(cur.ID)
		}
		return m, nil
	case "c":
		m.session.SetShowConstellation(!m.session.ShowConstellation())
		return m, nil
	case "w":
		if err := m.writeSnapshot(); err != nil {
			m.flash = errorStyle.Render(fmt.Sprintf("save failed: %v", err))
		} else {
			m.flash = readyStyle.Render("session saved")
		}
		return m, clearFlashLater()
	}

	// Number keys jump to constellation nodes while the overlay is open.
	if m.session.ShowConstellation() && len(msg.String()) == 1 {
		if n := int(msg.String()[0] - '1'); n >= 0 && n <= 8 {
			m.session.JumpToNode(n)
		}
	}
	return m, nil
}

func (m model) handleMouse(msg tea.MouseMsg) {
	if msg.Button != tea.MouseButtonLeft && msg.Action != tea.MouseActionMotion {
		return
	}
	x, y := float64(msg.X), float64(msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		m.recognizer.PointerDown(x, y)
	case tea.MouseActionMotion:
		m.recognizer.PointerMove(x, y)
	case tea.MouseActionRelease:
		m.recognizer.PointerUp(x, y)
	}
}

func (m model) handleGesture(ev gesture.Event) (tea.Model, tea.Cmd) {
	switch ev.Kind {
	case gesture.KindSwipe:
		if ev.Direction == gesture.DirectionRight {
			m.session.Swipe(context.Background(), gesture.DirectionRight)
			return m, nil
		}
		return m.swipe(ev.Direction)
	case gesture.KindLongPress:
		if cur, ok := m.session.Current(); ok {
			m.session.ToggleSaved(cur.ID)
		}
	case gesture.KindPinchIn:
		m.session.SetShowConstellation(true)
	case gesture.KindPinchOut:
		m.session.SetShowConstellation(false)
	}
	return m, nil
}

// swipe commits from the prefetch cache when possible; otherwise the
// blocking lookup runs as a command behind the spinner.
func (m model) swipe(dir gesture.Direction) (tea.Model, tea.Cmd) {
	committed, pending := m.session.BeginSwipe(dir)
	if committed || !pending {
		return m, nil
	}
	session := m.session
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), orbit.DefaultPrefetchTimeout)
		defer cancel()
		return swipeResultMsg{dir: dir, ok: session.ResolveSwipe(ctx, dir)}
	}
}

func (m model) saveSession() {
	if m.db == nil || !m.session.IsActive() {
		return
	}
	if err := m.writeSnapshot(); err != nil {
		log.Printf("failed to save session on exit: %v", err)
	}
}

func (m model) writeSnapshot() error {
	if m.db == nil {
		return fmt.Errorf("no database configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.db.SaveSession(ctx, store.Snapshot(m.session, m.cfg.SessionID, m.cfg.SessionID))
}

// View

func (m model) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("error: %v", m.err))
	}
	cur, ok := m.session.Current()
	if !ok {
		return fmt.Sprintf("%s entering orbit…", m.spinner.View())
	}

	if m.session.ShowConstellation() {
		return m.constellationView()
	}

	poster := m.posterView(cur)
	hints := m.hintsView()
	breadcrumb := m.breadcrumbView()

	status := m.flash
	if m.session.IsTransitioning() {
		status = fmt.Sprintf("%s finding a %s connection…",
			m.spinner.View(), recommend.DimensionLabel(m.session.PendingDirection()))
	}

	help := subtleStyle.Render("←vibe ↓aesthetic ↑auteur →rewind · s save · c constellation · w write · q quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		poster,
		hints,
		breadcrumb,
		status,
		help,
	)
}

func (m model) posterView(cur film.Movie) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(cur.Title))
	if cur.Year > 0 {
		sb.WriteString(subtleStyle.Render(fmt.Sprintf(" (%d)", cur.Year)))
	}
	sb.WriteString("\n")
	if cur.Director != "" {
		sb.WriteString(fmt.Sprintf("dir. %s\n", cur.Director))
	}
	if cur.Cinematographer != "" {
		sb.WriteString(subtleStyle.Render(fmt.Sprintf("dop. %s\n", cur.Cinematographer)))
	}
	if len(cur.Genres) > 0 {
		sb.WriteString(dimStyle.Render(strings.Join(cur.Genres, " · ")))
	}

	for _, n := range m.session.GetSavedMovies() {
		if n.Movie.ID == cur.ID {
			sb.WriteString("\n" + savedStyle.Render("♥"))
			break
		}
	}

	style := posterStyle
	if cur.DominantColor != "" {
		style = style.BorderForeground(lipgloss.Color(cur.DominantColor))
	}
	return style.Render(sb.String())
}

func (m model) hintsView() string {
	hint := func(dir gesture.Direction, arrow, label string) string {
		if m.session.CandidateReady(dir) {
			return readyStyle.Render(arrow + label)
		}
		return dimStyle.Render(arrow + label)
	}
	return strings.Join([]string{
		hint(gesture.DirectionLeft, "←", "vibe"),
		hint(gesture.DirectionDown, "↓", "aesthetic"),
		hint(gesture.DirectionUp, "↑", "auteur"),
	}, "  ")
}

func (m model) breadcrumbView() string {
	history := m.session.History()
	idx := m.session.HistoryIndex()
	var parts []string
	for i, n := range history {
		title := n.Movie.Title
		if title == "" {
			title = n.Movie.ID
		}
		if i == idx {
			parts = append(parts, titleStyle.Render(title))
		} else {
			parts = append(parts, subtleStyle.Render(title))
		}
	}
	return strings.Join(parts, dimStyle.Render(" › "))
}

func (m model) constellationView() string {
	g := constellation.Project(m.session)
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("constellation") + "\n\n")
	for i, line := range g.Lines() {
		if i < 9 && !strings.HasPrefix(line, " ") {
			sb.WriteString(dimStyle.Render(fmt.Sprintf("%d ", i+1)))
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n" + subtleStyle.Render("1-9 jump · c close"))
	return overlayStyle.Render(sb.String())
}

// Commands

func clearFlashLater() tea.Cmd {
	return tea.Tick(1500*time.Millisecond, func(time.Time) tea.Msg {
		return clearFlashMsg{}
	})
}

// Wiring

func buildRecommender(cfg Config) (recommend.Recommender, []film.Movie) {
	var rec recommend.Recommender
	var catalog []film.Movie

	switch cfg.Recommender {
	case "llm":
		rec = llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	default:
		mock := recommend.NewMock(recommend.MockConfig{Seed: time.Now().UnixNano()})
		rec = mock
		catalog = mock.Catalog()
	}

	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		rec = recommend.NewCached(rec, redisstore.NewCandidateCache(client, 0))
	}
	return rec, catalog
}

func entryMovie(cfg Config, catalog []film.Movie) film.Movie {
	if cfg.MovieID != "" {
		for _, mv := range catalog {
			if mv.ID == cfg.MovieID {
				return mv
			}
		}
		return film.Movie{ID: cfg.MovieID}
	}
	if len(catalog) > 0 {
		return catalog[0]
	}
	return film.Movie{}
}

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "orbit: %v\n", err)
		os.Exit(1)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
				log.Printf("metrics server failed: %v", err)
			}
		}()
	}

	rec, catalog := buildRecommender(cfg)

	db, err := store.NewStore(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orbit: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	var p *tea.Program
	send := func(msg tea.Msg) {
		if p != nil {
			p.Send(msg)
		}
	}

	sessionOpts := []orbit.Option{
		orbit.WithNotify(func() { send(prefetchReadyMsg{}) }),
	}
	if cfg.PrefetchTimeout > 0 {
		sessionOpts = append(sessionOpts, orbit.WithPrefetchTimeout(cfg.PrefetchTimeout))
	}
	session := orbit.NewSession(rec, &statusFeedback{send: send}, sessionOpts...)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := model{
		cfg:     cfg,
		session: session,
		catalog: catalog,
		db:      db,
		spinner: sp,
	}
	m.recognizer = gesture.NewRecognizer(80, 24, func(ev gesture.Event) {
		send(gestureMsg{event: ev})
	})

	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "orbit: %v\n", err)
		os.Exit(1)
	}
}
