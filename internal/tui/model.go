package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

// Tab identifies which data view is active.
type Tab int

const (
	TabSubscriptions Tab = iota
	TabEvents
)

// defaultRefreshInterval is how often the dashboard re-polls the
// Source in the background, independent of manual refresh.
const defaultRefreshInterval = 3 * time.Second

// eventFeedLimit bounds how many recent protection events a single
// poll fetches; the feed shows the newest of these.
const eventFeedLimit = 200

// refreshTickMsg drives the periodic background poll.
type refreshTickMsg struct{}

// refreshResultMsg carries the outcome of one poll.
type refreshResultMsg struct {
	subscriptions []*domain.Subscription
	scores        map[string]int
	events        []*domain.ProtectionEvent
	err           error
	at            time.Time
}

// Model is the top-level bubbletea model for the operator dashboard.
type Model struct {
	source Source
	theme  Theme
	keys   KeyMap

	width  int
	height int

	activeTab Tab
	cursor    int

	subscriptions []*domain.Subscription
	scores        map[string]int
	events        []*domain.ProtectionEvent

	lastRefresh time.Time
	lastErr     error
}

// NewModel creates a Model polling the given Source.
func NewModel(source Source) Model {
	return Model{
		source: source,
		theme:  DefaultTheme,
		keys:   DefaultKeyMap,
		scores: make(map[string]int),
	}
}

// Init implements tea.Model. Kicks off the first poll and schedules the
// recurring background tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(defaultRefreshInterval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

// refreshCmd polls the Source in the background so a slow store never
// blocks the render loop.
func (m Model) refreshCmd() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		subs, err := source.Subscriptions(ctx)
		if err != nil {
			return refreshResultMsg{err: err, at: time.Now()}
		}
		scoreRows, err := source.TrustScores(ctx)
		if err != nil {
			return refreshResultMsg{err: err, at: time.Now()}
		}
		events, err := source.RecentEvents(ctx, eventFeedLimit)
		if err != nil {
			return refreshResultMsg{err: err, at: time.Now()}
		}

		scores := make(map[string]int, len(scoreRows))
		for _, s := range scoreRows {
			scores[s.SubscriberID] = s.Score
		}

		return refreshResultMsg{subscriptions: subs, scores: scores, events: events, at: time.Now()}
	}
}

// Update implements tea.Model.
func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(message, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(message, m.keys.TabSubscriptions):
			m.activeTab = TabSubscriptions
			m.cursor = 0

		case key.Matches(message, m.keys.TabEvents):
			m.activeTab = TabEvents
			m.cursor = 0

		case key.Matches(message, m.keys.Refresh):
			return m, m.refreshCmd()

		case key.Matches(message, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(message, m.keys.Down):
			if m.cursor < m.rowCount()-1 {
				m.cursor++
			}

		case key.Matches(message, m.keys.PageUp):
			m.cursor -= m.visibleRows()
			if m.cursor < 0 {
				m.cursor = 0
			}

		case key.Matches(message, m.keys.PageDown):
			m.cursor += m.visibleRows()
			if max := m.rowCount() - 1; m.cursor > max {
				m.cursor = max
			}
		}

	case tea.WindowSizeMsg:
		m.width = message.Width
		m.height = message.Height

	case refreshTickMsg:
		return m, tea.Batch(m.refreshCmd(), tickCmd())

	case refreshResultMsg:
		m.lastErr = message.err
		if message.err == nil {
			m.subscriptions = message.subscriptions
			m.scores = message.scores
			m.events = message.events
			m.lastRefresh = message.at
			if m.cursor >= m.rowCount() {
				m.cursor = m.rowCount() - 1
			}
			if m.cursor < 0 {
				m.cursor = 0
			}
		}
	}

	return m, nil
}

func (m Model) rowCount() int {
	if m.activeTab == TabSubscriptions {
		return len(m.subscriptions)
	}
	return len(m.events)
}

// visibleRows is how many data rows fit below the header and above the
// footer help line.
func (m Model) visibleRows() int {
	visible := m.height - 4
	if visible < 1 {
		return 1
	}
	return visible
}

func trustFor(scores map[string]int, subscriberID string) (int, bool) {
	score, ok := scores[subscriberID]
	return score, ok
}
