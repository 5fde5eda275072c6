// Package tui implements the optional live dashboard for "memorizer watch
// --tui": a scrolling event log plus per-kind counters for the watched
// directories.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leefowlercu/memorizer/internal/watcher"
)

const maxLogLines = 200

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	pathStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	kindStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
)

type eventMsg watcher.FileEvent

type eventsClosedMsg struct{}

type model struct {
	watched   []string
	lines     []string
	counts    map[watcher.EventKind]int
	events    <-chan watcher.FileEvent
	reindexFn func(string)
	log       viewport.Model
	ready     bool
}

func waitForEvent(events <-chan watcher.FileEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight := 3
		footerHeight := 2
		logHeight := msg.Height - headerHeight - footerHeight
		if logHeight < 3 {
			logHeight = 3
		}
		if !m.ready {
			m.log = viewport.New(msg.Width, logHeight)
			m.ready = true
		} else {
			m.log.Width = msg.Width
			m.log.Height = logHeight
		}
		m.log.SetContent(strings.Join(m.lines, "\n"))
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	case eventMsg:
		ev := watcher.FileEvent(msg)
		m.counts[ev.Kind]++
		line := fmt.Sprintf("%s  %s  %s",
			ev.Timestamp.Format("15:04:05"),
			kindStyle.Render(fmt.Sprintf("%-16s", ev.Kind.String())),
			pathStyle.Render(ev.Path))
		m.lines = append(m.lines, line)
		if len(m.lines) > maxLogLines {
			m.lines = m.lines[len(m.lines)-maxLogLines:]
		}
		if m.ready {
			m.log.SetContent(strings.Join(m.lines, "\n"))
			m.log.GotoBottom()
		}
		m.reindexFn(ev.Path)
		return m, waitForEvent(m.events)
	case eventsClosedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("memorizer watch"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("watching: %s\n\n", strings.Join(m.watched, ", ")))

	if m.ready {
		b.WriteString(m.log.View())
		b.WriteString("\n")
	}

	b.WriteString(footerStyle.Render(fmt.Sprintf(
		"created=%d modified=%d deleted=%d  (q to quit)",
		m.counts[watcher.Created], m.counts[watcher.Modified], m.counts[watcher.Deleted])))
	return b.String()
}

// RunWatchDashboard drives a bubbletea program that renders incoming
// watcher.FileEvents and invokes reindexFn(path) for each one, until ctx is
// canceled or the event channel closes.
func RunWatchDashboard(ctx context.Context, events <-chan watcher.FileEvent, reindexFn func(string), watched []string) error {
	m := model{
		watched:   watched,
		counts:    make(map[watcher.EventKind]int),
		events:    events,
		reindexFn: reindexFn,
	}

	p := tea.NewProgram(m)

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err := p.Run()
	if err != nil {
		return fmt.Errorf("running watch dashboard; %w", err)
	}
	return nil
}
