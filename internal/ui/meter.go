// Package ui renders a live playback meter. It is a consumer of the stage
// chain, not part of it: a registered stage forwards per-buffer levels as
// messages and the model animates them.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/rightwaitforyou/Tarsos/internal/source"
)

const meterFPS = 30

// LevelMsg carries one measured buffer level from the pipeline to the UI.
type LevelMsg struct {
	SPL     float64 // dB SPL-style level of the buffer
	Silence bool
	Pos     time.Duration // stream position after the buffer
}

// DoneMsg reports the end of the run.
type DoneMsg struct {
	Err error
}

type tickMsg time.Time

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	artistStyle  = lipgloss.NewStyle().Faint(true)
	silenceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	levelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("120"))
	dbStyle      = lipgloss.NewStyle().Faint(true)
)

// Model is the Bubbletea model for the live meter.
type Model struct {
	meta     source.Metadata
	duration time.Duration
	bar      progress.Model

	spring harmonica.Spring
	level  float64 // sprung meter position, 0..1
	vel    float64
	target float64

	spl     float64
	silence bool
	pos     time.Duration
	width   int
	err     error
	done    bool
}

// New builds a meter for the given track.
func New(meta source.Metadata, duration time.Duration) Model {
	return Model{
		meta:     meta,
		duration: duration,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spring:   harmonica.NewSpring(harmonica.FPS(meterFPS), 8.0, 0.3),
		width:    72,
	}
}

// Err returns the terminal failure forwarded by the pipeline, if any.
func (m Model) Err() error { return m.err }

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/meterFPS, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LevelMsg:
		m.spl = msg.SPL
		m.silence = msg.Silence
		m.pos = msg.Pos
		m.target = splToLevel(msg.SPL)
		return m, nil

	case DoneMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case tickMsg:
		m.level, m.vel = m.spring.Update(m.level, m.vel, m.target)
		return m, tickCmd()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.done = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = barWidth(msg.Width)
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	if m.done {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n  " + titleStyle.Render(m.meta.Title))
	if m.meta.Artist != "" {
		sb.WriteString("  " + artistStyle.Render(m.meta.Artist))
	}
	sb.WriteString("\n\n")

	sb.WriteString("  " + levelStyle.Render(renderMeter(m.level, barWidth(m.width))))
	sb.WriteString(dbStyle.Render(fmt.Sprintf("  %6.1f dB", m.spl)))
	if m.silence {
		sb.WriteString(silenceStyle.Render("  silence"))
	}
	sb.WriteString("\n\n")

	if m.duration > 0 {
		ratio := float64(m.pos) / float64(m.duration)
		if ratio > 1 {
			ratio = 1
		}
		sb.WriteString("  " + m.bar.ViewAs(ratio))
		sb.WriteString(fmt.Sprintf("  %s / %s", formatDuration(m.pos), formatDuration(m.duration)))
	} else {
		sb.WriteString("  " + formatDuration(m.pos))
	}
	sb.WriteString("\n")

	return sb.String()
}

// splToLevel maps a dB level onto a 0..1 meter deflection. The logarithmic
// scale keeps quiet passages visible without pegging loud ones.
func splToLevel(spl float64) float64 {
	const dbFloor = -60.0
	if spl <= dbFloor {
		return 0
	}
	level := (spl - dbFloor) / -dbFloor
	if level > 1 {
		level = 1
	}
	return level
}

func renderMeter(level float64, width int) string {
	filled := int(level * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("─", width-filled)
}

func barWidth(total int) int {
	w := total - 30
	if w < 10 {
		w = 10
	}
	return w
}

// formatDuration formats a duration as m:ss.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
