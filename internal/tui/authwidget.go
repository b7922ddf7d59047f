package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/councildeck/internal/auth"
)

// AuthUpdatedMsg is sent when a coordinator operation started by the widget completes.
// It is exported so that tests can inject it directly into AuthModel.Update.
type AuthUpdatedMsg struct {
	Op  string
	Err error
}

// AuthModel is the Copilot connection widget.
// Every coordinator call runs inside a tea.Cmd; the widget re-reads the
// coordinator snapshot when the call completes.
type AuthModel struct {
	coord   *auth.Coordinator
	snap    auth.Snapshot
	spinner spinner.Model
	// in-flight markers; set on key press so a second press is ignored
	// before the command goroutine has even started
	starting   bool
	verifying  bool
	loggingOut bool
	refreshing bool
	loaded     bool // first status query has completed
}

// NewAuthModel creates the widget around coord.
func NewAuthModel(coord *auth.Coordinator) AuthModel {
	return AuthModel{
		coord:      coord,
		snap:       coord.Snapshot(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		refreshing: true, // Init always starts with a status query
	}
}

// Init loads the current status, as a freshly mounted widget does.
func (m AuthModel) Init() tea.Cmd {
	return m.run("refresh", m.coord.RefreshStatus)
}

// Snapshot returns the coordinator state the widget last rendered.
func (m AuthModel) Snapshot() auth.Snapshot {
	return m.snap
}

// VerifyAvailable reports whether the verify control can be used right now.
func (m AuthModel) VerifyAvailable() bool {
	return m.snap.State == auth.StateAuthenticating && !m.verifying && !m.snap.Verifying
}

func (m AuthModel) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return AuthUpdatedMsg{Op: op, Err: fn(context.Background())}
	}
}

func (m *AuthModel) refresh() tea.Cmd {
	m.refreshing = true
	return m.run("refresh", m.coord.RefreshStatus)
}

// Update handles widget keys and coordinator completions.
func (m AuthModel) Update(msg tea.Msg) (AuthModel, tea.Cmd) {
	switch msg := msg.(type) {

	case AuthUpdatedMsg:
		switch msg.Op {
		case "refresh":
			m.refreshing = false
			m.loaded = true
		case "start":
			m.starting = false
		case "verify":
			m.verifying = false
		case "logout":
			m.loggingOut = false
		}
		m.snap = m.coord.Snapshot()
		return m, nil

	case spinner.TickMsg:
		if !m.verifying {
			// let the tick loop die until the next verification
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m AuthModel) updateKeys(msg tea.KeyMsg) (AuthModel, tea.Cmd) {
	if msg.String() == "ctrl+r" {
		if m.refreshing {
			return m, nil
		}
		return m, m.refresh()
	}

	switch m.snap.State {
	case auth.StateIdle:
		switch msg.String() {
		case "enter", "l":
			if m.starting {
				return m, nil
			}
			m.starting = true
			return m, m.run("start", m.coord.BeginAuth)
		}

	case auth.StateAuthenticating:
		switch msg.String() {
		case "enter", "v":
			if !m.VerifyAvailable() {
				return m, nil
			}
			m.verifying = true
			return m, tea.Batch(m.run("verify", m.coord.Verify), m.spinner.Tick)
		case "esc", "c":
			// local only: an outstanding verification keeps running
			_ = m.coord.Cancel()
			m.snap = m.coord.Snapshot()
			return m, nil
		}

	case auth.StateAuthenticated:
		switch msg.String() {
		case "o":
			if m.loggingOut {
				return m, nil
			}
			m.loggingOut = true
			return m, m.run("logout", m.coord.Logout)
		}
	}
	return m, nil
}

// View renders the widget.
func (m AuthModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(" GitHub Copilot") + "\n")
	sb.WriteString(separator)

	switch m.snap.State {
	case auth.StateAuthenticated:
		sb.WriteString(m.renderConnected())
	case auth.StateAuthenticating:
		sb.WriteString(m.renderDeviceFlow())
	default:
		sb.WriteString(m.renderIdle())
	}

	if m.snap.Err != "" {
		sb.WriteString("\n " + errorStyle.Render("Error: "+m.snap.Err) + "\n")
	}
	return sb.String()
}

func (m AuthModel) renderIdle() string {
	if !m.loaded && m.snap.Err == "" {
		return "\n Checking Copilot status...\n\n"
	}
	footer := " l: connect GitHub Copilot   ctrl+r: refresh"
	if m.starting {
		footer = " Requesting device code..."
	}
	return "\n Not connected.\n\n" + hintStyle.Render(footer) + "\n"
}

func (m AuthModel) renderDeviceFlow() string {
	flow := m.snap.Flow
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf(" Visit:  %s\n", flow.VerificationURI))
	sb.WriteString(fmt.Sprintf(" Code:   %s\n", codeStyle.Render(flow.UserCode)))
	if flow.ExpiresIn > 0 {
		sb.WriteString(hintStyle.Render(fmt.Sprintf(" The code expires in %d minutes.", (flow.ExpiresIn+59)/60)) + "\n")
	}
	sb.WriteString("\n")
	if m.verifying || m.snap.Verifying {
		sb.WriteString(fmt.Sprintf(" %s Waiting for authorization...\n\n", m.spinner.View()))
		sb.WriteString(hintStyle.Render(" esc: cancel") + "\n")
	} else {
		sb.WriteString(hintStyle.Render(" v: I've authorized   esc: cancel") + "\n")
	}
	return sb.String()
}

func (m AuthModel) renderConnected() string {
	models := m.snap.Status.AvailableModels
	var sb strings.Builder
	sb.WriteString("\n " + connectedStyle.Render("● Connected") + "\n")
	sb.WriteString(fmt.Sprintf(" %d models available\n", len(models)))
	for i, md := range models {
		if i == 5 {
			sb.WriteString(fmt.Sprintf("   … and %d more\n", len(models)-5))
			break
		}
		sb.WriteString("   " + md.Name + "\n")
	}
	sb.WriteString("\n")
	footer := " o: disconnect   ctrl+r: refresh"
	if m.loggingOut {
		footer = " Disconnecting..."
	}
	sb.WriteString(hintStyle.Render(footer) + "\n")
	return sb.String()
}
