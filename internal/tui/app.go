package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/councildeck/internal/auth"
	"github.com/waabox/councildeck/internal/domain"
)

// Catalog is the read-only part of the council backend shown in the catalog panel.
// *council.Client satisfies it.
type Catalog interface {
	GetProviders(ctx context.Context) ([]domain.Provider, error)
	GetModels(ctx context.Context) ([]domain.ModelDescriptor, error)
	GetCouncilConfig(ctx context.Context) (domain.CouncilConfig, error)
}

// CatalogLoadedMsg is sent when providers, models and council config have been fetched.
// It is exported so that tests can inject it directly into AppModel.Update.
type CatalogLoadedMsg struct {
	Providers []domain.Provider
	Models    []domain.ModelDescriptor
	Council   domain.CouncilConfig
	Err       error
}

// StatusChangedMsg is delivered by the coordinator observer whenever the auth status is replaced.
type StatusChangedMsg struct {
	Status domain.AuthStatus
}

// viewState indicates which panel has focus.
type viewState int

const (
	viewAuth viewState = iota
	viewCatalog
)

// AppModel is the root Bubbletea model for councildeck.
type AppModel struct {
	auth    AuthModel
	catalog Catalog
	view    viewState
	// Catalog panel
	providers      []domain.Provider
	models         ModelListModel
	council        domain.CouncilConfig
	catalogLoading bool
	catalogErr     error
	width          int
	height         int
}

// NewAppModel creates the root application model.
func NewAppModel(coord *auth.Coordinator, catalog Catalog) AppModel {
	return AppModel{
		auth:           NewAuthModel(coord),
		catalog:        catalog,
		models:         NewModelListModel(nil),
		catalogLoading: true,
	}
}

// Init triggers the initial status query and catalog load.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.auth.Init(), m.loadCatalog())
}

func (m AppModel) loadCatalog() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		providers, err := m.catalog.GetProviders(ctx)
		if err != nil {
			return CatalogLoadedMsg{Err: err}
		}
		models, err := m.catalog.GetModels(ctx)
		if err != nil {
			return CatalogLoadedMsg{Err: err}
		}
		council, err := m.catalog.GetCouncilConfig(ctx)
		if err != nil {
			return CatalogLoadedMsg{Err: err}
		}
		return CatalogLoadedMsg{Providers: providers, Models: models, Council: council}
	}
}

// Auth returns the authentication widget.
func (m AppModel) Auth() AuthModel {
	return m.auth
}

// Update handles all incoming messages and key events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case CatalogLoadedMsg:
		m.catalogLoading = false
		if msg.Err != nil {
			m.catalogErr = msg.Err
			return m, nil
		}
		m.catalogErr = nil
		m.providers = msg.Providers
		m.council = msg.Council
		selected := m.models.SelectedModel().ID
		m.models = NewModelListModel(msg.Models).Select(selected)
		return m, nil

	case StatusChangedMsg:
		// provider availability follows the Copilot status
		m.catalogLoading = true
		return m, m.loadCatalog()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			if m.view == viewAuth {
				m.view = viewCatalog
			} else {
				m.view = viewAuth
			}
			return m, nil
		}
		if m.view == viewCatalog {
			return m.updateCatalog(msg)
		}
	}

	var cmd tea.Cmd
	m.auth, cmd = m.auth.Update(msg)
	return m, cmd
}

func (m AppModel) updateCatalog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down":
		m.models = m.models.MoveDown()
	case "up":
		m.models = m.models.MoveUp()
	case "ctrl+r":
		m.catalogLoading = true
		return m, m.loadCatalog()
	case "esc":
		m.view = viewAuth
	}
	return m, nil
}

// View renders the full TUI.
func (m AppModel) View() string {
	header := " councildeck | " + m.tabs() + "\n"
	if m.view == viewCatalog {
		return header + separator + m.renderCatalog()
	}
	footer := " tab: catalog   q: quit\n"
	return header + separator + m.auth.View() + separator + footer
}

func (m AppModel) tabs() string {
	if m.view == viewCatalog {
		return "copilot  [catalog]"
	}
	return "[copilot]  catalog"
}

func (m AppModel) renderCatalog() string {
	footer := " ↑/↓: navigate   ctrl+r: reload   tab: copilot   q: quit\n"
	if m.catalogLoading && len(m.models.Models()) == 0 {
		return "Loading catalog...\n"
	}
	if m.catalogErr != nil {
		return fmt.Sprintf("Error: %v\n\nPress 'ctrl+r' to retry or 'q' to quit.\n", m.catalogErr)
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(" Providers") + "\n")
	for _, p := range m.providers {
		state := errorStyle.Render("unavailable")
		if p.Available {
			state = connectedStyle.Render(fmt.Sprintf("%d models", len(p.Models)))
		}
		sb.WriteString(fmt.Sprintf("  %-12s %s\n", truncate(p.Name, 12), state))
	}
	sb.WriteString("\n" + titleStyle.Render(" Models") + "\n")

	inCouncil := make(map[string]bool)
	for _, id := range m.council.CouncilModels() {
		inCouncil[id] = true
	}
	sb.WriteString(m.models.View(inCouncil) + "\n")

	if chairman := m.council.ChairmanModel(); chairman != "" {
		sb.WriteString(fmt.Sprintf(" Chairman: %s\n", chairman))
	}
	sb.WriteString(fmt.Sprintf(" Council:  %d members (★)\n", len(m.council.CouncilModels())))
	return sb.String() + separator + footer
}

// NewProgram creates the Bubbletea program for model.
func NewProgram(model AppModel) *tea.Program {
	return tea.NewProgram(model, tea.WithAltScreen())
}
