package tui

import (
	"fmt"
	"strings"

	"github.com/waabox/councildeck/internal/domain"
)

const providerColumn = 12

// ModelListModel is the cursor list in the catalog panel. It is a value type;
// moves return an updated copy.
type ModelListModel struct {
	models []domain.ModelDescriptor
	cursor int
}

func NewModelListModel(models []domain.ModelDescriptor) ModelListModel {
	return ModelListModel{models: models}
}

// MoveDown and MoveUp clamp at the ends of the list.
func (m ModelListModel) MoveDown() ModelListModel { return m.move(1) }

func (m ModelListModel) MoveUp() ModelListModel { return m.move(-1) }

func (m ModelListModel) move(delta int) ModelListModel {
	next := m.cursor + delta
	if next < 0 || next >= len(m.models) {
		return m
	}
	m.cursor = next
	return m
}

// Select returns a copy with the cursor on the model with the given id.
// The cursor stays where it was when id is not listed.
func (m ModelListModel) Select(id string) ModelListModel {
	for i, md := range m.models {
		if md.ID == id {
			m.cursor = i
			break
		}
	}
	return m
}

func (m ModelListModel) SelectedIndex() int {
	return m.cursor
}

// SelectedModel is the zero ModelDescriptor for an empty list.
func (m ModelListModel) SelectedModel() domain.ModelDescriptor {
	if len(m.models) == 0 {
		return domain.ModelDescriptor{}
	}
	return m.models[m.cursor]
}

func (m ModelListModel) Models() []domain.ModelDescriptor {
	return m.models
}

// View renders one row per model; ids in council get a star.
func (m ModelListModel) View(council map[string]bool) string {
	if len(m.models) == 0 {
		return "No models available."
	}
	var sb strings.Builder
	for i, md := range m.models {
		cursor, star := "  ", " "
		if i == m.cursor {
			cursor = "> "
		}
		if council[md.ID] {
			star = "★"
		}
		fmt.Fprintf(&sb, "%s%s %-*s %s\n", cursor, star, providerColumn, truncate(md.Provider, providerColumn), md.Name)
	}
	return sb.String()
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
