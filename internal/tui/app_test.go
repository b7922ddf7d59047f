package tui_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/councildeck/internal/auth"
	"github.com/waabox/councildeck/internal/domain"
	"github.com/waabox/councildeck/internal/tui"
)

// fakeBackend satisfies auth.Service and tui.Catalog for TUI tests.
type fakeBackend struct {
	status      domain.AuthStatus
	flow        domain.DeviceFlow
	poll        domain.PollResult
	logoutErr   error
	catalogErr  error
	startCalls  int
	pollCalls   int
	logoutCalls int
}

func (f *fakeBackend) GetStatus(_ context.Context) (domain.AuthStatus, error) {
	return f.status, nil
}
func (f *fakeBackend) StartAuth(_ context.Context) (domain.DeviceFlow, error) {
	f.startCalls++
	return f.flow, nil
}
func (f *fakeBackend) PollToken(_ context.Context, _ string) (domain.PollResult, error) {
	f.pollCalls++
	return f.poll, nil
}
func (f *fakeBackend) Logout(_ context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}
func (f *fakeBackend) GetProviders(_ context.Context) ([]domain.Provider, error) {
	return []domain.Provider{
		{Name: "openrouter", Available: false},
		{Name: "copilot", Available: true, Models: []string{"copilot/gpt-4o", "copilot/o4-mini"}},
	}, f.catalogErr
}
func (f *fakeBackend) GetModels(_ context.Context) ([]domain.ModelDescriptor, error) {
	return []domain.ModelDescriptor{
		domain.ParseModelID("copilot/gpt-4o"),
		domain.ParseModelID("copilot/o4-mini"),
	}, f.catalogErr
}
func (f *fakeBackend) GetCouncilConfig(_ context.Context) (domain.CouncilConfig, error) {
	return domain.CouncilConfig{
		"council_models": []any{"copilot/o4-mini"},
		"chairman_model": "copilot/gpt-4o",
	}, f.catalogErr
}

var deviceFlow = domain.DeviceFlow{
	DeviceCode:      "D",
	UserCode:        "ABC-123",
	VerificationURI: "https://example/activate",
	ExpiresIn:       900,
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send delivers msg and runs the resulting command once, feeding an
// AuthUpdatedMsg or CatalogLoadedMsg result back into the model.
func send(t *testing.T, m tui.AppModel, msg tea.Msg) tui.AppModel {
	t.Helper()
	updated, cmd := m.Update(msg)
	m = updated.(tui.AppModel)
	for _, out := range runCmd(cmd) {
		switch out.(type) {
		case tui.AuthUpdatedMsg, tui.CatalogLoadedMsg:
			updated, _ = m.Update(out)
			m = updated.(tui.AppModel)
		}
	}
	return m
}

// runCmd executes cmd, expanding batches, and returns the produced messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func newApp(t *testing.T, backend *fakeBackend) tui.AppModel {
	t.Helper()
	m := tui.NewAppModel(auth.NewCoordinator(backend), backend)
	for _, out := range runCmd(m.Init()) {
		updated, _ := m.Update(out)
		m = updated.(tui.AppModel)
	}
	return m
}

func TestApp_InitialLoad_ShowsNotConnected(t *testing.T) {
	m := newApp(t, &fakeBackend{})

	view := m.View()
	if !strings.Contains(view, "Not connected") {
		t.Errorf("expected idle widget, got:\n%s", view)
	}
}

func TestApp_BeforeFirstStatus_ShowsChecking(t *testing.T) {
	backend := &fakeBackend{}
	m := tui.NewAppModel(auth.NewCoordinator(backend), backend)

	if !strings.Contains(m.View(), "Checking Copilot status") {
		t.Errorf("expected checking message, got:\n%s", m.View())
	}
}

func TestApp_ConnectKey_ShowsDeviceCode(t *testing.T) {
	m := newApp(t, &fakeBackend{flow: deviceFlow})

	m = send(t, m, key("l"))

	view := m.View()
	if !strings.Contains(view, "ABC-123") || !strings.Contains(view, "https://example/activate") {
		t.Errorf("expected user code and verification URI in view, got:\n%s", view)
	}
	if !strings.Contains(view, "expires in 15 minutes") {
		t.Errorf("expected expiry hint, got:\n%s", view)
	}
}

func TestApp_ConnectKey_IgnoredWhileStartInFlight(t *testing.T) {
	backend := &fakeBackend{flow: deviceFlow}
	m := newApp(t, backend)

	updated, first := m.Update(key("l"))
	_, second := updated.(tui.AppModel).Update(key("l"))
	if first == nil {
		t.Fatal("expected a command for the first press")
	}
	if second != nil {
		t.Error("expected the second press to be ignored while the first is in flight")
	}
}

func TestApp_Verify_DisablesControlWhileOutstanding(t *testing.T) {
	backend := &fakeBackend{flow: deviceFlow, poll: domain.PollResult{Success: false, Message: "expired"}}
	m := send(t, newApp(t, backend), key("l"))

	updated, cmd := m.Update(key("v"))
	m = updated.(tui.AppModel)
	if cmd == nil {
		t.Fatal("expected verify command")
	}
	if m.Auth().VerifyAvailable() {
		t.Error("verify control must be unavailable while a verification is outstanding")
	}
	if !strings.Contains(m.View(), "Waiting for authorization") {
		t.Errorf("expected waiting message, got:\n%s", m.View())
	}
	if _, again := m.Update(key("v")); again != nil {
		t.Error("expected re-entrant verify to be ignored")
	}

	for _, out := range runCmd(cmd) {
		if _, ok := out.(tui.AuthUpdatedMsg); ok {
			updated, _ = m.Update(out)
			m = updated.(tui.AppModel)
		}
	}
	if backend.pollCalls != 1 {
		t.Errorf("expected exactly one poll, got %d", backend.pollCalls)
	}
	if !m.Auth().VerifyAvailable() {
		t.Error("verify control should be available again after the poll completed")
	}
	if !strings.Contains(m.View(), "Error: expired") {
		t.Errorf("expected rejection message, got:\n%s", m.View())
	}
}

func TestApp_VerifySuccess_ShowsConnected(t *testing.T) {
	backend := &fakeBackend{flow: deviceFlow, poll: domain.PollResult{Success: true}}
	m := send(t, newApp(t, backend), key("l"))
	backend.status = domain.AuthStatus{Authenticated: true, AvailableModels: []domain.ModelDescriptor{
		domain.ParseModelID("copilot/gpt-4o"),
		domain.ParseModelID("copilot/o3"),
	}}

	m = send(t, m, key("enter"))

	view := m.View()
	if !strings.Contains(view, "Connected") || !strings.Contains(view, "2 models available") {
		t.Errorf("expected connected widget, got:\n%s", view)
	}
	if m.Auth().Snapshot().State != auth.StateAuthenticated {
		t.Errorf("expected authenticated state, got %s", m.Auth().Snapshot().State)
	}
}

func TestApp_EscCancelsDeviceFlow(t *testing.T) {
	m := send(t, newApp(t, &fakeBackend{flow: deviceFlow}), key("l"))

	m = send(t, m, key("esc"))

	view := m.View()
	if strings.Contains(view, "ABC-123") {
		t.Errorf("expected device code to be gone after esc, got:\n%s", view)
	}
	if !strings.Contains(view, "Not connected") {
		t.Errorf("expected idle widget after cancel, got:\n%s", view)
	}
}

func TestApp_LogoutFailure_StaysConnected(t *testing.T) {
	backend := &fakeBackend{
		status:    domain.AuthStatus{Authenticated: true, AvailableModels: []domain.ModelDescriptor{domain.ParseModelID("copilot/gpt-4o")}},
		logoutErr: errors.New("connection refused"),
	}
	m := newApp(t, backend)

	m = send(t, m, key("o"))

	view := m.View()
	if !strings.Contains(view, "Connected") {
		t.Errorf("expected widget to stay connected, got:\n%s", view)
	}
	if !strings.Contains(view, "Logout failed") {
		t.Errorf("expected logout error overlay, got:\n%s", view)
	}
	if backend.logoutCalls != 1 {
		t.Errorf("expected one logout call, got %d", backend.logoutCalls)
	}
}

func TestApp_Logout_ReturnsToNotConnected(t *testing.T) {
	backend := &fakeBackend{status: domain.AuthStatus{Authenticated: true}}
	m := newApp(t, backend)

	m = send(t, m, key("o"))

	if !strings.Contains(m.View(), "Not connected") {
		t.Errorf("expected idle widget after logout, got:\n%s", m.View())
	}
}

func TestApp_TabShowsCatalog(t *testing.T) {
	m := newApp(t, &fakeBackend{})

	m = send(t, m, key("tab"))

	view := m.View()
	for _, want := range []string{"Providers", "openrouter", "unavailable", "2 models", "Chairman: copilot/gpt-4o", "1 members"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in catalog view, got:\n%s", want, view)
		}
	}
}

func TestApp_CatalogError_ShowsRetryHint(t *testing.T) {
	m := newApp(t, &fakeBackend{catalogErr: errors.New("backend down")})

	m = send(t, m, key("tab"))

	if !strings.Contains(m.View(), "backend down") {
		t.Errorf("expected catalog error, got:\n%s", m.View())
	}
}

func TestApp_CatalogReloadPreservesSelection(t *testing.T) {
	m := send(t, newApp(t, &fakeBackend{}), key("tab"))
	m = send(t, m, key("down"))

	updated, _ := m.Update(tui.CatalogLoadedMsg{
		Models: []domain.ModelDescriptor{
			domain.ParseModelID("copilot/claude-sonnet-4"),
			domain.ParseModelID("copilot/gpt-4o"),
			domain.ParseModelID("copilot/o4-mini"),
		},
	})
	m = updated.(tui.AppModel)

	if !strings.Contains(m.View(), ">   copilot      o4-mini") {
		t.Errorf("expected o4-mini to stay selected after reload, got:\n%s", m.View())
	}
}

func TestApp_StatusChangedReloadsCatalog(t *testing.T) {
	m := newApp(t, &fakeBackend{})

	_, cmd := m.Update(tui.StatusChangedMsg{Status: domain.AuthStatus{Authenticated: true}})
	if cmd == nil {
		t.Fatal("expected catalog reload command")
	}
	if _, ok := cmd().(tui.CatalogLoadedMsg); !ok {
		t.Error("expected the reload command to produce CatalogLoadedMsg")
	}
}

func TestApp_QuitKey(t *testing.T) {
	m := newApp(t, &fakeBackend{})
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
