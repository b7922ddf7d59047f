package council

import (
	"context"
	"net/http"

	"github.com/waabox/councildeck/internal/domain"
)

// GetStatus returns the Copilot authentication status.
func (c *Client) GetStatus(ctx context.Context) (domain.AuthStatus, error) {
	var raw struct {
		Authenticated   bool     `json:"authenticated"`
		AvailableModels []string `json:"available_models"`
	}
	if err := c.do(ctx, "status", http.MethodGet, "/api/copilot/status", nil, &raw); err != nil {
		return domain.AuthStatus{}, err
	}
	models := make([]domain.ModelDescriptor, len(raw.AvailableModels))
	for i, id := range raw.AvailableModels {
		models[i] = domain.ParseModelID(id)
	}
	return domain.AuthStatus{Authenticated: raw.Authenticated, AvailableModels: models}, nil
}

// StartAuth starts a device authorization flow on the backend.
// The returned DeviceFlow.UserCode must be shown to the user along with VerificationURI.
func (c *Client) StartAuth(ctx context.Context) (domain.DeviceFlow, error) {
	var raw struct {
		DeviceCode      string `json:"device_code"`
		UserCode        string `json:"user_code"`
		VerificationURI string `json:"verification_uri"`
		ExpiresIn       int    `json:"expires_in"`
		Interval        int    `json:"interval"`
	}
	if err := c.do(ctx, "start", http.MethodPost, "/api/copilot/auth", nil, &raw); err != nil {
		return domain.DeviceFlow{}, err
	}
	return domain.DeviceFlow{
		DeviceCode:      raw.DeviceCode,
		UserCode:        raw.UserCode,
		VerificationURI: raw.VerificationURI,
		ExpiresIn:       raw.ExpiresIn,
		Interval:        raw.Interval,
	}, nil
}

// PollToken submits deviceCode and waits for the outcome.
// The backend holds the request open until the user authorizes or its own timeout elapses.
func (c *Client) PollToken(ctx context.Context, deviceCode string) (domain.PollResult, error) {
	reqBody := struct {
		DeviceCode string `json:"device_code"`
	}{DeviceCode: deviceCode}
	var raw struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, "poll", http.MethodPost, "/api/copilot/token", reqBody, &raw); err != nil {
		return domain.PollResult{}, err
	}
	return domain.PollResult{Success: raw.Success, Message: raw.Message}, nil
}

// Logout clears the backend's stored Copilot credentials.
// Any 2xx response is success; its body is ignored.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "logout", http.MethodPost, "/api/copilot/logout", nil, nil)
}

// GetProviders lists every registered provider, in backend order.
func (c *Client) GetProviders(ctx context.Context) ([]domain.Provider, error) {
	var raw []struct {
		Name      string   `json:"name"`
		Available bool     `json:"available"`
		Models    []string `json:"models"`
	}
	if err := c.do(ctx, "providers", http.MethodGet, "/api/providers", nil, &raw); err != nil {
		return nil, err
	}
	providers := make([]domain.Provider, len(raw))
	for i, p := range raw {
		providers[i] = domain.Provider{Name: p.Name, Available: p.Available, Models: p.Models}
	}
	return providers, nil
}

// GetModels lists every model offered by an available provider, in backend order.
func (c *Client) GetModels(ctx context.Context) ([]domain.ModelDescriptor, error) {
	var raw []struct {
		ID       string `json:"id"`
		Provider string `json:"provider"`
		Name     string `json:"name"`
	}
	if err := c.do(ctx, "models", http.MethodGet, "/api/models", nil, &raw); err != nil {
		return nil, err
	}
	models := make([]domain.ModelDescriptor, len(raw))
	for i, m := range raw {
		models[i] = domain.ModelDescriptor{ID: m.ID, Provider: m.Provider, Name: m.Name}
	}
	return models, nil
}

// GetCouncilConfig returns the council configuration as an opaque object.
func (c *Client) GetCouncilConfig(ctx context.Context) (domain.CouncilConfig, error) {
	var raw map[string]any
	if err := c.do(ctx, "council", http.MethodGet, "/api/council/config", nil, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return domain.CouncilConfig(raw), nil
}
