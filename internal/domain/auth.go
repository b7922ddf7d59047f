package domain

import "strings"

// ModelDescriptor identifies a model exposed by the council backend.
// ID is the fully qualified identifier used in API calls (e.g. "copilot/gpt-4o").
type ModelDescriptor struct {
	ID       string `json:"id" yaml:"id"`
	Provider string `json:"provider" yaml:"provider"`
	Name     string `json:"name" yaml:"name"`
}

// ParseModelID builds a ModelDescriptor from a fully qualified model id.
// The provider is the part before the first '/'; ids without a '/' have no provider.
func ParseModelID(id string) ModelDescriptor {
	provider, name, ok := strings.Cut(id, "/")
	if !ok {
		return ModelDescriptor{ID: id, Name: id}
	}
	return ModelDescriptor{ID: id, Provider: provider, Name: name}
}

// AuthStatus is the Copilot authentication status reported by the backend.
// A new AuthStatus always replaces the previous one; the two are never merged.
type AuthStatus struct {
	Authenticated   bool              `json:"authenticated" yaml:"authenticated"`
	AvailableModels []ModelDescriptor `json:"available_models" yaml:"available_models"`
}

// DeviceFlow holds the state of an in-progress device authorization.
type DeviceFlow struct {
	DeviceCode      string `json:"device_code" yaml:"device_code"`
	UserCode        string `json:"user_code" yaml:"user_code"`
	VerificationURI string `json:"verification_uri" yaml:"verification_uri"`
	ExpiresIn       int    `json:"expires_in,omitempty" yaml:"expires_in,omitempty"` // seconds until the device code expires
	Interval        int    `json:"interval,omitempty" yaml:"interval,omitempty"`     // upstream polling interval in seconds
}

// PollResult is the outcome of submitting a device code for verification.
type PollResult struct {
	Success bool   `json:"success" yaml:"success"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}
