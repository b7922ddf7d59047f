package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/waabox/councildeck/internal/config"
	"github.com/waabox/councildeck/internal/council"
	"github.com/waabox/councildeck/internal/domain"
	"github.com/waabox/councildeck/internal/fakeserver"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	root := newRootCommand(out, errOut)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.toml")}, args...))
	err := root.Execute()
	return out.String(), err
}

func startFake(t *testing.T, opts fakeserver.Options) (*fakeserver.Server, string) {
	t.Helper()
	fake := fakeserver.New(opts)
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)
	return fake, srv.URL
}

// authenticate drives a device flow against the fake so that Copilot is connected.
func authenticate(t *testing.T, fake *fakeserver.Server, baseURL string) {
	t.Helper()
	c, err := council.New(council.WithBaseURL(baseURL))
	require.NoError(t, err)
	flow, err := c.StartAuth(context.Background())
	require.NoError(t, err)
	require.True(t, fake.Approve(flow.UserCode))
	res, err := c.PollToken(context.Background(), flow.DeviceCode)
	require.NoError(t, err)
	require.True(t, res.Success)
}

func TestStatus_Table_NotConnected(t *testing.T) {
	_, url := startFake(t, fakeserver.Options{})

	out, err := execute(t, "--base-url", url, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "Copilot: not connected")
}

func TestStatus_JSON_Connected(t *testing.T) {
	fake, url := startFake(t, fakeserver.Options{})
	authenticate(t, fake, url)

	out, err := execute(t, "--base-url", url, "-o", "json", "status")
	require.NoError(t, err)

	var status domain.AuthStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.Authenticated)
	assert.NotEmpty(t, status.AvailableModels)
}

func TestLogout_Table(t *testing.T) {
	fake, url := startFake(t, fakeserver.Options{})
	authenticate(t, fake, url)

	out, err := execute(t, "--base-url", url, "logout")

	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")
	assert.False(t, fake.Authenticated())
}

func TestProviders_Table(t *testing.T) {
	_, url := startFake(t, fakeserver.Options{OpenRouter: true})

	out, err := execute(t, "--base-url", url, "providers")

	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "openrouter")
	assert.Contains(t, out, "copilot")
}

func TestModels_YAML(t *testing.T) {
	fake, url := startFake(t, fakeserver.Options{})
	authenticate(t, fake, url)

	out, err := execute(t, "--base-url", url, "--output", "yaml", "models")
	require.NoError(t, err)

	var models []domain.ModelDescriptor
	require.NoError(t, yaml.Unmarshal([]byte(out), &models))
	require.NotEmpty(t, models)
	assert.Equal(t, "copilot", models[0].Provider)
}

func TestCouncil_Table(t *testing.T) {
	_, url := startFake(t, fakeserver.Options{})

	out, err := execute(t, "--base-url", url, "council")

	require.NoError(t, err)
	assert.Contains(t, out, "chairman_model")
	assert.Contains(t, out, "copilot/gpt-4o")
}

func TestUnknownOutputFormat(t *testing.T) {
	_, url := startFake(t, fakeserver.Options{})

	_, err := execute(t, "--base-url", url, "-o", "xml", "status")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestBackendError_IsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := execute(t, "--base-url", srv.URL, "status")

	require.Error(t, err)
	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
}

func TestInvalidBaseURL(t *testing.T) {
	_, err := execute(t, "--base-url", "ftp://example.com", "status")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme must be http or https")
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")

	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestConfigInit_WritesEffectiveSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "councildeck", "config.toml")
	root := newRootCommand(&bytes.Buffer{}, &bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "--base-url", "http://council.local:9000", "config", "init"})
	require.NoError(t, root.Execute())

	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)
	if os.Getenv("COUNCIL_API_URL") == "" {
		assert.Equal(t, "http://council.local:9000", cfg.BaseURL)
	}
	assert.Equal(t, 3*time.Minute, cfg.PollTimeoutOrDefault())

	root = newRootCommand(&bytes.Buffer{}, &bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "config", "init"})
	err = root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
