package domain

// Provider describes an LLM provider registered in the council backend.
type Provider struct {
	Name      string   `json:"name" yaml:"name"`
	Available bool     `json:"available" yaml:"available"`
	Models    []string `json:"models" yaml:"models"`
}

// CouncilConfig is the council configuration as returned by the backend.
// It is kept opaque; the accessors below read the keys the backend is known to send.
type CouncilConfig map[string]any

// CouncilModels returns the models that take part in the council.
func (c CouncilConfig) CouncilModels() []string {
	return c.stringList("council_models")
}

// CopilotModels returns the models served through Copilot.
func (c CouncilConfig) CopilotModels() []string {
	return c.stringList("copilot_models")
}

// OpenRouterModels returns the models served through OpenRouter.
func (c CouncilConfig) OpenRouterModels() []string {
	return c.stringList("openrouter_models")
}

// ChairmanModel returns the model that synthesizes the final answer, if configured.
func (c CouncilConfig) ChairmanModel() string {
	s, _ := c["chairman_model"].(string)
	return s
}

func (c CouncilConfig) stringList(key string) []string {
	raw, ok := c[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
