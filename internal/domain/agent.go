package domain

// AgentIdentity describes one council member: a display name bound to a
// provider and a provider-specific model id.
type AgentIdentity struct {
	ID          string `json:"id" toml:"id"`
	DisplayName string `json:"displayName" toml:"display_name"`
	ProviderKey string `json:"providerKey" toml:"provider"`
	ModelID     string `json:"modelId" toml:"model"`
	Enabled     bool   `json:"enabled" toml:"enabled"`
}
