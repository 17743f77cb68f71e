package constants

import "strings"

// Provider names a language-model backend.
type Provider string

const (
	ProviderGemini  Provider = "gemini"
	ProviderGroq    Provider = "groq"
	ProviderBedrock Provider = "bedrock"
)

// DefaultProviderOrder is the failover order when none is configured.
var DefaultProviderOrder = []Provider{ProviderGemini, ProviderGroq}

var providerSynonyms = map[string]Provider{
	"gemini":    ProviderGemini,
	"google":    ProviderGemini,
	"vertex":    ProviderGemini,
	"vertexai":  ProviderGemini,
	"groq":      ProviderGroq,
	"mixtral":   ProviderGroq,
	"bedrock":   ProviderBedrock,
	"aws":       ProviderBedrock,
	"anthropic": ProviderBedrock,
}

// CanonicalProvider maps user input (including common aliases) to a provider name.
func CanonicalProvider(input string) (Provider, bool) {
	p, ok := providerSynonyms[strings.ToLower(strings.TrimSpace(input))]
	return p, ok
}

// AsStringSlice converts a provider list to plain strings.
func AsStringSlice(ps []Provider) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}
