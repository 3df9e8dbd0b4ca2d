// Package config provides configuration management for the trustBank gateway.
package config

// ServiceURLs contains URLs for downstream services based on environment.
// URLs are automatically configured based on the current environment setting,
// with explicit BASE_URL environment overrides taking precedence.
type ServiceURLs struct {
	// ExchangeBaseURL is the base URL for the upstream exchange API.
	ExchangeBaseURL string
	// AuthProviderBaseURL is the base URL for the auth provider API.
	AuthProviderBaseURL string
}

// GetServiceURLs returns environment-appropriate URLs for downstream services.
// It reads the environment from the config and returns the corresponding URLs.
// Calling code does not need to know about the environment - it's handled internally.
//
// Example usage:
//
//	cfg, _ := config.Load()
//	urls := cfg.GetServiceURLs()
//	exchangeURL := urls.ExchangeBaseURL
func (c *Config) GetServiceURLs() ServiceURLs {
	urls := ServiceURLs{}

	switch c.Environment.Environment {
	case NonProd:
		urls.ExchangeBaseURL = "https://app.sandbox.quidax.com/api/v1"
		urls.AuthProviderBaseURL = "https://auth.staging.trustbank.tech/auth/v1"
	case Prod:
		urls.ExchangeBaseURL = "https://app.quidax.io/api/v1"
		urls.AuthProviderBaseURL = "https://auth.trustbank.tech/auth/v1"
	case Local:
		fallthrough
	default:
		urls.ExchangeBaseURL = "http://localhost:4000/api/v1"
		urls.AuthProviderBaseURL = "http://localhost:9999/auth/v1"
	}

	if c.Exchange.BaseURL != "" {
		urls.ExchangeBaseURL = c.Exchange.BaseURL
	}
	if c.AuthProvider.BaseURL != "" {
		urls.AuthProviderBaseURL = c.AuthProvider.BaseURL
	}

	return urls
}
