package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// OriginConfig describes where the OAuth provider redirects back to.
type OriginConfig struct {
	URL          string
	IsHTTPS      bool
	IsLocal      bool
	Host         string
	Addr         string
	CallbackPath string
}

func LoadOriginConfig(cfg *Config) (*OriginConfig, error) {
	redirect := cfg.Auth.RedirectURL
	if redirect == "" {
		return nil, fmt.Errorf("%sAUTH_REDIRECTURL is not defined", EnvPrefix)
	}

	parsedURL, err := url.Parse(redirect)
	if err != nil {
		return nil, fmt.Errorf("invalid %sAUTH_REDIRECTURL: %w", EnvPrefix, err)
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid %sAUTH_REDIRECTURL: missing host", EnvPrefix)
	}

	origin := &OriginConfig{
		URL:          redirect,
		IsHTTPS:      parsedURL.Scheme == "https",
		IsLocal:      strings.Contains(parsedURL.Hostname(), "localhost") || parsedURL.Hostname() == "127.0.0.1",
		Host:         parsedURL.Hostname(),
		CallbackPath: parsedURL.Path,
	}

	port := parsedURL.Port()
	if port == "" {
		port = "80"
		if origin.IsHTTPS {
			port = "443"
		}
	}
	origin.Addr = net.JoinHostPort("", port)

	if origin.CallbackPath == "" {
		origin.CallbackPath = "/"
	}

	return origin, nil
}
