package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "500ms" or "2s"
// parse with time.ParseDuration. Plain integers are taken as nanoseconds
// for compatibility with yaml.v3's native handling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err == nil {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}

	var ns int64
	if err := value.Decode(&ns); err != nil {
		return err
	}
	*d = Duration(ns)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// SiteConfig holds per-site crawl overrides for a single authority.
// Keys in the config file are authorities without the scheme
// (e.g., "example.com" or "example.com:8080").
type SiteConfig struct {
	// Depth overrides the global crawl depth for this site.
	// Zero means the global value applies.
	Depth int `yaml:"depth,omitempty"`

	// Delay overrides the politeness pause for this site.
	// Zero means the global value applies.
	Delay Duration `yaml:"delay,omitempty"`

	// MaxPages overrides the page cap for this site.
	MaxPages int `yaml:"maxPages,omitempty"`

	// UserAgent overrides the User-Agent header for this site.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Headers are extra HTTP headers to send with requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the .crawlscope configuration file.
type File struct {
	// Sites maps authorities to their site-specific configurations.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains configuration applied to every site unless
	// overridden by a site-specific entry.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for an authority, merging any
// site-specific entry over the file defaults.
func (cf *File) GetSiteConfig(authority string) SiteConfig {
	result := cf.Defaults

	siteConfig, ok := cf.Sites[authority]
	if !ok {
		return result
	}

	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.Delay != 0 {
		result.Delay = siteConfig.Delay
	}
	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if siteConfig.UserAgent != "" {
		result.UserAgent = siteConfig.UserAgent
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}

	return result
}
