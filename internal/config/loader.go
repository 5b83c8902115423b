package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default credentials file name.
const DefaultConfigFile = ".credshield"

// ErrConfigNotFound is returned when the credentials file does not exist.
var ErrConfigNotFound = errors.New("credentials file not found")

// File is the on-disk credentials file. It holds secrets and endpoint
// overrides that should not appear on the command line (and therefore in
// shell history or process listings).
type File struct {
	// APIKey is the LLM API credential.
	APIKey string `yaml:"api_key"`

	// SearchAPIKey is the search API credential for deep-tier
	// verification.
	SearchAPIKey string `yaml:"search_api_key"`

	// SearchEngineID scopes search requests to a configured engine.
	SearchEngineID string `yaml:"search_engine_id"`

	// ScoreEndpoint overrides the default LLM endpoint, mainly useful
	// for proxies and testing.
	ScoreEndpoint string `yaml:"score_endpoint"`

	// SearchEndpoint overrides the default search endpoint.
	SearchEndpoint string `yaml:"search_endpoint"`
}

// LoadConfigFile reads and parses the credentials file at path.
// Returns ErrConfigNotFound when the file does not exist, so callers can
// decide whether that is fatal (explicit --config) or ignorable (default
// search locations).
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FindConfigFile locates the credentials file:
//  1. the explicit path, if given
//  2. .credshield in the current directory
//  3. .credshield in the user's home directory
//  4. credentials.yaml in the XDG config directory
//
// Returns the path, or empty string if nothing was found.
func FindConfigFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	p := filepath.Join(XDGConfigDir(), "credentials.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}

	return ""
}

// Apply merges the credentials file into the config. File values fill
// only fields the CLI did not already set, except secrets, which the
// file always provides.
func (c *Config) Apply(f *File) {
	if f == nil {
		return
	}
	if c.APIKey == "" {
		c.APIKey = f.APIKey
	}
	if c.SearchAPIKey == "" {
		c.SearchAPIKey = f.SearchAPIKey
	}
	if c.SearchEngineID == "" {
		c.SearchEngineID = f.SearchEngineID
	}
	if f.ScoreEndpoint != "" && c.ScoreEndpoint == DefaultScoreEndpoint {
		c.ScoreEndpoint = f.ScoreEndpoint
	}
	if f.SearchEndpoint != "" && c.SearchEndpoint == DefaultSearchEndpoint {
		c.SearchEndpoint = f.SearchEndpoint
	}
}
