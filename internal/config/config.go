// Package config loads the environment-sourced configuration for a sync run.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// defaultBatchSize matches the sync engine's write batch default.
const defaultBatchSize = 10

// Config holds everything a sync run needs from the environment.
type Config struct {
	Owner       string // GITHUB_OWNER, or left half of GITHUB_REPOSITORY
	Repo        string // GITHUB_REPO, or right half of GITHUB_REPOSITORY
	NotionToken string
	DatabaseID  string
	BatchSize   int
	LogLevel    string
	LogFile     string // optional
}

// RepoSlug returns "owner/repo".
func (c *Config) RepoSlug() string {
	return c.Owner + "/" + c.Repo
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		Owner:       os.Getenv("GITHUB_OWNER"),
		Repo:        os.Getenv("GITHUB_REPO"),
		NotionToken: os.Getenv("NOTION_TOKEN"),
		DatabaseID:  os.Getenv("NOTION_DATABASE_ID"),
		BatchSize:   defaultBatchSize,
		LogLevel:    "info",
		LogFile:     os.Getenv("LOG_FILE"),
	}

	// GITHUB_REPOSITORY in "owner/repo" form, as set by e.g. GitHub Actions
	if cfg.Owner == "" || cfg.Repo == "" {
		if slug := os.Getenv("GITHUB_REPOSITORY"); slug != "" {
			parts := strings.SplitN(slug, "/", 2)
			if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
				return nil, fmt.Errorf("invalid GITHUB_REPOSITORY %q: must be owner/repo", slug)
			}
			cfg.Owner, cfg.Repo = parts[0], parts[1]
		}
	}

	// Older integrations used NOTION_API_KEY
	if cfg.NotionToken == "" {
		cfg.NotionToken = os.Getenv("NOTION_API_KEY")
	}

	if v := os.Getenv("SYNC_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid SYNC_BATCH_SIZE %q: must be a positive integer", v)
		}
		cfg.BatchSize = n
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that every required variable is present.
func (c *Config) validate() error {
	if c.Owner == "" || c.Repo == "" {
		return fmt.Errorf("repository not configured: set GITHUB_OWNER and GITHUB_REPO, or GITHUB_REPOSITORY as owner/repo")
	}
	if c.NotionToken == "" {
		return fmt.Errorf("NOTION_TOKEN is not set")
	}
	if c.DatabaseID == "" {
		return fmt.Errorf("NOTION_DATABASE_ID is not set")
	}
	return nil
}
