package config

import (
	"time"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
)

const day = 24 * time.Hour

// DefaultSources returns the five built-in sources.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Key:        "failory",
			Kind:       string(domain.AdapterWebScrape),
			Record:     string(domain.KindFailure),
			Name:       "Failory startup cemetery",
			URL:        "https://www.failory.com/cemetery",
			TTL:        Duration(7 * day),
			MinRecords: domain.DefaultMinRecords,
			Curated:    "failory",
		},
		{
			Key:     "layoffs",
			Kind:    string(domain.AdapterTabular),
			Record:  string(domain.KindLayoff),
			Name:    "Tech layoffs dataset",
			URL:     "https://raw.githubusercontent.com/datasets/layoffs/main/data/layoffs.csv",
			TTL:     Duration(day),
			Curated: "layoffs",
		},
		{
			Key:    "hn-postmortems",
			Kind:   string(domain.AdapterSearchAPI),
			Record: string(domain.KindFailure),
			Name:   "Hacker News post-mortems",
			URL:    "https://hn.algolia.com/api/v1/search",
			TTL:    Duration(day),
			Queries: []string{
				"startup post-mortem",
				"why we shut down",
				"lessons from our failed startup",
			},
		},
		{
			Key:     "hn-launches",
			Kind:    string(domain.AdapterSearchAPI),
			Record:  string(domain.KindProductLaunch),
			Name:    "Show HN launches",
			URL:     "https://hn.algolia.com/api/v1/search",
			TTL:     Duration(12 * time.Hour),
			Queries: []string{"Show HN"},
		},
		{
			Key:     "postmortem-extract",
			Kind:    string(domain.AdapterAIExtract),
			Record:  string(domain.KindFailure),
			Name:    "Post-mortem extraction",
			TTL:     Duration(30 * day),
			Curated: "postmortems",
			Documents: []string{
				"https://www.failory.com/blog/startup-failure-reasons",
			},
			MaxChars: domain.DefaultMaxChars,
		},
	}
}
