package rss

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is one configured feed.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// FeedsConfig is YAML config structure
// feeds:
//   - name: TechCrunch AI
//     url: https://...
type FeedsConfig struct {
	Feeds []Source `yaml:"feeds"`
}

// DefaultSources is used when no feeds file is present.
var DefaultSources = []Source{
	{Name: "TechCrunch AI", URL: "https://techcrunch.com/category/artificial-intelligence/feed/"},
	{Name: "OpenAI Blog", URL: "https://openai.com/blog/rss.xml"},
	{Name: "MIT Technology Review AI", URL: "https://www.technologyreview.com/topic/artificial-intelligence/feed"},
	{Name: "Ars Technica AI", URL: "https://feeds.arstechnica.com/arstechnica/technology-lab"},
	{Name: "AI News", URL: "https://www.artificialintelligence-news.com/feed/"},
	{Name: "VentureBeat – AI Section", URL: "https://venturebeat.com/category/ai/feed/"},
	{Name: "Google AI Blog", URL: "https://blog.google/technology/ai/rss/"},
	{Name: "Artificial Intelligence (cs.AI)", URL: "https://export.arxiv.org/rss/cs.AI"},
}

// LoadSources reads the feed list from a YAML file.
// A missing file yields DefaultSources.
func LoadSources(path string) ([]Source, error) {
	if path == "" {
		return DefaultSources, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSources, nil
		}
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	sources := make([]Source, 0, len(cfg.Feeds))
	for i, s := range cfg.Feeds {
		s.Name = strings.TrimSpace(s.Name)
		s.URL = strings.TrimSpace(s.URL)
		if s.URL == "" {
			return nil, fmt.Errorf("feed #%d (%q) has no url", i+1, s.Name)
		}
		if s.Name == "" {
			s.Name = s.URL
		}
		sources = append(sources, s)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%s lists no feeds", path)
	}
	return sources, nil
}
