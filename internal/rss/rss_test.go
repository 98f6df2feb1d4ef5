package rss

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feeds.yaml")
	content := `feeds:
  - name: OpenAI Blog
    url: https://openai.com/blog/rss.xml
  - url: " https://export.arxiv.org/rss/cs.AI "
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	sources, err := LoadSources(path)
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Name != "OpenAI Blog" {
		t.Errorf("unexpected name %q", sources[0].Name)
	}
	if sources[1].URL != "https://export.arxiv.org/rss/cs.AI" || sources[1].Name != sources[1].URL {
		t.Errorf("expected trimmed url used as name, got %+v", sources[1])
	}
}

func TestLoadSourcesMissingFileUsesDefaults(t *testing.T) {
	sources, err := LoadSources(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	if len(sources) != len(DefaultSources) {
		t.Errorf("expected defaults, got %d sources", len(sources))
	}
}

func TestLoadSourcesRejectsEmptyAndBroken(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"empty.yaml":  "feeds: []\n",
		"nourl.yaml":  "feeds:\n  - name: x\n",
		"broken.yaml": "feeds: [\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadSources(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain   text\n here", "plain text here"},
		{"<p>Hello</p><p>World</p>", "Hello World"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"<div>a <script>var x = 1;</script>b</div>", "a b"},
		{"<p>first</p> middle <p>last</p>", "first middle last"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := PlainText(tt.in); got != tt.want {
			t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"abcdef", 3, "abc"},
		{"こんにちは世界", 5, "こんにちは"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
