package filter

import (
	"strings"
	"testing"

	"github.com/scipunch/rssmonitor/config"
	"github.com/scipunch/rssmonitor/fetcher/types"
)

func TestPipeline(t *testing.T) {
	filters := map[string]config.Filter{
		"short": {MinLength: 40},
		"words": {MinWords: 6},
		"ads": {
			ExcludePatterns: []string{"(?i)^sponsored", "招聘"},
		},
		"paragraphs": {RequireParagraphs: true},
	}

	pipeline, err := New(filters)
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}

	tests := []struct {
		name   string
		item   types.FeedItem
		mute   []string
		muted  bool
		reason string
	}{
		{
			name:  "no filters",
			item:  types.FeedItem{Title: "x"},
			mute:  nil,
			muted: false,
		},
		{
			name:   "too short",
			item:   types.FeedItem{Title: "CVE-2024-0001", Description: "tl;dr"},
			mute:   []string{"short"},
			muted:  true,
			reason: "short:min_length",
		},
		{
			name: "long enough",
			item: types.FeedItem{
				Title:       "CVE-2024-0001 disclosed",
				Description: "Remote code execution in the example parser",
			},
			mute:  []string{"short"},
			muted: false,
		},
		{
			name:   "markup does not count towards length",
			item:   types.FeedItem{Title: "Patch", Description: `<p><a href="https://ex.com/a-very-long-link-target">x</a></p>`},
			mute:   []string{"short"},
			muted:  true,
			reason: "short:min_length",
		},
		{
			name:   "few words",
			item:   types.FeedItem{Title: "Weekly links", Description: "see inside"},
			mute:   []string{"words"},
			muted:  true,
			reason: "words:min_words",
		},
		{
			name:  "han characters count as words",
			item:  types.FeedItem{Title: "漏洞分析报告"},
			mute:  []string{"words"},
			muted: false,
		},
		{
			name:   "excluded title",
			item:   types.FeedItem{Title: "Sponsored: buy our scanner"},
			mute:   []string{"ads"},
			muted:  true,
			reason: "ads:exclude_pattern[(?i)^sponsored]",
		},
		{
			name:  "pattern anchored to the title start",
			item:  types.FeedItem{Title: "Not sponsored research"},
			mute:  []string{"ads"},
			muted: false,
		},
		{
			name:   "excluded body",
			item:   types.FeedItem{Title: "安全团队", Description: "招聘渗透测试工程师"},
			mute:   []string{"ads"},
			muted:  true,
			reason: "ads:exclude_pattern[招聘]",
		},
		{
			name:   "single line body",
			item:   types.FeedItem{Title: "Announcement", Description: "one line"},
			mute:   []string{"paragraphs"},
			muted:  true,
			reason: "paragraphs:require_paragraphs",
		},
		{
			name:  "html paragraphs",
			item:  types.FeedItem{Title: "Writeup", Description: "<p>First part.</p><p>Second part.</p>"},
			mute:  []string{"paragraphs"},
			muted: false,
		},
		{
			name:   "first rejecting filter wins",
			item:   types.FeedItem{Title: "Sponsored"},
			mute:   []string{"ads", "short"},
			muted:  true,
			reason: "ads:exclude_pattern[(?i)^sponsored]",
		},
		{
			name:  "unknown filter ignored",
			item:  types.FeedItem{Title: "x"},
			mute:  []string{"missing"},
			muted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			muted, reason := pipeline.Muted(tt.item, tt.mute)
			if muted != tt.muted {
				t.Errorf("Muted() = %v (reason %q), want %v", muted, reason, tt.muted)
			}
			if reason != tt.reason {
				t.Errorf("reason = %q, want %q", reason, tt.reason)
			}
		})
	}
}

func TestNewReportsInvalidPatterns(t *testing.T) {
	_, err := New(map[string]config.Filter{
		"broken": {ExcludePatterns: []string{"(unclosed", "ok", "[z-a]"}},
	})
	if err == nil {
		t.Fatal("expected error for invalid patterns")
	}
	if strings.Count(err.Error(), "filter 'broken'") != 2 {
		t.Errorf("expected both bad patterns reported, got: %v", err)
	}
}

func TestNilPipeline(t *testing.T) {
	var p *Pipeline
	if muted, _ := p.Muted(types.FeedItem{}, []string{"any"}); muted {
		t.Error("nil pipeline must not mute")
	}
}

func TestCountWords(t *testing.T) {
	tests := map[string]int{
		"":                      0,
		"hello, world":          2,
		"CVE-2024-0001":         3,
		"漏洞 report":             3,
		"  spaced   out  text ": 3,
	}
	for in, want := range tests {
		if got := countWords(in); got != want {
			t.Errorf("countWords(%q) = %d, want %d", in, got, want)
		}
	}
}
