// Package filter decides whether a feed entry is worth pushing.
// Muted entries are still recorded; only the notification is suppressed.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/scipunch/rssmonitor/config"
	"github.com/scipunch/rssmonitor/fetcher/types"
)

// Pipeline holds the named filters feeds can reference in `mute`
type Pipeline struct {
	filters map[string]*compiled
}

type compiled struct {
	config          config.Filter
	excludePatterns []*regexp.Regexp
}

// New compiles every filter, reporting all invalid patterns at once
func New(filters map[string]config.Filter) (*Pipeline, error) {
	var errs []error
	out := make(map[string]*compiled, len(filters))

	for name, cfg := range filters {
		cf := &compiled{
			config:          cfg,
			excludePatterns: make([]*regexp.Regexp, 0, len(cfg.ExcludePatterns)),
		}
		for _, pattern := range cfg.ExcludePatterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				errs = append(errs, fmt.Errorf("filter '%s' has invalid pattern '%s' with %w", name, pattern, err))
				continue
			}
			cf.excludePatterns = append(cf.excludePatterns, re)
		}
		out[name] = cf
	}

	return &Pipeline{filters: out}, errors.Join(errs...)
}

// Muted reports whether any of the named filters rejects item, and which rule did.
// Unknown names are ignored; config validation reports them.
func (p *Pipeline) Muted(item types.FeedItem, names []string) (bool, string) {
	if p == nil || len(names) == 0 {
		return false, ""
	}

	var text string
	for _, name := range names {
		f, ok := p.filters[name]
		if !ok {
			continue
		}
		if text == "" {
			text = plainText(item)
		}
		if reason := f.reject(text); reason != "" {
			return true, name + ":" + reason
		}
	}
	return false, ""
}

func (f *compiled) reject(text string) string {
	if f.config.MinLength > 0 && utf8.RuneCountInString(text) < f.config.MinLength {
		return "min_length"
	}
	if f.config.MinWords > 0 && countWords(text) < f.config.MinWords {
		return "min_words"
	}
	for i, re := range f.excludePatterns {
		if re.MatchString(text) {
			return "exclude_pattern[" + f.excludePatterns[i].String() + "]"
		}
	}
	if f.config.RequireParagraphs && !hasMultipleParagraphs(text) {
		return "require_paragraphs"
	}
	return ""
}

// plainText joins title and description with markup removed
func plainText(item types.FeedItem) string {
	desc := item.Description
	if strings.ContainsRune(desc, '<') {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(desc))
		if err == nil {
			doc.Find("br, p, div, li").Each(func(_ int, s *goquery.Selection) {
				s.AppendHtml("\n")
			})
			desc = doc.Text()
		}
	}
	return strings.TrimSpace(item.Title + "\n" + desc)
}

// countWords counts runs of letters or digits. Each Han character counts as
// a word since Chinese text has no spaces.
func countWords(text string) int {
	words := 0
	inWord := false

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			words++
			inWord = false
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			if !inWord {
				words++
				inWord = true
			}
		default:
			inWord = false
		}
	}

	return words
}

func hasMultipleParagraphs(text string) bool {
	nonEmpty := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			nonEmpty++
		}
	}
	return nonEmpty >= 3 // title line plus at least two body lines
}
