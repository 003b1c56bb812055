package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type yamlFeed struct {
	WebsiteName string `yaml:"website_name"`
	RSSURL      string `yaml:"rss_url"`
	Type        string `yaml:"type"`
}

// ReadFeeds loads an rss.yaml feed list:
//
//	freebuf:
//	  website_name: FreeBuf
//	  rss_url: https://www.freebuf.com/feed
//
// Feeds keep the order they appear in the file.
func ReadFeeds(path string) ([]Feed, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed list at '%s' with %w", path, err)
	}
	return parseFeeds(dat)
}

func parseFeeds(dat []byte) ([]Feed, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(dat, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode feed list with %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("feed list must be a mapping, got line %d", root.Line)
	}

	feeds := make([]Feed, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		var yf yamlFeed
		if err := val.Decode(&yf); err != nil {
			return nil, fmt.Errorf("failed to decode feed '%s' with %w", key.Value, err)
		}
		name := yf.WebsiteName
		if name == "" {
			name = key.Value
		}
		feeds = append(feeds, Feed{
			Name: name,
			URL:  yf.RSSURL,
			T:    yf.Type,
		})
	}
	return feeds, nil
}
