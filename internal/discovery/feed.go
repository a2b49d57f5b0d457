// Package discovery finds candidate article URLs for a source from its
// feed, its sitemap and any configured search-API providers, and unions
// the results preserving first-seen order.
package discovery

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// FeedEntry is one item of an RSS or Atom feed.
type FeedEntry struct {
	Title     string
	Link      string
	Published string
}

// ParseFeed auto-detects and parses RSS 2.0 or Atom 1.0 XML from the root
// element: <rss>/<rdf> is RSS, <feed> is Atom.
func ParseFeed(data []byte) ([]FeedEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("feed: empty data")
	}
	switch detectFormat(trimmed) {
	case "rss":
		return parseRSS(data)
	case "atom":
		return parseAtom(data)
	default:
		return nil, fmt.Errorf("feed: unknown format (expected <rss> or <feed>)")
	}
}

func detectFormat(data []byte) string {
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			switch strings.ToLower(se.Name.Local) {
			case "rss", "rdf":
				return "rss"
			case "feed":
				return "atom"
			default:
				return ""
			}
		}
	}
}

type rssRoot struct {
	Channel struct {
		Items []struct {
			Title   string `xml:"title"`
			Link    string `xml:"link"`
			PubDate string `xml:"pubDate"`
		} `xml:"item"`
	} `xml:"channel"`
}

func parseRSS(data []byte) ([]FeedEntry, error) {
	var root rssRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("feed: parse rss: %w", err)
	}
	entries := make([]FeedEntry, 0, len(root.Channel.Items))
	for _, it := range root.Channel.Items {
		link := strings.TrimSpace(it.Link)
		if link == "" {
			continue
		}
		entries = append(entries, FeedEntry{
			Title:     strings.TrimSpace(it.Title),
			Link:      link,
			Published: strings.TrimSpace(it.PubDate),
		})
	}
	return entries, nil
}

type atomRoot struct {
	Entries []struct {
		Title   string `xml:"title"`
		Updated string `xml:"updated"`
		Links   []struct {
			Rel  string `xml:"rel,attr"`
			Href string `xml:"href,attr"`
		} `xml:"link"`
	} `xml:"entry"`
}

func parseAtom(data []byte) ([]FeedEntry, error) {
	var root atomRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("feed: parse atom: %w", err)
	}
	var entries []FeedEntry
	for _, e := range root.Entries {
		// Prefer rel="alternate", fall back to the first link.
		link := ""
		for _, l := range e.Links {
			if l.Rel == "alternate" || l.Rel == "" {
				link = l.Href
				break
			}
		}
		if link == "" && len(e.Links) > 0 {
			link = e.Links[0].Href
		}
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		entries = append(entries, FeedEntry{
			Title:     strings.TrimSpace(e.Title),
			Link:      link,
			Published: strings.TrimSpace(e.Updated),
		})
	}
	return entries, nil
}
