package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
)

// Provider discovers URLs for a free-form query through an external
// search API.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Providers is a name-keyed registry of search-API providers.
type Providers struct {
	mu sync.RWMutex
	m  map[string]Provider
}

// NewProviders creates an empty registry.
func NewProviders() *Providers {
	return &Providers{m: make(map[string]Provider)}
}

// Register adds or replaces a provider under its name.
func (p *Providers) Register(prov Provider) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[prov.Name()] = prov
}

// Get looks a provider up by name.
func (p *Providers) Get(name string) (Provider, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	prov, ok := p.m[name]
	return prov, ok
}

// Names lists registered provider names.
func (p *Providers) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.m))
	for n := range p.m {
		names = append(names, n)
	}
	return names
}

// JSONAPIConfig describes a generic JSON search API: a URL template with a
// {query} placeholder, headers with ${ENV_VAR} expansion, a dot-notation
// path to the result array and the field holding each result's link.
type JSONAPIConfig struct {
	Name        string            `yaml:"name" json:"name"`
	URLTemplate string            `yaml:"url_template" json:"url_template"`
	Headers     map[string]string `yaml:"headers" json:"headers"`
	ResultPath  string            `yaml:"result_path" json:"result_path"` // e.g. "data.results"
	LinkField   string            `yaml:"link_field" json:"link_field"`   // e.g. "url"
}

// JSONAPIProvider implements Provider over JSONAPIConfig.
type JSONAPIProvider struct {
	cfg    JSONAPIConfig
	client *http.Client
}

// NewJSONAPIProvider builds a provider; client may be nil.
func NewJSONAPIProvider(cfg JSONAPIConfig, client *http.Client) *JSONAPIProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.LinkField == "" {
		cfg.LinkField = "url"
	}
	return &JSONAPIProvider{cfg: cfg, client: client}
}

func (p *JSONAPIProvider) Name() string { return p.cfg.Name }

// Search calls the API and extracts result links.
func (p *JSONAPIProvider) Search(ctx context.Context, query string, limit int) ([]string, error) {
	endpoint := strings.ReplaceAll(p.cfg.URLTemplate, "{query}", url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("searchapi %s: new request: %w", p.cfg.Name, err)
	}
	for k, v := range p.cfg.Headers {
		req.Header.Set(k, expandEnv(v))
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searchapi %s: http: %w", p.cfg.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("searchapi %s: http %d", p.cfg.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("searchapi %s: read body: %w", p.cfg.Name, err)
	}
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("searchapi %s: json decode: %w", p.cfg.Name, err)
	}

	items, err := walkPath(raw, p.cfg.ResultPath)
	if err != nil {
		return nil, fmt.Errorf("searchapi %s: walk path %q: %w", p.cfg.Name, p.cfg.ResultPath, err)
	}

	var links []string
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if link, ok := obj[p.cfg.LinkField].(string); ok && link != "" {
			links = append(links, link)
		}
		if limit > 0 && len(links) >= limit {
			break
		}
	}
	return links, nil
}

// walkPath descends a decoded JSON value along dot-separated keys and
// expects an array at the end. An empty path means the root is the array.
func walkPath(v any, path string) ([]any, error) {
	if path != "" {
		for _, key := range strings.Split(path, ".") {
			obj, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("not an object at %q", key)
			}
			v, ok = obj[key]
			if !ok {
				return nil, fmt.Errorf("key %q not found", key)
			}
		}
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("not an array")
	}
	return arr, nil
}

// expandEnv substitutes ${VAR} references from the environment so API keys
// stay out of config files.
func expandEnv(s string) string {
	return os.Expand(s, func(name string) string {
		return os.Getenv(name)
	})
}
