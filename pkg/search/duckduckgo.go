// Package search: веб-поиск через HTML версию DuckDuckGo lite.
package search

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ilkoid/poncho-assist/pkg/config"
	"golang.org/x/time/rate"
)

// maxBackoff: потолок ожидания при 429.
const maxBackoff = 30 * time.Second

// Result: одна ссылка из выдачи.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// DuckDuckGo скрейпит lite.duckduckgo.com. Лимитер общий для всех
// горутин клиента: DuckDuckGo быстро банит частые запросы.
type DuckDuckGo struct {
	client     *http.Client
	endpoint   string
	userAgent  string
	maxResults int
	limiter    *rate.Limiter
	maxRetries int
}

// NewFromConfig создаёт клиент. Незаданные поля берутся из GetDefaults.
func NewFromConfig(cfg config.SearchConfig) (*DuckDuckGo, error) {
	cfg = cfg.GetDefaults()

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid search.timeout format: %w", err)
	}

	return &DuckDuckGo{
		client:     &http.Client{Timeout: timeout},
		endpoint:   cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		maxResults: cfg.MaxResults,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		maxRetries: 4,
	}, nil
}

// Search возвращает до maxResults результатов.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}

	form := url.Values{}
	form.Set("q", query)

	var resp *http.Response
	delay := time.Second
	for attempt := 0; ; attempt++ {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", d.userAgent)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err = d.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("duckduckgo request: %w", err)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()

		if attempt+1 >= d.maxRetries {
			return nil, fmt.Errorf("duckduckgo http 429 after %d attempts", d.maxRetries)
		}
		// Экспоненциальная пауза на 429
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxBackoff)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return parseResults(string(body), d.maxResults), nil
}

var (
	// <a rel="nofollow" href="URL" class='result-link'>TITLE</a>, атрибуты в любом порядке
	linkClassFirst = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	linkHrefFirst  = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"][^>]*>([^<]+)</a>`)
	snippetCell    = regexp.MustCompile(`(?s)<td[^>]*class=['"]result-snippet['"][^>]*>(.*?)</td>`)
	anyLink        = regexp.MustCompile(`<a[^>]+href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	htmlTag        = regexp.MustCompile(`<[^>]+>`)
	spaces         = regexp.MustCompile(`\s+`)
)

// parseResults разбирает lite выдачу. Если разметка не распознана,
// берёт внешние ссылки страницы.
func parseResults(page string, limit int) []Result {
	matches := linkClassFirst.FindAllStringSubmatch(page, -1)
	if len(matches) == 0 {
		matches = linkHrefFirst.FindAllStringSubmatch(page, -1)
	}
	snippets := snippetCell.FindAllStringSubmatch(page, -1)

	var results []Result
	for i, m := range matches {
		u := resolveURL(strings.TrimSpace(m[1]))
		title := cleanHTML(m[2])
		if u == "" || title == "" {
			continue
		}

		snippet := ""
		if i < len(snippets) {
			snippet = cleanHTML(snippets[i][1])
		}
		results = append(results, Result{Title: title, URL: u, Snippet: snippet})
		if len(results) >= limit {
			break
		}
	}

	if len(results) == 0 {
		results = fallbackParse(page, limit)
	}
	return results
}

func fallbackParse(page string, limit int) []Result {
	var results []Result
	seen := make(map[string]bool)
	for _, m := range anyLink.FindAllStringSubmatch(page, -1) {
		u := strings.TrimSpace(m[1])
		title := cleanHTML(m[2])

		if strings.Contains(u, "duckduckgo.com") ||
			strings.HasPrefix(u, "/") ||
			strings.HasPrefix(u, "#") ||
			strings.HasPrefix(u, "javascript:") {
			continue
		}
		if len(title) < 5 || seen[u] {
			continue
		}
		seen[u] = true

		results = append(results, Result{Title: title, URL: u})
		if len(results) >= limit {
			break
		}
	}
	return results
}

// resolveURL разворачивает редирект вида //duckduckgo.com/l/?uddg=<url>.
func resolveURL(u string) string {
	if !strings.Contains(u, "duckduckgo.com/l/") {
		return u
	}
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	parsed, err := url.Parse(html.UnescapeString(u))
	if err != nil {
		return u
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return u
}

func cleanHTML(s string) string {
	s = htmlTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// Format превращает результаты в текст для модели: сниппеты через пробел,
// как в обёртках поисковых API, плюс ссылки для проверки.
func Format(results []Result) string {
	if len(results) == 0 {
		return "No good search result was found"
	}

	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s\n%s", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			sb.WriteString("\n")
			sb.WriteString(r.Snippet)
		}
	}
	return sb.String()
}
