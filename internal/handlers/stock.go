package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	DefaultStockURL = "https://histock.tw/stock/public.aspx"
	NoStockToday    = "No stock today"

	stockTableClass = "gvTB"
	subscribing     = "申購中"
)

// StockScraper reads the public offering table and reports the offerings that
// are open for subscription.
type StockScraper struct {
	URL        string
	Client     *http.Client
	MaxRetries int
	// Backoff is the first retry delay; it doubles on every attempt.
	Backoff time.Duration
}

func NewStockScraper(url string, maxRetries int) *StockScraper {
	if url == "" {
		url = DefaultStockURL
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &StockScraper{
		URL:        url,
		Client:     &http.Client{Timeout: 15 * time.Second},
		MaxRetries: maxRetries,
		Backoff:    time.Second,
	}
}

// Fetch downloads the table and formats every open offering as
// "header : value" lines, one block per offering.
func (s *StockScraper) Fetch(ctx context.Context) (string, error) {
	var body []byte
	err := retryWithBackoff(ctx, s.MaxRetries, s.Backoff, func() error {
		var err error
		body, err = s.get(ctx)
		return err
	})
	if err != nil {
		return "", err
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("failed to parse stock page: %w", err)
	}

	table := findTable(doc, stockTableClass)
	if table == nil {
		return "", fmt.Errorf("stock table %q not found", stockTableClass)
	}

	headers, rows := readTable(table)
	return FormatOfferings(headers, rows), nil
}

func (s *StockScraper) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &retriableError{err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retriableError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("stock page error (status %d)", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &retriableError{err: err}
		}
		return nil, err
	}
	return body, nil
}

// FormatOfferings keeps rows that have a cell equal to the subscribing marker.
func FormatOfferings(headers []string, rows [][]string) string {
	var blocks []string
	for _, row := range rows {
		if !contains(row, subscribing) {
			continue
		}
		lines := make([]string, 0, len(row))
		for i := 0; i < len(row) && i < len(headers); i++ {
			lines = append(lines, fmt.Sprintf("%s : %s", headers[i], row[i]))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	if len(blocks) == 0 {
		return NoStockToday
	}
	return strings.Join(blocks, "\n\n")
}

func contains(row []string, v string) bool {
	for _, cell := range row {
		if cell == v {
			return true
		}
	}
	return false
}

func findTable(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode && n.Data == "table" && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTable(c, class); t != nil {
			return t
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, f := range strings.Fields(a.Val) {
			if f == class {
				return true
			}
		}
	}
	return false
}

func readTable(table *html.Node) (headers []string, rows [][]string) {
	walk(table, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.Data {
		case "th":
			headers = append(headers, textOf(n))
		case "tr":
			var cells []string
			walk(n, func(c *html.Node) {
				if c != n && c.Type == html.ElementNode && c.Data == "td" {
					cells = append(cells, textOf(c))
				}
			})
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
		}
	})
	return headers, rows
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
	})
	return strings.TrimSpace(sb.String())
}

type retriableError struct {
	err error
}

func (e *retriableError) Error() string { return e.err.Error() }
func (e *retriableError) Unwrap() error { return e.err }

// retryWithBackoff performs exponential backoff retry on retriable errors.
func retryWithBackoff(ctx context.Context, maxRetries int, backoff time.Duration, fn func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}

		var re *retriableError
		if !errors.As(err, &re) {
			return err
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff << uint(i)):
			}
		}
	}
	return fmt.Errorf("max retries exceeded: %w", err)
}
