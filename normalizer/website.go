package normalizer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/flarexio/ragblade/domain"
)

// Elements whose text never reaches the document.
var strippedElements = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Nav:    true,
	atom.Footer: true,
	atom.Header: true,
}

// ValidateURL checks that raw is an absolute http or https URL.
func ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrMissingURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidURL, raw)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidURL, raw)
	}

	return u, nil
}

func (n *Normalizer) normalizeURL(ctx context.Context, raw string) ([]domain.Document, error) {
	u, err := ValidateURL(raw)
	if err != nil {
		return nil, err
	}

	log := n.log.With(
		zap.String("action", "scrape"),
		zap.String("url", u.String()),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrScrapeFailed, err)
	}

	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrScrapeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %s", domain.ErrScrapeFailed, resp.Status)
	}

	title, text, err := ExtractHTMLText(io.LimitReader(resp.Body, n.maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrScrapeFailed, err)
	}

	if text == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyContent, u.String())
	}

	log.Debug("page scraped", zap.Int("length", len(text)))

	doc := domain.Document{
		Content: text,
		Metadata: domain.WebsiteMeta{
			URL:       u.String(),
			Title:     title,
			Timestamp: n.now(),
		},
	}

	return []domain.Document{doc}, nil
}

// ExtractHTMLText returns the page title and the visible body text with
// whitespace runs collapsed to single spaces.
func ExtractHTMLText(r io.Reader) (title string, text string, err error) {
	root, err := html.Parse(r)
	if err != nil {
		return "", "", err
	}

	var (
		body  *html.Node
		parts []string
	)

	var find func(*html.Node)
	find = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.DataAtom {
			case atom.Title:
				if title == "" {
					title = collapse(nodeText(node))
				}
			case atom.Body:
				if body == nil {
					body = node
				}
			}
		}

		for c := node.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}

	find(root)

	if body == nil {
		body = root
	}

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.ElementNode:
			if strippedElements[node.DataAtom] {
				return
			}

		case html.TextNode:
			parts = append(parts, node.Data)
			return

		case html.CommentNode:
			return
		}

		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(body)

	return title, collapse(strings.Join(parts, " ")), nil
}

func nodeText(node *html.Node) string {
	var sb strings.Builder
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}

	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
