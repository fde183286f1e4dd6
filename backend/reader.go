package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxReaderParagraphs = 40
	minParagraphLen     = 40
)

// FetchArticleText downloads an article page and extracts its readable
// paragraphs as markdown, one paragraph per block.
func (c *Client) FetchArticleText(ctx context.Context, articleURL string) (string, error) {
	key := "reader:" + articleURL
	if v, ok := c.cached(key); ok {
		if text, ok := v.(string); ok {
			return text, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	text, err := ParseArticleText(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse article: %w", err)
	}
	c.store(key, text)
	return text, nil
}

// ParseArticleText extracts the body paragraphs of a news page. Content
// inside <article> or <main> is preferred over the whole document.
func ParseArticleText(reader io.Reader) (string, error) {
	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if looksLikeChallengePage(string(raw)) {
		return "", fmt.Errorf("article blocked by a bot challenge; open it in a browser instead")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	doc.Find("script,style,nav,footer,aside,form,figure").Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var blocks []string
	seen := make(map[string]struct{})
	root.Find("h1,h2,h3,p,li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return true
		}
		if _, dup := seen[text]; dup {
			return true
		}
		switch goquery.NodeName(s) {
		case "h1", "h2", "h3":
			blocks = append(blocks, "## "+text)
		case "li":
			if len(text) < minParagraphLen {
				return true
			}
			blocks = append(blocks, "- "+text)
		default:
			if len(text) < minParagraphLen {
				return true
			}
			blocks = append(blocks, text)
		}
		seen[text] = struct{}{}
		return len(blocks) < maxReaderParagraphs
	})

	if len(blocks) == 0 {
		return "", fmt.Errorf("no readable paragraphs found")
	}
	return strings.Join(blocks, "\n\n"), nil
}

func looksLikeChallengePage(html string) bool {
	s := strings.ToLower(html)
	return strings.Contains(s, "<title>just a moment...</title>") &&
		(strings.Contains(s, "cf-challenge") || strings.Contains(s, "_cf_chl_opt"))
}
