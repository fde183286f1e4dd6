package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

const longLine = "Central banks held rates steady on Thursday while signalling cuts later this year."

func TestParseArticleText(t *testing.T) {
	html := `<!doctype html><html><body>
  <nav><p>` + longLine + ` nav copy that should vanish entirely from output</p></nav>
  <article>
    <h1>Rates on hold</h1>
    <p>` + longLine + `</p>
    <p>Too short.</p>
    <p>` + longLine + `</p>
    <script>var x = "` + longLine + `";</script>
    <ul><li>Markets rallied broadly after the decision was published by the committee.</li></ul>
  </article>
</body></html>`

	got, err := ParseArticleText(strings.NewReader(html))
	if err != nil {
		t.Fatalf("ParseArticleText error: %v", err)
	}
	blocks := strings.Split(got, "\n\n")
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %q", len(blocks), got)
	}
	if blocks[0] != "## Rates on hold" || blocks[1] != longLine || !strings.HasPrefix(blocks[2], "- Markets") {
		t.Fatalf("unexpected blocks %q", blocks)
	}
}

func TestParseArticleTextChallenge(t *testing.T) {
	html := `<html><head><title>Just a moment...</title></head><body><script>window._cf_chl_opt={};</script></body></html>`
	if _, err := ParseArticleText(strings.NewReader(html)); err == nil {
		t.Fatalf("expected challenge error")
	}
}

func TestParseArticleTextEmpty(t *testing.T) {
	if _, err := ParseArticleText(strings.NewReader(`<html><body><p>hi</p></body></html>`)); err == nil {
		t.Fatalf("expected error for page without paragraphs")
	}
}

func TestFetchArticleText(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `<main><p>%s</p></main>`, longLine)
	})
	got, err := c.FetchArticleText(context.Background(), srv.URL+"/story")
	if err != nil || got != longLine {
		t.Fatalf("FetchArticleText = %q, %v", got, err)
	}
	if _, err := c.FetchArticleText(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatalf("expected status error")
	}
}
