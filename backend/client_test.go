package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qyinm/yentui/types"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, WithTimeout(2*time.Second)), srv
}

func TestGetNewsQueryAndValidation(t *testing.T) {
	var gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != newsPath {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"status":"ok","totalResults":5,"articles":[
			{"title":"A","description":"d","url":"https://a","source":{"name":"S"},"urlToImage":"https://img"},
			{"title":"","description":"d","url":"https://b","source":{"name":"S"}},
			{"title":"C","description":"d","url":"https://c","source":{}},
			{"title":42}
		]}`)
	})

	page, err := c.GetNews(context.Background(), types.NewsQuery{
		Kind:     types.Global,
		Page:     2,
		PageSize: 10,
		Keywords: []string{"ai", "chips"},
	})
	if err != nil {
		t.Fatalf("GetNews error: %v", err)
	}
	if len(page.Articles) != 1 || page.RawCount != 4 || page.TotalResults != 5 {
		t.Fatalf("page = %d articles, raw %d, total %d", len(page.Articles), page.RawCount, page.TotalResults)
	}
	if page.Articles[0].ImageURL() != "https://img" {
		t.Errorf("image url = %q", page.Articles[0].ImageURL())
	}
	for _, want := range []string{"type=global", "page=2", "pageSize=10", "keywords=ai+OR+chips"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestGetNewsLocalCountry(t *testing.T) {
	var gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"status":"ok","totalResults":0,"articles":[]}`)
	})
	if _, err := c.GetNews(context.Background(), types.NewsQuery{Kind: types.Local, Page: 1, Country: "gb", Keywords: []string{"x"}}); err != nil {
		t.Fatalf("GetNews error: %v", err)
	}
	if !strings.Contains(gotQuery, "country=gb") || strings.Contains(gotQuery, "keywords") {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestGetNewsErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"status error with message", `{"status":"error","message":"quota hit"}`, "quota hit"},
		{"status error no message", `{"status":"error"}`, "Error fetching local news."},
		{"articles not an array", `{"status":"ok","articles":null}`, "Error fetching local news."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			})
			_, err := c.GetNews(context.Background(), types.NewsQuery{Kind: types.Local, Page: 1})
			msg, ok := types.ServerMessage(err)
			if !ok || msg != tt.wantMsg {
				t.Fatalf("err = %v, want server message %q", err, tt.wantMsg)
			}
		})
	}
}

func TestGetNewsNetworkError(t *testing.T) {
	c := New("http://127.0.0.1:1", WithTimeout(500*time.Millisecond))
	_, err := c.GetNews(context.Background(), types.NewsQuery{Kind: types.Global, Page: 1})
	if !types.IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestGetArticleAnalysis(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("url") != "https://a" {
			t.Errorf("url param = %q", r.URL.Query().Get("url"))
		}
		fmt.Fprint(w, `{"summary":"S","genz":"G","impact":"I","impactLevel":7}`)
	})

	got, err := c.GetArticleAnalysis(context.Background(), "https://a")
	if err != nil {
		t.Fatalf("analysis error: %v", err)
	}
	if got.Summary() != "S" || got.AltSummary() != "G" || got.ImpactText() != "I" || got.ImpactLevel() != 5 {
		t.Fatalf("unexpected analysis %+v", got)
	}
	if _, err := c.GetArticleAnalysis(context.Background(), "https://a"); err != nil {
		t.Fatalf("cached analysis error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected cached second call, got %d requests", calls.Load())
	}
	c.ClearCache()
	_, _ = c.GetArticleAnalysis(context.Background(), "https://a")
	if calls.Load() != 2 {
		t.Fatalf("expected refetch after ClearCache, got %d requests", calls.Load())
	}
}

func TestGetArticleAnalysisErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error field on failure", 500, `{"error":"model overloaded"}`, "Error: model overloaded"},
		{"bare failure", 502, `<html>bad gateway</html>`, "Failed to load summary (Status: 502)"},
		{"error field on success", 200, `{"error":"no content"}`, "no content"},
		{"malformed success", 200, `not json`, "Received a malformed analysis response."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			_, err := c.GetArticleAnalysis(context.Background(), "https://a")
			if msg, _ := types.ServerMessage(err); msg != tt.wantMsg {
				t.Fatalf("message = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestSendChat(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantReply string
		check     func(error) bool
	}{
		{"reply", `{"response":"hi"}`, "hi", func(err error) bool { return err == nil }},
		{"error field", `{"error":"quota"}`, "", func(err error) bool {
			msg, ok := types.ServerMessage(err)
			return ok && msg == "quota"
		}},
		{"neither", `{}`, "", func(err error) bool { return errors.Is(err, types.ErrUnexpectedReply) }},
		{"not json", `oops`, "", types.IsNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s", r.Method)
				}
				b, _ := io.ReadAll(r.Body)
				if !strings.Contains(string(b), `"message":"hello"`) {
					t.Errorf("body = %s", b)
				}
				fmt.Fprint(w, tt.body)
			})
			reply, err := c.SendChat(context.Background(), "hello")
			if reply != tt.wantReply || !tt.check(err) {
				t.Fatalf("reply=%q err=%v", reply, err)
			}
		})
	}
}

func TestGetCompanyProfile(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(b), `"company_name":"Apple"`) {
			t.Errorf("body = %s", b)
		}
		fmt.Fprint(w, `{
			"company_name":"Apple Inc.",
			"ticker_symbol":"AAPL",
			"logo_url":"https://logo",
			"stock_data":{"symbol":"AAPL","price":189.5,"change_percent":-1.25,"month_change_percent":"N/A"},
			"profile_details":{"recommendation":"buy","investment_news":"New phone","bogus":3}
		}`)
	})

	p, err := c.GetCompanyProfile(context.Background(), "Apple")
	if err != nil {
		t.Fatalf("profile error: %v", err)
	}
	if p.CompanyName() != "Apple Inc." || p.TickerSymbol() != "AAPL" || p.LogoURL() != "https://logo" {
		t.Fatalf("unexpected profile header %+v", p)
	}
	s := p.Stock()
	if s == nil || s.Price != "189.5" || s.ChangePercent != "-1.25" || !s.HasMonthChange || s.MonthChangePercent != "N/A" {
		t.Fatalf("unexpected stock %+v", s)
	}
	if p.Detail(types.DetailRecommendation) != "buy" || p.Detail("bogus") != "" {
		t.Fatalf("unexpected details %v", p.Details())
	}
}

func TestGetCompanyProfileErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"detail field", 404, `{"detail":"not found"}`, "not found"},
		{"bare failure", 500, `{}`, `Failed to load profile for "Acme" (Status: 500)`},
		{"empty success", 200, `{}`, `Server returned an empty or invalid profile for "Acme".`},
		{"unparseable", 500, `boom`, "API Error (500): boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			_, err := c.GetCompanyProfile(context.Background(), "Acme")
			if msg, _ := types.ServerMessage(err); msg != tt.wantMsg {
				t.Fatalf("message = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestDetectCountry(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok","articles":[]}`)
	})
	got, err := c.DetectCountry(context.Background(), "")
	if err != nil || got != "US (Default)" {
		t.Fatalf("DetectCountry() = %q, %v", got, err)
	}
	got, _ = c.DetectCountry(context.Background(), "gb")
	if got != "GB" {
		t.Fatalf("DetectCountry(gb) = %q", got)
	}

	down := New("http://127.0.0.1:1", WithTimeout(500*time.Millisecond))
	if _, err := down.DetectCountry(context.Background(), ""); err == nil {
		t.Fatalf("expected error from unreachable backend")
	}
}

func TestDecodeAnalysisClampsImpactLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"2.6", 3},
		{"-4", 0},
		{"7", 5},
		{"1e20", 5},
		{"-1e20", 0},
	}
	for _, tt := range tests {
		got, err := decodeAnalysis(http.StatusOK, []byte(`{"summary":"S","impactLevel":`+tt.raw+`}`))
		if err != nil {
			t.Fatalf("%s: %v", tt.raw, err)
		}
		if got.ImpactLevel() != tt.want {
			t.Errorf("impactLevel %s = %d, want %d", tt.raw, got.ImpactLevel(), tt.want)
		}
	}
}
