package ui

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/qyinm/yentui/config"
	"github.com/qyinm/yentui/types"
)

const maxImageBytes = 15 * 1024 * 1024

// Message types for async operations

type newsLoadedMsg struct {
	kind types.NewsKind
	mode loadMode
	gen  int
	page types.NewsPage
	err  error
}

type analysisLoadedMsg struct {
	gen      int
	analysis types.ArticleAnalysis
	err      error
}

type modalClearMsg struct {
	gen int
}

type articleTextMsg struct {
	gen  int
	text string
	err  error
}

type exportDoneMsg struct {
	path string
	err  error
}

type clipboardDoneMsg struct {
	err error
}

type chatReplyMsg struct {
	reply string
	err   error
}

type countryDetectedMsg struct {
	country string
	err     error
}

type profileLoadedMsg struct {
	name    string
	token   int
	profile types.CompanyProfile
	err     error
}

type watchlistTickMsg struct {
	gen int
}

type imageLoadedMsg struct {
	path string
	data []byte
	err  error
}

type productAnalyzedMsg struct {
	gen   int
	ident types.ProductIdentification
	err   error
}

// ConfigReloadedMsg carries settings re-read after the config file changed.
type ConfigReloadedMsg struct {
	Config config.Config
}

// articleReader is implemented by backends that can fetch article bodies.
type articleReader interface {
	FetchArticleText(ctx context.Context, articleURL string) (string, error)
}

// countryDetector is implemented by backends that can probe the locale.
type countryDetector interface {
	DetectCountry(ctx context.Context, override string) (string, error)
}

// fetchNews returns a tea.Cmd that fetches one news page asynchronously
func fetchNews(source types.Backend, q types.NewsQuery, mode loadMode, gen int) tea.Cmd {
	return func() tea.Msg {
		page, err := source.GetNews(context.Background(), q)
		return newsLoadedMsg{kind: q.Kind, mode: mode, gen: gen, page: page, err: err}
	}
}

// fetchAnalysis returns a tea.Cmd that fetches the analysis of one article
func fetchAnalysis(source types.Backend, articleURL string, gen int) tea.Cmd {
	return func() tea.Msg {
		analysis, err := source.GetArticleAnalysis(context.Background(), articleURL)
		return analysisLoadedMsg{gen: gen, analysis: analysis, err: err}
	}
}

func scheduleModalClear(delay time.Duration, gen int) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return modalClearMsg{gen: gen}
	})
}

func fetchArticleText(source types.Backend, articleURL string, gen int) tea.Cmd {
	return func() tea.Msg {
		reader, ok := source.(articleReader)
		if !ok {
			return articleTextMsg{gen: gen, err: fmt.Errorf("article reader not supported by backend")}
		}
		text, err := reader.FetchArticleText(context.Background(), articleURL)
		return articleTextMsg{gen: gen, text: text, err: err}
	}
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardDoneMsg{err: clipboard.WriteAll(text)}
	}
}

func sendChat(source types.Backend, text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := source.SendChat(context.Background(), text)
		return chatReplyMsg{reply: reply, err: err}
	}
}

func detectCountry(source types.Backend, override string) tea.Cmd {
	return func() tea.Msg {
		detector, ok := source.(countryDetector)
		if !ok {
			if o := strings.TrimSpace(override); o != "" {
				return countryDetectedMsg{country: strings.ToUpper(o)}
			}
			return countryDetectedMsg{country: "US (Default)"}
		}
		country, err := detector.DetectCountry(context.Background(), override)
		return countryDetectedMsg{country: country, err: err}
	}
}

func fetchCompanyProfile(source types.Backend, name string, token int) tea.Cmd {
	return func() tea.Msg {
		profile, err := source.GetCompanyProfile(context.Background(), name)
		return profileLoadedMsg{name: name, token: token, profile: profile, err: err}
	}
}

func scheduleWatchlistTick(delay time.Duration, gen int) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return watchlistTickMsg{gen: gen}
	})
}

// readImageFile loads and sniffs a product image from disk.
func readImageFile(path string) tea.Cmd {
	return func() tea.Msg {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return imageLoadedMsg{path: path, err: errImageUnreadable}
		}
		if info.Size() > maxImageBytes {
			return imageLoadedMsg{path: path, err: errImageTooLarge}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return imageLoadedMsg{path: path, err: errImageUnreadable}
		}
		if !strings.HasPrefix(http.DetectContentType(data), "image/") {
			return imageLoadedMsg{path: path, err: errImageType}
		}
		return imageLoadedMsg{path: path, data: data}
	}
}

func analyzeImage(source types.Backend, image []byte, filename string, gen int) tea.Cmd {
	return func() tea.Msg {
		ident, err := source.AnalyzeProductImage(context.Background(), image, filepath.Base(filename))
		return productAnalyzedMsg{gen: gen, ident: ident, err: err}
	}
}
