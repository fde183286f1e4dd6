package ui

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"
)

var errNothingToExport = errors.New("nothing to share yet: wait for the analysis to finish loading")

type exportFrontMatter struct {
	Title       string `yaml:"title"`
	Source      string `yaml:"source,omitempty"`
	URL         string `yaml:"url"`
	ImpactLevel int    `yaml:"impact_level"`
	Exported    string `yaml:"exported"`
}

// exportFileName follows YEN_<title>_Analysis_<YYYYMMDD>.md, keeping at most
// 30 title characters with everything but ASCII letters and digits replaced.
func exportFileName(title string, now time.Time) string {
	t := strings.TrimSpace(title)
	if t == "" {
		t = "analysis"
	}
	var b strings.Builder
	for _, r := range t {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	sanitized := b.String()
	if len(sanitized) > 30 {
		sanitized = sanitized[:30]
	}
	return fmt.Sprintf("YEN_%s_Analysis_%s.md", sanitized, now.UTC().Format("20060102"))
}

// buildExport renders the modal's analysis as markdown with YAML front
// matter. It only reads the session.
func buildExport(md *modal, now time.Time) (string, []byte, error) {
	sections := md.sections()
	if md.state != modalReady || len(sections) == 0 {
		return "", nil, errNothingToExport
	}

	fm := exportFrontMatter{
		Title:       md.title(),
		Source:      md.source,
		URL:         md.url,
		ImpactLevel: md.impactLevel,
		Exported:    now.UTC().Format(time.RFC3339),
	}
	head, err := yaml.Marshal(fm)
	if err != nil {
		return "", nil, fmt.Errorf("encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(head)
	buf.WriteString("---\n\n")
	fmt.Fprintf(&buf, "# %s\n\n", fm.Title)
	for _, s := range sections {
		fmt.Fprintf(&buf, "## %s\n\n%s\n\n", s.heading, strings.TrimSpace(s.text))
	}
	fmt.Fprintf(&buf, "## Impact Scale\n\n%s %d/5\n", impactDots(md.impactLevel, "●", "○"), md.impactLevel)

	return exportFileName(md.articleTitle, now), buf.Bytes(), nil
}

func impactDots(level int, on, off string) string {
	return strings.Repeat(on, level) + strings.Repeat(off, 5-level)
}

// exportModal writes the current analysis into the export directory.
func (m *Model) exportModal() tea.Cmd {
	name, content, err := buildExport(&m.modal, m.now())
	if err != nil {
		m.status = "Sorry, " + err.Error()
		return nil
	}
	dir := m.cfg.ExportDir
	return func() tea.Msg {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return exportDoneMsg{err: fmt.Errorf("create export dir: %w", err)}
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return exportDoneMsg{err: fmt.Errorf("write export: %w", err)}
		}
		return exportDoneMsg{path: path}
	}
}
