package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/qyinm/yentui/types"
)

var (
	errImageUnreadable = errors.New("Could not read the selected file.")
	errImageTooLarge   = errors.New("File is too large (max 15MB). Please select a smaller image.")
	errImageType       = errors.New("Invalid file type. Please select an image (JPEG, PNG, GIF, etc.).")
)

const (
	noImageText         = "No image selected or captured to analyze."
	analyzeFailedText   = "Failed to analyze product image."
	unknownParentText   = "Could not identify the parent company."
	unknownParentFmt    = "Could not identify the parent company for %q."
	unknownProductLabel = "this product"
)

// productPane is the single product-analysis slot of the insights tab.
type productPane struct {
	imagePath string
	image     []byte
	filename  string

	product string
	company string
	profile *types.CompanyProfile
	loading bool
	err     string
	// gen identifies the latest analysis request.
	gen int

	pathInput textinput.Model
}

func newProductPane() productPane {
	ti := textinput.New()
	ti.Placeholder = "path to a product photo"
	ti.CharLimit = 1024
	ti.Prompt = "› "
	return productPane{pathInput: ti}
}

func (p *productPane) hasResult() bool {
	return p.product != "" || p.company != "" || p.profile != nil
}

// identifiedProduct returns the product name worth showing, if any.
func (p *productPane) identifiedProduct() (string, bool) {
	if p.product == "" || strings.EqualFold(p.product, "unknown") {
		return "", false
	}
	return p.product, true
}

// notice returns the "could not identify" message for the current result.
func (p *productPane) notice() string {
	if p.loading || p.err != "" {
		return ""
	}
	switch {
	case p.company != "" && strings.EqualFold(p.company, "unknown"):
		name := p.product
		if name == "" {
			name = unknownProductLabel
		}
		return fmt.Sprintf(unknownParentFmt, name)
	case p.company == "" && p.product != "":
		return unknownParentText
	}
	return ""
}

// cardVisible reports whether the identified company's card renders.
func (p *productPane) cardVisible() bool {
	return !p.loading && !types.IsUnknown(p.company) && p.profile != nil
}

// openImagePrompt focuses the path input.
func (m *Model) openImagePrompt() tea.Cmd {
	m.product.pathInput.SetValue(m.product.imagePath)
	m.product.pathInput.CursorEnd()
	m.focus = focusImagePath
	return m.product.pathInput.Focus()
}

// selectImage loads the file at path for analysis.
func (m *Model) selectImage(path string) tea.Cmd {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return readImageFile(path)
}

// applyImage installs a selected image and clears the previous result. An
// analysis still in flight for the old image is superseded.
func (m *Model) applyImage(msg imageLoadedMsg) {
	p := &m.product
	p.gen++
	p.loading = false
	p.product, p.company = "", ""
	p.profile = nil
	if msg.err != nil {
		p.err = msg.err.Error()
		p.image = nil
		p.imagePath = ""
		p.filename = ""
		m.logger.Warn("product image rejected", "path", msg.path, "err", msg.err)
		return
	}
	p.imagePath = msg.path
	p.filename = filepath.Base(msg.path)
	p.image = msg.data
	p.err = ""
}

// analyze uploads the selected image. A newer request supersedes an older
// one still in flight.
func (m *Model) analyze() tea.Cmd {
	p := &m.product
	if len(p.image) == 0 {
		p.err = noImageText
		return nil
	}
	p.gen++
	p.loading = true
	p.err = ""
	p.product, p.company = "", ""
	p.profile = nil
	m.logger.Debug("product analysis", "file", p.filename, "gen", p.gen)
	return analyzeImage(m.backend, p.image, p.filename, p.gen)
}

func (m *Model) applyProductAnalysis(msg productAnalyzedMsg) {
	p := &m.product
	if msg.gen != p.gen {
		return
	}
	p.loading = false
	// A partial identification survives next to its error.
	p.product = msg.ident.Product
	p.company = msg.ident.Company
	p.profile = msg.ident.Profile
	if msg.err != nil {
		p.err = productErrorText(msg.err)
		m.logger.Warn("product analysis failed", "file", p.filename, "err", msg.err)
	}
}

func productErrorText(err error) string {
	var ve *types.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	if msg, ok := types.ServerMessage(err); ok && msg != "" {
		return msg
	}
	if types.IsNetwork(err) {
		return fmt.Sprintf("Network error or server unreachable: %v", err)
	}
	if err.Error() != "" {
		return err.Error()
	}
	return analyzeFailedText
}
