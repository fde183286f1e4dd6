package ui

// panelView is the derived visibility of the chat surfaces.
type panelView struct {
	PanelVisible  bool
	BubbleVisible bool
	Docked        bool
	Floating      bool
	CloseVisible  bool
}

// chatPanel tracks the overlay flag; docking is derived from the width.
type chatPanel struct {
	overlayOpen bool
	docked      bool
}

// reconcile recomputes chat visibility from the terminal width and tab.
// Calling it again with the same inputs returns the same view.
func (p *chatPanel) reconcile(width, dockWidth int, tab Tab) panelView {
	p.docked = width >= dockWidth
	if p.docked || tab == TabSettings {
		p.overlayOpen = false
	}

	switch {
	case tab == TabSettings:
		return panelView{}
	case p.docked:
		return panelView{PanelVisible: true, Docked: true}
	case p.overlayOpen:
		return panelView{PanelVisible: true, Floating: true, CloseVisible: true}
	default:
		return panelView{BubbleVisible: true}
	}
}

// openOverlay expands the bubble. It does nothing while docked.
func (p *chatPanel) openOverlay() bool {
	if p.docked {
		return false
	}
	p.overlayOpen = true
	return true
}

func (p *chatPanel) closeOverlay() {
	p.overlayOpen = false
}

// reconcilePanel also drops chat focus once the panel is hidden.
func (m *Model) reconcilePanel() {
	m.panelView = m.panel.reconcile(m.width, m.cfg.DockWidth, m.tab)
	if m.focus == focusChat && !m.panelView.PanelVisible {
		m.chat.input.Blur()
		m.focus = focusNone
	}
	m.resizePanes()
}
