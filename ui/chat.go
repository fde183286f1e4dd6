package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/qyinm/yentui/types"
)

const (
	chatGreeting        = "Hello! Ask me anything about economics or the news."
	chatUnexpectedText  = "Received an unexpected response from the bot."
	chatConnectBanner   = "Failed to connect to the chatbot server."
	chatConnectFallback = "Sorry, I am unable to respond right now. (Connection Error)"
)

// chat is the append-only transcript with at most one request in flight.
type chat struct {
	messages []types.ChatMessage
	inFlight bool
	banner   string
	input    textinput.Model
}

func newChat(newID func() string) chat {
	ti := textinput.New()
	ti.Placeholder = "Ask about economics or the news..."
	ti.CharLimit = 500
	ti.Prompt = "› "
	return chat{
		messages: []types.ChatMessage{{ID: newID(), Text: chatGreeting, IsBot: true}},
		input:    ti,
	}
}

// sendMessage appends the user message and issues one request. Blank text
// or a pending request makes it a no-op.
func (m *Model) sendMessage(text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" || m.chat.inFlight {
		return nil
	}
	m.chat.messages = append(m.chat.messages, types.ChatMessage{ID: m.newID(), Text: text})
	m.chat.inFlight = true
	m.chat.banner = ""
	m.chat.input.Reset()
	return sendChat(m.backend, text)
}

// applyChatReply appends exactly one bot message for the finished request.
func (m *Model) applyChatReply(msg chatReplyMsg) {
	if !m.chat.inFlight {
		return
	}
	m.chat.inFlight = false

	var text string
	switch {
	case msg.err == nil:
		text = msg.reply
	case errors.Is(msg.err, types.ErrUnexpectedReply):
		text = chatUnexpectedText
		m.chat.banner = chatUnexpectedText
	default:
		if serverMsg, ok := types.ServerMessage(msg.err); ok {
			text = "Error: " + serverMsg
			m.chat.banner = serverMsg
		} else {
			text = chatConnectFallback
			m.chat.banner = chatConnectBanner
		}
		m.logger.Warn("chat request failed", "err", msg.err)
	}
	m.chat.messages = append(m.chat.messages, types.ChatMessage{ID: m.newID(), Text: text, IsBot: true})
}
