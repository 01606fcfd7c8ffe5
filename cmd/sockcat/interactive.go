package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/netcore/endpoint"
	neterrors "github.com/wippyai/netcore/errors"
	"github.com/wippyai/netcore/fifo"
	"github.com/wippyai/netcore/socket"
)

const (
	fifoCapacity   = 32
	transcriptRows = 10
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	fillStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#444444"))

	echoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// edgeCounts tallies the transitions a ring buffer reports.
type edgeCounts struct {
	readable, unreadable int
	writable, unwritable int
	peak                 int
}

func (e *edgeCounts) watch(f *fifo.RingBuffer) []fifo.Subscription {
	return []fifo.Subscription{
		f.OnReadable(func(r bool) {
			if r {
				e.readable++
			} else {
				e.unreadable++
			}
			e.peak = max(e.peak, f.Used())
		}),
		f.OnWritable(func(w bool) {
			if w {
				e.writable++
			} else {
				e.unwritable++
			}
			e.peak = max(e.peak, f.Used())
		}),
	}
}

type interactiveModel struct {
	err        error
	conn       socket.StreamSocket
	tx, rx     *fifo.RingBuffer
	subs       []fifo.Subscription
	txEdges    edgeCounts
	rxEdges    edgeCounts
	ep         endpoint.Endpoint
	local      endpoint.Endpoint
	transcript []string
	partial    string
	input      textinput.Model
	timeout    time.Duration
	connected  bool
}

type connectedMsg struct {
	err  error
	conn socket.StreamSocket
}

func newInteractiveModel(ep endpoint.Endpoint, timeout time.Duration) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "message"
	ti.Prompt = "> "
	ti.Width = 50
	ti.Focus()

	m := &interactiveModel{
		ep:      ep,
		timeout: timeout,
		input:   ti,
		tx:      fifo.New(fifoCapacity),
		rx:      fifo.New(fifoCapacity),
	}
	m.subs = append(m.subs, m.txEdges.watch(m.tx)...)
	m.subs = append(m.subs, m.rxEdges.watch(m.rx)...)
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.connect)
}

func (m *interactiveModel) connect() tea.Msg {
	conn, err := socket.DefaultConfig().WithConnectTimeout(m.timeout).Dial(m.ep)
	return connectedMsg{conn: conn, err: err}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.shutdown()
			return m, tea.Quit

		case "enter":
			if !m.connected {
				return m, nil
			}
			line := m.input.Value() + "\n"
			m.input.Reset()
			m.err = m.exchange([]byte(line))
			return m, nil
		}

	case connectedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.conn = msg.conn
		m.connected = true
		m.local, _ = m.conn.Address()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// exchange pushes data through the transmit buffer in capacity-sized
// chunks and collects whatever echo arrives into the receive buffer.
func (m *interactiveModel) exchange(data []byte) error {
	wait := m.timeout
	if wait <= 0 {
		wait = time.Hour
	}

	for len(data) > 0 || !m.tx.IsEmpty() {
		n := m.tx.Write(data)
		data = data[n:]
		if _, err := m.conn.SendBuffer(m.tx); err != nil {
			return err
		}

		ready, err := m.conn.Poll(wait, socket.SelectRead)
		if err != nil {
			return err
		}
		if !ready {
			return neterrors.TimedOut(neterrors.PhaseReceive, "no echo within "+wait.String())
		}
		n, err = m.conn.ReceiveBuffer(m.rx)
		if err != nil {
			return err
		}
		if n == 0 {
			m.connected = false
			return neterrors.Unavailable(neterrors.PhaseReceive)
		}
		m.collect()
	}
	return nil
}

func (m *interactiveModel) collect() {
	m.partial += string(m.rx.Readable())
	m.rx.Drain(m.rx.Used())

	for {
		i := strings.IndexByte(m.partial, '\n')
		if i < 0 {
			break
		}
		m.transcript = append(m.transcript, m.partial[:i])
		m.partial = m.partial[i+1:]
	}
	if len(m.transcript) > transcriptRows {
		m.transcript = m.transcript[len(m.transcript)-transcriptRows:]
	}
}

func (m *interactiveModel) shutdown() {
	for _, s := range m.subs {
		s.Unsubscribe()
	}
	m.conn.Close()
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("sockcat"))
	b.WriteString(" ")
	b.WriteString(m.ep.String())
	b.WriteString("\n\n")

	if !m.connected && m.err == nil {
		b.WriteString("Connecting...\n")
		return b.String()
	}
	if m.connected {
		b.WriteString(fmt.Sprintf("%s %s -> %s (handle refs %d)\n\n",
			labelStyle.Render("connection"), m.local, m.ep, m.conn.Refs()))
	}

	b.WriteString(m.fifoLine("tx", m.tx, &m.txEdges))
	b.WriteString(m.fifoLine("rx", m.rx, &m.rxEdges))
	b.WriteString("\n")

	for _, line := range m.transcript {
		b.WriteString(echoStyle.Render(line))
		b.WriteString("\n")
	}
	if len(m.transcript) > 0 {
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	}

	if m.connected {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter send • esc quit"))
	} else {
		b.WriteString(helpStyle.Render("esc quit"))
	}
	return b.String()
}

func (m *interactiveModel) fifoLine(name string, f *fifo.RingBuffer, e *edgeCounts) string {
	return fmt.Sprintf("%s %s %2d/%d peak %2d  readable +%d -%d  writable +%d -%d\n",
		labelStyle.Render(name),
		fillBar(f.Used(), f.Cap()),
		f.Used(), f.Cap(), e.peak,
		e.readable, e.unreadable, e.writable, e.unwritable)
}

func fillBar(used, capacity int) string {
	if capacity == 0 {
		return ""
	}
	return fillStyle.Render(strings.Repeat("█", used)) +
		emptyStyle.Render(strings.Repeat("░", capacity-used))
}

func runInteractive(ep endpoint.Endpoint, timeout time.Duration) error {
	p := tea.NewProgram(newInteractiveModel(ep, timeout), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
