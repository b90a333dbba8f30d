package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"paperqa/internal/domain"
	"paperqa/internal/monitor"
	"paperqa/internal/service"
)

// Session is the TUI-facing subset of the document session.
type Session interface {
	Load(ctx context.Context, doc domain.Document) error
	AskWithSources(ctx context.Context, question string) (string, []domain.SearchResult, error)
	Snapshot() *service.Snapshot
}

// UsageSource exposes the samples of a running monitor.
type UsageSource interface {
	Latest() (monitor.Usage, bool)
	History() []monitor.Usage
}

// SessionLog is the session record shown in the log view and exported on
// Ctrl+E.
type SessionLog interface {
	ID() string
	Format() string
	Export(path string) error
	DefaultExportName() string
}

// Models selects the generation model.
type Models interface {
	ModelName() string
	ListModels(ctx context.Context) ([]string, error)
	SetModel(name string)
}

// Deps wires the model to the application.
type Deps struct {
	Context   context.Context
	Session   Session
	Open      func(path string) (domain.Document, error)
	Supported func(path string) bool
	Monitor   UsageSource
	Log       SessionLog
	Models    Models
	ExportDir string
	// Path is loaded on start when set.
	Path string
}

type exchange struct {
	question string
	answer   string
	failed   bool
}

type view int

const (
	viewAnswers view = iota
	viewSources
	viewModels
	viewLog
)

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	deps     Deps
	input    textinput.Model
	viewport viewport.Model
	ready    bool
	width    int

	// busy is set while a load or ask runs; input is refused meanwhile.
	busy    bool
	pending string

	history   []exchange
	sources   []domain.SearchResult
	cursor    int
	mode      view
	lastQuery string
	models    []string

	status string
	usage  *monitor.Usage
}

// New creates a new TUI model instance.
func New(deps Deps) Model {
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if deps.ExportDir == "" {
		deps.ExportDir = "."
	}
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or /load FILE, /models, /model NAME"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	m := Model{deps: deps, input: ti, viewport: vp, status: "Load a document with /load FILE."}
	if deps.Path != "" {
		m.busy = true
		m.status = "Loading " + deps.Path + "..."
	}
	return m
}

// Init starts the cursor blink, the first load and the resource tick.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.deps.Path != "" {
		cmds = append(cmds, loadCmd(m.deps, m.deps.Path))
	}
	if m.deps.Monitor != nil {
		cmds = append(cmds, tickCmd(m.deps))
	}
	return tea.Batch(cmds...)
}

// Busy reports whether an operation is in flight.
func (m Model) Busy() bool { return m.busy }

// Update handles key, window and completion events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 3 + 1 + qh + 1 // header lines, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.refresh()
		return m, nil

	case loadedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Load failed: %v", msg.err)
			m.refresh()
			return m, nil
		}
		m.history = nil
		m.sources = nil
		m.lastQuery = ""
		m.mode = viewAnswers
		snap := m.deps.Session.Snapshot()
		m.status = fmt.Sprintf("Loaded %s: %d of %d chunks embedded.", msg.path, snap.Embedded(), snap.Produced)
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		m.pending = ""
		m.history = append(m.history, exchange{question: msg.question, answer: msg.text, failed: msg.err != nil})
		m.lastQuery = msg.question
		m.sources = msg.sources
		m.cursor = 0
		m.mode = viewAnswers
		if msg.err != nil {
			m.status = "Could not answer: " + msg.err.Error()
		} else {
			m.status = "Answered. Ctrl+S shows the source passages."
		}
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case modelsMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Could not list models: " + msg.err.Error()
			return m, nil
		}
		m.models = msg.names
		m.mode = viewModels
		m.status = fmt.Sprintf("%d models installed. /model NAME switches, Esc returns.", len(msg.names))
		m.refresh()
		return m, nil

	case modelSetMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Could not switch model: " + msg.err.Error()
			return m, nil
		}
		m.models = msg.names
		m.status = "Model switched to " + msg.name
		m.refresh()
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Session log exported to " + msg.path
		}
		return m, nil

	case usageMsg:
		if msg.ok {
			u := msg.usage
			m.usage = &u
		}
		if m.mode == viewLog {
			m.refresh()
		}
		return m, tickCmd(m.deps)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "ctrl+e":
			if m.deps.Log == nil {
				m.status = "Session log is disabled."
				return m, nil
			}
			return m, exportCmd(m.deps)
		case "ctrl+l":
			if m.deps.Log == nil {
				m.status = "Session log is disabled."
				return m, nil
			}
			m.mode = viewLog
			m.status = "Session log. Esc returns, Ctrl+E exports."
			m.refresh()
			return m, nil
		case "ctrl+s":
			if m.lastQuery == "" {
				m.status = "Ask a question first."
				return m, nil
			}
			m.cursor = 0
			m.mode = viewSources
			m.status = fmt.Sprintf("Sources for %q. Up/down to browse, Esc to return.", m.lastQuery)
			m.refresh()
			return m, nil
		case "esc":
			if m.mode != viewAnswers {
				m.mode = viewAnswers
				m.refresh()
				return m, nil
			}
		case "enter":
			return m.submit()
		case "down":
			if m.mode == viewSources && len(m.sources) > 0 {
				m.cursor = (m.cursor + 1) % len(m.sources)
				m.refresh()
				return m, nil
			}
		case "up":
			if m.mode == viewSources && len(m.sources) > 0 {
				m.cursor = (m.cursor - 1 + len(m.sources)) % len(m.sources)
				m.refresh()
				return m, nil
			}
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

const busyStatus = "Busy: wait for the current operation to finish."

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		m.status = "Please enter a question."
		return m, nil
	}
	if m.busy {
		m.status = busyStatus
		return m, nil
	}
	if path, ok := strings.CutPrefix(text, "/load "); ok {
		path = strings.TrimSpace(path)
		if m.deps.Supported != nil && !m.deps.Supported(path) {
			m.status = fmt.Sprintf("Unsupported file type %q: use .pdf, .txt or .md.", filepath.Ext(path))
			return m, nil
		}
		m.input.SetValue("")
		m.busy = true
		m.status = "Loading " + path + "..."
		return m, loadCmd(m.deps, path)
	}
	if text == "/model" {
		m.status = "Usage: /model NAME"
		return m, nil
	}
	if text == "/models" || strings.HasPrefix(text, "/model ") {
		if m.deps.Models == nil {
			m.status = "Model selection is not available."
			return m, nil
		}
		m.input.SetValue("")
		m.busy = true
		if name, ok := strings.CutPrefix(text, "/model "); ok {
			name = strings.TrimSpace(name)
			m.status = "Switching to " + name + "..."
			return m, setModelCmd(m.deps, name)
		}
		m.status = "Listing models..."
		return m, listModelsCmd(m.deps)
	}
	m.input.SetValue("")
	if m.deps.Session.Snapshot() == nil {
		m.status = service.MsgNoDocument
		return m, nil
	}
	m.busy = true
	m.pending = text
	m.status = "Thinking..."
	m.mode = viewAnswers
	m.refresh()
	return m, askCmd(m.deps, text)
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title, authors, summary := "PaperQA", "No document loaded", ""
	if snap := m.deps.Session.Snapshot(); snap != nil {
		title, authors, summary = snap.Title, strings.ReplaceAll(snap.Authors, "\n", "; "), snap.Summary
	}
	header := headerStyle.Render(title)
	byline := mutedStyle.Render(authors)
	abstract := mutedStyle.Render(truncate(summary, max(20, m.width)))
	body := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	return header + "\n" + byline + "\n" + abstract + "\n" + body + "\n" + input + "\n" + m.statusLine()
}

func (m Model) statusLine() string {
	parts := []string{m.status}
	if m.deps.Models != nil {
		parts = append(parts, "model "+m.deps.Models.ModelName())
	}
	if m.usage != nil {
		usage := fmt.Sprintf("CPU %.0f%% RAM %.0f%%", m.usage.CPUPercent, m.usage.RAMPercent)
		if m.usage.GPUAvailable {
			usage += fmt.Sprintf(" GPU %.0f%%", m.usage.GPU.LoadPercent)
		}
		parts = append(parts, usage)
		if m.deps.Monitor != nil {
			cpu, ram := usageSeries(m.deps.Monitor.History())
			parts = append(parts, "cpu "+sparkline(cpu, 20)+" ram "+sparkline(ram, 20))
		}
	}
	return statusStyle.Render(strings.Join(parts, "  |  "))
}

func (m *Model) refresh() {
	switch m.mode {
	case viewSources:
		m.viewport.SetContent(m.renderSource())
	case viewModels:
		m.viewport.SetContent(m.renderModels())
	case viewLog:
		m.viewport.SetContent(m.renderLog())
	default:
		m.viewport.SetContent(m.renderHistory())
	}
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 && m.pending == "" {
		return "No questions yet."
	}
	var b strings.Builder
	for _, ex := range m.history {
		b.WriteString(questionStyle.Render("Q: " + ex.question))
		b.WriteString("\n")
		if ex.failed {
			b.WriteString(errorStyle.Render(ex.answer))
		} else {
			b.WriteString(ex.answer)
		}
		b.WriteString("\n\n")
	}
	if m.pending != "" {
		b.WriteString(questionStyle.Render("Q: " + m.pending))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("..."))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderSource() string {
	if len(m.sources) == 0 {
		return "No sources."
	}
	r := m.sources[m.cursor]
	title := fmt.Sprintf("Source %d/%d  chunk %d  score=%.3f", m.cursor+1, len(m.sources), r.Chunk.Index, r.Score)
	return title + "\n\n" + highlightBestSentence(r.Chunk.Text, m.lastQuery)
}

func (m Model) renderModels() string {
	if len(m.models) == 0 {
		return "No models installed."
	}
	current := m.deps.Models.ModelName()
	var b strings.Builder
	for _, name := range m.models {
		if name == current {
			b.WriteString(highlightStyle.Render("* " + name))
		} else {
			b.WriteString("  " + name)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderLog() string {
	return mutedStyle.Render("Session "+m.deps.Log.ID()) + "\n\n" + m.deps.Log.Format()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)
