package tui

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"paperqa/internal/domain"
	"paperqa/internal/monitor"
)

type loadedMsg struct {
	path string
	err  error
}

type answerMsg struct {
	question string
	text     string
	sources  []domain.SearchResult
	err      error
}

type modelsMsg struct {
	names []string
	err   error
}

type modelSetMsg struct {
	name  string
	names []string
	err   error
}

type exportedMsg struct {
	path string
	err  error
}

type usageMsg struct {
	usage monitor.Usage
	ok    bool
}

const tickInterval = time.Second

func loadCmd(d Deps, path string) tea.Cmd {
	return func() tea.Msg {
		doc, err := d.Open(path)
		if err != nil {
			return loadedMsg{path: path, err: err}
		}
		return loadedMsg{path: filepath.Base(path), err: d.Session.Load(d.Context, doc)}
	}
}

func askCmd(d Deps, question string) tea.Cmd {
	return func() tea.Msg {
		text, sources, err := d.Session.AskWithSources(d.Context, question)
		return answerMsg{question: question, text: text, sources: sources, err: err}
	}
}

func listModelsCmd(d Deps) tea.Cmd {
	return func() tea.Msg {
		names, err := d.Models.ListModels(d.Context)
		return modelsMsg{names: names, err: err}
	}
}

// setModelCmd switches only to a model the server has installed.
func setModelCmd(d Deps, name string) tea.Cmd {
	return func() tea.Msg {
		names, err := d.Models.ListModels(d.Context)
		if err != nil {
			return modelSetMsg{name: name, err: err}
		}
		if !slices.Contains(names, name) {
			return modelSetMsg{name: name, err: fmt.Errorf("model %q is not installed", name)}
		}
		d.Models.SetModel(name)
		return modelSetMsg{name: name, names: names}
	}
}

func exportCmd(d Deps) tea.Cmd {
	return func() tea.Msg {
		path := filepath.Join(d.ExportDir, d.Log.DefaultExportName())
		return exportedMsg{path: path, err: d.Log.Export(path)}
	}
}

// tickCmd reads the latest sample of the monitor, which samples on its own
// schedule.
func tickCmd(d Deps) tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		u, ok := d.Monitor.Latest()
		return usageMsg{usage: u, ok: ok}
	})
}
