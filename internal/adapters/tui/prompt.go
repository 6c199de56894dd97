// Package tui holds the interactive terminal surfaces: the start-up prompt
// for the scan folder and run mode, and the end-of-run summary.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

var ErrPromptCancelled = errors.New("prompt cancelled")

type promptStep int

const (
	stepFolder promptStep = iota
	stepMode
	stepDone
)

type promptKeys struct {
	Submit key.Binding
	Cancel key.Binding
	Up     key.Binding
	Down   key.Binding
}

var defaultPromptKeys = promptKeys{
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
	Cancel: key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
}

// PromptModel asks for the scan folder (unless already known) and the run
// mode.
type PromptModel struct {
	step      promptStep
	folder    textinput.Model
	modeIndex int
	keys      promptKeys
	errMsg    string
	cancelled bool
	statDir   func(path string) error
}

func NewPromptModel(folder string, askFolder bool) PromptModel {
	input := textinput.New()
	input.Placeholder = "~/Scans"
	input.CharLimit = 4096
	input.Width = 60
	input.SetValue(folder)
	input.Focus()

	step := stepFolder
	if !askFolder {
		step = stepMode
		input.Blur()
	}
	return PromptModel{
		step:    step,
		folder:  input,
		keys:    defaultPromptKeys,
		statDir: requireDir,
	}
}

func (m PromptModel) Init() tea.Cmd {
	if m.step == stepFolder {
		return textinput.Blink
	}
	return nil
}

func (m PromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.step == stepFolder {
			var cmd tea.Cmd
			m.folder, cmd = m.folder.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if key.Matches(keyMsg, m.keys.Cancel) {
		m.cancelled = true
		return m, tea.Quit
	}

	switch m.step {
	case stepFolder:
		if key.Matches(keyMsg, m.keys.Submit) {
			folder := expandHome(strings.TrimSpace(m.folder.Value()))
			if folder == "" {
				m.errMsg = "enter the folder your scanner saves into"
				return m, nil
			}
			if err := m.statDir(folder); err != nil {
				m.errMsg = err.Error()
				return m, nil
			}
			m.folder.SetValue(folder)
			m.folder.Blur()
			m.errMsg = ""
			m.step = stepMode
			return m, nil
		}
		var cmd tea.Cmd
		m.folder, cmd = m.folder.Update(msg)
		return m, cmd

	case stepMode:
		switch {
		case key.Matches(keyMsg, m.keys.Up):
			m.modeIndex = (m.modeIndex + len(domain.RunModes) - 1) % len(domain.RunModes)
		case key.Matches(keyMsg, m.keys.Down):
			m.modeIndex = (m.modeIndex + 1) % len(domain.RunModes)
		case key.Matches(keyMsg, m.keys.Submit):
			m.step = stepDone
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m PromptModel) View() string {
	if m.step == stepDone || m.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Scan organizer"))
	b.WriteString("\n")

	if m.step == stepFolder {
		b.WriteString(labelStyle.Render("Scan folder"))
		b.WriteString("\n")
		b.WriteString(m.folder.View())
		b.WriteString("\n")
		if m.errMsg != "" {
			b.WriteString(errorStyle.Render(m.errMsg))
			b.WriteString("\n")
		}
		b.WriteString(mutedStyle.Render("enter confirm • esc quit"))
		return appStyle.Render(b.String())
	}

	b.WriteString(mutedStyle.Render("Folder: " + m.folder.Value()))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Mode"))
	b.WriteString("\n")
	for i, mode := range domain.RunModes {
		line := fmt.Sprintf("  %s", mode.Describe())
		if i == m.modeIndex {
			line = selectedStyle.Render("> " + mode.Describe())
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("↑/↓ select • enter start • esc quit"))
	return appStyle.Render(b.String())
}

func (m PromptModel) Folder() string { return strings.TrimSpace(m.folder.Value()) }

func (m PromptModel) Mode() domain.RunMode { return domain.RunModes[m.modeIndex] }

func (m PromptModel) Cancelled() bool { return m.cancelled }

// Prompt runs the interactive prompt on the terminal.
func Prompt(ctx context.Context, folder string, askFolder bool) (string, domain.RunMode, error) {
	final, err := tea.NewProgram(NewPromptModel(folder, askFolder), tea.WithContext(ctx)).Run()
	if err != nil {
		return "", "", fmt.Errorf("run prompt: %w", err)
	}
	m, ok := final.(PromptModel)
	if !ok || m.Cancelled() {
		return "", "", ErrPromptCancelled
	}
	return m.Folder(), m.Mode(), nil
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s does not exist", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a folder", path)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
