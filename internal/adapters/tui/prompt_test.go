package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

func press(m PromptModel, msg tea.KeyMsg) (PromptModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(PromptModel), cmd
}

func typeText(m PromptModel, text string) PromptModel {
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func TestPromptFolderThenMode(t *testing.T) {
	m := NewPromptModel("", true)
	m.statDir = func(string) error { return nil }

	m = typeText(m, "/home/me/Scans")
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.step != stepMode {
		t.Fatalf("expected mode step, got %d", m.step)
	}
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})

	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if m.Folder() != "/home/me/Scans" || m.Mode() != domain.ModeBoth || m.Cancelled() {
		t.Fatalf("unexpected result folder=%q mode=%q", m.Folder(), m.Mode())
	}
}

func TestPromptRejectsMissingFolder(t *testing.T) {
	m := NewPromptModel("", true)
	m.statDir = func(path string) error { return errors.New(path + " does not exist") }

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.errMsg == "" || m.step != stepFolder {
		t.Fatalf("empty folder must be rejected")
	}

	m = typeText(m, "/nope")
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.step != stepFolder || !strings.Contains(m.View(), "/nope does not exist") {
		t.Fatalf("expected error in view, got %q", m.View())
	}
}

func TestPromptSkipsFolderWhenKnown(t *testing.T) {
	m := NewPromptModel("/scans", false)
	if m.step != stepMode {
		t.Fatalf("expected to start at mode step")
	}
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyUp})
	if m.Mode() != domain.ModeBoth {
		t.Fatalf("up from first entry must wrap, got %q", m.Mode())
	}
}

func TestPromptCancel(t *testing.T) {
	m := NewPromptModel("", true)
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if !m.Cancelled() || cmd == nil {
		t.Fatalf("esc must cancel and quit")
	}
}

func TestRenderSummaryListsFailures(t *testing.T) {
	out := RenderSummary(2, 1, 1, 0, []domain.OutcomeRecord{
		{Candidate: domain.ScanCandidate{Path: "/scans/a.pdf"}, Success: true, Destination: "/scans/receipts/a_10232025.pdf"},
		{Candidate: domain.ScanCandidate{Path: "/scans/b.pdf"}, FailedStage: domain.StageExtracting, Error: "engine crashed"},
	})
	for _, want := range []string{"2 processed", "a.pdf", "b.pdf", "engine crashed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}
