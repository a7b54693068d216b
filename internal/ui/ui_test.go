package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestHeaderRenderKeepsParamOrder(t *testing.T) {
	h := NewHeader("Bootload", "mcmctl bootload app.hex",
		Field{"Master", "192.168.4.1"},
		Field{"Memory", "flash"},
		Field{"Hex file", "app.hex"},
	).SetWidth(80)

	out := h.Render()
	if !strings.Contains(out, "BOOTLOAD") {
		t.Errorf("title not upper-cased: %q", out)
	}
	master := strings.Index(out, "Master:")
	memory := strings.Index(out, "Memory:")
	hex := strings.Index(out, "Hex file:")
	if master < 0 || memory < master || hex < memory {
		t.Errorf("params out of order: %d %d %d", master, memory, hex)
	}
}

func TestResultRender(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   []string
	}{
		{
			name:   "success",
			result: NewSuccessResult("Bootload complete", Field{"Duration", "3s"}),
			want:   []string{"SUCCESS", "Bootload complete", "Duration:", "3s"},
		},
		{
			name:   "failure",
			result: NewFailureResult("Bootload failed", errors.New("LIN Failed"), []string{"Check the slave power"}),
			want:   []string{"FAILED", "Error: LIN Failed", "Troubleshooting:", "Check the slave power"},
		},
		{
			name:   "warning",
			result: NewWarningResult("Link down").AddDetail("SSID", "lab"),
			want:   []string{"WARNING", "Link down", "SSID:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.result.SetWidth(80).String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestPrinterPrintFields(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.PrintFields(Field{"Model", "MCM"}, Field{"Firmware", "v2.1.0"})

	want := "Model:    MCM\nFirmware: v2.1.0\n"
	if buf.String() != want {
		t.Errorf("PrintFields() = %q, want %q", buf.String(), want)
	}
}

func TestSplitHint(t *testing.T) {
	hint := "The master refused the connection.\nTroubleshooting:\n  • Check https\n  • Wait for reboot"
	got := SplitHint(hint)
	want := []string{"The master refused the connection.", "Check https", "Wait for reboot"}
	if len(got) != len(want) {
		t.Fatalf("SplitHint() = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SplitHint()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestConfirmDangerousOperation(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"I AGREE\n", true},
		{"  I AGREE  \n", true},
		{"I AGREE", true},
		{"yes\n", false},
		{"i agree\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got := BootloadConfirmation(strings.NewReader(tt.input), &out, "program", "flash", "192.168.4.1")
			if got != tt.want {
				t.Errorf("confirmation(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "PROGRAM FLASH") {
				t.Errorf("warning box missing title: %s", out.String())
			}
		})
	}
}

func TestRunWithSpinnerNonTerminal(t *testing.T) {
	var out bytes.Buffer
	called := false
	err := RunWithSpinner(context.Background(), &out, "Programming flash", func(ctx context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("RunWithSpinner() = %v, called = %v", err, called)
	}
	if out.String() != "  Programming flash...\n" {
		t.Errorf("output = %q", out.String())
	}

	wantErr := errors.New("LIN Failed")
	if err := RunWithSpinner(context.Background(), &out, "x", func(context.Context) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Errorf("RunWithSpinner() error = %v, want %v", err, wantErr)
	}
}

func TestSpinnerModelCancelWaitsForTask(t *testing.T) {
	cancelled := false
	m := newSpinnerModel("Programming", func() error { return nil }, func() { cancelled = true })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(spinnerModel)
	if !cancelled || !m.cancelling {
		t.Fatal("ctrl+c did not cancel the task")
	}
	if cmd != nil {
		t.Error("ctrl+c should not quit before the task returns")
	}
	if !strings.Contains(m.View(), "cancelling") {
		t.Errorf("View() = %q", m.View())
	}

	taskErr := context.Canceled
	next, cmd = m.Update(taskDoneMsg{err: taskErr})
	m = next.(spinnerModel)
	if !m.done || !errors.Is(m.err, taskErr) || cmd == nil {
		t.Errorf("done = %v, err = %v, quit = %v", m.done, m.err, cmd != nil)
	}
	if m.View() != "" {
		t.Errorf("View() after done = %q", m.View())
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"NAME", "HOST"}, [][]string{{"bench", "10.0.0.7"}, {"lab", "mcm.local"}})
	for _, want := range []string{"NAME", "HOST", "bench", "10.0.0.7", "mcm.local"} {
		if !strings.Contains(out, want) {
			t.Errorf("table is missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "bench") > strings.Index(out, "lab") {
		t.Error("rows are out of order")
	}
}
