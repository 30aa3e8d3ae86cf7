package repl

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chzyer/readline"

	"github.com/evalsh/evalsh/internal/session"
)

type scriptedEval struct {
	lines []string
	errOn string
	err   error
	stop  string
}

func (s *scriptedEval) Eval(line string) (bool, error) {
	s.lines = append(s.lines, line)
	if s.errOn != "" && line == s.errOn {
		return false, s.err
	}
	return line == s.stop, nil
}

func TestRunPipedFeedsEveryLine(t *testing.T) {
	ev := &scriptedEval{stop: "exit"}
	input := "pwd\ncd /tmp\nls -la\nexit\nnever reached\n"

	if err := runPiped(ev, strings.NewReader(input)); err != nil {
		t.Fatal(err)
	}
	want := []string{"pwd", "cd /tmp", "ls -la", "exit"}
	if len(ev.lines) != len(want) {
		t.Fatalf("lines=%v", ev.lines)
	}
	for i, l := range want {
		if ev.lines[i] != l {
			t.Fatalf("line %d: got %q want %q", i, ev.lines[i], l)
		}
	}
}

func TestRunPipedStopsOnFatalError(t *testing.T) {
	broken := errors.New("channel receive: EOF")
	ev := &scriptedEval{errOn: "ls", err: broken}

	err := runPiped(ev, strings.NewReader("pwd\nls\npwd\n"))
	if !errors.Is(err, broken) {
		t.Fatalf("err=%v", err)
	}
	if len(ev.lines) != 2 {
		t.Fatalf("lines=%v", ev.lines)
	}
}

// interactiveConfig backs readline with scripted raw input instead of a TTY.
func interactiveConfig(input, historyFile string) *readline.Config {
	return &readline.Config{
		HistoryFile:         historyFile,
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		Stdin:               io.NopCloser(strings.NewReader(input)),
		Stdout:              io.Discard,
		Stderr:              io.Discard,
		ForceUseInteractive: true,
		FuncIsTerminal:      func() bool { return true },
		FuncMakeRaw:         func() error { return nil },
		FuncExitRaw:         func() error { return nil },
		FuncGetWidth:        func() int { return 80 },
		FuncOnWidthChanged:  func(func()) {},
	}
}

func TestInteractiveHistoryFileRecordsEveryLine(t *testing.T) {
	histFile := filepath.Join(t.TempDir(), "history")
	ev := &scriptedEval{stop: "exit"}
	sess := session.New("/home/ubuntu")

	err := runInteractive(ev, sess, interactiveConfig("pwd\ncd /tmp\nexit\n", histFile))
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"pwd", "cd /tmp", "exit"}
	if len(ev.lines) != len(want) {
		t.Fatalf("lines=%v", ev.lines)
	}
	for i, l := range want {
		if ev.lines[i] != l {
			t.Fatalf("line %d: got %q want %q", i, ev.lines[i], l)
		}
	}

	// Every entered line must reach the history file in order, including
	// the one that ended the session.
	data, err := os.ReadFile(histFile)
	if err != nil {
		t.Fatal(err)
	}
	got := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(got) != len(want) {
		t.Fatalf("history=%q", string(data))
	}
	for i, l := range want {
		if got[i] != l {
			t.Fatalf("history entry %d: got %q want %q", i, got[i], l)
		}
	}
}

func TestInteractiveInterruptAtEmptyPromptEndsSession(t *testing.T) {
	histFile := filepath.Join(t.TempDir(), "history")
	ev := &scriptedEval{}
	sess := session.New("/")

	// Ctrl-C with nothing typed ends the session before any evaluation.
	err := runInteractive(ev, sess, interactiveConfig("\x03", histFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(ev.lines) != 0 {
		t.Fatalf("lines=%v", ev.lines)
	}
}

func TestInteractiveInterruptCancelsTypedLineOnly(t *testing.T) {
	histFile := filepath.Join(t.TempDir(), "history")
	ev := &scriptedEval{stop: "exit"}
	sess := session.New("/")

	// Ctrl-C mid-line drops "mkfs" without evaluating it; the loop keeps
	// reading.
	err := runInteractive(ev, sess, interactiveConfig("mkfs\x03exit\n", histFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(ev.lines) != 1 || ev.lines[0] != "exit" {
		t.Fatalf("lines=%v", ev.lines)
	}
}

func TestRunPipedEOFEndsCleanly(t *testing.T) {
	ev := &scriptedEval{}
	if err := runPiped(ev, strings.NewReader("pwd")); err != nil {
		t.Fatal(err)
	}
	if len(ev.lines) != 1 || ev.lines[0] != "pwd" {
		t.Fatalf("lines=%v", ev.lines)
	}
}
