// Package repl drives the interactive loop: a readline prompt rendered from
// the session directory, persistent history, and a plain line reader when
// stdin is not a terminal.
package repl

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"github.com/evalsh/evalsh/internal/session"
)

// LineEvaluator runs one input line. done reports the session should end;
// an error is fatal to the session.
type LineEvaluator interface {
	Eval(line string) (done bool, err error)
}

// Run reads lines until exit, EOF, or a fatal error. On a terminal it uses
// readline with arrow-key recall backed by historyFile; piped input falls
// back to a plain scanner with no prompt or history.
func Run(it LineEvaluator, sess *session.Session, historyFile string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return runPiped(it, os.Stdin)
	}
	return runInteractive(it, sess, &readline.Config{
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
}

// runInteractive owns the readline loop. Tests supply a config with a
// scripted Stdin and stubbed terminal functions.
func runInteractive(it LineEvaluator, sess *session.Session, cfg *readline.Config) error {
	cfg.Prompt = sess.Prompt()
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		// The prompt tracks the remote directory, so re-render every line.
		rl.SetPrompt(sess.Prompt())
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// Ctrl-C cancels a partially typed line; at an empty prompt it
			// ends the session. An in-flight remote call is never aborted:
			// the channel has no interrupt primitive.
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		done, err := it.Eval(line)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func runPiped(it LineEvaluator, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		done, err := it.Eval(sc.Text())
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return sc.Err()
}
