// Package interp turns typed lines into remote calls and applies their
// results to the session. Strictly synchronous: one line resolves fully
// before the next is read.
package interp

import (
	"errors"
	"fmt"
	"io"

	"github.com/evalsh/evalsh/internal/channel"
	"github.com/evalsh/evalsh/internal/codec"
	"github.com/evalsh/evalsh/internal/session"
)

// Evaluator is the slice of the codec the interpreter needs.
type Evaluator interface {
	Raw(code string) (string, error)
	Shell(cmdline, cwd string) (string, error)
	Chdir(arg, cwd string) (string, error)
}

// Transferer moves files through the eval channel.
type Transferer interface {
	Get(remote, local, cwd string) (n int, dest string, err error)
	Put(local, remote, cwd string) (n int, dest string, err error)
}

type Interpreter struct {
	eval Evaluator
	xfer Transferer
	sess *session.Session
	out  io.Writer
	errw io.Writer
}

func New(eval Evaluator, xfer Transferer, sess *session.Session, out, errw io.Writer) *Interpreter {
	return &Interpreter{eval: eval, xfer: xfer, sess: sess, out: out, errw: errw}
}

// Eval runs one input line to completion. done reports that the session
// should end. A returned error is a broken channel and is fatal; every other
// failure is printed and the session continues.
func (it *Interpreter) Eval(line string) (done bool, err error) {
	cmd, perr := Parse(line)
	if perr != nil {
		fmt.Fprintf(it.errw, "error: %v\n", perr)
		return false, nil
	}
	switch c := cmd.(type) {
	case Nop:
	case Exit:
		return true, nil
	case Shell:
		text, err := it.eval.Shell(c.Line, it.sess.Cwd())
		if err != nil {
			return false, it.fail(err)
		}
		fmt.Fprint(it.out, text)
	case Raw:
		text, err := it.eval.Raw(c.Code)
		if err != nil {
			return false, it.fail(err)
		}
		fmt.Fprint(it.out, text)
	case Chdir:
		arg := c.Path
		if arg == "-" {
			prev := it.sess.Prev()
			if prev == "" {
				fmt.Fprintln(it.errw, "cd: no previous directory")
				return false, nil
			}
			arg = prev
		}
		resolved, err := it.eval.Chdir(arg, it.sess.Cwd())
		if err != nil {
			return false, it.fail(err)
		}
		it.sess.Chdir(resolved)
	case Get:
		n, dest, err := it.xfer.Get(c.Remote, c.Local, it.sess.Cwd())
		if err != nil {
			return false, it.fail(err)
		}
		fmt.Fprintf(it.out, "Downloaded %d bytes -> %s\n", n, dest)
	case Put:
		n, dest, err := it.xfer.Put(c.Local, c.Remote, it.sess.Cwd())
		if err != nil {
			return false, it.fail(err)
		}
		fmt.Fprintf(it.out, "Uploaded %d bytes -> %s\n", n, dest)
	}
	return false, nil
}

// fail sorts an error by the taxonomy: transport failures propagate (fatal),
// remote exceptions and local/decoding failures print and recover.
func (it *Interpreter) fail(err error) error {
	var te *channel.TransportError
	if errors.As(err, &te) {
		return err
	}
	var re *codec.RemoteError
	if errors.As(err, &re) {
		fmt.Fprintf(it.errw, "remote: %s\n", re.Msg)
		return nil
	}
	fmt.Fprintf(it.errw, "error: %v\n", err)
	return nil
}
