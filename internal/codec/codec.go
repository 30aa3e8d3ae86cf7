// Package codec translates typed commands into Python fragments the remote
// eval service can run, and turns the text it writes back into typed results.
//
// The service evaluates one expression per line, so multi-statement scripts
// are shipped as exec('<script>'). Every structured script runs under
// try/except and writes a per-session marker before its payload: an exception
// becomes a marked error string instead of a traceback (or a dead remote
// process), and payloads stay distinguishable from prompt noise and from
// genuine command output.
package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zlib"
)

// Channel is the transport the codec speaks through.
type Channel interface {
	SendAndReceive(fragment string) (string, error)
}

// RemoteError is an exception raised by the remote evaluator. Recoverable:
// it is shown to the user and the session continues.
type RemoteError struct {
	Msg string
}

func (e *RemoteError) Error() string { return e.Msg }

// DecodeError reports a transfer payload that could not be decoded locally.
// Recoverable: the transfer fails, the session continues.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode transfer payload: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

type Codec struct {
	ch      Channel
	okMark  string
	errMark string
}

func New(ch Channel) *Codec {
	nonce := uuid.NewString()[:8]
	return &Codec{
		ch:      ch,
		okMark:  "\x01evalsh." + nonce + ".ok\x02",
		errMark: "\x01evalsh." + nonce + ".err\x02",
	}
}

// Raw sends a code fragment verbatim. Empty code is a no-op.
func (c *Codec) Raw(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", nil
	}
	if !strings.HasSuffix(code, "\n") {
		code += "\n"
	}
	return c.ch.SendAndReceive(code)
}

// Shell runs cmdline as a remote subprocess with the working directory bound
// to cwd, and returns its combined stdout and stderr. The reply leads with
// okMark so the channel always sees a first byte promptly: a silent command
// ends on the idle window instead of exhausting the slow-command allowance.
func (c *Codec) Shell(cmdline, cwd string) (string, error) {
	body := "import subprocess\n" +
		"r = subprocess.run(" + pyStr(cmdline) + ", shell=True, capture_output=True, text=True, cwd=" + pyStr(cwd) + ")\n" +
		"sys.stdout.write(" + pyStr(c.okMark) + " + (r.stdout or '') + (r.stderr or ''))\n"
	return c.framedVerbatim(body)
}

// Chdir resolves arg against cwd on the remote side (expanduser, join,
// realpath) and returns the resulting absolute path. An empty arg means the
// remote home directory. The caller must not trust arg itself: relative
// segments and symlinks only resolve remotely.
func (c *Codec) Chdir(arg, cwd string) (string, error) {
	target := "os.path.expanduser('~')"
	if arg != "" {
		target = "os.path.join(" + pyStr(cwd) + ", os.path.expanduser(" + pyStr(arg) + "))"
	}
	body := "import os, os.path\n" +
		"p = os.path.realpath(" + target + ")\n" +
		"if not os.path.isdir(p):\n" +
		"    raise NotADirectoryError(p)\n" +
		"sys.stdout.write(" + pyStr(c.okMark) + " + p)\n"
	return c.framed(body)
}

// CurrentDir reports the remote working directory. Used once, to seed the
// session.
func (c *Codec) CurrentDir() (string, error) {
	body := "import os\n" +
		"sys.stdout.write(" + pyStr(c.okMark) + " + os.getcwd())\n"
	return c.framed(body)
}

// ReadFile fetches the bytes of a remote file in one shot. The remote side
// deflates and base64-encodes them so arbitrary bytes survive the text
// channel; the whole file crosses in a single response.
func (c *Codec) ReadFile(path, cwd string) ([]byte, error) {
	body := "import os.path, base64, zlib\n" +
		"p = os.path.join(" + pyStr(cwd) + ", os.path.expanduser(" + pyStr(path) + "))\n" +
		"with open(p, 'rb') as f:\n" +
		"    data = f.read()\n" +
		"sys.stdout.write(" + pyStr(c.okMark) + " + base64.b64encode(zlib.compress(data)).decode())\n"
	payload, err := c.framed(body)
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return data, nil
}

// WriteFile ships data inside the fragment and writes it to path on the
// remote side, returning the byte count the remote write reported. The count
// comes from the remote, not from len(data): a truncated write must show.
func (c *Codec) WriteFile(path string, data []byte, cwd string) (int, error) {
	var deflated bytes.Buffer
	zw := zlib.NewWriter(&deflated)
	if _, err := zw.Write(data); err != nil {
		return 0, &DecodeError{Err: err}
	}
	if err := zw.Close(); err != nil {
		return 0, &DecodeError{Err: err}
	}
	blob := base64.StdEncoding.EncodeToString(deflated.Bytes())
	body := "import os.path, base64, zlib\n" +
		"p = os.path.join(" + pyStr(cwd) + ", os.path.expanduser(" + pyStr(path) + "))\n" +
		"data = zlib.decompress(base64.b64decode(" + pyStr(blob) + "))\n" +
		"with open(p, 'wb') as f:\n" +
		"    n = f.write(data)\n" +
		"sys.stdout.write(" + pyStr(c.okMark) + " + str(n))\n"
	payload, err := c.framed(body)
	if err != nil {
		return 0, err
	}
	var n int
	if _, err := fmt.Sscanf(payload, "%d", &n); err != nil {
		return 0, &DecodeError{Err: fmt.Errorf("remote byte count %q: %w", payload, err)}
	}
	return n, nil
}

// run executes a statement body remotely and returns its verbatim output.
// The body runs under try/except: remote exceptions come back as RemoteError,
// never as a crashed evaluator.
func (c *Codec) run(body string) (string, error) {
	script := "import sys\n" +
		"try:\n" + indent(body) +
		"except Exception as e:\n" +
		"    sys.stdout.write(" + pyStr(c.errMark) + " + str(e))\n"
	resp, err := c.ch.SendAndReceive("exec(" + pyStr(script) + ")\n")
	if err != nil {
		return "", err
	}
	if i := strings.Index(resp, c.errMark); i >= 0 {
		return "", &RemoteError{Msg: strings.TrimSpace(resp[i+len(c.errMark):])}
	}
	return resp, nil
}

// framed is run for scripts that write okMark before a structured payload
// (a path, a count, a blob). The payload is trimmed of surrounding whitespace.
func (c *Codec) framed(body string) (string, error) {
	payload, err := c.framedVerbatim(body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(payload), nil
}

// framedVerbatim returns everything after okMark untouched; shell output must
// reach the terminal byte-for-byte. Service prompts and echoes before the
// marker cannot leak into results.
func (c *Codec) framedVerbatim(body string) (string, error) {
	resp, err := c.run(body)
	if err != nil {
		return "", err
	}
	i := strings.Index(resp, c.okMark)
	if i < 0 {
		return "", &RemoteError{Msg: "unrecognized response: " + strings.TrimSpace(resp)}
	}
	return resp[i+len(c.okMark):], nil
}

func indent(body string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// pyStr renders s as a Python single-quoted string literal.
func pyStr(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\x%02x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('\'')
	return b.String()
}
