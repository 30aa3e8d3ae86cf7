package interp

import (
	"fmt"
	"strings"
)

// Command is the closed set of things a typed line can mean. Classification
// happens once, in Parse; dispatch never sniffs strings.
type Command interface {
	isCommand()
}

// Shell runs the line as a remote subprocess in the session directory. The
// raw line is preserved: it executes under shell=True remotely, so the client
// does no word splitting of its own.
type Shell struct {
	Line string
}

// Chdir changes the session directory. An empty Path means the remote home;
// "-" means the previous directory.
type Chdir struct {
	Path string
}

// Raw sends a code fragment verbatim to the remote evaluator.
type Raw struct {
	Code string
}

// Get downloads a remote file. Local defaults to the remote base name.
type Get struct {
	Remote string
	Local  string
}

// Put uploads a local file. Remote defaults to the local base name under the
// session directory.
type Put struct {
	Local  string
	Remote string
}

// Exit ends the session.
type Exit struct{}

// Nop is a blank line.
type Nop struct{}

func (Shell) isCommand() {}
func (Chdir) isCommand() {}
func (Raw) isCommand()   {}
func (Get) isCommand()   {}
func (Put) isCommand()   {}
func (Exit) isCommand()  {}
func (Nop) isCommand()   {}

// Parse classifies one input line.
func Parse(line string) (Command, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Nop{}, nil
	}
	if trimmed == "exit" || trimmed == "quit" {
		return Exit{}, nil
	}
	if trimmed == ":raw" {
		return Raw{}, nil
	}
	if rest, ok := strings.CutPrefix(trimmed, ":raw "); ok {
		// Verbatim: indentation after the keyword is part of the fragment.
		return Raw{Code: rest}, nil
	}

	fields, err := splitQuoted(trimmed)
	if err != nil {
		return nil, err
	}
	switch fields[0] {
	case "cd":
		switch len(fields) {
		case 1:
			return Chdir{}, nil
		case 2:
			return Chdir{Path: fields[1]}, nil
		default:
			return nil, fmt.Errorf("cd: too many arguments")
		}
	case "get", ":get":
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("usage: get <remote> [local]")
		}
		g := Get{Remote: fields[1]}
		if len(fields) == 3 {
			g.Local = fields[2]
		}
		return g, nil
	case "put", ":put":
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("usage: put <local> [remote]")
		}
		p := Put{Local: fields[1]}
		if len(fields) == 3 {
			p.Remote = fields[2]
		}
		return p, nil
	}
	return Shell{Line: trimmed}, nil
}

// splitQuoted splits on whitespace, honoring single and double quotes so
// paths with spaces survive.
func splitQuoted(s string) ([]string, error) {
	var (
		fields  []string
		cur     strings.Builder
		quote   rune
		started bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			started = true
		case r == ' ' || r == '\t':
			if started {
				fields = append(fields, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %q quote", quote)
	}
	if started {
		fields = append(fields, cur.String())
	}
	return fields, nil
}
