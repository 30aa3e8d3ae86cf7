// Package session tracks the assumed remote working directory across
// requests. The remote evaluator keeps no shell state between calls, so the
// client re-asserts this directory on every command; it is only ever updated
// from a path the remote actually resolved.
package session

type Session struct {
	cwd  string
	prev string
}

// New seeds the session, normally with the directory reported by the remote
// at connect time. An empty seed falls back to "/".
func New(cwd string) *Session {
	if cwd == "" {
		cwd = "/"
	}
	return &Session{cwd: cwd}
}

func (s *Session) Cwd() string { return s.cwd }

// Prev is the directory before the last successful Chdir. Empty until the
// first change; backs `cd -`.
func (s *Session) Prev() string { return s.prev }

// Chdir records a confirmed directory change. resolved must be the absolute
// path the remote reported, never the raw user argument.
func (s *Session) Chdir(resolved string) {
	if resolved == "" || resolved == s.cwd {
		return
	}
	s.prev = s.cwd
	s.cwd = resolved
}

// Prompt renders the interactive prompt for the current directory.
func (s *Session) Prompt() string {
	if s.cwd == "" {
		return "> "
	}
	return s.cwd + "$ "
}
