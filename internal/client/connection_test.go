package client

import (
	"path/filepath"
	"testing"
	"time"

	cliconfig "github.com/evalsh/evalsh/internal/cli/config"
)

func writeConfig(t *testing.T, cfg *cliconfig.Config) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveArgsTakePrecedence(t *testing.T) {
	path := writeConfig(t, &cliconfig.Config{
		CurrentContext: "lab",
		Contexts:       map[string]*cliconfig.Context{"lab": {Host: "10.0.0.5", Port: 9000}},
	})

	ep, err := Resolve(path, "", "192.168.1.10", 4444, 0)
	if err != nil {
		t.Fatal(err)
	}
	if ep.Host != "192.168.1.10" || ep.Port != 4444 {
		t.Fatalf("host=%q port=%d", ep.Host, ep.Port)
	}
}

func TestResolveFallsBackToContext(t *testing.T) {
	path := writeConfig(t, &cliconfig.Config{
		CurrentContext: "lab",
		Contexts:       map[string]*cliconfig.Context{"lab": {Host: "10.0.0.5", Port: 9000, IdleTimeoutMs: 500}},
	})

	ep, err := Resolve(path, "", "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if ep.Host != "10.0.0.5" || ep.Port != 9000 {
		t.Fatalf("host=%q port=%d", ep.Host, ep.Port)
	}
	if ep.IdleTimeout != 500*time.Millisecond {
		t.Fatalf("idle=%s", ep.IdleTimeout)
	}
}

func TestResolveEnvFallback(t *testing.T) {
	t.Setenv("EVALSH_ADDR", "172.16.0.2:31337")

	ep, err := Resolve("", "", "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if ep.Host != "172.16.0.2" || ep.Port != 31337 {
		t.Fatalf("host=%q port=%d", ep.Host, ep.Port)
	}
}

func TestResolveMissingTarget(t *testing.T) {
	t.Setenv("EVALSH_ADDR", "")

	if _, err := Resolve("", "", "", 0, 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestResolveInvalidPort(t *testing.T) {
	if _, err := Resolve("", "", "example.com", 0, 0); err == nil {
		t.Fatal("expected error for missing port")
	}
	if _, err := Resolve("", "", "example.com", 70000, 0); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestResolveUnknownContext(t *testing.T) {
	path := writeConfig(t, &cliconfig.Config{
		Contexts: map[string]*cliconfig.Context{"lab": {Host: "h", Port: 1}},
	})

	if _, err := Resolve(path, "nope", "", 0, 0); err == nil {
		t.Fatal("expected error")
	}
}
