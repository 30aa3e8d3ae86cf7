package client

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	cliconfig "github.com/evalsh/evalsh/internal/cli/config"
)

type Endpoint struct {
	Host        string
	Port        int
	IdleTimeout time.Duration
	ConfigPath  string
	ContextName string
	Config      *cliconfig.Config
	Context     *cliconfig.Context
}

// Resolve mirrors cmd/evalsh's target semantics:
// 1) positional args (host, port) and flags (idle timeout, contextName)
// 2) config file context values
// 3) environment (EVALSH_ADDR as host:port)
func Resolve(configPath, contextName, host string, port int, idle time.Duration) (*Endpoint, error) {
	ep := &Endpoint{
		ConfigPath:  configPath,
		ContextName: contextName,
		Host:        host,
		Port:        port,
		IdleTimeout: idle,
	}

	if ep.ConfigPath != "" {
		cfg, err := cliconfig.Load(ep.ConfigPath)
		if err != nil {
			return nil, err
		}
		ep.Config = cfg
	}

	if ep.Config != nil {
		ctx, _, err := ep.Config.Resolve(ep.ContextName)
		if err != nil {
			return nil, err
		}
		ep.Context = ctx
	}

	if ep.Host == "" && ep.Context != nil {
		ep.Host = ep.Context.Host
		if ep.Port == 0 {
			ep.Port = ep.Context.Port
		}
	}

	if ep.IdleTimeout == 0 && ep.Context != nil && ep.Context.IdleTimeoutMs > 0 {
		ep.IdleTimeout = time.Duration(ep.Context.IdleTimeoutMs) * time.Millisecond
	}

	if ep.Host == "" {
		if addr := os.Getenv("EVALSH_ADDR"); addr != "" {
			h, p, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, fmt.Errorf("EVALSH_ADDR: %w", err)
			}
			pn, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("EVALSH_ADDR port: %w", err)
			}
			ep.Host, ep.Port = h, pn
		}
	}

	if ep.Host == "" {
		return nil, fmt.Errorf("target host is required (argument, context, or EVALSH_ADDR)")
	}
	if ep.Port <= 0 || ep.Port > 65535 {
		return nil, fmt.Errorf("target port %d is invalid", ep.Port)
	}

	return ep, nil
}
