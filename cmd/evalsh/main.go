package main

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/evalsh/evalsh/internal/channel"
	cliconfig "github.com/evalsh/evalsh/internal/cli/config"
	"github.com/evalsh/evalsh/internal/client"
	"github.com/evalsh/evalsh/internal/codec"
	"github.com/evalsh/evalsh/internal/interp"
	"github.com/evalsh/evalsh/internal/repl"
	"github.com/evalsh/evalsh/internal/session"
	"github.com/evalsh/evalsh/internal/transfer"
)

const banner = "evalsh — type 'exit' to quit, ':raw <code>' to send raw fragments."

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath  string
		contextName string
		idleTimeout time.Duration
		dialTimeout time.Duration
		historyFile string
	)

	cmd := &cobra.Command{
		Use:   "evalsh [host] [port]",
		Short: "Shell-like client for remote code-eval services",
		Long: "evalsh connects to a service that evaluates submitted code fragments and\n" +
			"wraps it in a shell-like session: familiar commands, a remote working\n" +
			"directory that persists across requests, and get/put file transfer over\n" +
			"the text-only channel.",
		Args:         cobra.MaximumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			host, port, err := parseTarget(args)
			if err != nil {
				return err
			}
			ep, err := client.Resolve(configPath, contextName, host, port, idleTimeout)
			if err != nil {
				return err
			}

			conn, err := channel.Dial(cmd.Context(), ep.Host, ep.Port, channel.Options{
				DialTimeout: dialTimeout,
				IdleTimeout: ep.IdleTimeout,
			})
			if err != nil {
				return err
			}
			defer conn.Close()

			// Some services greet on connect; show it before the first prompt.
			greeting, err := conn.DrainBanner()
			if err != nil {
				return err
			}
			if greeting != "" {
				fmt.Fprint(os.Stdout, greeting)
			}

			cdc := codec.New(conn)
			cwd, err := cdc.CurrentDir()
			if err != nil {
				var re *codec.RemoteError
				if !errors.As(err, &re) {
					return err
				}
				cwd = "/"
			}
			sess := session.New(cwd)
			it := interp.New(cdc, transfer.New(cdc), sess, os.Stdout, os.Stderr)

			fmt.Fprintln(os.Stdout, banner)
			return repl.Run(it, sess, historyFile)
		},
	}

	defaultConfig := os.Getenv("EVALSH_CONFIG")
	if defaultConfig == "" {
		defaultConfig = cliconfig.DefaultConfigPath()
	}
	cmd.Flags().StringVar(&configPath, "config", defaultConfig, "path to evalsh config file (default $HOME/.evalsh/config)")
	cmd.Flags().StringVar(&contextName, "context", "", "context name within the config (overrides currentContext)")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 0, "read-idle window that ends a response; defaults to config or 350ms")
	cmd.Flags().DurationVar(&dialTimeout, "dial-timeout", channel.DefaultDialTimeout, "TCP connect timeout")
	cmd.Flags().StringVar(&historyFile, "history", cliconfig.DefaultHistoryPath(), "history file path")
	return cmd
}

// parseTarget accepts "host port" or a single "host:port".
func parseTarget(args []string) (string, int, error) {
	switch len(args) {
	case 0:
		return "", 0, nil
	case 1:
		h, p, err := net.SplitHostPort(args[0])
		if err != nil {
			return "", 0, fmt.Errorf("target %q: expected host port or host:port", args[0])
		}
		pn, err := strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("port %q: %w", p, err)
		}
		return h, pn, nil
	default:
		pn, err := strconv.Atoi(args[1])
		if err != nil {
			return "", 0, fmt.Errorf("port %q: %w", args[1], err)
		}
		return args[0], pn, nil
	}
}
