package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeAgent   = "agent"
	ModeLogin   = "login"
	ModeLogout  = "logout"
	ModeStubAPI = "stub-api"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeAgent, "a":
		return ModeAgent, true
	case ModeLogin, "l":
		return ModeLogin, true
	case ModeLogout:
		return ModeLogout, true
	case ModeStubAPI, "stub", "stub_api":
		return ModeStubAPI, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `login --kind=rider`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for _, arg := range args {
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<mode>")
	}

	m, ok := isKnownMode(mode)
	if !ok {
		return "", out, fmt.Errorf("unknown mode %q", mode)
	}

	return m, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./taxi-client --mode=<mode> [flags]

Modes:
  agent        Session store, push consumer, taxi request tracker and websocket bridge
  login        Log in once as rider, driver or through the users endpoint
  logout       Forget the stored session
  stub-api     Development backend with seeded accounts

Examples:
  ./taxi-client --mode=stub-api --max-concurrent=50
  ./taxi-client --mode=login --kind=rider --email=rider@taxi.dev --push-token=dev-device
  ./taxi-client --mode=agent --config=config/config.yaml`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./taxi-client --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
