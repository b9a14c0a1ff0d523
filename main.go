package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taxi-client/cmd/agent"
	"taxi-client/cmd/login"
	stubapi "taxi-client/cmd/stub_api"
	"taxi-client/internal/cli"
	"taxi-client/internal/domain/session"
)

const defaultConfigPath = "config/config.yaml"

func main() {
	// quick path for global help
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	// parse mode and collect the remaining args for that mode
	mode, modeArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch mode {

	case cli.ModeAgent:
		fs := flag.NewFlagSet(cli.ModeAgent, flag.ContinueOnError)
		cfgPath := fs.String("config", defaultConfigPath, "Path to the YAML config file")
		maxConc := fs.Int("max-concurrent", 100, "Maximum number of concurrent HTTP and websocket connections")
		cli.AttachUsage(fs, cli.ModeAgent)
		parseOrExit(fs, modeArgs)

		if *maxConc < 1 {
			fmt.Fprintln(os.Stderr, "Error: --max-concurrent must be >= 1")
			fs.Usage()
			os.Exit(2)
		}
		exitOnError(agent.Run(ctx, *cfgPath, *maxConc))

	case cli.ModeLogin:
		fs := flag.NewFlagSet(cli.ModeLogin, flag.ContinueOnError)
		cfgPath := fs.String("config", defaultConfigPath, "Path to the YAML config file")
		kind := fs.String("kind", "rider", "Login flow: rider | driver | users")
		email := fs.String("email", "", "Account email")
		password := fs.String("password", "", "Account password (defaults to $TAXI_PASSWORD)")
		pushToken := fs.String("push-token", "", "Push notification token of this device")
		cli.AttachUsage(fs, cli.ModeLogin)
		parseOrExit(fs, modeArgs)

		if *password == "" {
			*password = os.Getenv("TAXI_PASSWORD")
		}
		creds := session.Credentials{Email: *email, Password: *password, PushToken: *pushToken}
		exitOnError(login.Run(ctx, *cfgPath, *kind, creds, os.Stdout))

	case cli.ModeLogout:
		fs := flag.NewFlagSet(cli.ModeLogout, flag.ContinueOnError)
		cfgPath := fs.String("config", defaultConfigPath, "Path to the YAML config file")
		cli.AttachUsage(fs, cli.ModeLogout)
		parseOrExit(fs, modeArgs)

		exitOnError(login.RunLogout(ctx, *cfgPath, os.Stdout))

	case cli.ModeStubAPI:
		fs := flag.NewFlagSet(cli.ModeStubAPI, flag.ContinueOnError)
		cfgPath := fs.String("config", defaultConfigPath, "Path to the YAML config file")
		maxConc := fs.Int("max-concurrent", 50, "Maximum number of concurrent HTTP requests to process")
		cli.AttachUsage(fs, cli.ModeStubAPI)
		parseOrExit(fs, modeArgs)

		if *maxConc < 1 {
			fmt.Fprintln(os.Stderr, "Error: --max-concurrent must be >= 1")
			fs.Usage()
			os.Exit(2)
		}
		exitOnError(stubapi.Run(ctx, *cfgPath, *maxConc))

	default:
		// should not happen because ParseMode validates known modes
		fmt.Fprintln(os.Stderr, "Error: unknown mode")
		os.Exit(2)
	}

	// tiny delay to let deferred logs flush on very fast exits
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
}

func parseOrExit(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
