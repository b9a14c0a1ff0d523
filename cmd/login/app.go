package login

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"taxi-client/internal/cli"
	"taxi-client/internal/domain/session"
	"taxi-client/internal/general/config"
	"taxi-client/internal/general/logger"
	authservice "taxi-client/internal/software/auth/service"
)

// ErrLoginFailed is returned when the backend answered but did not log us in.
var ErrLoginFailed = errors.New("login failed")

// Run performs one login attempt, stores the session and reports the outcome to out.
func Run(ctx context.Context, configPath, kindStr string, creds session.Credentials, out io.Writer) error {
	log := logger.New("taxi-login")
	ctx = logger.WithNewRequestID(ctx)

	kind, err := authservice.ParseKind(kindStr)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load configuration", err, map[string]any{"path": configPath})
		return err
	}

	storage, err := cli.OpenStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer storage.Close()

	store, err := storage.SessionStore(ctx, log)
	if err != nil {
		return err
	}

	client, err := authservice.NewClient(log, &http.Client{}, store, cfg.API.BaseURL, cfg.API.RequestTimeout)
	if err != nil {
		return err
	}

	outcome, err := client.LoginAs(ctx, kind, creds)
	if err != nil {
		return err
	}
	return report(out, outcome)
}

// RunLogout clears the stored session.
func RunLogout(ctx context.Context, configPath string, out io.Writer) error {
	log := logger.New("taxi-login")
	ctx = logger.WithNewRequestID(ctx)

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load configuration", err, map[string]any{"path": configPath})
		return err
	}

	storage, err := cli.OpenStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer storage.Close()

	store, err := storage.SessionStore(ctx, log)
	if err != nil {
		return err
	}
	if err := store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "logged out")
	return nil
}

func report(out io.Writer, outcome authservice.Outcome) error {
	switch o := outcome.(type) {
	case *authservice.Success:
		fmt.Fprintf(out, "logged in as %s\n", o.Session.ActorType)
		return nil
	case *authservice.Failure:
		fmt.Fprintf(out, "login rejected: %s\n", o.Kind)
		return fmt.Errorf("%w: %s", ErrLoginFailed, o.Kind)
	case *authservice.TransportFailure:
		fmt.Fprintf(out, "login did not complete: %v\n", o)
		if o.Problem != nil {
			for field, msgs := range o.Problem.Errors {
				for _, m := range msgs {
					fmt.Fprintf(out, "  %s: %s\n", field, m)
				}
			}
		}
		return fmt.Errorf("%w: %w", ErrLoginFailed, o)
	default:
		return fmt.Errorf("%w: unexpected outcome %T", ErrLoginFailed, outcome)
	}
}
