// Command evera drives the account flows from a terminal. The session is
// persisted like the dashboard's, so a login here is seen by the shell.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	accountModels "evera/internal/account/models"
	"evera/internal/account/service"
	"evera/internal/app"
	"evera/internal/guard"
	"evera/internal/notify"
	"evera/internal/platform/config"
	"evera/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, config.FromEnv())
	stop()
	os.Exit(code)
}

// env carries what every command needs.
type env struct {
	app    *app.App
	stdin  *bufio.Reader
	stdout io.Writer
	log    *slog.Logger
}

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"login":           {"login -email E [-password P]", cmdLogin},
	"register":        {"register -first F -last L -email E -plan basic|standard|premium [-password P]", cmdRegister},
	"logout":          {"logout", cmdLogout},
	"forgot-password": {"forgot-password -email E", cmdForgotPassword},
	"validate-reset":  {"validate-reset -token T", cmdValidateReset},
	"reset-password":  {"reset-password -token T [-password P]", cmdResetPassword},
	"whoami":          {"whoami", cmdWhoami},
	"user":            {"user -id ID", cmdUser},
	"refresh-profile": {"refresh-profile", cmdRefreshProfile},
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, cfg config.Config) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(stderr)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		printUsage(stderr)
		return 2
	}

	// Warnings only: the notifications already tell the user what happened.
	if cfg.Log.Level == "" || cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	log := logger.NewWithWriter(stderr, cfg.Log)

	shown := &errorCounter{Notifier: notify.NewWriter(stderr)}
	a, err := app.New(ctx, cfg, app.WithLogger(log), app.WithNotifier(shown))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer a.Close()

	e := &env{app: a, stdin: bufio.NewReader(stdin), stdout: stdout, log: log}
	if err := cmd.run(ctx, e, args[1:]); err != nil {
		switch fields := service.FieldErrors(err); {
		case len(fields) > 0:
			printFieldErrors(stderr, fields)
		case shown.count == 0:
			shown.Notify(ctx, notify.Error(err.Error()))
		}
		log.DebugContext(ctx, "command failed", "command", args[0], "error", err)
		return 1
	}
	return 0
}

// errorCounter remembers whether an error was already shown, so a failure
// is printed once.
type errorCounter struct {
	notify.Notifier
	count int
}

func (c *errorCounter) Notify(ctx context.Context, n notify.Notification) {
	if n.Level == notify.LevelError {
		c.count++
	}
	c.Notifier.Notify(ctx, n)
}

func printUsage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: evera <command> [flags]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

func printFieldErrors(w io.Writer, fields map[string]string) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %s\n", name, fields[name])
	}
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// secret returns value, or reads one line from stdin when value is empty.
func (e *env) secret(value string) (string, error) {
	if value != "" {
		return value, nil
	}
	line, err := e.stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (e *env) print(v any) error {
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password; read from stdin when omitted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw, err := e.secret(*password)
	if err != nil {
		return err
	}

	result, err := e.app.Accounts.SignIn(ctx, accountModels.SignInRequest{Email: *email, Password: pw})
	if err != nil {
		return err
	}
	return e.print(map[string]any{
		"displayName": result.Profile.DisplayName(),
		"landing":     guard.LandingPath(result.Profile),
	})
}

func cmdRegister(ctx context.Context, e *env, args []string) error {
	fs := newFlags("register")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	email := fs.String("email", "", "account email")
	plan := fs.String("plan", "", "basic, standard or premium")
	password := fs.String("password", "", "password; read from stdin when omitted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw, err := e.secret(*password)
	if err != nil {
		return err
	}

	result, err := e.app.Accounts.SignUp(ctx, accountModels.SignUpRequest{
		FirstName:       *first,
		LastName:        *last,
		Email:           *email,
		Password:        pw,
		ConfirmPassword: pw,
		Plan:            accountModels.Plan(*plan),
	})
	if err != nil {
		return err
	}
	return e.print(result)
}

func cmdLogout(ctx context.Context, e *env, _ []string) error {
	// The local session is gone either way; a backend failure is only logged.
	if err := e.app.Accounts.Logout(ctx); err != nil {
		e.log.WarnContext(ctx, "backend logout failed", "error", err)
	}
	return nil
}

func cmdForgotPassword(ctx context.Context, e *env, args []string) error {
	fs := newFlags("forgot-password")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	result, err := e.app.Accounts.ForgotPassword(ctx, accountModels.ForgotPasswordRequest{Email: *email})
	if err != nil {
		return err
	}
	return e.print(result)
}

func cmdValidateReset(ctx context.Context, e *env, args []string) error {
	fs := newFlags("validate-reset")
	token := fs.String("token", "", "token from the reset link")
	if err := fs.Parse(args); err != nil {
		return err
	}
	result, err := e.app.Accounts.ValidateResetToken(ctx, *token)
	if err != nil {
		return err
	}
	if err := e.print(result); err != nil {
		return err
	}
	if !result.IsValid() {
		return errors.New(result.Message)
	}
	return nil
}

func cmdResetPassword(ctx context.Context, e *env, args []string) error {
	fs := newFlags("reset-password")
	token := fs.String("token", "", "token from the reset link")
	password := fs.String("password", "", "new password; read from stdin when omitted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw, err := e.secret(*password)
	if err != nil {
		return err
	}
	result, err := e.app.Accounts.ResetPassword(ctx, *token, accountModels.ResetPasswordRequest{
		Password:        pw,
		ConfirmPassword: pw,
	})
	if err != nil {
		return err
	}
	return e.print(result)
}

func cmdWhoami(_ context.Context, e *env, _ []string) error {
	session := e.app.Session
	if !session.IsAuthenticated() {
		return e.print(map[string]any{"authenticated": false})
	}
	profile := session.Profile()
	out := map[string]any{
		"authenticated": true,
		"displayName":   profile.DisplayName(),
		"profile":       profile,
		"landing":       guard.LandingPath(profile),
	}
	if exp, ok := session.Credential().ExpiresAt(); ok {
		out["expiresAt"] = exp.UTC()
	}
	return e.print(out)
}

func cmdUser(ctx context.Context, e *env, args []string) error {
	fs := newFlags("user")
	id := fs.String("id", "", "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	profiles, err := e.app.Accounts.FindByID(ctx, *id)
	if err != nil {
		return err
	}
	return e.print(profiles)
}

func cmdRefreshProfile(ctx context.Context, e *env, _ []string) error {
	profile, err := e.app.Accounts.RefreshProfile(ctx)
	if err != nil {
		return err
	}
	return e.print(profile)
}
