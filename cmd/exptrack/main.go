// Command exptrack is a terminal client for the expense tracker backend.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"exptrack/internal/amqp"
	"exptrack/internal/api"
	"exptrack/internal/app"
	"exptrack/internal/cli"
	"exptrack/internal/config"
	"exptrack/internal/log"
	"exptrack/internal/state"
)

// errReported marks failures already explained to the user.
var errReported = errors.New("reported")

type env struct {
	cfg    *config.Config
	logger *log.Logger
	tokens *state.Tokens
	app    *app.App
	in     *bufio.Reader
	out    io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"login":           {"login [-u username] [-p password]", runLogin},
	"google-login":    {"google-login", runGoogleLogin},
	"register":        {"register -u username -e email [-p password] [-first name] [-last name] [-country name]", runRegister},
	"logout":          {"logout", runLogout},
	"status":          {"status", runStatus},
	"open":            {"open [path]", runOpen},
	"dashboard":       {"dashboard [-start yyyy-mm-dd] [-end yyyy-mm-dd]", runDashboard},
	"country":         {"country <name>", runCountry},
	"reports":         {"reports [-start yyyy-mm-dd] [-end yyyy-mm-dd]", runReports},
	"export":          {"export [-start yyyy-mm-dd] [-end yyyy-mm-dd] [-target csv|sheets] [-dir path]", runExport},
	"forgot-password": {"forgot-password [identifier]", runForgotPassword},
	"reset-password":  {"reset-password -token token [-p password]", runResetPassword},
	"transactions":    {"transactions [-start yyyy-mm-dd] [-end yyyy-mm-dd] [-type expense|income]", runTransactions},
	"password":        {"password [-old current] [-new password]", runPassword},
	"admin":           {"admin users|stats|block <id>|unblock <id>|promote <id>|role <id> <role>|delete <id>", runAdmin},
	"add":             {"add -amount 12.50 [-type expense|income] [-category id] [-account id] [-d text] [-date yyyy-mm-dd]", runAdd},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: exptrack <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		usage(os.Stderr)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage(os.Stderr)
		return 2
	}

	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	tokens, closeState, err := cli.OpenState(cfg, logger)
	if err != nil {
		logger.Error("Failed to open client state", log.FieldError, err)
		return 1
	}
	defer closeState()

	opts := app.Options{
		API: api.Options{
			BaseURL:   cfg.APIURL,
			Timeout:   cfg.APITimeout,
			CacheTTL:  cfg.CacheTTL,
			UserAgent: "exptrack-cli",
		},
		Tokens: tokens,
		Logger: logger,
	}
	if cfg.AMQPURL != "" {
		bus, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// Session events are best effort.
			logger.Warn("Session events disabled", log.FieldError, err)
		} else {
			defer bus.Close()
			opts.Sink = bus
		}
	}

	a, err := app.New(opts)
	if err != nil {
		logger.Error("Failed to initialize client", log.FieldError, err)
		return 1
	}

	ctx, cancel := cli.GracefulShutdown(logger, 5*time.Second, nil)
	defer cancel()

	e := &env{cfg: cfg, logger: logger, tokens: tokens, app: a, in: bufio.NewReader(os.Stdin), out: os.Stdout}
	if err := a.Start(ctx); err != nil {
		logger.Error("Failed to restore session", log.FieldError, err)
		return 1
	}

	runErr := cmd.run(ctx, e, args[1:])
	if n, err := a.Drain(ctx); err != nil {
		logger.Error("Failed to end expired session", log.FieldError, err)
	} else if n > 0 {
		fmt.Fprintln(os.Stderr, "Your session has expired. Please sign in again.")
	}

	switch {
	case runErr == nil:
		return 0
	case errors.Is(runErr, errReported):
		return 1
	default:
		fmt.Fprintln(os.Stderr, runErr)
		return 1
	}
}
