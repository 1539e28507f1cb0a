// Package main provides a CLI that runs one ledger operation against the
// configured state store and prints the result as JSON.
//
// Usage:
//
//	ledgerctl [flags] <command> [args]
//
// Exit status: 0 success, 1 infrastructure failure, 2 usage error,
// 3 ledger rejection (the code is printed).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"incentive-token/internal/api"
	"incentive-token/internal/app"
	"incentive-token/internal/config"
	"incentive-token/internal/domain"
	"incentive-token/internal/identity"
	"incentive-token/internal/ledger"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitRejected = 3
)

// command is one CLI subcommand.
type command struct {
	usage   string
	minArgs int
	maxArgs int
	run     func(ctx context.Context, e *env, args []string) (interface{}, error)
}

// env is what a command runs against.
type env struct {
	ledger *ledger.Ledger
	scheme identity.Scheme
	caller domain.Account
}

var commands = map[string]command{
	"token":         {usage: "token", run: runToken},
	"balance":       {usage: "balance <account>", minArgs: 1, maxArgs: 1, run: runBalance},
	"minter":        {usage: "minter <account>", minArgs: 1, maxArgs: 1, run: runIsMinter},
	"record":        {usage: "record <id>", minArgs: 1, maxArgs: 1, run: runRecord},
	"audit":         {usage: "audit", run: runAudit},
	"mint":          {usage: "mint <recipient> <amount> [metadata]", minArgs: 2, maxArgs: 3, run: runMint},
	"transfer":      {usage: "transfer <sender> <recipient> <amount> [memo]", minArgs: 3, maxArgs: 4, run: runTransfer},
	"burn":          {usage: "burn <amount>", minArgs: 1, maxArgs: 1, run: runBurn},
	"pause":         {usage: "pause", run: runPause},
	"unpause":       {usage: "unpause", run: runUnpause},
	"set-admin":     {usage: "set-admin <account>", minArgs: 1, maxArgs: 1, run: runSetAdmin},
	"add-minter":    {usage: "add-minter <account>", minArgs: 1, maxArgs: 1, run: runAddMinter},
	"remove-minter": {usage: "remove-minter <account>", minArgs: 1, maxArgs: 1, run: runRemoveMinter},
	"set-uri":       {usage: "set-uri [uri]", maxArgs: 1, run: runSetURI},
}

// Commands that need -caller.
var mutating = map[string]bool{
	"mint": true, "transfer": true, "burn": true, "pause": true, "unpause": true,
	"set-admin": true, "add-minter": true, "remove-minter": true, "set-uri": true,
}

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(exitFailure)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ledgerctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := config.RegisterFlags(fs)
	callerFlag := fs.String("caller", os.Getenv("LEDGER_CALLER"), "Caller account for mutating commands")
	verbose := fs.Bool("v", false, "Log store and ledger activity to stderr")
	fs.Usage = func() { usage(fs, stderr) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		usage(fs, stderr)
		return exitUsage
	}
	name, cmdArgs := rest[0], rest[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n", name)
		return exitUsage
	}
	if len(cmdArgs) < cmd.minArgs || len(cmdArgs) > cmd.maxArgs {
		fmt.Fprintf(stderr, "Usage: ledgerctl [flags] %s\n", cmd.usage)
		return exitUsage
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	scheme, err := cfg.Scheme()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	e := &env{scheme: scheme}
	if mutating[name] {
		if *callerFlag == "" {
			fmt.Fprintln(stderr, "Error: -caller is required for", name)
			return exitUsage
		}
		if e.caller, err = scheme.Parse(*callerFlag); err != nil {
			fmt.Fprintf(stderr, "Error: caller: %v\n", err)
			return exitUsage
		}
	}

	logOut := io.Discard
	if *verbose {
		logOut = stderr
	}
	logger := log.New(logOut, "[ledgerctl] ", log.LstdFlags)

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening store: %v\n", err)
		return exitFailure
	}
	defer closeStore()

	e.ledger, err = app.OpenLedger(ctx, cfg, ledger.Options{
		Store:  store,
		Logger: log.New(logOut, "[ledger] ", log.LstdFlags),
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error opening ledger: %v\n", err)
		return exitFailure
	}

	result, err := cmd.run(ctx, e, cmdArgs)
	if err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
		if code, ok := ledger.CodeOf(err); ok {
			printJSON(stdout, rejection{Code: int(code), Name: code.String(), Error: err.Error()})
			return exitRejected
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	printJSON(stdout, result)
	return exitOK
}

func usage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Usage: ledgerctl [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, name := range []string{
		"token", "balance", "minter", "record", "audit",
		"mint", "transfer", "burn", "pause", "unpause",
		"set-admin", "add-minter", "remove-minter", "set-uri",
	} {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}

// rejection is printed when the ledger refuses an operation.
type rejection struct {
	Code  int    `json:"code"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// usageError marks a malformed command argument.
type usageError struct{ err error }

func (u usageError) Error() string { return u.err.Error() }

func printJSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (e *env) account(raw string) (domain.Account, error) {
	a, err := e.scheme.Parse(raw)
	if err != nil {
		return "", usageError{fmt.Errorf("account %q: %w", raw, err)}
	}
	return a, nil
}

func parseAmount(raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, usageError{fmt.Errorf("amount %q: not an integer", raw)}
	}
	return n, nil
}

func runToken(ctx context.Context, e *env, args []string) (interface{}, error) {
	return api.NewTokenView(e.ledger.Config()), nil
}

func runBalance(ctx context.Context, e *env, args []string) (interface{}, error) {
	acct, err := e.account(args[0])
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"account": string(acct), "balance": e.ledger.BalanceOf(acct)}, nil
}

func runIsMinter(ctx context.Context, e *env, args []string) (interface{}, error) {
	acct, err := e.account(args[0])
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"account": string(acct), "minter": e.ledger.IsMinter(acct)}, nil
}

func runRecord(ctx context.Context, e *env, args []string) (interface{}, error) {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return nil, usageError{fmt.Errorf("id %q: not an unsigned integer", args[0])}
	}
	rec, ok := e.ledger.MintRecord(id)
	if !ok {
		return nil, nil
	}
	return api.NewMintRecordView(rec), nil
}

func runAudit(ctx context.Context, e *env, args []string) (interface{}, error) {
	return api.NewAuditView(e.ledger.Audit()), nil
}

func runMint(ctx context.Context, e *env, args []string) (interface{}, error) {
	recipient, err := e.account(args[0])
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return nil, err
	}
	var metadata string
	if len(args) > 2 {
		metadata = args[2]
	}
	rec, err := e.ledger.Mint(ctx, e.caller, amount, recipient, metadata)
	if err != nil {
		return nil, err
	}
	return api.NewMintRecordView(rec), nil
}

func runTransfer(ctx context.Context, e *env, args []string) (interface{}, error) {
	sender, err := e.account(args[0])
	if err != nil {
		return nil, err
	}
	recipient, err := e.account(args[1])
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(args[2])
	if err != nil {
		return nil, err
	}
	var memo *string
	if len(args) > 3 {
		memo = &args[3]
	}
	if err := e.ledger.Transfer(ctx, e.caller, amount, sender, recipient, memo); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"sender":    e.ledger.BalanceOf(sender),
		"recipient": e.ledger.BalanceOf(recipient),
	}, nil
}

func runBurn(ctx context.Context, e *env, args []string) (interface{}, error) {
	amount, err := parseAmount(args[0])
	if err != nil {
		return nil, err
	}
	if err := e.ledger.Burn(ctx, e.caller, amount); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"balance":      e.ledger.BalanceOf(e.caller),
		"total_supply": e.ledger.TotalSupply(),
	}, nil
}

func runPause(ctx context.Context, e *env, args []string) (interface{}, error) {
	if err := e.ledger.Pause(ctx, e.caller); err != nil {
		return nil, err
	}
	return true, nil
}

func runUnpause(ctx context.Context, e *env, args []string) (interface{}, error) {
	if err := e.ledger.Unpause(ctx, e.caller); err != nil {
		return nil, err
	}
	return true, nil
}

func runSetAdmin(ctx context.Context, e *env, args []string) (interface{}, error) {
	acct, err := e.account(args[0])
	if err != nil {
		return nil, err
	}
	if err := e.ledger.SetAdmin(ctx, e.caller, acct); err != nil {
		return nil, err
	}
	return true, nil
}

func runAddMinter(ctx context.Context, e *env, args []string) (interface{}, error) {
	acct, err := e.account(args[0])
	if err != nil {
		return nil, err
	}
	if err := e.ledger.AddMinter(ctx, e.caller, acct); err != nil {
		return nil, err
	}
	return true, nil
}

func runRemoveMinter(ctx context.Context, e *env, args []string) (interface{}, error) {
	acct, err := e.account(args[0])
	if err != nil {
		return nil, err
	}
	if err := e.ledger.RemoveMinter(ctx, e.caller, acct); err != nil {
		return nil, err
	}
	return true, nil
}

// runSetURI clears the URI when no argument is given.
func runSetURI(ctx context.Context, e *env, args []string) (interface{}, error) {
	var uri *string
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		uri = &args[0]
	}
	if err := e.ledger.SetTokenURI(ctx, e.caller, uri); err != nil {
		return nil, err
	}
	return true, nil
}
