package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// printlnFn is a test seam for REPL output.
var printlnFn = fmt.Println

// isTerminal is a test seam for term.IsTerminal. The prompt is only shown
// when stdin is interactive so piped scripts produce clean output.
var isTerminal = term.IsTerminal

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests use a recording stub.
type execIface interface {
	AddBaby(ctx context.Context) error
	Babies(ctx context.Context) error
	UseBaby(ctx context.Context, args []string) error
	DeleteBaby(ctx context.Context, args []string) error
	AddFeed(ctx context.Context) error
	Feeds(ctx context.Context, args []string) error
	DeleteFeed(ctx context.Context, args []string) error
	AddStash(ctx context.Context) error
	Stash(ctx context.Context) error
	StashStatus(ctx context.Context, args []string) error
	DeleteStash(ctx context.Context, args []string) error
	Household(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
	Status(ctx context.Context) error
	Stats(ctx context.Context, args []string) error
	Reminder(ctx context.Context, args []string) error
	Theme(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  addbaby | babies | use <id> | delbaby <id>
  addfeed | feeds [n] | delfeed <id>
  addstash | stash | stashstatus <id> <stored|consumed|discarded> | delstash <id>
  household [create | join <code>]
  sync | status | stats [days] | reminder <on [minutes] | off> | theme <light|dark>
  export [file]
  exit`

var errUsage = errors.New("usage")

// runREPL reads one command per line from r and dispatches it to a until
// EOF, "exit" or "quit". Handler errors are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader) {
	interactive := isTerminal(int(os.Stdin.Fd()))
	for {
		if ctx.Err() != nil {
			return
		}
		if interactive {
			fmt.Printf("fk %s> ", statusFn())
		}
		line, err := r.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "addbaby":
			cmdErr = a.AddBaby(ctx)
		case "babies":
			cmdErr = a.Babies(ctx)
		case "use":
			cmdErr = a.UseBaby(ctx, args)
		case "delbaby":
			cmdErr = a.DeleteBaby(ctx, args)
		case "addfeed", "f":
			cmdErr = a.AddFeed(ctx)
		case "feeds", "l":
			cmdErr = a.Feeds(ctx, args)
		case "delfeed":
			cmdErr = a.DeleteFeed(ctx, args)
		case "addstash":
			cmdErr = a.AddStash(ctx)
		case "stash":
			cmdErr = a.Stash(ctx)
		case "stashstatus":
			cmdErr = a.StashStatus(ctx, args)
		case "delstash":
			cmdErr = a.DeleteStash(ctx, args)
		case "household":
			cmdErr = a.Household(ctx, args)
		case "sync":
			cmdErr = a.Sync(ctx)
		case "status":
			cmdErr = a.Status(ctx)
		case "stats":
			cmdErr = a.Stats(ctx, args)
		case "reminder":
			cmdErr = a.Reminder(ctx, args)
		case "theme":
			cmdErr = a.Theme(ctx, args)
		case "export":
			cmdErr = a.Export(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		switch {
		case errors.Is(cmdErr, errUsage):
			printlnFn(cmdErr.Error())
		case cmdErr != nil:
			printlnFn("error:", cmdErr)
		}
	}
}

func usage(s string) error {
	return fmt.Errorf("%w: %s", errUsage, s)
}

// oneArg returns the single argument or a usage error.
func oneArg(args []string, u string) (string, error) {
	if len(args) != 1 {
		return "", usage(u)
	}
	return args[0], nil
}
