package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	if a.gw.ForcedOffline() {
		return "forced-offline"
	}
	if a.conn.IsOnline() {
		return "online"
	}
	return "offline"
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// Root runs the read-eval-print loop until EOF or an exit command.
func (a *App) Root(ctx context.Context) {
	a.printf("Welcome to larder (type 'help' for commands)\n")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		a.printf("larder (%s)> ", a.getStatus())
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			a.printf("Available commands:\n")
			a.printf("  list                          list items with their statuses\n")
			a.printf("  add                           add an item (interactive)\n")
			a.printf("  show <id>                     show one item\n")
			a.printf("  move <id> <location>          change an item's storage location\n")
			a.printf("  classify <id> <class> [flag]  set classification and flags\n")
			a.printf("  declassify <id>               revert an item to unclassified\n")
			a.printf("  rm <id>                       delete an item\n")
			a.printf("  pending                       show queued and stuck changes\n")
			a.printf("  sync                          run a synchronization pass now\n")
			a.printf("  mode [online|offline]         show or force the connectivity mode\n")
			a.printf("  exit                          leave\n")

		case "l", "list":
			a.list(ctx)
		case "add":
			a.add(ctx)
		case "show":
			a.show(ctx, args)
		case "move":
			a.move(ctx, args)
		case "classify":
			a.classify(ctx, args)
		case "declassify":
			a.declassify(ctx, args)
		case "rm":
			a.remove(ctx, args)
		case "pending":
			a.pending(ctx)
		case "sync":
			a.sync(ctx)
		case "mode":
			a.mode(args)
		case "exit", "quit":
			a.printf("Bye!\n")
			return
		default:
			a.printf("Unknown command: %s\n", cmd)
		}
	}
}

func (a *App) mode(args []string) {
	if len(args) == 0 {
		a.printf("%s\n", a.getStatus())
		return
	}
	switch args[0] {
	case "offline":
		a.gw.SetForcedOffline(true)
	case "online":
		a.gw.SetForcedOffline(false)
	default:
		a.printf("Usage: mode [online|offline]\n")
		return
	}
	a.printf("Switched to %s mode\n", a.getStatus())
}
