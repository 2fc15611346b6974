package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Root runs the interactive command loop until the user exits or stdin is
// closed.
func (a *App) Root(ctx context.Context) {
	fmt.Println("stockpilot auth console. Type `help` for commands.")

	for {
		fmt.Print(a.prompt(ctx))

		line, err := a.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return
			}
			fmt.Println("Error reading command:", err)
			return
		}

		cmd := strings.Fields(strings.TrimSpace(line))
		if len(cmd) == 0 {
			continue
		}

		switch cmd[0] {
		case "help":
			a.printHelp()
		case "login":
			a.Login(ctx)
		case "register":
			a.Register(ctx)
		case "logout":
			a.Logout(ctx)
		case "whoami":
			a.WhoAmI(ctx)
		case "offline":
			a.OfflineCmd(ctx, cmd[1:])
		case "probe":
			a.Probe(ctx)
		case "users":
			a.Users(ctx)
		case "exit", "quit":
			return
		default:
			fmt.Printf("Unknown command %q. Type `help` for commands.\n", cmd[0])
		}
	}
}

func (a *App) prompt(ctx context.Context) string {
	mode := "online"
	if offline, err := a.mode.IsOfflineModeEnabled(ctx); err == nil && offline {
		mode = "offline"
	}

	who := "-"
	if session := a.session.Current(); session != nil {
		who = session.User.Email
	}

	return fmt.Sprintf("stockpilot [%s %s]> ", who, mode)
}

func (a *App) printHelp() {
	fmt.Println(`Commands:
  login          sign in (remote or local, depending on mode)
  register       create a remote account (online mode only)
  logout         sign out of the active session
  whoami         show the active session
  offline        show the current mode
  offline on     enable offline mode
  offline off    disable offline mode
  probe          check network connectivity
  users          list locally provisioned accounts
  exit           quit`)
}

// OfflineCmd shows or toggles the persisted offline mode flag. The toggle
// affects the next sign-in/sign-out only; the active session stays as is.
func (a *App) OfflineCmd(ctx context.Context, args []string) {
	if len(args) == 0 {
		offline, err := a.mode.IsOfflineModeEnabled(ctx)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		if offline {
			fmt.Println("Offline mode is on.")
		} else {
			fmt.Println("Offline mode is off.")
		}
		return
	}

	var enable bool
	switch args[0] {
	case "on":
		enable = true
	case "off":
		enable = false
	default:
		fmt.Println("Usage: offline [on|off]")
		return
	}

	if err := a.mode.SetOfflineMode(ctx, enable); err != nil {
		fmt.Println("Error:", err)
		return
	}
	if enable {
		fmt.Println("Offline mode enabled. It applies from the next sign-in.")
	} else {
		fmt.Println("Offline mode disabled. It applies from the next sign-in.")
	}
}

// Probe runs a one-off connectivity check against the configured endpoint.
func (a *App) Probe(ctx context.Context) {
	if a.prober.CheckConnectivity(ctx) {
		fmt.Println("Network reachable.")
	} else {
		fmt.Println("Network unreachable.")
	}
}

// Users lists accounts provisioned in the local credential store.
func (a *App) Users(ctx context.Context) {
	users, err := a.repos.Users.List(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(users) == 0 {
		fmt.Println("No local accounts.")
		return
	}
	for _, u := range users {
		last := "never"
		if !u.LastSignIn.IsZero() {
			last = u.LastSignIn.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%s  created %s  last sign-in %s\n", u.Email, u.CreatedAt.Format("2006-01-02"), last)
	}
}
