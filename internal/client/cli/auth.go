package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/vposukhov/stockpilot/internal/client/client"
	"github.com/vposukhov/stockpilot/internal/client/models"
	"github.com/vposukhov/stockpilot/internal/common"
)

// test seams
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// Login prompts for credentials and signs in through the session arbiter.
// The arbiter picks the remote or the offline path based on the current mode.
func (a *App) Login(ctx context.Context) {
	email, err := getSimpleText(a.reader, "Enter email:", os.Stdout)
	if err != nil {
		fmt.Println("Error reading email:", err)
		return
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		fmt.Println("Error reading password:", err)
		return
	}
	defer common.WipeByteArray(password)

	if err := a.session.SignIn(ctx, email, password); err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, client.ErrUnauthorized):
			fmt.Println("Invalid email or password.")
		case errors.Is(err, client.ErrUnavailable):
			fmt.Println("Identity backend is unreachable. Try `offline on` to keep working locally.")
		default:
			fmt.Println("Sign-in failed:", err)
		}
		return
	}

	session := a.session.Current()
	fmt.Printf("Signed in as %s (%s).\n", session.User.Email, sourceLabel(session.Source))
}

// Register creates a remote account. Account creation is an online-only
// operation; in offline mode local accounts are provisioned implicitly on
// first sign-in instead.
func (a *App) Register(ctx context.Context) {
	offline, err := a.mode.IsOfflineModeEnabled(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if offline {
		fmt.Println("Registration requires online mode. In offline mode just `login`; a local account is created on first use.")
		return
	}

	email, err := getSimpleText(a.reader, "Enter email:", os.Stdout)
	if err != nil {
		fmt.Println("Error reading email:", err)
		return
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		fmt.Println("Error reading password:", err)
		return
	}
	defer common.WipeByteArray(password)

	if err := a.remote.SignUp(ctx, email, string(password)); err != nil {
		switch {
		case errors.Is(err, common.ErrDuplicateAccount):
			fmt.Println("An account with this email already exists.")
		case errors.Is(err, common.ErrInvalidEmailFormat):
			fmt.Println("Invalid email format.")
		case errors.Is(err, client.ErrUnavailable):
			fmt.Println("Identity backend is unreachable.")
		default:
			fmt.Println("Registration failed:", err)
		}
		return
	}

	fmt.Println("Account created. You can now `login`.")
}

// Logout signs out of the active session, whichever backend produced it.
func (a *App) Logout(ctx context.Context) {
	if !a.session.IsAuthenticated() {
		fmt.Println("Not signed in.")
		return
	}

	if err := a.session.SignOut(ctx); err != nil {
		fmt.Println("Sign-out failed:", err)
		return
	}
	fmt.Println("Signed out.")
}

// WhoAmI prints the active unified session.
func (a *App) WhoAmI(ctx context.Context) {
	session := a.session.Current()
	if session == nil {
		fmt.Println("Not signed in.")
		return
	}
	fmt.Printf("%s (%s, id %s)\n", session.User.Email, sourceLabel(session.Source), session.User.ID)
}

func sourceLabel(source models.SessionSource) string {
	if source == models.SourceLocal {
		return "offline"
	}
	return "online"
}
