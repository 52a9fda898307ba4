package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/client/api"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/client/models"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/common"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/entitlement"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// describe turns an error into a line for the user.
func describe(err error) string {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, api.ErrUnavailable):
		return "server unavailable, try again when online"
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		return err.Error()
	}
}

// Register prompts for email, name and password and creates an account.
// The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Enter name", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.authService.Register(ctx, email, password, name)
	if err != nil {
		a.noteFailure(err)
		return err
	}

	a.setUser(u.Email, true)
	a.setMode(ModeOnline)
	fmt.Fprintf(a.out, "Registered as %s (plan %s)\n", u.Email, u.Plan)
	return nil
}

// Login prompts for credentials and signs in.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.authService.Login(ctx, email, password)
	if err != nil {
		a.noteFailure(err)
		return err
	}

	a.setUser(u.Email, true)
	a.setMode(ModeOnline)
	fmt.Fprintf(a.out, "Logged in as %s\n", u.Email)
	return nil
}

// Logout ends the session. Local state is dropped even if the server could
// not be reached.
func (a *App) Logout(ctx context.Context) error {
	err := a.authService.Logout(ctx)
	a.setUser("", false)
	if err != nil {
		a.noteFailure(err)
		fmt.Fprintln(a.out, "Logged out locally")
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Me prints the profile of the signed-in user.
func (a *App) Me(ctx context.Context) error {
	u, err := a.authService.CurrentUser(ctx)
	if err != nil {
		a.noteFailure(err)
		return err
	}
	a.printUser(u)
	return nil
}

// Upgrade switches the plan of the signed-in user.
func (a *App) Upgrade(ctx context.Context, plan string) error {
	p := entitlement.Plan(strings.ToLower(strings.TrimSpace(plan)))
	if !p.Valid() {
		return fmt.Errorf("unknown plan %q (choose free, basic, pro or premium)", plan)
	}

	u, err := a.authService.UpgradePlan(ctx, p)
	if err != nil {
		a.noteFailure(err)
		return err
	}
	fmt.Fprintf(a.out, "Plan changed to %s\n", u.Plan)
	a.printUser(u)
	return nil
}

// Entitlements lists what the current plan unlocks.
func (a *App) Entitlements(ctx context.Context) error {
	e, err := a.authService.Entitlements(ctx)
	if err != nil {
		a.noteFailure(err)
		return err
	}
	fmt.Fprintf(a.out, "Plan: %s\n", e.Plan)
	for _, f := range e.Features {
		fmt.Fprintf(a.out, "  - %s\n", f.ID)
	}
	return nil
}

// Status prints connectivity and the stored session.
func (a *App) Status(ctx context.Context) error {
	mode := a.mode()
	if mode == "" {
		mode = "unknown"
	}
	fmt.Fprintf(a.out, "Server: %s (%s)\n", a.config.ServerURL, mode)

	s, err := a.authService.Session(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "Logged in as %s since %s\n", s.Email, s.Since.Format(time.RFC3339))
	return nil
}

// noteFailure updates local state after a failed call: an unreachable
// server switches to offline mode, a rejected token ends the session.
func (a *App) noteFailure(err error) {
	switch {
	case errors.Is(err, api.ErrUnavailable):
		a.setMode(ModeOffline)
	case errors.Is(err, api.ErrUnauthorized) && a.isLoggedIn():
		a.setUser("", false)
	}
}

func (a *App) printUser(u *models.User) {
	fmt.Fprintf(a.out, "ID:     %s\n", u.ID)
	fmt.Fprintf(a.out, "Email:  %s\n", u.Email)
	fmt.Fprintf(a.out, "Name:   %s\n", u.Name)
	fmt.Fprintf(a.out, "Plan:   %s\n", u.Plan)
	if u.PlanExpiry != nil {
		fmt.Fprintf(a.out, "Until:  %s\n", u.PlanExpiry.Format(time.RFC3339))
	}
}
