package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/shelfauth/internal/client/models"
	"github.com/dmitrijs2005/shelfauth/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) showPrincipal(p *models.Principal) {
	role := p.RoleName
	if p.IsAdmin() {
		role += ", admin"
	}
	printlnFn(fmt.Sprintf("%s <%s> (id %d, role %s)", p.Name, p.Email, p.UserID, role))
}

// Register prompts for email, name and password, creates the account and
// starts a session with it.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	p, err := a.authService.Register(ctx, email, name, password)
	if err != nil {
		return err
	}
	a.principal.Store(p)
	printlnFn("Registered and logged in")
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	p, err := a.authService.Login(ctx, email, password)
	if err != nil {
		return err
	}
	a.principal.Store(p)
	printlnFn("Login successful")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	p, err := a.authService.WhoAmI(ctx)
	if err != nil {
		return err
	}
	a.principal.Store(p)
	a.showPrincipal(p)
	return nil
}

func (a *App) AdminWhoAmI(ctx context.Context) error {
	p, err := a.authService.AdminWhoAmI(ctx)
	if err != nil {
		return err
	}
	a.principal.Store(p)
	a.showPrincipal(p)
	return nil
}

// Logout ends the session locally and on the server. The local session is
// gone even when an error is returned.
func (a *App) Logout(ctx context.Context) error {
	err := a.authService.Logout(ctx)
	a.principal.Store(nil)
	if err != nil {
		return err
	}
	printlnFn("Logged out")
	return nil
}
