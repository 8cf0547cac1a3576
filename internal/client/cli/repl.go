package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/shelfauth/internal/client/client"
	"github.com/dmitrijs2005/shelfauth/internal/client/services"
	"github.com/dmitrijs2005/shelfauth/internal/common"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. *App satisfies it.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	AdminWhoAmI(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads commands line by line from reader and dispatches them to a.
// It returns on EOF or when the user types "exit" or "quit".
//
//	Not logged in:  help, register, login, exit
//	Logged in:      help, whoami, admin, logout, exit
//
// Command errors are printed and the loop continues. A session that ended
// on its own is already announced by the session hook, so those errors are
// not printed twice.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("shelf %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, admin, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "whoami":
			cmdErr = a.WhoAmI(ctx)

		case "admin":
			cmdErr = a.AdminWhoAmI(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil && !errors.Is(cmdErr, client.ErrSessionEnded) {
			printlnFn("Error:", userMessage(cmdErr))
		}
	}
}

// userMessage turns the errors commands return into one line for the user.
func userMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		return "invalid email or password"
	case errors.Is(err, common.ErrEmailAlreadyRegistered):
		return "this email is already registered"
	case errors.Is(err, common.ErrWeakPassword):
		return "password is too weak (at least 8 characters with letters and digits)"
	case errors.Is(err, services.ErrNotLoggedIn):
		return "you are not logged in"
	case errors.Is(err, client.ErrForbidden):
		return "admin role required"
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable, try again later"
	case errors.Is(err, client.ErrBadRequest):
		return "request rejected: " + err.Error()
	default:
		return err.Error()
	}
}
