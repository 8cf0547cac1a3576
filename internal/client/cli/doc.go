// Package cli provides the interactive shelfauth command-line client.
//
// It wires configuration, the SQLite session store, the API client with its
// refresh Coordinator, and a small REPL:
//
//	register  create an account and log in
//	login     log in with email and password
//	whoami    show the current user as the server sees it
//	admin     call the admin-only probe
//	logout    end the session here and on the server
//	help      list commands
//	exit      leave the program
//
// The session is kept on disk, so a restarted CLI is still logged in. When
// the session ends on its own (refresh token expired, user deleted) the
// REPL prints "Session ended, please log in again".
package cli
