// Package cli provides the interactive mcpforge command-line client.
//
// It wires configuration, the local session database, the API client and
// the auth flows, then either runs a single command given on the command
// line or an interactive REPL. Typical flow: restore the saved session,
// sign in with a magic link or an OAuth credential if needed, then start
// and follow chats that generate MCP servers.
//
// Key features:
//   - Sign in: magic link, Google ID token, GitHub authorization code
//   - whoami / status / logout
//   - Chats: create, follow up, history, status, session list
//   - Notices when the session is ended by the backend or by expiry
//
// The REPL is started via App.Run(ctx, args), which blocks until the user
// exits. See App, StartWatcher, and runREPL for details.
package cli
