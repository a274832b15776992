package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Status(ctx context.Context) error
	MagicLink(ctx context.Context) error
	Verify(ctx context.Context, args []string) error
	OAuth(ctx context.Context, args []string) error
	WhoAmI(ctx context.Context) error
	Sessions(ctx context.Context) error
	Chat(ctx context.Context, args []string) error
	Send(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error
	ChatStatus(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the mcpforge CLI.
//
// It reads a line from reader, splits it into fields and hands them to
// dispatch. The loop exits on EOF or when the user types "exit" or "quit".
// Commands that prompt for more input read from the same reader, so piped
// answers reach the prompt that asked for them.
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Signed out:
//	  - help                          show available commands
//	  - status                        session and backend state
//	  - magiclink                     email a sign-in link
//	  - verify [token]                sign in with a magic link token
//	  - oauth google <id_token>       sign in with a Google ID token
//	  - oauth github <code> [state]   sign in with a GitHub authorization code
//	  - exit | quit                   leave the program
//
//	Signed in, additionally:
//	  - whoami                        refresh and show the profile
//	  - sessions                      list chat sessions
//	  - chat <prompt>                 start a generation run and follow it
//	  - send <chat_id> <message>      follow up in a chat
//	  - history <chat_id>             show a chat's messages
//	  - chatstatus <chat_id>          show a chat's status
//	  - logout                        sign out
//
// Errors returned by command handlers are reported by the handlers
// themselves; the loop keeps going.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("%s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) > 0 && !dispatch(ctx, a, parts) {
			return
		}
		if err != nil {
			return
		}
	}
}

// dispatch runs one command. It returns false when the user asked to leave.
func dispatch(ctx context.Context, a execIface, parts []string) bool {
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "help":
		if a.isLoggedIn() {
			printlnFn("Available commands: status, whoami, sessions, chat, send, history, chatstatus, logout, exit")
		} else {
			printlnFn("Available commands: status, magiclink, verify, oauth google|github, exit")
		}

	case "status":
		_ = a.Status(ctx)

	case "magiclink":
		_ = a.MagicLink(ctx)

	case "verify":
		_ = a.Verify(ctx, args)

	case "oauth":
		_ = a.OAuth(ctx, args)

	case "whoami":
		_ = a.WhoAmI(ctx)

	case "sessions":
		_ = a.Sessions(ctx)

	case "chat":
		_ = a.Chat(ctx, args)

	case "send":
		_ = a.Send(ctx, args)

	case "history":
		_ = a.History(ctx, args)

	case "chatstatus":
		_ = a.ChatStatus(ctx, args)

	case "logout":
		_ = a.Logout(ctx)

	case "exit", "quit":
		printlnFn("Bye!")
		return false

	default:
		printlnFn("Unknown command:", cmd)
	}
	return true
}
