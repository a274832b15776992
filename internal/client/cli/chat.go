package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errUsage = errors.New("usage")

// Sessions lists the user's chat sessions.
func (a *App) Sessions(ctx context.Context) error {
	res, err := a.chat.ListChatSessions(ctx)
	if err != nil {
		a.report(err)
		return err
	}
	if len(res.Sessions) == 0 {
		a.println("No chat sessions yet. Start one with 'chat <prompt>'.")
		return nil
	}
	for _, s := range res.Sessions {
		a.println(fmt.Sprintf("%s  %-40s  %s", s.ID, s.Title, s.UpdatedAt))
	}
	a.println(fmt.Sprintf("%d session(s)", res.Total))
	return nil
}

// Chat starts a generation run from the prompt in args, or from a prompt
// read interactively, and waits until it finishes.
func (a *App) Chat(ctx context.Context, args []string) error {
	prompt := strings.Join(args, " ")
	if prompt == "" {
		var err error
		if prompt, err = getMultiline(a.reader, "Describe the MCP server to build", a.out); err != nil {
			return err
		}
	}
	if prompt == "" {
		a.println("Usage: chat <prompt>")
		return errUsage
	}

	created, err := a.chat.CreateChat(ctx, prompt, "")
	if err != nil {
		a.report(err)
		return err
	}
	a.println("Chat", created.ChatID, "started, waiting for it to finish...")

	st, err := a.chat.WaitForChat(ctx, created.ChatID, nil)
	if err != nil {
		a.report(err)
		return err
	}
	a.println("Chat", created.ChatID, "is", st.Status)
	return nil
}

// Send posts a follow-up message: send <chat_id> <message>.
func (a *App) Send(ctx context.Context, args []string) error {
	if len(args) < 2 {
		a.println("Usage: send <chat_id> <message>")
		return errUsage
	}
	raw, err := a.chat.SendMessage(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		a.report(err)
		return err
	}
	a.printJSON(raw)
	return nil
}

// History prints a chat's messages: history <chat_id>.
func (a *App) History(ctx context.Context, args []string) error {
	if len(args) != 1 {
		a.println("Usage: history <chat_id>")
		return errUsage
	}
	raw, err := a.chat.ChatHistory(ctx, args[0])
	if err != nil {
		a.report(err)
		return err
	}
	a.printJSON(raw)
	return nil
}

// ChatStatus prints a chat's status: chatstatus <chat_id>.
func (a *App) ChatStatus(ctx context.Context, args []string) error {
	if len(args) != 1 {
		a.println("Usage: chatstatus <chat_id>")
		return errUsage
	}
	st, err := a.chat.ChatStatus(ctx, args[0])
	if err != nil {
		a.report(err)
		return err
	}
	a.printJSON(st.Raw)
	return nil
}

func (a *App) printJSON(raw json.RawMessage) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		a.println(string(raw))
		return
	}
	a.println(buf.String())
}
