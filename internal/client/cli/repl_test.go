package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	args  [][]string
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	return nil
}

func (f *fakeExec) isLoggedIn() bool                      { return f.loggedIn }
func (f *fakeExec) Status(context.Context) error          { return f.record("status", nil) }
func (f *fakeExec) MagicLink(context.Context) error       { return f.record("magiclink", nil) }
func (f *fakeExec) WhoAmI(context.Context) error          { return f.record("whoami", nil) }
func (f *fakeExec) Sessions(context.Context) error        { return f.record("sessions", nil) }
func (f *fakeExec) Chat(_ context.Context, a []string) error {
	return f.record("chat", a)
}
func (f *fakeExec) Send(_ context.Context, a []string) error {
	return f.record("send", a)
}
func (f *fakeExec) History(_ context.Context, a []string) error {
	return f.record("history", a)
}
func (f *fakeExec) ChatStatus(_ context.Context, a []string) error {
	return f.record("chatstatus", a)
}
func (f *fakeExec) Verify(_ context.Context, a []string) error {
	f.loggedIn = true
	return f.record("verify", a)
}
func (f *fakeExec) OAuth(_ context.Context, a []string) error {
	f.loggedIn = true
	return f.record("oauth", a)
}
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout", nil)
}

func capturePrints(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, len(a))
		for i, v := range a {
			parts[i] = strings.TrimSpace(strings.ReplaceAll(toString(v), "\n", " "))
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &lines
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func TestRunREPL_SignInFlowAndCommands(t *testing.T) {
	printed := capturePrints(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"magiclink",
		"verify abc",
		"help",
		"",
		"whoami",
		"sessions",
		"chat build a weather server",
		"send c-1 add a tool",
		"history c-1",
		"chatstatus c-1",
		"foobar",
		"logout",
		"exit",
		"status",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(input))

	assert.Equal(t, []string{"magiclink", "verify", "whoami", "sessions", "chat", "send", "history", "chatstatus", "logout"}, exec.calls)
	assert.Equal(t, []string{"abc"}, exec.args[1])
	assert.Equal(t, []string{"build", "a", "weather", "server"}, exec.args[4])
	assert.Equal(t, []string{"c-1", "add", "a", "tool"}, exec.args[5])

	assert.Contains(t, *printed, "Available commands: status, magiclink, verify, oauth google|github, exit")
	assert.Contains(t, *printed, "Available commands: status, whoami, sessions, chat, send, history, chatstatus, logout, exit")
	assert.Contains(t, *printed, "Unknown command: foobar")
	assert.Equal(t, "Bye!", (*printed)[len(*printed)-1])
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	capturePrints(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewReader(strings.NewReader("oauth github c0de st")))

	assert.Equal(t, []string{"oauth"}, exec.calls)
	assert.Equal(t, []string{"github", "c0de", "st"}, exec.args[0])
}

func TestDispatch_ExitReturnsFalse(t *testing.T) {
	capturePrints(t)

	exec := &fakeExec{}
	assert.False(t, dispatch(context.Background(), exec, []string{"quit"}))
	assert.True(t, dispatch(context.Background(), exec, []string{"status"}))
	assert.Equal(t, []string{"status"}, exec.calls)
}
