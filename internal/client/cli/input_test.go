package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("hello world\n"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "Name?", &out)
	require.Error(t, err)
}

func TestGetMultiline_DoubleEnter(t *testing.T) {
	var out bytes.Buffer
	got, err := GetMultiline(rdr("a\nb\n\n\n"), "Enter text", &out)
	require.NoError(t, err)
	assert.Equal(t, "a\nb", got)
}

func TestGetMultiline_EOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetMultiline(rdr("only line"), "Enter text", &out)
	require.NoError(t, err)
	assert.Equal(t, "only line", got)
}

func stubTerminal(t *testing.T, tty bool, read func(int) ([]byte, error)) {
	t.Helper()
	oldTTY, oldRead := isTerminal, readPassword
	isTerminal = func() bool { return tty }
	readPassword = read
	t.Cleanup(func() { isTerminal, readPassword = oldTTY, oldRead })
}

func TestGetSecret_Terminal(t *testing.T) {
	stubTerminal(t, true, func(int) ([]byte, error) { return []byte(" s3cret \n"), nil })

	var out bytes.Buffer
	got, err := GetSecret(rdr("ignored\n"), "Token", &out)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
	assert.Equal(t, "Token: \n", out.String())
}

func TestGetSecret_TerminalError(t *testing.T) {
	stubTerminal(t, true, func(int) ([]byte, error) { return nil, errors.New("boom") })

	var out bytes.Buffer
	_, err := GetSecret(rdr(""), "Token", &out)
	require.Error(t, err)
}

func TestGetSecret_PipedInput(t *testing.T) {
	stubTerminal(t, false, func(int) ([]byte, error) {
		t.Fatal("must not read from the terminal")
		return nil, nil
	})

	var out bytes.Buffer
	got, err := GetSecret(rdr("piped-token\n"), "Token", &out)
	require.NoError(t, err)
	assert.Equal(t, "piped-token", got)
}
