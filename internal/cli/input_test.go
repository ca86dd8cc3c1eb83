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

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(bufio.NewReader(strings.NewReader("  Hội An  \nnext\n")), "Title", &out)
	require.NoError(t, err)
	assert.Equal(t, "Hội An", got)
	assert.Equal(t, "Title\n> ", out.String())

	got, err = GetSimpleText(bufio.NewReader(strings.NewReader("partial")), "Title", &out)
	require.NoError(t, err)
	assert.Equal(t, "partial", got)

	_, err = GetSimpleText(bufio.NewReader(strings.NewReader("")), "Title", &out)
	assert.Error(t, err)
}

func TestGetMultiline(t *testing.T) {
	var out bytes.Buffer
	got, err := GetMultiline(bufio.NewReader(strings.NewReader("line one\nline two\n\nignored\n")), "Text", &out)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", got)

	got, err = GetMultiline(bufio.NewReader(strings.NewReader("no newline at end")), "Text", &out)
	require.NoError(t, err)
	assert.Equal(t, "no newline at end", got)
}

func TestGetSecret(t *testing.T) {
	orig := readSecret
	t.Cleanup(func() { readSecret = orig })

	readSecret = func(int) ([]byte, error) { return []byte(" tok "), nil }
	var out bytes.Buffer
	got, err := GetSecret("Session token", &out)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
	assert.Equal(t, "Session token: \n", out.String())

	readSecret = func(int) ([]byte, error) { return nil, errors.New("no tty") }
	_, err = GetSecret("Session token", &out)
	assert.Error(t, err)
}
