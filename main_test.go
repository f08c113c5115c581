package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/internal/relay/relaytest"
)

// execute runs the root command against srv and returns its stdout.
func execute(t *testing.T, srv *relaytest.Server, args ...string) (string, error) {
	t.Helper()
	return executeIn(t, t.TempDir(), srv, args...)
}

// executeIn is execute with the log file and prefs db kept in dir.
func executeIn(t *testing.T, dir string, srv *relaytest.Server, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"RELAYCHAT_BASE_URL", "RELAYCHAT_MODEL", "RELAYCHAT_COMPARE_MODELS", "RELAYCHAT_HTTP_TIMEOUT", "RELAYCHAT_LIST_RETRIES", "RELAYCHAT_DEBUG", "RELAYCHAT_LOG_FILE", "RELAYCHAT_PREFS_PATH"} {
		t.Setenv(k, "x")
		_ = os.Unsetenv(k)
	}
	base := []string{
		"--base-url", srv.URL,
		"--log-file", filepath.Join(dir, "relaychat.log"),
		"--prefs", filepath.Join(dir, "prefs.db"),
		"--model", "gpt-4.1-mini",
		"--compare-models", "gpt-4.1-mini,claude-3-5",
		"--timeout", "5s",
	}
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, base...))
	err := cmd.Execute()
	return out.String(), err
}

func TestList_PrintsTable(t *testing.T) {
	srv := relaytest.NewServer()
	defer srv.Close()
	now := time.Now()
	srv.Seed("conv_alpha", now.Add(-time.Hour), now.Add(-time.Minute), "hi", "hello")
	srv.Seed("conv_beta", now.Add(-2*time.Hour), now.Add(-30*time.Minute), "a", "b", "c", "d")

	out, err := execute(t, srv, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "CONVERSATION")
	assert.Contains(t, out, "conv_alpha")
	assert.Contains(t, out, "conv_beta")
	assert.Less(t, bytes.Index([]byte(out), []byte("conv_alpha")), bytes.Index([]byte(out), []byte("conv_beta")))
}

func TestList_FiltersAndSorts(t *testing.T) {
	srv := relaytest.NewServer()
	defer srv.Close()
	now := time.Now()
	srv.Seed("conv_alpha", now.Add(-time.Hour), now.Add(-time.Minute), "hi", "hello")
	srv.Seed("conv_beta", now.Add(-2*time.Hour), now.Add(-30*time.Minute), "a", "b", "c", "d")

	out, err := execute(t, srv, "ls", "--search", "BETA")
	require.NoError(t, err)
	assert.Contains(t, out, "conv_beta")
	assert.NotContains(t, out, "conv_alpha")

	out, err = execute(t, srv, "ls", "--sort", "most_messages")
	require.NoError(t, err)
	assert.Less(t, bytes.Index([]byte(out), []byte("conv_beta")), bytes.Index([]byte(out), []byte("conv_alpha")))

	out, err = execute(t, srv, "ls", "--search", "nothing")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations match your filters")
}

func TestList_EmptyAndInvalidFlags(t *testing.T) {
	srv := relaytest.NewServer()
	defer srv.Close()

	out, err := execute(t, srv, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations yet")

	_, err = execute(t, srv, "ls", "--date", "year")
	assert.Error(t, err)
	assert.Zero(t, srv.Calls("list"), "invalid flags must fail before any request")
}

func TestList_BackendError(t *testing.T) {
	srv := relaytest.NewServer()
	defer srv.Close()
	srv.ListError = "database locked"

	_, err := execute(t, srv, "ls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database locked")
}

func TestRemove(t *testing.T) {
	srv := relaytest.NewServer()
	defer srv.Close()
	now := time.Now()
	srv.Seed("conv_alpha", now, now, "hi", "hello")

	out, err := execute(t, srv, "rm", "conv_alpha")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted conv_alpha")
	assert.False(t, srv.Has("conv_alpha"))

	_, err = execute(t, srv, "rm", "conv_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conv_missing")
	assert.Equal(t, 2, srv.Calls("delete"))
}

func TestAsk_Single(t *testing.T) {
	srv := relaytest.NewServer()
	defer srv.Close()

	out, err := execute(t, srv, "ask", "what", "is", "go")
	require.NoError(t, err)
	assert.Contains(t, out, "[gpt-4.1-mini]\ngpt-4.1-mini: what is go")
	assert.Contains(t, out, "conversation: conv_")
	assert.Equal(t, 1, srv.Calls("ask"))
}

func TestAsk_Compare(t *testing.T) {
	srv := relaytest.NewServer()
	defer srv.Close()

	out, err := execute(t, srv, "ask", "--compare", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "[gpt-4.1-mini]\ngpt-4.1-mini: hello")
	assert.Contains(t, out, "[claude-3-5]\nclaude-3-5: hello")
	assert.Equal(t, 1, srv.Calls("compare"))
}

func TestAsk_ContinuesConversation(t *testing.T) {
	srv := relaytest.NewServer()
	defer srv.Close()
	now := time.Now()
	srv.Seed("conv_alpha", now, now, "first", "reply")

	out, err := execute(t, srv, "ask", "-c", "conv_alpha", "second")
	require.NoError(t, err)
	assert.Contains(t, out, "gpt-4.1-mini: second")
	assert.NotContains(t, out, "reply", "loaded history is not echoed")
	assert.Contains(t, out, "conversation: conv_alpha")
	assert.Equal(t, 1, srv.Calls("history"))
}

func TestAsk_BackendErrorFails(t *testing.T) {
	srv := relaytest.NewServer()
	defer srv.Close()
	srv.AskError = "model overloaded"

	_, err := execute(t, srv, "ask", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestRoot_RejectsBadBaseURL(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"ls", "--base-url", "ftp://nowhere", "--log-file", filepath.Join(t.TempDir(), "x.log")})
	assert.Error(t, cmd.Execute())
}

func TestFailedCommandStillWritesCounters(t *testing.T) {
	srv := relaytest.NewServer()
	defer srv.Close()
	srv.ListError = "database locked"
	dir := t.TempDir()

	_, err := executeIn(t, dir, srv, "ls", "--debug")
	require.Error(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "relaychat.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "request counter")
	assert.Contains(t, string(data), "backend_error")
}
