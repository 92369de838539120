package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"stratos-facts/internal/testoutput"
	"stratos-facts/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// runApp runs the CLI against a private config path so the host's
// /etc/stratos-facts is never read.
func runApp(t *testing.T, args ...string) result {
	t.Helper()
	t.Cleanup(func() { _ = logging.Set(testoutput.Revert()) })

	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr

	argv := append([]string{"stratos-facts", "--config", filepath.Join(t.TempDir(), "absent.toml")}, args...)
	code := 0
	if err := app.Run(argv); err != nil {
		code = exitUsage
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			code = coder.ExitCode()
		}
	}
	return result{code, stdout.String(), stderr.String()}
}

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestRun(t *testing.T) {
	payloadPath := writeFile(t, "launch-params", "a=1, b=2 , c = 3")

	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{
			"text",
			[]string{"--payload", payloadPath},
			"stratos_a=1\nstratos_b=2\nstratos_c=3\n",
		},
		{
			"selected facts",
			[]string{"--payload", payloadPath, "--fact", "stratos_c", "--fact", "stratos_a"},
			"stratos_c=3\nstratos_a=1\n",
		},
		{
			"prefix",
			[]string{"--payload", payloadPath, "--prefix", "app_"},
			"app_a=1\napp_b=2\napp_c=3\n",
		},
		{
			"missing payload",
			[]string{"--payload", filepath.Join(t.TempDir(), "launch-params")},
			"",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := runApp(t, tc.args...)
			assert.Equal(t, 0, res.code, res.stderr)
			assert.Equal(t, tc.expected, res.stdout)
		})
	}
}

func TestRunJSON(t *testing.T) {
	payloadPath := writeFile(t, "launch-params", "a=1=2,novalue,,b=2")
	res := runApp(t, "--payload", payloadPath, "--format", "json")
	require.Equal(t, 0, res.code, res.stderr)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &decoded))
	assert.Equal(t, map[string]string{
		"stratos_a":       "1=2",
		"stratos_novalue": "",
		"stratos_":        "",
		"stratos_b":       "2",
	}, decoded)
}

func TestRunUnknownFact(t *testing.T) {
	payloadPath := writeFile(t, "launch-params", "a=1")
	res := runApp(t, "--payload", payloadPath, "--fact", "stratos_nope")
	assert.Equal(t, 0, res.code)
	assert.Empty(t, res.stdout)
	assert.Contains(t, res.stderr, "stratos_nope")
}

func TestRunBadFormat(t *testing.T) {
	payloadPath := writeFile(t, "launch-params", "a=1")
	res := runApp(t, "--payload", payloadPath, "--format", "xml")
	assert.Equal(t, exitUsage, res.code)
	assert.Empty(t, res.stdout)
	assert.Contains(t, res.stderr, "Invalid configuration")
}

func TestRunReadError(t *testing.T) {
	payloadPath := writeFile(t, "launch-params", "a=1")
	defer func(orig func(string) ([]byte, error)) { readPayload = orig }(readPayload)
	readPayload = func(name string) ([]byte, error) {
		return nil, &os.PathError{Op: "read", Path: name, Err: syscall.EIO}
	}

	res := runApp(t, "--payload", payloadPath)
	assert.Equal(t, exitFailure, res.code)
	assert.Empty(t, res.stdout)
	assert.Contains(t, res.stderr, "Failed to load payload facts")
	assert.Contains(t, res.stderr, "read payload")
}

func TestRunLineBreakInFact(t *testing.T) {
	payloadPath := writeFile(t, "launch-params", "a=1,x\nevil=pwned,b=line1\nfacterversion=9")

	res := runApp(t, "--payload", payloadPath)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "stratos_a=1\n", res.stdout)
	assert.Contains(t, res.stderr, "stratos_x\\nevil")
	assert.Contains(t, res.stderr, "stratos_b")

	// Structured formats escape the line break and keep the fact whole.
	res = runApp(t, "--payload", payloadPath, "--format", "json")
	require.Equal(t, 0, res.code, res.stderr)
	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &decoded))
	assert.Equal(t, "line1\nfacterversion=9", decoded["stratos_b"])
	assert.Equal(t, "pwned", decoded["stratos_x\nevil"])
}

func TestRunJournalAbsentIsQuiet(t *testing.T) {
	res := runApp(t, "--payload", filepath.Join(t.TempDir(), "launch-params"), "--journal")
	assert.Equal(t, 0, res.code)
	assert.NotContains(t, res.stderr, "partially configured")
}

func TestRunConfigFile(t *testing.T) {
	payloadPath := writeFile(t, "launch-params", "PORT=8080")
	configPath := writeFile(t, "config.toml", `
payload = "`+payloadPath+`"
prefix = "app_"
format = "yaml"
`)

	res := runApp(t, "--config", configPath)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "app_PORT: \"8080\"\n", res.stdout)

	// Flags take precedence over the file.
	res = runApp(t, "--config", configPath, "--format", "text", "--prefix", "stratos_")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "stratos_PORT=8080\n", res.stdout)
}

func TestRunBadConfig(t *testing.T) {
	configPath := writeFile(t, "config.toml", `lock-timeout = "soon"`)
	res := runApp(t, "--config", configPath)
	assert.Equal(t, exitUsage, res.code)
	assert.Contains(t, res.stderr, "lock-timeout")
}

func TestRunDebugLogsToStderr(t *testing.T) {
	res := runApp(t, "--payload", filepath.Join(t.TempDir(), "launch-params"), "--debug")
	assert.Equal(t, 0, res.code)
	assert.Empty(t, res.stdout)
	assert.Contains(t, res.stderr, "No payload present")
}

func TestRunLogFile(t *testing.T) {
	payloadPath := writeFile(t, "launch-params", "a=1")
	logPath := filepath.Join(t.TempDir(), "stratos-facts.log")

	res := runApp(t, "--payload", payloadPath, "--log-file", logPath)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Empty(t, res.stderr, "info logs stay off stderr")

	logged, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "Wrote facts")
}

func TestMainExitCodes(t *testing.T) {
	t.Cleanup(func() { _ = logging.Set(testoutput.Revert()) })
	config := filepath.Join(t.TempDir(), "absent.toml")
	missing := filepath.Join(t.TempDir(), "launch-params")

	assert.Equal(t, 0, _main([]string{"stratos-facts", "--config", config, "--payload", missing}))
	assert.Equal(t, exitUsage, _main([]string{"stratos-facts", "--no-such-flag"}))
}
