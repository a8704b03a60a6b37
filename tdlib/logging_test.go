package tdlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogging(t *testing.T) {
	var reqs []string
	exec := ExecutorFunc(func(req string) (string, bool) {
		reqs = append(reqs, req)
		return `{"@type":"ok"}`, true
	})

	require.NoError(t, ConfigureLogging(exec, LogWarning, "/tmp/tdlib.log", 0))
	require.Len(t, reqs, 2)
	assert.JSONEq(t, `{"@type":"setLogVerbosityLevel","new_verbosity_level":2}`, reqs[0])
	assert.JSONEq(t, `{"@type":"setLogStream","log_stream":{"@type":"logStreamFile","path":"/tmp/tdlib.log","max_file_size":104857600}}`, reqs[1])

	reqs = nil
	require.NoError(t, ConfigureLogging(exec, LogFatal, "", 0))
	assert.JSONEq(t, `{"@type":"setLogStream","log_stream":{"@type":"logStreamEmpty"}}`, reqs[1])

	assert.Error(t, ConfigureLogging(exec, LogVerbosity(9), "", 0))
}

func TestConfigureLoggingNoResult(t *testing.T) {
	exec := ExecutorFunc(func(string) (string, bool) { return "", false })
	err := ConfigureLogging(exec, LogInfo, "", 0)
	require.ErrorIs(t, err, ErrNoResult)
	assert.Contains(t, err.Error(), "set log verbosity")
}
