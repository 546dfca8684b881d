package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flowsweep/flowsweep/pkg/flowsweep/cleanup"
)

func TestBuildSessionLogger(t *testing.T) {
	t.Run("without log dir", func(t *testing.T) {
		logger, closeLogger, err := buildSessionLogger(false, "", "s1")
		require.NoError(t, err)
		defer closeLogger()
		logger.Info("hello")
	})

	t.Run("mirrors into a session file", func(t *testing.T) {
		dir := t.TempDir()
		logger, closeLogger, err := buildSessionLogger(true, dir, "20260831_120000")
		require.NoError(t, err)

		logger.Info("processing org", zap.String("instance", "https://acme.my.salesforce.com"))
		closeLogger()

		path := filepath.Join(dir, "flow_cleanup_20260831_120000.log")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "processing org")
		assert.Contains(t, string(data), "acme.my.salesforce.com")
	})

	t.Run("creates the log dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "logs")
		_, closeLogger, err := buildSessionLogger(false, dir, "s1")
		require.NoError(t, err)
		closeLogger()
		assert.DirExists(t, dir)
	})
}

func TestHostLabel(t *testing.T) {
	assert.Equal(t, "acme.my.salesforce.com", hostLabel("https://acme.my.salesforce.com"))
	assert.Equal(t, "org", hostLabel("not a url"))
}

func TestRenderResults(t *testing.T) {
	results := []cleanup.RunResult{
		{Instance: "https://a.example", Authenticated: true},
		{Instance: "https://b.example", Err: errors.New("boom"), Error: "boom"},
	}

	t.Run("table", func(t *testing.T) {
		buf := &bytes.Buffer{}
		rt := &runtimeState{outputFormat: "table", writer: buf}
		require.NoError(t, renderResults(rt, results))
		assert.Contains(t, buf.String(), "https://a.example")
		assert.Contains(t, buf.String(), "boom")
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		rt := &runtimeState{outputFormat: "json", writer: buf}
		require.NoError(t, renderResults(rt, results))
		assert.Contains(t, buf.String(), `"instance": "https://a.example"`)
	})

	t.Run("unknown format", func(t *testing.T) {
		rt := &runtimeState{outputFormat: "xml", writer: &bytes.Buffer{}}
		require.Error(t, renderResults(rt, results))
	})
}
