package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	assert.NoError(t, err)
	assert.Contains(t, out, "ragpipe version "+version)
}

func TestIndexCmd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"),
		[]byte("The warehouse inventory system runs nightly reconciliation."), 0o644))
	idx := filepath.Join(t.TempDir(), "test-index.json")

	out, err := execute(t, "index", dir, "--mock", "--index", idx)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 1 chunks")

	_, statErr := os.Stat(idx)
	assert.NoError(t, statErr)

	// a second run adds to the same index
	require.NoError(t, os.WriteFile(filepath.Join(dir, "more.txt"),
		[]byte("Reconciliation failures page the on-call engineer."), 0o644))
	out, err = execute(t, "index", filepath.Join(dir, "more.txt"), "--mock", "--index", idx)
	require.NoError(t, err)
	assert.Contains(t, out, "2 total")
}

func TestIndexCmdMissingSource(t *testing.T) {
	idx := filepath.Join(t.TempDir(), "idx.json")
	_, err := execute(t, "index", "/no/such/path", "--mock", "--index", idx)
	assert.Error(t, err)
}

func TestQueryCmdMissingIndex(t *testing.T) {
	idx := filepath.Join(t.TempDir(), "absent.json")
	_, err := execute(t, "query", "anything", "--mock", "--index", idx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestQueryCmdNeedsAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello world"), 0o644))
	idx := filepath.Join(t.TempDir(), "idx.json")
	_, err := execute(t, "index", dir, "--mock", "--index", idx)
	require.NoError(t, err)

	// mock embedder loads the index, but the chat model still needs a key
	_, err = execute(t, "query", "hello", "--mock", "--index", idx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}
