package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipnetlab/internal/config"
	"ipnetlab/internal/domain"
)

const labTopology = "../../internal/loader/testdata/lab.yaml"

// testEnv writes a default configuration with a private database and
// returns the global flags pointing at it
func testEnv(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ipnetlab.yaml")
	c := config.DefaultConfig()
	c.Database.Path = filepath.Join(dir, "ipnetlab.db")
	require.NoError(t, c.Save(path))
	return []string{"--config", path, "--log-level", "error"}
}

func execute(t *testing.T, env []string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	mainCmd.SetOut(&out)
	mainCmd.SetErr(&out)
	mainCmd.SetArgs(append(args, env...))
	_, err := mainCmd.ExecuteC()
	return out.String(), err
}

func TestAllocateTable(t *testing.T) {
	env := testEnv(t)
	out, err := execute(t, env, "allocate", "-t", labTopology, "--save=false", "-o", "table")
	require.NoError(t, err)

	assert.Contains(t, out, "10.10.0.0/30 (fixed)")
	assert.Contains(t, out, "r1-eth0")
	assert.Contains(t, out, "1.1.1.1")
	assert.Contains(t, out, "broadcast domains")
	assert.NotContains(t, out, "saved as snapshot")
}

func TestAllocateJSON(t *testing.T) {
	env := testEnv(t)
	out, err := execute(t, env, "allocate", "-t", labTopology, "--save=false", "-o", "json")
	require.NoError(t, err)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, "lab", snap.Topology)
	node, ok := snap.Lookup("10.10.0.1")
	assert.True(t, ok)
	assert.Equal(t, "r1", node)
}

func TestAllocateUnknownFormat(t *testing.T) {
	env := testEnv(t)
	_, err := execute(t, env, "allocate", "-t", labTopology, "--save=false", "-o", "dot")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestSavedSnapshotWorkflow(t *testing.T) {
	env := testEnv(t)

	_, err := execute(t, env, "allocate", "-t", labTopology, "--save", "-o", "table")
	require.NoError(t, err)

	out, err := execute(t, env, "lookup", "10.10.0.2/30", "-t", "", "--snapshot", "0")
	require.NoError(t, err)
	assert.Equal(t, "r2", strings.TrimSpace(out))

	_, err = execute(t, env, "lookup", "203.0.113.1", "-t", "", "--snapshot", "0")
	assert.ErrorContains(t, err, "no node owns")

	out, err = execute(t, env, "snapshots", "ls", "--limit", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "TOPOLOGY")
	assert.Contains(t, out, "lab")

	exported := filepath.Join(t.TempDir(), "lab.json")
	_, err = execute(t, env, "export", "-t", "", "--snapshot", "0", "-f", "json", "-o", exported)
	require.NoError(t, err)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.NotZero(t, snap.ID)

	out, err = execute(t, env, "snapshots", "rm", "1")
	require.NoError(t, err)
	assert.Equal(t, "1", strings.TrimSpace(out))

	_, err = execute(t, env, "lookup", "10.10.0.2", "-t", "", "--snapshot", "1")
	assert.Error(t, err)
}

func TestLookupOnTheFly(t *testing.T) {
	env := testEnv(t)
	out, err := execute(t, env, "lookup", "10.10.0.1", "-t", labTopology, "--snapshot", "0")
	require.NoError(t, err)
	assert.Equal(t, "r1", strings.TrimSpace(out))
}

func TestExportNeedsOutputForXLSX(t *testing.T) {
	env := testEnv(t)
	_, err := execute(t, env, "export", "-t", labTopology, "--snapshot", "0", "-f", "xlsx", "-o", "")
	assert.ErrorContains(t, err, "--output")
}

func TestConfigInitAndShow(t *testing.T) {
	env := testEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "ipnetlab.yaml")

	out, err := execute(t, env, "config", "init", path, "--force=false")
	require.NoError(t, err)
	assert.Contains(t, out, "192.168.0.0/16")

	_, err = execute(t, env, "config", "init", path, "--force=false")
	assert.ErrorContains(t, err, "already exists")

	out, err = execute(t, []string{"--config", path, "--log-level", "error"}, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# "+path)
	assert.Contains(t, out, "fc00::/7")
}

func TestExclusiveFlags(t *testing.T) {
	env := testEnv(t)
	_, err := execute(t, env, "lookup", "10.10.0.1", "-t", labTopology, "--snapshot", "2")
	assert.ErrorContains(t, err, "mutually exclusive")
}
