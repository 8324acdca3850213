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
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	body := "database:\n  driver: sqlite\n  path: " + filepath.Join(dir, "catalog.db") + "\n"
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o600))
	return cfg
}

func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestSeedThenExport(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "seed", "-f", "../../seeds/saudi-frameworks.yaml")
	require.NoError(t, err)
	assert.Equal(t, "seeded 3 frameworks, 7 controls, 7 articles, 7 links\n", out)

	out, err = run(t, cfg, "frameworks")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)

	out, err = run(t, cfg, "export", "--framework", "pdpl")
	require.NoError(t, err)
	var doc struct {
		Rules []json.RawMessage `json:"rules"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc.Rules, 5)

	dst := filepath.Join(t.TempDir(), "ecc.yaml")
	_, err = run(t, cfg, "export", "--framework", "ecc", "--format", "yaml", "--out", dst)
	require.NoError(t, err)
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(b), "ECC-2")

	_, err = run(t, cfg, "export", "--framework", "pdpl", "--format", "csv")
	assert.Error(t, err)
}

func TestValidateAndAnalyze(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, cfg, "seed", "-f", "../../seeds/saudi-frameworks.yaml")
	require.NoError(t, err)

	dir := t.TempDir()
	evidence := filepath.Join(dir, "evidence.json")
	require.NoError(t, os.WriteFile(evidence, []byte(`{"ECC-1": true, "ECC-2": "quarterly review"}`), 0o600))
	out, err := run(t, cfg, "validate", "--framework", "ecc", "--data", evidence)
	require.NoError(t, err)
	var v struct {
		IsCompliant bool `json:"isCompliant"`
		Score       int  `json:"score"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.True(t, v.IsCompliant)
	assert.Equal(t, 100, v.Score)

	policy := filepath.Join(dir, "policy.txt")
	require.NoError(t, os.WriteFile(policy, []byte("We have no consent management. Retention schedule approved yearly."), 0o600))
	out, err = run(t, cfg, "analyze", "--framework", "pdpl", "--doc", policy, "--user", "tester")
	require.NoError(t, err)
	var res struct {
		Kind string `json:"kind"`
		Gaps []struct {
			ControlCode string `json:"controlCode"`
		} `json:"gaps"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "advisory", res.Kind)
	assert.NotEmpty(t, res.Gaps)

	_, err = run(t, cfg, "analyze", "--framework", "sama", "--doc", policy)
	assert.ErrorContains(t, err, "has no rules")
}

func TestMigrate(t *testing.T) {
	out, err := run(t, writeConfig(t), "migrate")
	require.NoError(t, err)
	assert.Equal(t, "migrated sqlite schema\n", out)
}
