package main

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sifan077/LinkGate/config"
	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEnv(t *testing.T) *cliEnv {
	t.Helper()
	return &cliEnv{
		cfg: &config.Config{
			App: config.AppConfig{
				BaseURL:   "https://lg.example/",
				JWTSecret: "cli-secret",
				JWTIssuer: "linkgate",
			},
			Database: config.DatabaseConfig{
				Driver:     "sqlite",
				SQLitePath: filepath.Join(t.TempDir(), "cli.db"),
			},
		},
		log: zap.NewNop(),
	}
}

func run(t *testing.T, env *cliEnv, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(env)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCLI_MigrateCreateStats(t *testing.T) {
	env := testEnv(t)

	out, err := run(t, env, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Migrated 7 tables on sqlite")

	out, err = run(t, env, "create", "--url", "example.com/docs", "--code", "docs", "--title", "Docs")
	require.NoError(t, err)
	assert.Contains(t, out, "Code: docs")
	assert.Contains(t, out, "Short URL: https://lg.example/s/docs")
	assert.Contains(t, out, "Destination: https://example.com/docs")

	out, err = run(t, env, "stats", "--code", "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "Visits: 0")

	_, err = run(t, env, "create", "--url", "https://example.org", "--code", "docs")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCLI_StatsUnknownCode(t *testing.T) {
	env := testEnv(t)
	_, err := run(t, env, "migrate")
	require.NoError(t, err)

	_, err = run(t, env, "stats", "--code", "nope42")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = run(t, env, "stats", "--code", "nope42", "--days", "0")
	assert.Error(t, err)
}

func TestCLI_CreateRequiresURL(t *testing.T) {
	_, err := run(t, testEnv(t), "create")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"url"`)
}

func TestCLI_Token(t *testing.T) {
	env := testEnv(t)
	const user = "7f1b5a52-3c55-4d8e-9a55-6f2e4c1d0b9a"

	out, err := run(t, env, "token", "--user", user, "--email", "dev@example.com", "--ttl", "1h")
	require.NoError(t, err)

	sess, err := auth.NewVerifier("cli-secret", "linkgate").Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, user, sess.UserID.String())
	assert.Equal(t, "dev@example.com", sess.Email)

	_, err = run(t, env, "token", "--user", "not-a-uuid")
	assert.Error(t, err)
}
