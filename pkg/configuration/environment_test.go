package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "go.mod"), []byte("module example.com/test\n\ngo 1.22\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".env.local"), []byte("COMPLIANCE_TEST_ENV_LOAD=ok\n"), 0o644))

	sub := filepath.Join(tmp, "modules", "policy")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(sub))
	_ = os.Unsetenv("COMPLIANCE_TEST_ENV_LOAD")

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "ok", os.Getenv("COMPLIANCE_TEST_ENV_LOAD"))
}

func TestConfiguration_Defaults(t *testing.T) {
	c := &Configuration{}
	require.NoError(t, env.Parse(c))
	require.NoError(t, c.Validate())

	assert.Equal(t, "disabled", c.RLSEnforce)
	assert.Equal(t, 5, c.OpenAI.BreakerThreshold)
	assert.Equal(t, logrus.ErrorLevel, c.LogrusLogLevel())
	assert.Equal(t, []string{"*"}, c.Origins())
}

func TestConfiguration_ValidateRejectsBadValues(t *testing.T) {
	c := &Configuration{}
	require.NoError(t, env.Parse(c))

	c.RLSEnforce = "sometimes"
	require.Error(t, c.Validate())

	c.RLSEnforce = "enforce"
	c.Database.User = "postgres"
	require.Error(t, c.Validate())

	c.RLSEnforce = "disabled"
	c.RateLimit.Storage = "disk"
	require.Error(t, c.Validate())

	c.RateLimit.Storage = "memory"
	c.MaxPageSize = 1
	c.PageSize = 10
	require.Error(t, c.Validate())
}
