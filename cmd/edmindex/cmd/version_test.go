package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/edmindex/pkg/version"
)

func TestVersionCmd_DefaultOutput(t *testing.T) {
	// Given: no config or log directory
	isolate(t)

	// When: running version
	stdout, _, err := runCLI(t, "version")

	// Then: the full build string is printed
	require.NoError(t, err)
	assert.Contains(t, stdout, "edmindex "+version.Version)
	assert.Contains(t, stdout, "commit")
}

func TestVersionCmd_ShortOutput(t *testing.T) {
	isolate(t)

	stdout, _, err := runCLI(t, "version", "--short")

	require.NoError(t, err)
	assert.Equal(t, version.Version, strings.TrimSpace(stdout))
}

func TestVersionCmd_JSONOutput(t *testing.T) {
	isolate(t)

	stdout, _, err := runCLI(t, "version", "--json")

	require.NoError(t, err)
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.Equal(t, version.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestVersionCmd_SkipsConfigLoading(t *testing.T) {
	// Given: a project config that does not parse
	isolate(t)
	writeFileForTest(t, ".edmindex.yaml", "server: [")

	// When: running version
	_, _, err := runCLI(t, "version", "--short")

	// Then: it still works
	require.NoError(t, err)
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	isolate(t)

	stdout, _, err := runCLI(t, "--help")

	require.NoError(t, err)
	for _, sub := range []string{"create", "index", "reindex", "batch", "config", "version"} {
		assert.Contains(t, stdout, sub)
	}
}
