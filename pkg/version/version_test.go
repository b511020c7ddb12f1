package version

import (
	"encoding/json"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_SemverOrDev(t *testing.T) {
	// Given: a binary built with or without ldflags

	// When: reading Version

	// Then: it is "dev" or a semver string
	if Version == "dev" {
		return
	}
	semver := regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`)
	require.True(t, semver.MatchString(Version), "got %s", Version)
}

func TestString_IncludesBuildInfo(t *testing.T) {
	str := String()

	assert.True(t, strings.HasPrefix(str, "edmindex "+Version))
	assert.Contains(t, str, "commit: "+Commit)
	assert.Contains(t, str, "go: "+runtime.Version())
	assert.Contains(t, str, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestShort_ReturnsVersion(t *testing.T) {
	assert.Equal(t, Version, Short())
}

func TestUserAgent(t *testing.T) {
	assert.Equal(t, "edmindex/"+Version, UserAgent())
}

func TestGetInfo_JSON(t *testing.T) {
	// Given: the build info
	info := GetInfo()
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)

	// When: serializing it
	data, err := json.Marshal(info)
	require.NoError(t, err)

	// Then: every field is present under its snake_case key
	var parsed map[string]string
	require.NoError(t, json.Unmarshal(data, &parsed))
	for _, key := range []string{"version", "commit", "date", "go_version", "os", "arch"} {
		assert.Contains(t, parsed, key)
	}
}
