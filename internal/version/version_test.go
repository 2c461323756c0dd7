package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withBuild(t *testing.T, v, c, bt string, settings map[string]string) {
	t.Helper()

	oldV, oldC, oldT, oldRead := Version, GitCommit, BuildTime, readSettings
	Version, GitCommit, BuildTime = v, c, bt
	readSettings = func() map[string]string { return settings }
	t.Cleanup(func() {
		Version, GitCommit, BuildTime, readSettings = oldV, oldC, oldT, oldRead
	})
}

func TestBuildInfoFromLdflags(t *testing.T) {
	withBuild(t, "v1.2.3", "0123456789abcdef", "2026-01-02T03:04:05Z", nil)

	info := GetBuildInfo()
	assert.Equal(t, "v1.2.3", info.Version)
	assert.Equal(t, "0123456789abcdef", info.GitCommit)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), info.BuildTime)
	assert.Equal(t, "v1.2.3 (0123456)", info.Short())
	assert.True(t, info.IsRelease())
	assert.False(t, info.Dirty)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}

func TestBuildInfoFromVCS(t *testing.T) {
	withBuild(t, "dev", "unknown", "unknown", map[string]string{
		"vcs.revision": "abcdef0123456789",
		"vcs.modified": "true",
	})

	info := GetBuildInfo()
	assert.Equal(t, "dev-abcdef0", info.Version)
	assert.Equal(t, "abcdef0123456789", info.GitCommit)
	assert.True(t, info.BuildTime.IsZero())
	assert.True(t, info.Dirty)
	assert.False(t, info.IsRelease())
	assert.Equal(t, "dev-abcdef0", info.Short())
}

func TestBuildInfoUnknown(t *testing.T) {
	withBuild(t, "dev", "unknown", "garbage", map[string]string{})

	info := GetBuildInfo()
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "dev", info.Short())
	assert.True(t, info.BuildTime.IsZero())
}

func TestParseBuildTime(t *testing.T) {
	assert.False(t, parseBuildTime("2026-01-02 03:04:05").IsZero())
	assert.False(t, parseBuildTime("2026-01-02T03:04:05").IsZero())
	assert.True(t, parseBuildTime("").IsZero())
}
