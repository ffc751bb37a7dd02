package cli

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runVersion(t *testing.T, args ...string) string {
	t.Helper()

	originalVersion, originalCommit := version, commit
	version, commit = "1.2.3", "abc123"
	t.Cleanup(func() {
		version, commit = originalVersion, originalCommit
		versionShort = false
		rootCmd.SetArgs(nil)
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs(append([]string{"version"}, args...))
	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestVersionCmd_Full(t *testing.T) {
	out := runVersion(t)

	assert.Contains(t, out, "intel-ingest version 1.2.3")
	assert.Contains(t, out, "commit abc123")
	assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestVersionCmd_Short(t *testing.T) {
	out := runVersion(t, "--short")

	assert.Equal(t, "1.2.3\n", out)
}
