package version

import (
	"bytes"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short and Full return non-empty consistent information.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
	require.Len(t, KV(), 6)
}

// TestAttachCobraVersionCommand runs the subcommand in both modes.
func TestAttachCobraVersionCommand(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		args []string
		want string
	}{
		{args: []string{"version"}, want: Full()},
		{args: []string{"version", "--short"}, want: Short()},
	} {
		root := &cobra.Command{Use: "fall-alarm"}
		AttachCobraVersionCommand(root)

		out := new(bytes.Buffer)
		root.SetOut(out)
		root.SetArgs(tt.args)

		require.NoError(t, root.Execute())
		require.Equal(t, tt.want, strings.TrimSpace(out.String()))
	}
}

//nolint:paralleltest // Mutates package variables.
func TestApplyBuildInfo(t *testing.T) {
	commit, built := Commit, BuildTime

	t.Cleanup(func() { Commit, BuildTime = commit, built })

	Commit, BuildTime = "none", "unknown"

	apply(&debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-03-01T09:00:00Z"},
	}})

	require.Equal(t, "0123456", Commit)
	require.Equal(t, "2026-03-01T09:00:00Z", BuildTime)
}
