package lib

import (
	"runtime"
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	first, second := trace.BadParameter("first"), trace.NotFound("second")
	require.Len(t, flatten(trace.NewAggregate(first, second)), 2)
	require.Len(t, flatten(first), 1)
}

func TestVersionString(t *testing.T) {
	require.Equal(t, "adminctl v1.2.0 "+runtime.Version(), VersionString("adminctl", "1.2.0", ""))
	require.Equal(t, "adminctl v1.2.0 git:abc123 "+runtime.Version(), VersionString("adminctl", "1.2.0", "abc123"))
}
