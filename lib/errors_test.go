package lib

import (
	"context"
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"
)

func TestContextErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := trace.Wrap(ctx.Err(), "sending request")
	require.True(t, IsCanceled(err))
	require.False(t, IsDeadline(err))

	ctx, cancel = context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()
	err = trace.Wrap(ctx.Err())
	require.True(t, IsDeadline(err))
	require.False(t, IsCanceled(err))

	require.False(t, IsCanceled(trace.BadParameter("nope")))
}
