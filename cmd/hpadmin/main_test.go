package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hirepurchase/hpadmin/cmd/hpadmin/cli"
	"github.com/hirepurchase/hpadmin/internal/app"
	_ "github.com/hirepurchase/hpadmin/internal/testing/guard"
)

func TestMainSkipsInTestMode(t *testing.T) {
	require.True(t, app.InTestMode())
	main()
}

func TestRunDispatch(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, cli.ExitOK, run(ctx, "help", nil))
	require.Equal(t, cli.ExitFailure, run(ctx, "frobnicate", nil))
	require.Equal(t, cli.ExitFailure, run(ctx, "validate", []string{"-nosuchflag"}))
	require.Equal(t, cli.ExitFailure, run(ctx, "validate", nil))
	require.Equal(t, cli.ExitOK, run(ctx, "plan", []string{"-price", "10000", "-months", "3"}))
	require.Equal(t, cli.ExitProblems, run(ctx, "plan", []string{"-price", "1000", "-down", "1000"}))
	require.Equal(t, cli.ExitFailure, run(ctx, "jobs", nil))
}
