package main

import (
	"context"
	"os"

	"github.com/yaklabco/retest/cmd/retest"
	"github.com/yaklabco/retest/internal/exitcode"
)

func main() {
	os.Exit(actualMain())
}

func actualMain() int {
	ctx := context.Background()

	rootCmd := retest.NewRootCmd(ctx)

	// fang has already reported the error on stderr.
	return exitcode.ExitStatus(retest.ExecuteWithFang(ctx, rootCmd))
}
