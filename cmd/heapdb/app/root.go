package app

import (
	"context"

	"github.com/Blackdeer1524/HeapDB/src/cli"
)

var rootCmd = cli.Init("heapdb", "Page-cached heap storage engine")

func MustExecute(ctx context.Context) {
	initInit()
	initStress()
	initDump()
	rootCmd.MustExecute(ctx)
}
