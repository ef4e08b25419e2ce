package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sdgrab/sd-xmltv/cmd/sd-xmltv/cmds"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cobra.CheckErr(cmds.NewRootCLI().ExecuteContext(ctx))
}
