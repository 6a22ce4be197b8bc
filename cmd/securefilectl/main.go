package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/securefiles/internal/server"
	"github.com/dmitrijs2005/securefiles/internal/server/config"
	"github.com/dmitrijs2005/securefiles/internal/server/ctl"
)

func main() {
	open := func(ctx context.Context) (*server.Components, error) {
		return server.Bootstrap(ctx, config.LoadConfig())
	}

	if err := ctl.NewRootCmd(open).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
