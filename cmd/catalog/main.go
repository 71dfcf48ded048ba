package main

import (
	"context"
	"time"

	"github.com/niksmo/stock-ledger/config"
	"github.com/niksmo/stock-ledger/internal/app"
	"github.com/niksmo/stock-ledger/pkg/sigctx"
)

const closeTimeout = 5 * time.Second

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	catalogService := app.NewCatalog(sigCtx, cfg)

	catalogService.Run(closeApp)

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	catalogService.Close(ctx)
}
