package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/niksmo/stock-ledger/config"
	"github.com/niksmo/stock-ledger/internal/adapter/catalogclient"
	"github.com/niksmo/stock-ledger/internal/adapter/httphandler"
	"github.com/niksmo/stock-ledger/internal/adapter/storage"
	"github.com/niksmo/stock-ledger/internal/core/service"
)

// LedgerApp wires the ledger service. The catalog is reached only
// through the gateway port, so the dependency stays one-directional.
type LedgerApp struct {
	ctx        context.Context
	cfg        config.Config
	sqldb      storage.SQLDB
	service    service.LedgerService
	httpServer httphandler.HTTPServer
}

func NewLedger(ctx context.Context, cfg config.Config) *LedgerApp {
	app := &LedgerApp{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initStorage()
	app.initService()
	app.initHTTPServer()

	return app
}

func (app *LedgerApp) initLogger() {
	initLogger(app.cfg.LogLevel)
}

func (app *LedgerApp) initStorage() {
	const op = "LedgerApp.initStorage"

	sqldb, err := storage.NewSQLDB(app.ctx, app.cfg.Ledger.SQLDB)
	if err != nil {
		app.fallDown(op, err)
	}
	app.sqldb = sqldb
}

func (app *LedgerApp) initService() {
	repo := storage.NewTransactionsRepository(app.sqldb)
	catalog := catalogclient.New(
		app.cfg.Ledger.CatalogBaseURL, app.cfg.Ledger.CatalogTimeout,
	)
	app.service = service.NewLedger(repo, catalog, service.DiscrepancyLog{})
}

func (app *LedgerApp) initHTTPServer() {
	mux := http.NewServeMux()
	httphandler.RegisterTransactions(mux, app.service)

	handler := httphandler.WithRequestID(
		httphandler.WithLogging(
			httphandler.AllowJSON(mux),
		),
	)
	app.httpServer = httphandler.NewHTTPServer(
		app.cfg.Ledger.HTTPServerAddr, handler,
	)
}

func (app *LedgerApp) Run(stopFn context.CancelFunc) {
	go app.httpServer.Run(stopFn)

	slog.Info("ledger service is running",
		"addr", app.cfg.Ledger.HTTPServerAddr)
}

func (app *LedgerApp) Close(ctx context.Context) {
	slog.Info("ledger service is closing...")

	app.httpServer.Close(ctx)
	app.sqldb.Close()

	slog.Info("ledger service is closed")
}

func (app *LedgerApp) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
