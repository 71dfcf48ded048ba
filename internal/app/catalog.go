package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/niksmo/stock-ledger/config"
	"github.com/niksmo/stock-ledger/internal/adapter/httphandler"
	"github.com/niksmo/stock-ledger/internal/adapter/storage"
	"github.com/niksmo/stock-ledger/internal/core/service"
)

// CatalogApp wires the catalog service: products storage behind the
// core service behind the HTTP surface.
type CatalogApp struct {
	ctx        context.Context
	cfg        config.Config
	sqldb      storage.SQLDB
	service    service.CatalogService
	httpServer httphandler.HTTPServer
}

func NewCatalog(ctx context.Context, cfg config.Config) *CatalogApp {
	app := &CatalogApp{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initStorage()
	app.initService()
	app.initHTTPServer()

	return app
}

func (app *CatalogApp) initLogger() {
	initLogger(app.cfg.LogLevel)
}

func (app *CatalogApp) initStorage() {
	const op = "CatalogApp.initStorage"

	sqldb, err := storage.NewSQLDB(app.ctx, app.cfg.Catalog.SQLDB)
	if err != nil {
		app.fallDown(op, err)
	}
	app.sqldb = sqldb
}

func (app *CatalogApp) initService() {
	repo := storage.NewProductsRepository(app.sqldb)
	app.service = service.NewCatalog(repo)
}

func (app *CatalogApp) initHTTPServer() {
	mux := http.NewServeMux()
	httphandler.RegisterProducts(mux, app.service, app.service)

	handler := httphandler.WithRequestID(
		httphandler.WithLogging(
			httphandler.AllowJSON(mux),
		),
	)
	app.httpServer = httphandler.NewHTTPServer(
		app.cfg.Catalog.HTTPServerAddr, handler,
	)
}

func (app *CatalogApp) Run(stopFn context.CancelFunc) {
	go app.httpServer.Run(stopFn)

	slog.Info("catalog service is running",
		"addr", app.cfg.Catalog.HTTPServerAddr)
}

func (app *CatalogApp) Close(ctx context.Context) {
	slog.Info("catalog service is closing...")

	app.httpServer.Close(ctx)
	app.sqldb.Close()

	slog.Info("catalog service is closed")
}

func (app *CatalogApp) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}

func initLogger(level slog.Leveler) {
	opts := &slog.HandlerOptions{Level: level}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}
