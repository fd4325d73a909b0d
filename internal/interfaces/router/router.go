package router

import (
	"net/http"
	"time"

	acctsvc "papertrade-backend/internal/application/accounts"
	healthsvc "papertrade-backend/internal/application/health"
	holdsvc "papertrade-backend/internal/application/holdings"
	mktsvc "papertrade-backend/internal/application/market"
	tradesvc "papertrade-backend/internal/application/trading"
	txsvc "papertrade-backend/internal/application/transactions"
	watchsvc "papertrade-backend/internal/application/watchlist"
	authsvc "papertrade-backend/internal/auth"
	"papertrade-backend/internal/config"
	"papertrade-backend/internal/infrastructure/database"
	"papertrade-backend/internal/infrastructure/marketdata"
	"papertrade-backend/internal/infrastructure/quotecache"
	accthandler "papertrade-backend/internal/interfaces/handlers/accounts"
	authhandler "papertrade-backend/internal/interfaces/handlers/auth"
	healthhandler "papertrade-backend/internal/interfaces/handlers/health"
	holdhandler "papertrade-backend/internal/interfaces/handlers/holdings"
	mkthandler "papertrade-backend/internal/interfaces/handlers/market"
	tradehandler "papertrade-backend/internal/interfaces/handlers/trading"
	txhandler "papertrade-backend/internal/interfaces/handlers/transactions"
	watchhandler "papertrade-backend/internal/interfaces/handlers/watchlist"
	"papertrade-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// newGateway builds the cached market data gateway. Quote caches live in
// redis when available so every instance shares them.
func newGateway(cfg *config.Config, rdb *redis.Client) *marketdata.Gateway {
	finnhub := &marketdata.FinnhubClient{
		BaseURL: cfg.FinnhubBaseURL,
		APIKey:  cfg.FinnhubAPIKey,
		Timeout: cfg.ProviderTimeout,
	}
	yahoo := &marketdata.YahooChartClient{
		BaseURL: cfg.YahooChartBaseURL,
		Timeout: cfg.ProviderTimeout,
	}
	var stores marketdata.Stores
	if rdb != nil {
		stores = marketdata.Stores{
			Quotes:   quotecache.NewRedisStore[marketdata.Quote](rdb),
			Profiles: quotecache.NewRedisStore[marketdata.Profile](rdb),
			History:  quotecache.NewRedisStore[marketdata.History](rdb),
		}
	}
	return marketdata.NewGateway(finnhub, finnhub, yahoo, stores, quotecache.Config{
		TTL:        cfg.QuoteCacheTTL,
		FailureTTL: cfg.QuoteFailureTTL,
	})
}

func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opt)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		log.Warn().Str("path", cfg.SQLitePath).Msg("no DATABASE_URL set, using sqlite")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler(rdb),
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	var sessions middleware.SessionStore = middleware.NewMemorySessionStore()
	if rdb != nil {
		sessions = &middleware.RedisSessionStore{Rdb: rdb}
		app.Use(middleware.HealthMarker(rdb))
	} else {
		log.Warn().Msg("no REDIS_URL set, sessions and quote caches are process-local")
	}
	app.Use(middleware.Session(sessions))

	gateway := newGateway(cfg, rdb)
	coordinator := &mktsvc.Coordinator{Gateway: gateway, Workers: cfg.FetchWorkers, Timeout: cfg.ProviderTimeout}
	watchlist := &watchsvc.Service{DB: db}
	market := &mktsvc.Service{Coordinator: coordinator, Watchlist: watchlist}
	ledger := &tradesvc.Service{DB: db, Market: gateway}
	accounts := &acctsvc.Service{DB: db, SeedBalance: cfg.SeedBalance}

	hh := &healthhandler.Handlers{
		Collector: &healthsvc.Collector{
			Rdb:          rdb,
			DB:           &gormDBPinger{db: db},
			Caches:       gateway,
			Probes:       providerProbes(cfg),
			ProbeTimeout: 3 * time.Second,
		},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", hh.Live)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	ah := &authhandler.Handlers{
		Finder:   &authsvc.GormAccountFinder{DB: db},
		Accounts: accounts,
		Sessions: sessions,
		Config:   sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/register", ah.Register)
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	acch := &accthandler.Handlers{Service: accounts}
	app.Get("/api/v1/accounts/me", middleware.RequireAuth(), acch.Get)

	mh := &mkthandler.Handlers{Service: market}
	mg := app.Group("/api/v1/market", middleware.RequireAuth())
	mg.Get("/stocks", mh.Stocks)
	mg.Get("/stocks/:symbol", mh.Stock)
	mg.Get("/stocks/:symbol/history", mh.History)

	wh := &watchhandler.Handlers{Service: watchlist, Market: market}
	wg := app.Group("/api/v1/watchlist", middleware.RequireAuth())
	wg.Get("/", wh.View)
	wg.Post("/", wh.Add)
	wg.Delete("/:symbol", wh.Remove)

	th := &tradehandler.Handlers{Service: ledger}
	tg := app.Group("/api/v1/trading", middleware.RequireAuth())
	tg.Post("/buy", th.Buy)
	tg.Post("/sell", th.Sell)

	holdh := &holdhandler.Handlers{Service: &holdsvc.Service{DB: db, Quotes: coordinator, Costs: ledger}}
	hg := app.Group("/api/v1/holdings", middleware.RequireAuth())
	hg.Get("/", holdh.Holdings)
	hg.Get("/sectors", holdh.Sectors)
	hg.Get("/portfolio", holdh.Portfolio)

	txh := &txhandler.Handlers{Service: &txsvc.Service{DB: db}}
	app.Get("/api/v1/transactions", middleware.RequireAuth(), txh.GetTransactions)

	return app, db, rdb, nil
}

// providerProbes lists the configured market data hosts reported by /health/json.
func providerProbes(cfg *config.Config) map[string]string {
	probes := map[string]string{}
	if cfg.FinnhubBaseURL != "" {
		probes["finnhub"] = cfg.FinnhubBaseURL
	}
	if cfg.YahooChartBaseURL != "" {
		probes["yahoo"] = cfg.YahooChartBaseURL
	}
	return probes
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
