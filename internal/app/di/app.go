package di

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	authadapters "finance_backend/internal/feature/auth/adapters"
	authhandler "finance_backend/internal/feature/auth/transport/handler"
	authusecase "finance_backend/internal/feature/auth/usecase"
	mdhandler "finance_backend/internal/feature/marketdata/transport/handler"
	mdusecase "finance_backend/internal/feature/marketdata/usecase"
	notificationadapters "finance_backend/internal/feature/notifications/adapters"
	notificationhandler "finance_backend/internal/feature/notifications/transport/handler"
	notificationusecase "finance_backend/internal/feature/notifications/usecase"
	portfolioadapters "finance_backend/internal/feature/portfolio/adapters"
	portfoliohandler "finance_backend/internal/feature/portfolio/transport/handler"
	portfoliousecase "finance_backend/internal/feature/portfolio/usecase"
	refreshusecase "finance_backend/internal/feature/pricerefresh/usecase"
	strategydomain "finance_backend/internal/feature/strategy/domain"
	strategyhandler "finance_backend/internal/feature/strategy/transport/handler"
	strategyusecase "finance_backend/internal/feature/strategy/usecase"
	"finance_backend/internal/platform/cache"
	jwtmw "finance_backend/internal/platform/jwt"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth          *authhandler.AuthHandler
	Stock         *mdhandler.StockHandler
	Portfolio     *portfoliohandler.PortfolioHandler
	Notifications *notificationhandler.NotificationHandler
	Strategy      *strategyhandler.StrategyHandler
}

// App holds the wired application components.
type App struct {
	Handlers   Handlers
	PriceCache *cache.PriceCache
	Refresher  *refreshusecase.Refresher
}

// Deps are the external resources App is built from. Redis may be nil.
type Deps struct {
	DB        *gorm.DB
	Redis     *redis.Client
	RedisTTL  time.Duration
	Market    *mdusecase.Client
	CacheOpts cache.Options
	JWT       jwtmw.Config
	Logger    *slog.Logger
}

// NewApp wires repositories, usecases and handlers.
func NewApp(d Deps) (*App, error) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	prices, err := cache.NewPriceCache(d.Market, d.CacheOpts)
	if err != nil {
		return nil, fmt.Errorf("price cache: %w", err)
	}

	// Repository
	userRepo := authadapters.NewUserRepository(d.DB)
	holdingRepo := portfolioadapters.NewHoldingRepository(d.DB)
	notificationRepo := notificationadapters.NewNotificationRepository(d.DB)

	catalog, err := strategydomain.DefaultCatalog()
	if err != nil {
		return nil, err
	}

	// Usecase
	authUC := authusecase.NewAuthUsecase(userRepo, jwtmw.NewGenerator(d.JWT.Secret, d.JWT.Expiration))
	// Redisキャッシュでラップ（Redisなしの場合はそのまま通す）
	portfolioUC := cache.NewCachingPortfolio(d.Redis, d.RedisTTL,
		portfoliousecase.NewPortfolioUsecase(holdingRepo, prices), "portfolio_value")
	notificationUC := notificationusecase.NewNotificationUsecase(notificationRepo, holdingRepo, prices, d.Market)
	strategyUC := strategyusecase.NewStrategyUsecase(catalog, holdingRepo, prices)
	refresher := refreshusecase.NewRefresher(holdingRepo, d.Market, d.Logger)

	return &App{
		Handlers: Handlers{
			Auth:          authhandler.NewAuthHandler(authUC),
			Stock:         mdhandler.NewStockHandler(prices),
			Portfolio:     portfoliohandler.NewPortfolioHandler(portfolioUC),
			Notifications: notificationhandler.NewNotificationHandler(notificationUC),
			Strategy:      strategyhandler.NewStrategyHandler(strategyUC),
		},
		PriceCache: prices,
		Refresher:  refresher,
	}, nil
}
