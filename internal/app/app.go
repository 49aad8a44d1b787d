package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/subbot/core/bootstrap"
	corecmd "github.com/m3rciful/subbot/core/cmd"
	coretelegram "github.com/m3rciful/subbot/core/telegram"
	"github.com/m3rciful/subbot/core/telegram/router"
	"github.com/m3rciful/subbot/core/telegram/state"
	"github.com/m3rciful/subbot/internal/approval"
	"github.com/m3rciful/subbot/internal/config"
	"github.com/m3rciful/subbot/internal/notify"
	"github.com/m3rciful/subbot/internal/payment"
	"github.com/m3rciful/subbot/internal/subscription"
	"github.com/m3rciful/subbot/internal/sweeper"
)

// App wires the subscription bot: storage, flow engines, the outbound
// notifier, and the expiry sweeper.
type App struct {
	cfg      *config.Config
	db       *sqlx.DB
	store    *subscription.SQLStore
	service  *subscription.Service
	notifier *notify.Notifier
	sessions payment.Sessions
	payH     *payment.Handlers
	apprH    *approval.Handlers
	sweep    *sweeper.Sweeper
}

// LoadConfig adapts config.Load to the runner contract.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	return config.Load(path)
}

// Bootstrap initializes logging, database, and migrations, then builds
// the application.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	return New(cfg, res.DB), nil
}

// New assembles the application from loaded config and a live database.
func New(cfg *config.Config, db *sqlx.DB) *App {
	store := subscription.NewSQLStore(db)
	service := subscription.NewService(store)
	notifier := notify.New()
	sessions := state.NewMemoryManager[payment.Pending]()

	payCfg := payment.Config{
		AdminID:        cfg.Telegram.AdminID,
		PaymentDetails: cfg.Subscription.PaymentDetails,
		MonthlyDays:    cfg.Subscription.MonthlyDays,
		MonthlyPrice:   cfg.Subscription.TariffMonthly,
		LifetimePrice:  cfg.Subscription.TariffLifetime,
	}
	payments := payment.NewEngine(store, service, sessions, notifier, payCfg)
	approvals := approval.NewEngine(store, notifier, approval.Config{
		AdminID:           cfg.Telegram.AdminID,
		ChannelInviteLink: cfg.Subscription.ChannelInviteLink,
		MonthlyDays:       cfg.Subscription.MonthlyDays,
	})

	// SweepAt is validated at config load.
	sweepAt, _ := config.ParseTimeOfDay(cfg.Subscription.SweepAt)
	sweep := sweeper.New(store, notifier, sweeper.Config{
		At: sweepAt,
		Retry: notify.RetryPolicy{
			Attempts:  cfg.Subscription.NotifyRetries,
			BaseDelay: time.Duration(cfg.Subscription.NotifyBackoffSeconds) * time.Second,
		},
	})

	return &App{
		cfg:      cfg,
		db:       db,
		store:    store,
		service:  service,
		notifier: notifier,
		sessions: sessions,
		payH:     payment.NewHandlers(payments, service, payCfg),
		apprH:    approval.NewHandlers(approvals, service, sessions),
		sweep:    sweep,
	}
}

// TelegramRunOptions builds the bot runtime: registry, routes, global
// middleware, and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.registerCommands(reg)
	if err := a.registerCallbacks(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}
	a.payH.RegisterStates()

	fb := fallbacks{}
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(a.sessions, reg, router.TextOptions{
		UnknownText:     fb.UnknownText(),
		UnknownDocument: fb.UnknownDocument(),
		UnknownPhoto:    fb.UnknownDocument(),
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		NotFound: fb.UnknownCallback(),
	}))

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.notifier.Bind(rt.Bot)
			if !a.cfg.Subscription.SweepDisabled {
				go a.sweep.Run(ctx)
			}
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			return a.db.Close()
		},
	}, nil
}
