package app

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	coretelegram "github.com/m3rciful/subbot/core/telegram"
	"github.com/m3rciful/subbot/core/telegram/commands"
	"github.com/m3rciful/subbot/core/telegram/helpers"
	"github.com/m3rciful/subbot/core/telegram/ui"
	"github.com/m3rciful/subbot/internal/approval"
	"github.com/m3rciful/subbot/internal/payment"
)

func (a *App) registerCommands(reg *coretelegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.payH.Start,
		Description: "Main menu",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     a.payH.Help,
		Description: "How it works",
	})
	reg.RegisterCommand("/mysubscription", commands.Command{
		Handler:     a.payH.MySubscription,
		Description: "Subscription status",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.payH.CancelCommand,
		Description: "Cancel the current purchase",
		Hidden:      true,
	})
	reg.RegisterCommand("/remove", commands.Command{
		Handler:     a.apprH.RemoveCommand,
		Description: "Remove a subscriber record",
		AdminOnly:   true,
		Hidden:      true,
	})
}

func (a *App) registerCallbacks(reg *coretelegram.Registry) error {
	cbs := map[string]tele.HandlerFunc{
		payment.CallbackBuy:     a.payH.BuyCallback,
		payment.CallbackTariff:  a.payH.TariffCallback,
		payment.CallbackPayment: a.payH.PaymentCallback,
		payment.CallbackCancel:  a.payH.CancelCallback,
		payment.CallbackMySub:   a.payH.MySubscription,
		approval.CallbackUnique: a.apprH.DecisionCallback,
	}
	for key, h := range cbs {
		if err := reg.RegisterCallback(key, h); err != nil {
			return fmt.Errorf("app: register callback %q: %w", key, err)
		}
	}

	// Old decision messages carry flat approve_<id>/decline_<id> payloads
	// that no registered unique matches.
	reg.SetCallbackNotFound(a.apprH.LegacyDecisionCallback(fallbacks{}.UnknownCallback()))
	return nil
}

// fallbacks answers updates that match no command, state, or callback.
type fallbacks struct{}

var _ ui.FallbackProvider = fallbacks{}

func (fallbacks) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.SendText(c, "I didn't get that. Use /start for the menu or /help for instructions.")
	}
}

func (fallbacks) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.SendText(c, "I wasn't expecting a file. Use /start if you want to buy access.")
	}
}

func (fallbacks) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.SendText(c, "This button is no longer active. Use /start to begin.")
	}
}
