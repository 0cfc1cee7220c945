package commands

import (
	"context"
	"strings"

	"crypto-telegram-bot/internal/alert"
	"crypto-telegram-bot/internal/chart"
	"crypto-telegram-bot/internal/metrics"
	"crypto-telegram-bot/internal/types"
	"crypto-telegram-bot/lib/translation"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Responder delivers replies to a conversation.
type Responder interface {
	SendText(conversation types.ConversationID, text string) error
	SendPhoto(conversation types.ConversationID, name string, data []byte, caption string) error
}

// Resolver maps user input to canonical asset ids.
type Resolver interface {
	Resolve(name string) (types.AssetID, bool)
	Favourites() []types.AssetID
}

// ChartRenderer produces the stacked chart image of an asset.
type ChartRenderer interface {
	Render(ctx context.Context, asset types.AssetID) (*chart.Result, error)
}

// ValidationError is bad user input; its message is sent back as the reply.
type ValidationError struct {
	Reply string
}

func (e *ValidationError) Error() string {
	return e.Reply
}

func invalid(msgID string, vars ...interface{}) error {
	return &ValidationError{Reply: translation.Translate(msgID, vars...)}
}

// Dispatcher parses inbound text and routes it to the command handlers.
type Dispatcher struct {
	store    *alert.Store
	prices   alert.PriceSource
	assets   Resolver
	renderer ChartRenderer
	out      Responder
	metrics  *metrics.Metrics
	currency string
	logger   *log.Entry
}

type Config struct {
	Currency string
	Metrics  *metrics.Metrics
}

func NewDispatcher(store *alert.Store, prices alert.PriceSource, assets Resolver, renderer ChartRenderer, out Responder, c Config) *Dispatcher {
	if c.Currency == "" {
		c.Currency = "eur"
	}
	return &Dispatcher{
		store:    store,
		prices:   prices,
		assets:   assets,
		renderer: renderer,
		out:      out,
		metrics:  c.Metrics,
		currency: c.Currency,
		logger:   log.WithField("component", "commands"),
	}
}

// Handle runs the command in text, if any. Unknown commands are ignored without a reply.
func (d *Dispatcher) Handle(ctx context.Context, conversation types.ConversationID, text string) {
	args := strings.Fields(text)
	if len(args) == 0 {
		return
	}

	var err error
	switch args[0] {
	case "!p":
		err = d.commandPrice(ctx, conversation, args[1:])
	case "!a":
		err = d.commandAlert(conversation, args[1:])
	case "!h":
		err = d.commandHelp(conversation)
	default:
		d.logger.Debugf("ignoring unknown command %q", args[0])
		return
	}
	d.metrics.CommandProcessed(args[0])

	if err == nil {
		return
	}
	var v *ValidationError
	if errors.As(err, &v) {
		d.reply(conversation, v.Reply)
		return
	}
	d.logger.WithError(err).WithField("command", args[0]).Error("command failed")
}

func (d *Dispatcher) reply(conversation types.ConversationID, text string) {
	if err := d.out.SendText(conversation, text); err != nil {
		d.logger.WithError(err).WithField("conversation", conversation).Error("failed to send reply")
	}
}
