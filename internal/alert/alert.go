package alert

import (
	"context"
	"strings"
	"time"

	"crypto-telegram-bot/internal/metrics"
	"crypto-telegram-bot/internal/types"
	"crypto-telegram-bot/lib/helpers"
	"crypto-telegram-bot/lib/translation"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// DefaultInterval is the pause between two evaluation cycles.
const DefaultInterval = 900 * time.Second

// PriceSource is the part of the price client the evaluator needs.
type PriceSource interface {
	CurrentPrice(ctx context.Context, asset types.AssetID) (float64, error)
}

// Notifier delivers text to a conversation.
type Notifier interface {
	SendText(conversation types.ConversationID, text string) error
}

// Evaluator checks stored thresholds against live prices on a fixed interval.
type Evaluator struct {
	store    *Store
	prices   PriceSource
	notifier Notifier
	metrics  *metrics.Metrics
	currency string
	interval time.Duration
	logger   *log.Entry
}

type EvaluatorConfig struct {
	Currency string
	Interval time.Duration
	Metrics  *metrics.Metrics
}

func NewEvaluator(store *Store, prices PriceSource, notifier Notifier, c EvaluatorConfig) *Evaluator {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Currency == "" {
		c.Currency = "eur"
	}
	return &Evaluator{
		store:    store,
		prices:   prices,
		notifier: notifier,
		metrics:  c.Metrics,
		currency: c.Currency,
		interval: c.Interval,
		logger:   log.WithField("component", "alert_evaluator"),
	}
}

// RunCycle makes one pass over every conversation and asset. Price fetch
// failures are logged and reported to the conversation; they never stop the cycle.
// A cancelled ctx ends the pass early without reporting failures.
func (e *Evaluator) RunCycle(ctx context.Context) {
	start := time.Now()
	e.logger.Debug("checking alerts")

	var fired, failures int
	for _, conversation := range e.store.Conversations() {
		if ctx.Err() != nil {
			e.logger.Info("alert check interrupted")
			return
		}
		var lines []string
		fetchFailed := false

		for _, asset := range e.store.Assets(conversation) {
			price, err := e.prices.CurrentPrice(ctx, asset)
			if err != nil && ctx.Err() != nil {
				// fired alerts are already removed from the store
				e.flush(conversation, fetchFailed, lines)
				e.logger.Info("alert check interrupted")
				return
			}
			if err != nil {
				e.logger.WithError(err).WithFields(log.Fields{
					"conversation": conversation,
					"asset":        asset,
				}).Warn("failed to fetch current price")
				fetchFailed = true
				failures++
				e.metrics.PriceFetchFailed()
				continue
			}

			triggers, err := e.store.Evaluate(conversation, asset, price)
			if err != nil {
				e.logger.WithError(err).WithField("asset", asset).Error("failed to persist triggered alerts, retrying next cycle")
				continue
			}
			for _, t := range triggers {
				lines = append(lines, e.FormatTrigger(t))
				e.metrics.AlertFired(t.Namespace)
			}
			fired += len(triggers)
		}

		e.flush(conversation, fetchFailed, lines)
	}

	e.metrics.CycleCompleted(time.Since(start))
	e.logger.WithFields(log.Fields{
		"fired":    fired,
		"failures": failures,
		"took":     time.Since(start).String(),
	}).Info("alert check completed")
}

// FormatTrigger renders "Ethereum is currently at 1999.99 € (<2000 €)".
func (e *Evaluator) FormatTrigger(t types.Trigger) string {
	symbol := helpers.CurrencySymbol(e.currency)
	return translation.Translate("%s is currently at %s %s (%s%s %s)",
		helpers.Capitalize(string(t.Asset)),
		helpers.FormatAmount(t.Price), symbol,
		t.Namespace.Direction(), helpers.FormatAmount(t.Threshold), symbol,
	)
}

// flush sends the fetch failure notice, then the joined trigger lines.
func (e *Evaluator) flush(conversation types.ConversationID, fetchFailed bool, lines []string) {
	if fetchFailed {
		e.send(conversation, translation.Translate("Error while fetching current price!"))
	}
	if len(lines) > 0 {
		e.send(conversation, strings.Join(lines, "\n"))
	}
}

func (e *Evaluator) send(conversation types.ConversationID, text string) {
	if err := e.notifier.SendText(conversation, text); err != nil {
		e.logger.WithError(err).WithField("conversation", conversation).Error("failed to send alert notification")
	}
}

// Start runs a cycle immediately and then every interval until ctx is cancelled.
// A cycle still running when the next one is due is skipped.
func (e *Evaluator) Start(ctx context.Context) {
	cronLogger := cron.PrintfLogger(e.logger)
	c := cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	job := c.Schedule(cron.Every(e.interval), cron.FuncJob(func() { e.RunCycle(ctx) }))
	c.Start()
	go c.Entry(job).WrappedJob.Run()

	e.logger.Infof("alert service started, checking every %s", e.interval)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		e.logger.Info("alert service stopped")
	}()
}
