package commands

import (
	"context"
	"fmt"
	"strings"

	"crypto-telegram-bot/internal/chart"
	"crypto-telegram-bot/internal/types"
	"crypto-telegram-bot/lib/helpers"
	"crypto-telegram-bot/lib/translation"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// commandPrice handles "!p <asset|all>".
func (d *Dispatcher) commandPrice(ctx context.Context, conversation types.ConversationID, args []string) error {
	if len(args) == 0 {
		return invalid("Usage: %s", usagePrice)
	}

	name := strings.ToLower(args[0])
	if name == "all" {
		d.reply(conversation, translation.Translate("Fetching all favourites."))
		var failed error
		for _, asset := range d.assets.Favourites() {
			if err := d.sendCharts(ctx, conversation, asset); err != nil {
				failed = err
			}
		}
		return failed
	}

	asset, ok := d.assets.Resolve(name)
	if !ok {
		return invalid("Not a valid cryptocurrency!")
	}

	d.reply(conversation, translation.Translate("Fetching %s.", helpers.Capitalize(string(asset))))
	return d.sendCharts(ctx, conversation, asset)
}

func (d *Dispatcher) sendCharts(ctx context.Context, conversation types.ConversationID, asset types.AssetID) error {
	log.Debugf("processing command !p for %s", asset)

	result, err := d.renderer.Render(ctx, asset)
	if err != nil {
		d.reply(conversation, translation.Translate("Could not fetch price history for %s.", helpers.Capitalize(string(asset))))
		return errors.Wrapf(err, "command !p %s", asset)
	}

	err = d.out.SendPhoto(conversation, string(asset)+".png", result.PNG, d.caption(ctx, asset, result.Windows))
	return errors.Wrapf(err, "could not send %s chart", asset)
}

// caption is best effort: a failed price lookup only drops the current price line.
func (d *Dispatcher) caption(ctx context.Context, asset types.AssetID, windows []chart.Window) string {
	var lines []string

	if d.prices != nil {
		current, err := d.prices.CurrentPrice(ctx, asset)
		if err != nil {
			d.logger.WithError(err).WithField("asset", asset).Debug("caption without current price")
		} else {
			lines = append(lines, fmt.Sprintf("%s: %s %s",
				helpers.Capitalize(string(asset)), helpers.FormatPrice(current), helpers.CurrencySymbol(d.currency)))
		}
	}

	changes := make([]string, 0, len(windows))
	for _, w := range windows {
		changes = append(changes, fmt.Sprintf("%dd %s", w.Days, helpers.FormatChange(w.First, w.Last)))
	}
	if len(changes) > 0 {
		lines = append(lines, strings.Join(changes, " | "))
	}
	return strings.Join(lines, "\n")
}
