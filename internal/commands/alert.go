package commands

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"crypto-telegram-bot/internal/types"
	"crypto-telegram-bot/lib/helpers"
	"crypto-telegram-bot/lib/translation"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// commandAlert handles "!a min|max <asset> <amount>" and "!a list".
func (d *Dispatcher) commandAlert(conversation types.ConversationID, args []string) error {
	if len(args) == 0 {
		return invalid("Usage: %s", usageAlert)
	}

	sub := strings.ToLower(args[0])
	if sub == "list" {
		d.reply(conversation, d.formatAlertList(conversation))
		return nil
	}

	var ns types.Namespace
	switch sub {
	case string(types.MinNamespace):
		ns = types.MinNamespace
	case string(types.MaxNamespace):
		ns = types.MaxNamespace
	default:
		return invalid("Usage: %s", usageAlert)
	}
	if len(args) < 3 {
		return invalid("Usage: %s", usageAlert)
	}

	amount, err := strconv.ParseFloat(args[2], 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return invalid("Invalid amount: %s", args[2])
	}

	asset, ok := d.assets.Resolve(args[1])
	if !ok {
		return invalid("Not a valid cryptocurrency!")
	}

	if err := d.store.Add(ns, conversation, asset, amount); err != nil {
		d.reply(conversation, translation.Translate("Could not save alert, please try again later."))
		return errors.Wrap(err, "command !a")
	}

	symbol := helpers.CurrencySymbol(d.currency)
	d.reply(conversation, translation.Translate("Added alert for %s at %s%s %s",
		helpers.Capitalize(string(asset)), ns.Direction(), helpers.FormatAmount(amount), symbol))
	return nil
}

func (d *Dispatcher) formatAlertList(conversation types.ConversationID) string {
	snapshot := d.store.List(conversation)
	if snapshot.Empty() {
		return translation.Translate("No alerts set.")
	}

	symbol := helpers.CurrencySymbol(d.currency)
	var lines []string
	for _, side := range []struct {
		ns         types.Namespace
		thresholds map[types.AssetID]float64
	}{
		{types.MinNamespace, snapshot.Min},
		{types.MaxNamespace, snapshot.Max},
	} {
		assets := lo.Keys(side.thresholds)
		sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })
		for _, asset := range assets {
			lines = append(lines, translation.Translate("%s: %s%s %s",
				helpers.Capitalize(string(asset)), side.ns.Direction(), helpers.FormatAmount(side.thresholds[asset]), symbol))
		}
	}
	return strings.Join(lines, "\n")
}
