package commands

import (
	"strings"

	"crypto-telegram-bot/internal/types"
	"crypto-telegram-bot/lib/translation"
)

type helpEntry struct {
	usage       string
	description string
}

var helpEntries = []helpEntry{
	{usagePrice, "Gets graphs for a given coin"},
	{usageAlert, "Adds an alert for a given coin"},
	{usageAlertList, "Lists all alerts"},
	{"!h", "Shows this help"},
}

const (
	usagePrice     = "!p [coin_name / 'all']"
	usageAlert     = "!a [min / max] [coin_name] [amount]"
	usageAlertList = "!a 'list'"
)

func (d *Dispatcher) commandHelp(conversation types.ConversationID) error {
	var b strings.Builder
	for _, entry := range helpEntries {
		b.WriteString(entry.usage)
		b.WriteString(": ")
		b.WriteString(translation.Translate(entry.description))
		b.WriteString("\n")
	}
	d.reply(conversation, strings.TrimRight(b.String(), "\n"))
	return nil
}
