package helpers

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencySymbols = map[string]string{
	"eur": "€",
	"usd": "$",
	"gbp": "£",
	"jpy": "¥",
	"btc": "₿",
}

// CurrencySymbol returns the display symbol for a currency code, falling back to the upper-cased code.
func CurrencySymbol(currency string) string {
	if sym, ok := currencySymbols[strings.ToLower(currency)]; ok {
		return sym
	}
	return strings.ToUpper(currency)
}

// Capitalize upper-cases the first letter and lower-cases the rest ("ethereum" -> "Ethereum").
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// FormatAmount prints the shortest decimal that round-trips: 2000 -> "2000", 1999.99 -> "1999.99".
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatPrice groups thousands and picks decimals by magnitude, for captions.
func FormatPrice(price float64) string {
	decimals := 6

	if price >= 1000 {
		decimals = 2
	} else if price > 1.2 {
		decimals = 4
	} else if price < 0.00001 {
		decimals = 8
	}

	p := message.NewPrinter(language.English)
	return p.Sprintf("%.*f", decimals, price)
}

// FormatChange renders a relative change between two prices, e.g. "+4.2%".
func FormatChange(from, to float64) string {
	if from == 0 || math.IsNaN(from) || math.IsNaN(to) {
		return "n/a"
	}
	change := (to - from) / from * 100
	sign := ""
	if change > 0 {
		sign = "+"
	}
	return sign + humanize.FtoaWithDigits(change, 2) + "%"
}

// FormatAxisPrice keeps chart tick labels short: 12,345 / 1.2345.
func FormatAxisPrice(price float64) string {
	if math.Abs(price) >= 1000 {
		return humanize.Commaf(math.Round(price))
	}
	return humanize.FtoaWithDigits(price, 4)
}
