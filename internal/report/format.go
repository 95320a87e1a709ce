package report

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	RupeePrefix = "₹ "
	// Placeholder stands in for missing values.
	Placeholder = "N/A"
)

var printer = message.NewPrinter(language.English)

// Percent formats a damage percentage as "42.50%".
func Percent(v float64) string {
	return printer.Sprintf("%.2f%%", v)
}

// Currency formats an amount with thousands grouping and two decimals, e.g. "₹ 63,750.00".
func Currency(prefix string, v float64) string {
	return prefix + printer.Sprintf("%.2f", v)
}
