package moex

import "strings"

// renames maps retired display tickers to the identifier ISS currently
// recognizes. Instruments are renamed rarely and the renames are public
// knowledge, so a static table is sufficient; no network call is involved.
//
// Targets must never appear as keys, which keeps Normalize idempotent.
var renames = map[string]string{
	"YNDX": "YDEX", // Yandex re-listing, 2024
	"TCSG": "T",    // T-Bank rebrand, 2024
	"FIVE": "X5",   // X5 Group re-listing, 2025
	"MAIL": "VKCO", // VK rebrand, 2021
}

// Normalize maps a display ticker to the identifier the exchange currently
// recognizes. Unknown tickers pass through unchanged (after upper-casing and
// trimming), and Normalize(Normalize(t)) == Normalize(t) for every input.
func Normalize(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if current, ok := renames[t]; ok {
		return current
	}
	return t
}
