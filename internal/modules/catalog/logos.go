package catalog

import (
	"fmt"
	"hash/fnv"
	"net/url"
)

// companyDomains maps tickers to corporate domains with a usable logo
// endpoint. Tickers outside this map get a generated monogram placeholder.
var companyDomains = map[string]string{
	"SBER": "sberbank.com",
	"GAZP": "gazprom.com",
	"LKOH": "lukoil.com",
	"YDEX": "yandex.com",
	"ROSN": "rosneft.com",
	"NVTK": "novatek.ru",
	"T":    "tbank.ru",
	"VTBR": "vtb.ru",
	"GMKN": "nornickel.com",
	"MTSS": "mts.ru",
	"MGNT": "magnit.com",
	"MOEX": "moex.com",
	"AFLT": "aeroflot.ru",
	"PHOR": "phosagro.ru",
}

// monogramColors is the palette for generated placeholders. The color is
// picked by ticker hash so a given instrument always renders the same.
var monogramColors = []string{
	"1abc9c", "2ecc71", "3498db", "9b59b6", "e67e22",
	"e74c3c", "f39c12", "16a085", "2980b9", "8e44ad",
}

// LogoURL returns a logo for a ticker: the corporate logo when the domain is
// known, a deterministic monogram placeholder otherwise.
func LogoURL(ticker string) string {
	if domain, ok := companyDomains[ticker]; ok {
		return fmt.Sprintf("https://logo.clearbit.com/%s?size=96", domain)
	}

	h := fnv.New32a()
	h.Write([]byte(ticker))
	color := monogramColors[int(h.Sum32())%len(monogramColors)]

	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=%s&color=fff&size=96",
		url.QueryEscape(ticker), color)
}
