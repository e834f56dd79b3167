package catalog

// sectors maps well-known tickers to their industry sector. The exchange
// listing endpoint carries no sector data, so classification is curated.
// Renamed tickers are keyed by their current identifier.
var sectors = map[string]string{
	// Банки
	"SBER": "Банки", "SBERP": "Банки", "VTBR": "Банки", "T": "Банки",
	"CBOM": "Банки", "BSPB": "Банки",

	// Нефть и газ
	"GAZP": "Нефть и газ", "LKOH": "Нефть и газ", "ROSN": "Нефть и газ",
	"NVTK": "Нефть и газ", "TATN": "Нефть и газ", "TATNP": "Нефть и газ",
	"SNGS": "Нефть и газ", "SNGSP": "Нефть и газ", "TRNFP": "Нефть и газ",

	// Металлургия
	"GMKN": "Металлургия", "RUAL": "Металлургия", "MAGN": "Металлургия",
	"NLMK": "Металлургия", "CHMF": "Металлургия", "ALRS": "Металлургия",
	"PLZL": "Металлургия",

	// IT
	"YDEX": "IT", "VKCO": "IT", "OZON": "IT", "POSI": "IT", "HEAD": "IT",

	// Телеком
	"MTSS": "Телеком", "RTKM": "Телеком", "MGTS": "Телеком",

	// Энергетика
	"FEES": "Энергетика", "HYDR": "Энергетика", "IRAO": "Энергетика",
	"MSRS": "Энергетика", "UPRO": "Энергетика", "ENPG": "Энергетика",
	"TGKA": "Энергетика", "TGKB": "Энергетика",

	// Транспорт
	"AFLT": "Транспорт", "FESH": "Транспорт", "FLOT": "Транспорт",

	// Финансы
	"MOEX": "Финансы", "SPBE": "Финансы",

	// Химия
	"PHOR": "Химия", "AKRN": "Химия", "NKNC": "Химия", "NKNCP": "Химия",

	// Недвижимость
	"PIKK": "Недвижимость", "LSRG": "Недвижимость", "ETLN": "Недвижимость",
	"SMLT": "Недвижимость",

	// Ритейл
	"X5": "Ритейл", "MGNT": "Ритейл", "FIXP": "Ритейл", "LENT": "Ритейл",

	// Машиностроение
	"KMAZ": "Машиностроение",

	// Фармацевтика
	"APTK": "Фармацевтика",
}

// defaultSector is assigned to tickers absent from the curated map.
const defaultSector = "Прочие"

// SectorFor returns the curated sector for a ticker.
func SectorFor(ticker string) string {
	if s, ok := sectors[ticker]; ok {
		return s
	}
	return defaultSector
}
