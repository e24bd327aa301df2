package steam

// currencyCodes maps Steam's numeric wallet currency ids, as accepted by the
// priceoverview "currency" parameter, to ISO 4217 codes.
var currencyCodes = map[string]string{
	"1":  "USD",
	"2":  "GBP",
	"3":  "EUR",
	"4":  "CHF",
	"5":  "RUB",
	"6":  "PLN",
	"7":  "BRL",
	"8":  "JPY",
	"9":  "NOK",
	"10": "IDR",
	"11": "MYR",
	"12": "PHP",
	"13": "SGD",
	"14": "THB",
	"15": "VND",
	"16": "KRW",
	"17": "TRY",
	"18": "UAH",
	"19": "MXN",
	"20": "CAD",
	"21": "AUD",
	"22": "NZD",
	"23": "CNY",
	"24": "INR",
	"25": "CLP",
	"26": "PEN",
	"27": "COP",
	"28": "ZAR",
	"29": "HKD",
	"30": "TWD",
	"31": "SAR",
	"32": "AED",
	"34": "ARS",
	"35": "ILS",
	"37": "KZT",
	"38": "KWD",
	"39": "QAR",
	"40": "CRC",
	"41": "UYU",
}

// CurrencyCode returns the ISO code of a Steam currency id.
func CurrencyCode(id string) (string, bool) {
	code, ok := currencyCodes[id]
	return code, ok
}
