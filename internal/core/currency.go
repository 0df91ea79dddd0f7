package core

import (
	"sort"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	// FallbackCountry is used when a country has no currency mapping.
	FallbackCountry = "United States"
	// DashboardCountry is assumed on dashboards while the user has not
	// picked a country yet.
	DashboardCountry = "India"
)

// Currency describes how amounts are displayed for one country.
type Currency struct {
	Code   string
	Symbol string
	Locale string
	Name   string
}

var currencies = map[string]Currency{
	"India":                {Code: "INR", Symbol: "₹", Locale: "en-IN", Name: "Indian Rupee"},
	"United States":        {Code: "USD", Symbol: "$", Locale: "en-US", Name: "US Dollar"},
	"United Kingdom":       {Code: "GBP", Symbol: "£", Locale: "en-GB", Name: "British Pound"},
	"Canada":               {Code: "CAD", Symbol: "C$", Locale: "en-CA", Name: "Canadian Dollar"},
	"Australia":            {Code: "AUD", Symbol: "A$", Locale: "en-AU", Name: "Australian Dollar"},
	"Germany":              {Code: "EUR", Symbol: "€", Locale: "de-DE", Name: "Euro"},
	"France":               {Code: "EUR", Symbol: "€", Locale: "fr-FR", Name: "Euro"},
	"Japan":                {Code: "JPY", Symbol: "¥", Locale: "ja-JP", Name: "Japanese Yen"},
	"China":                {Code: "CNY", Symbol: "¥", Locale: "zh-CN", Name: "Chinese Yuan"},
	"Singapore":            {Code: "SGD", Symbol: "S$", Locale: "en-SG", Name: "Singapore Dollar"},
	"United Arab Emirates": {Code: "AED", Symbol: "د.إ", Locale: "ar-AE", Name: "UAE Dirham"},
	"Saudi Arabia":         {Code: "SAR", Symbol: "ر.س", Locale: "ar-SA", Name: "Saudi Riyal"},
	"Switzerland":          {Code: "CHF", Symbol: "CHF", Locale: "de-CH", Name: "Swiss Franc"},
	"Sweden":               {Code: "SEK", Symbol: "kr", Locale: "sv-SE", Name: "Swedish Krona"},
	"Norway":               {Code: "NOK", Symbol: "kr", Locale: "nb-NO", Name: "Norwegian Krone"},
	"Denmark":              {Code: "DKK", Symbol: "kr", Locale: "da-DK", Name: "Danish Krone"},
	"South Africa":         {Code: "ZAR", Symbol: "R", Locale: "en-ZA", Name: "South African Rand"},
	"Brazil":               {Code: "BRL", Symbol: "R$", Locale: "pt-BR", Name: "Brazilian Real"},
	"Mexico":               {Code: "MXN", Symbol: "$", Locale: "es-MX", Name: "Mexican Peso"},
	"South Korea":          {Code: "KRW", Symbol: "₩", Locale: "ko-KR", Name: "South Korean Won"},
	"Russia":               {Code: "RUB", Symbol: "₽", Locale: "ru-RU", Name: "Russian Ruble"},
	"Turkey":               {Code: "TRY", Symbol: "₺", Locale: "tr-TR", Name: "Turkish Lira"},
	"Indonesia":            {Code: "IDR", Symbol: "Rp", Locale: "id-ID", Name: "Indonesian Rupiah"},
	"Malaysia":             {Code: "MYR", Symbol: "RM", Locale: "ms-MY", Name: "Malaysian Ringgit"},
	"Thailand":             {Code: "THB", Symbol: "฿", Locale: "th-TH", Name: "Thai Baht"},
	"Philippines":          {Code: "PHP", Symbol: "₱", Locale: "en-PH", Name: "Philippine Peso"},
	"Vietnam":              {Code: "VND", Symbol: "₫", Locale: "vi-VN", Name: "Vietnamese Dong"},
	"Pakistan":             {Code: "PKR", Symbol: "₨", Locale: "en-PK", Name: "Pakistani Rupee"},
	"Bangladesh":           {Code: "BDT", Symbol: "৳", Locale: "bn-BD", Name: "Bangladeshi Taka"},
	"Sri Lanka":            {Code: "LKR", Symbol: "Rs", Locale: "si-LK", Name: "Sri Lankan Rupee"},
	"New Zealand":          {Code: "NZD", Symbol: "NZ$", Locale: "en-NZ", Name: "New Zealand Dollar"},
}

// Countries returns every supported country name, sorted.
func Countries() []string {
	out := make([]string, 0, len(currencies))
	for name := range currencies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsSupportedCountry reports whether the country has a currency mapping.
func IsSupportedCountry(country string) bool {
	_, ok := currencies[country]
	return ok
}

// CurrencyFor returns the descriptor for country, falling back to the
// US Dollar for unknown or empty names.
func CurrencyFor(country string) Currency {
	if c, ok := currencies[country]; ok {
		return c
	}
	return currencies[FallbackCountry]
}

// FormatAmount renders amount with the country's symbol and locale
// grouping, always with two fraction digits.
func FormatAmount(amount float64, country string) string {
	c := CurrencyFor(country)
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + c.Symbol + c.formatNumber(amount)
}

func (c Currency) formatNumber(amount float64) string {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return strconv.FormatFloat(amount, 'f', 2, 64)
	}
	p := message.NewPrinter(tag)
	return p.Sprintf("%v", number.Decimal(amount,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2)))
}

// DisplayCountry is the country used to format the identity's amounts on
// dashboards and reports.
func DisplayCountry(id Identity) string {
	if id.Country == "" {
		return DashboardCountry
	}
	return id.Country
}
