package models

// RawProduct представляет товар в том виде, в котором его отдает API магазина
type RawProduct struct {
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	Image    string  `json:"image"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Rating   struct {
		Rate  float64 `json:"rate"`
		Count int     `json:"count"`
	} `json:"rating"`
}

// BtcQuote представляет снимок цены биткоина
type BtcQuote struct {
	PriceUSD  float64
	Change24h float64
}

// ExtractedData содержит данные, извлеченные из внешних источников за один запуск.
// Недоступность отдельных источников (курс, погода, криптоцена) не прерывает
// запуск: соответствующее поле остается nil.
type ExtractedData struct {
	Products     []RawProduct
	CbrUsdRub    *float64
	TempSnapshot *float64
	Btc          *BtcQuote
}
