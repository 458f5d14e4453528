package extractors

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/marketsnap/store-etl/models"
)

// coingeckoMarket покрывает интересующую часть ответа coingecko
type coingeckoMarket struct {
	CurrentPrice             float64 `json:"current_price"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
}

// fetchBtc загружает цену биткоина и изменение за 24 часа,
// сохраняя сырой ответ в снимок raw_crypto
func (e *Extractor) fetchBtc() (*models.BtcQuote, error) {
	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("ids", "bitcoin")
	params.Set("sparkline", "false")
	params.Set("price_change_percentage", "24h")

	body, err := e.get(e.cryptoURL+"?"+params.Encode(), "raw_crypto")
	if err != nil {
		return nil, err
	}

	var markets []coingeckoMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("ошибка при разборе данных о криптоактивах: %w", err)
	}

	if len(markets) == 0 {
		return nil, fmt.Errorf("ответ о криптоактивах пустой")
	}

	quote := &models.BtcQuote{
		PriceUSD:  markets[0].CurrentPrice,
		Change24h: markets[0].PriceChangePercentage24h,
	}

	e.logger.Debug("Биткоин: %.2f USD, изменение за 24ч: %.2f%%", quote.PriceUSD, quote.Change24h)
	return quote, nil
}
