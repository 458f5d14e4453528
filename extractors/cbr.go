package extractors

import (
	"encoding/json"
	"fmt"
)

// cbrDailyResponse покрывает интересующую часть ответа cbr-xml-daily
type cbrDailyResponse struct {
	Valute map[string]struct {
		Value float64 `json:"Value"`
	} `json:"Valute"`
}

// fetchCbrRate загружает дневной курс USD/RUB Центробанка
// и сохраняет сырой ответ в снимок raw_cbr
func (e *Extractor) fetchCbrRate() (*float64, error) {
	body, err := e.get(e.cbrURL, "raw_cbr")
	if err != nil {
		return nil, err
	}

	var parsed cbrDailyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("ошибка при разборе курсов валют: %w", err)
	}

	usd, ok := parsed.Valute["USD"]
	if !ok {
		return nil, fmt.Errorf("в ответе ЦБ не найдено поле Valute→USD→Value")
	}

	e.logger.Debug("Курс USD/RUB: %.4f", usd.Value)
	return &usd.Value, nil
}
