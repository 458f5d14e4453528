package extractors

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// weatherResponse покрывает интересующую часть ответа open-meteo
type weatherResponse struct {
	Hourly struct {
		Temperature2m []float64 `json:"temperature_2m"`
	} `json:"hourly"`
}

// fetchWeather запрашивает почасовую температуру для Владивостока на сегодня
// и возвращает температуру последнего часа. Сырой ответ сохраняется
// в снимок raw_weather.
func (e *Extractor) fetchWeather() (*float64, error) {
	today := time.Now().In(etlLocation()).Format("2006-01-02")

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(weatherLatitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(weatherLongitude, 'f', -1, 64))
	params.Set("hourly", "temperature_2m")
	params.Set("start_date", today)
	params.Set("end_date", today)
	params.Set("timezone", weatherTimezone)

	body, err := e.get(e.weatherURL+"?"+params.Encode(), "raw_weather")
	if err != nil {
		return nil, err
	}

	var parsed weatherResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("ошибка при разборе данных погоды: %w", err)
	}

	temps := parsed.Hourly.Temperature2m
	if len(temps) == 0 {
		return nil, fmt.Errorf("в ответе нет данных о температуре")
	}

	last := temps[len(temps)-1]
	e.logger.Debug("Температура последнего часа: %.1f", last)
	return &last, nil
}

// etlLocation возвращает часовой пояс снимков (Владивосток, UTC+10)
func etlLocation() *time.Location {
	return time.FixedZone(weatherTimezone, 10*60*60)
}
