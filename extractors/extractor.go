package extractors

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marketsnap/store-etl/models"
	"github.com/marketsnap/store-etl/utils"
)

// Адреса внешних источников данных
const (
	urlProducts = "https://fakestoreapi.com/products"
	urlCbrDaily = "https://www.cbr-xml-daily.ru/daily_json.js"
	urlWeather  = "https://api.open-meteo.com/v1/forecast"
	urlCrypto   = "https://api.coingecko.com/api/v3/coins/markets"
)

// Координаты и часовой пояс для запроса погоды (Владивосток)
const (
	weatherLatitude  = 43.1155
	weatherLongitude = 131.8855
	weatherTimezone  = "Asia/Vladivostok"
)

// Extractor координирует извлечение данных из внешних HTTP-источников.
// Товары обязательны для запуска; недоступность курса, погоды или
// криптоцены деградирует мягко — соответствующее поле остается пустым.
type Extractor struct {
	client    *http.Client
	snapshots *SnapshotStore
	logger    *utils.ETLLogger

	// Базовые адреса переопределяются в тестах
	productsURL string
	cbrURL      string
	weatherURL  string
	cryptoURL   string
}

// NewExtractor создает новый экземпляр Extractor
func NewExtractor(timeout time.Duration, snapshots *SnapshotStore, logger *utils.ETLLogger) *Extractor {
	return &Extractor{
		client:      &http.Client{Timeout: timeout},
		snapshots:   snapshots,
		logger:      logger,
		productsURL: urlProducts,
		cbrURL:      urlCbrDaily,
		weatherURL:  urlWeather,
		cryptoURL:   urlCrypto,
	}
}

// Extract выполняет фазу извлечения данных из всех источников
func (e *Extractor) Extract() (*models.ExtractedData, error) {
	startTime := time.Now()
	e.logger.LogExtractStart()

	var extracted models.ExtractedData
	var err error

	// Товары — обязательный источник: без них нет партии
	extracted.Products, err = e.fetchProducts()
	if err != nil {
		e.logger.Error("Ошибка при извлечении товаров: %v", err)
		return nil, fmt.Errorf("ошибка извлечения товаров: %w", err)
	}

	// Курс валют: при ошибке продолжаем без курса
	extracted.CbrUsdRub, err = e.fetchCbrRate()
	if err != nil {
		e.logger.Error("Ошибка при извлечении курса ЦБ: %v", err)
	}

	// Погода: при ошибке продолжаем без температуры
	extracted.TempSnapshot, err = e.fetchWeather()
	if err != nil {
		e.logger.Error("Ошибка при извлечении погоды: %v", err)
	}

	// Биткоин: при ошибке продолжаем без котировки
	extracted.Btc, err = e.fetchBtc()
	if err != nil {
		e.logger.Error("Ошибка при извлечении данных о биткоине: %v", err)
	}

	e.logger.LogExtractComplete(len(extracted.Products), time.Since(startTime))
	return &extracted, nil
}

// get выполняет HTTP-запрос, проверяет статус и сохраняет сырой снимок ответа
func (e *Extractor) get(url, snapshotName string) ([]byte, error) {
	resp, err := e.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("источник %s вернул статус %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка при чтении ответа %s: %w", url, err)
	}

	if err := e.snapshots.Save(snapshotName, body); err != nil {
		// Снимок вспомогательный, его потеря не прерывает извлечение
		e.logger.Error("Не удалось сохранить снимок %s: %v", snapshotName, err)
	}

	return body, nil
}
