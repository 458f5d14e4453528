package transform

import (
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/marketsnap/store-etl/models"
	"github.com/marketsnap/store-etl/utils"
)

// Часовой пояс снимков: Владивосток, UTC+10
var etlTimezone = time.FixedZone("Asia/Vladivostok", 10*60*60)

// Transformer строит партию плоских записей из извлеченных данных:
// пересчет цены в рубли, эволюция счетчика продаж, отметка времени запуска
type Transformer struct {
	logger      *utils.ETLLogger
	historyPath string

	// Источник случайности передается явно, чтобы тесты могли
	// задать детерминированное зерно
	rng *rand.Rand

	// Источник времени, подменяемый в тестах
	now func() time.Time
}

// NewTransformer создает новый экземпляр Transformer
func NewTransformer(logger *utils.ETLLogger, dataDir string, rng *rand.Rand) *Transformer {
	return &Transformer{
		logger:      logger,
		historyPath: filepath.Join(dataDir, "sales_history.json"),
		rng:         rng,
		now:         time.Now,
	}
}

// Transform выполняет фазу преобразования: одна плоская запись на товар,
// общие поля партии продублированы на каждой записи
func (t *Transformer) Transform(extracted *models.ExtractedData) (*models.RecordBatch, error) {
	startTime := time.Now()
	t.logger.Info("Начало фазы Transform (Преобразование данных)")

	if extracted == nil || len(extracted.Products) == 0 {
		return nil, fmt.Errorf("нет извлеченных товаров для преобразования")
	}

	history, err := LoadSalesHistory(t.historyPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка при загрузке истории продаж: %w", err)
	}

	// Отметка времени запуска ETL, секундная точность
	etlTime := t.now().In(etlTimezone).Truncate(time.Second)

	batch := &models.RecordBatch{
		ETLTime:      etlTime,
		TempSnapshot: extracted.TempSnapshot,
	}

	if extracted.CbrUsdRub != nil {
		batch.CbrUsdRub = *extracted.CbrUsdRub
	} else {
		t.logger.Warn("Курс USD/RUB недоступен, цены в рублях не будут рассчитаны")
	}

	if extracted.Btc != nil {
		batch.BtcPriceUSD = extracted.Btc.PriceUSD
		batch.BtcChange24h = extracted.Btc.Change24h
	} else {
		t.logger.Warn("Данные о биткоине недоступны, факт криптоцены будет нулевым")
	}

	for _, product := range extracted.Products {
		record := models.ProductRecord{
			ProductID: product.ID,
			Title:     product.Title,
			Category:  product.Category,
			Sales:     history.Next(product.ID, product.Rating.Count, t.rng),
			PriceUSD:  product.Price,

			ETLTime:      batch.ETLTime,
			CbrUsdRub:    batch.CbrUsdRub,
			TempSnapshot: batch.TempSnapshot,
			BtcPriceUSD:  batch.BtcPriceUSD,
			BtcChange24h: batch.BtcChange24h,
		}

		if product.Image != "" {
			image := product.Image
			record.Image = &image
		}

		// Пересчет цены в рубли по курсу ЦБ, округление до копеек
		if extracted.CbrUsdRub != nil {
			priceRub := roundTo2(product.Price * *extracted.CbrUsdRub)
			record.PriceRub = &priceRub
		}

		batch.Records = append(batch.Records, record)
	}

	// Сохраняем обновленную историю продаж
	if err := history.Save(); err != nil {
		return nil, fmt.Errorf("ошибка при сохранении истории продаж: %w", err)
	}

	duration := time.Since(startTime)
	t.logger.Info("Фаза Transform завершена. Записей: %d. Длительность: %v", len(batch.Records), duration)

	return batch, nil
}

// roundTo2 округляет до двух знаков после запятой
func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
