package models

import (
	"fmt"
	"time"
)

// ProductRecord представляет одну плоскую запись о товаре,
// подготовленную фазой Transform для загрузки в хранилище
type ProductRecord struct {
	ProductID int      `json:"product_id"`
	Title     string   `json:"title"`
	Image     *string  `json:"image,omitempty"`
	Category  string   `json:"category"`
	Sales     int      `json:"sales"`
	PriceUSD  float64  `json:"price_usd"`
	PriceRub  *float64 `json:"price_rub,omitempty"`

	// Общие поля партии, продублированные на каждой записи
	ETLTime      time.Time `json:"etl_time"`
	CbrUsdRub    float64   `json:"cbr_usd_rub"`
	TempSnapshot *float64  `json:"temp_snapshot,omitempty"`
	BtcPriceUSD  float64   `json:"btc_price_usd"`
	BtcChange24h float64   `json:"btc_change_24h"`
}

// RecordBatch представляет партию записей одного запуска ETL.
// Все записи партии обязаны разделять одну отметку времени etl_time
// и одни значения общих полей (курс, температура, цена биткоина).
type RecordBatch struct {
	Records []ProductRecord `json:"records"`

	ETLTime      time.Time `json:"etl_time"`
	CbrUsdRub    float64   `json:"cbr_usd_rub"`
	TempSnapshot *float64  `json:"temp_snapshot,omitempty"`
	BtcPriceUSD  float64   `json:"btc_price_usd"`
	BtcChange24h float64   `json:"btc_change_24h"`
}

// Validate проверяет партию перед загрузкой: партия не пустая,
// отметка времени присутствует и одинакова у всех записей.
// Проверка выполняется до открытия какого-либо соединения с хранилищем.
func (b *RecordBatch) Validate() error {
	if b == nil || len(b.Records) == 0 {
		return fmt.Errorf("партия записей пуста")
	}

	if b.ETLTime.IsZero() {
		return fmt.Errorf("в партии отсутствует отметка времени etl_time")
	}

	for i, record := range b.Records {
		if !record.ETLTime.Equal(b.ETLTime) {
			return fmt.Errorf("запись %d (товар %d) имеет отметку времени %v, отличную от отметки партии %v",
				i, record.ProductID, record.ETLTime, b.ETLTime)
		}
	}

	return nil
}
