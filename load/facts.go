package load

import (
	"database/sql"

	"github.com/marketsnap/store-etl/utils"
)

// FactKind перечисляет виды фактов хранилища
type FactKind int

const (
	WeatherFact FactKind = iota
	CurrencyFact
	CryptoPriceFact
	SalesFact
)

// factSpec описывает запросы идемпотентной вставки для одного вида факта
type factSpec struct {
	table       string
	existsQuery string // поиск существующего факта по натуральному ключу
	insertQuery string
}

var factSpecs = [...]factSpec{
	WeatherFact: {
		table:       "fact_weather",
		existsQuery: "SELECT fact_id FROM fact_weather WHERE time_id = ? AND location_id = ?",
		insertQuery: "INSERT INTO fact_weather (time_id, location_id, temperature) VALUES (?, ?, ?)",
	},
	CurrencyFact: {
		table:       "fact_currency",
		existsQuery: "SELECT fact_id FROM fact_currency WHERE time_id = ? AND currency_code = ?",
		insertQuery: "INSERT INTO fact_currency (time_id, currency_code, rate_cbr) VALUES (?, ?, ?)",
	},
	CryptoPriceFact: {
		table:       "fact_crypto_price",
		existsQuery: "SELECT fact_id FROM fact_crypto_price WHERE time_id = ? AND asset_id = ?",
		insertQuery: "INSERT INTO fact_crypto_price (time_id, asset_id, price_usd, change_pct_24h) VALUES (?, ?, ?, ?)",
	},
	SalesFact: {
		table:       "fact_sales",
		existsQuery: "SELECT fact_id FROM fact_sales WHERE product_id = ? AND time_id = ?",
		insertQuery: "INSERT INTO fact_sales (product_id, time_id, sales, price_usd, price_rub) VALUES (?, ?, ?, ?, ?)",
	},
}

// FactWriter вставляет строки фактов не более одного раза на натуральный ключ.
// Факт, однажды записанный, не обновляется и не удаляется: повторный запуск
// с иными значениями полезной нагрузки оставляет строку нетронутой.
type FactWriter struct {
	logger *utils.ETLLogger
}

// NewFactWriter создает новый экземпляр FactWriter
func NewFactWriter(logger *utils.ETLLogger) *FactWriter {
	return &FactWriter{logger: logger}
}

// InsertIfAbsent вставляет факт, если строки с таким натуральным ключом еще нет.
// Возвращает true, если строка была вставлена, и false, если уже существовала.
func (w *FactWriter) InsertIfAbsent(tx dbtx, kind FactKind, keyArgs, insertArgs []interface{}) (bool, error) {
	spec := factSpecs[kind]

	var factID int64
	err := tx.QueryRow(spec.existsQuery, keyArgs...).Scan(&factID)
	if err == nil {
		// Факт уже записан, повторная загрузка его не перезаписывает
		w.logger.Debug("Факт %s с ключом %v уже существует, вставка пропущена", spec.table, keyArgs)
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, classifyStoreError(spec.table, err)
	}

	if _, err := tx.Exec(spec.insertQuery, insertArgs...); err != nil {
		return false, classifyStoreError(spec.table, err)
	}

	return true, nil
}

// WriteWeatherFact записывает факт погодного снимка
func (w *FactWriter) WriteWeatherFact(tx dbtx, timeID, locationID int64, temperature *float64) (bool, error) {
	return w.InsertIfAbsent(tx, WeatherFact,
		[]interface{}{timeID, locationID},
		[]interface{}{timeID, locationID, temperature})
}

// WriteCurrencyFact записывает факт курса валюты
func (w *FactWriter) WriteCurrencyFact(tx dbtx, timeID int64, currencyCode string, rate float64) (bool, error) {
	return w.InsertIfAbsent(tx, CurrencyFact,
		[]interface{}{timeID, currencyCode},
		[]interface{}{timeID, currencyCode, rate})
}

// WriteCryptoPriceFact записывает факт цены криптоактива
func (w *FactWriter) WriteCryptoPriceFact(tx dbtx, timeID int64, assetID string, priceUSD, changePct24h float64) (bool, error) {
	return w.InsertIfAbsent(tx, CryptoPriceFact,
		[]interface{}{timeID, assetID},
		[]interface{}{timeID, assetID, priceUSD, changePct24h})
}

// WriteSalesFact записывает факт продаж товара
func (w *FactWriter) WriteSalesFact(tx dbtx, productID int, timeID int64, sales int, priceUSD float64, priceRub *float64) (bool, error) {
	return w.InsertIfAbsent(tx, SalesFact,
		[]interface{}{productID, timeID},
		[]interface{}{productID, timeID, sales, priceUSD, priceRub})
}
