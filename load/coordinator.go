package load

import (
	"fmt"
	"strings"

	"github.com/marketsnap/store-etl/models"
	"github.com/marketsnap/store-etl/utils"
)

// Постоянные измерения этого развертывания: локация погодных снимков,
// отслеживаемая валютная пара и криптоактив
const (
	locationName      = "Vladivostok"
	locationLatitude  = 43.1155
	locationLongitude = 131.8855

	currencyCode        = "USD"
	currencyDescription = "US Dollar to Russian Ruble (CBR daily rate)"

	cryptoAssetID   = "bitcoin"
	cryptoSymbol    = "BTC"
	cryptoAssetName = "Bitcoin"
)

// LoadResult описывает исход загрузки одной партии
type LoadResult struct {
	// Committed — транзакция была зафиксирована
	Committed bool `json:"committed"`

	// RecordsWritten — записей товаров, чьи факты продаж были вставлены
	RecordsWritten int `json:"records_written"`

	// RecordsSkipped — записей пропущено: факт уже существовал либо
	// разрешение измерений записи не удалось
	RecordsSkipped int `json:"records_skipped"`

	// SharedFactsWritten — общих фактов партии (погода, курс, криптоцена) вставлено
	SharedFactsWritten int `json:"shared_facts_written"`

	// SharedFactsSkipped — общих фактов партии пропущено как уже существующих
	SharedFactsSkipped int `json:"shared_facts_skipped"`
}

// TxCoordinator оборачивает загрузку одной партии в единственную транзакцию:
// ровно одна фиксация или один откат на вызов, частичных фиксаций не бывает
type TxCoordinator struct {
	db       warehouseDB
	resolver *DimensionResolver
	facts    *FactWriter
	logger   *utils.ETLLogger

	// strict: ошибка разрешения измерений одной записи прерывает всю партию
	// вместо пропуска этой записи
	strict bool
}

// NewTxCoordinator создает новый экземпляр TxCoordinator
func NewTxCoordinator(db warehouseDB, logger *utils.ETLLogger, strict bool) *TxCoordinator {
	return &TxCoordinator{
		db:       db,
		resolver: NewDimensionResolver(logger),
		facts:    NewFactWriter(logger),
		logger:   logger,
		strict:   strict,
	}
}

// RunBatch загружает партию в хранилище атомарно.
// Протокол: открыть транзакцию, проверить живость соединения, разрешить
// общие измерения партии, записать общие факты, затем по каждой записи —
// категория, товар, факт продаж. Одна фиксация в конце либо полный откат.
func (c *TxCoordinator) RunBatch(batch *models.RecordBatch) (*LoadResult, error) {
	tx, err := c.db.Begin()
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	// Гарантируем ровно один откат на любом пути выхода без фиксации
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	// Проверка живости соединения до каких-либо записей
	var one int
	if err := tx.QueryRow("SELECT 1").Scan(&one); err != nil {
		return nil, &ConnectionError{Err: err}
	}

	result := &LoadResult{}

	// Общие измерения партии разрешаются один раз
	timeID, err := c.resolver.ResolveTime(tx, batch.ETLTime)
	if err != nil {
		return nil, err
	}

	locationID, err := c.resolver.ResolveLocation(tx, locationName, locationLatitude, locationLongitude)
	if err != nil {
		return nil, err
	}

	currency, err := c.resolver.ResolveCurrency(tx, currencyCode, currencyDescription)
	if err != nil {
		return nil, err
	}

	assetID, err := c.resolver.ResolveCryptoAsset(tx, cryptoAssetID, cryptoSymbol, cryptoAssetName)
	if err != nil {
		return nil, err
	}

	// Общие факты партии записываются один раз
	sharedWrites := []func() (bool, error){
		func() (bool, error) {
			return c.facts.WriteWeatherFact(tx, timeID, locationID, batch.TempSnapshot)
		},
		func() (bool, error) {
			return c.facts.WriteCurrencyFact(tx, timeID, currency, batch.CbrUsdRub)
		},
		func() (bool, error) {
			return c.facts.WriteCryptoPriceFact(tx, timeID, assetID, batch.BtcPriceUSD, batch.BtcChange24h)
		},
	}

	for _, write := range sharedWrites {
		inserted, err := write()
		if err != nil {
			return nil, err
		}
		if inserted {
			result.SharedFactsWritten++
		} else {
			result.SharedFactsSkipped++
		}
	}

	// Загрузка записей товаров
	for _, record := range batch.Records {
		inserted, err := c.loadRecord(tx, record, timeID)
		if err != nil {
			if c.strict || isFatalToRun(err) {
				return nil, err
			}

			// Политика skip-and-continue: пропускаем запись, партия продолжается
			c.logger.Error("Запись товара %d пропущена: %v", record.ProductID, err)
			result.RecordsSkipped++
			continue
		}

		if inserted {
			result.RecordsWritten++
		} else {
			result.RecordsSkipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &ConnectionError{Err: err}
	}
	committed = true
	result.Committed = true

	return result, nil
}

// loadRecord разрешает измерения одной записи и записывает ее факт продаж
func (c *TxCoordinator) loadRecord(tx warehouseTx, record models.ProductRecord, timeID int64) (bool, error) {
	if strings.TrimSpace(record.Category) == "" {
		return false, &RecordError{ProductID: record.ProductID, Err: fmt.Errorf("пустое имя категории")}
	}

	categoryID, err := c.resolver.ResolveCategory(tx, record.Category)
	if err != nil {
		return false, wrapRecordError(record.ProductID, err)
	}

	productID, err := c.resolver.ResolveProduct(tx, record.ProductID, record.Title, record.Image, categoryID)
	if err != nil {
		return false, wrapRecordError(record.ProductID, err)
	}

	return c.facts.WriteSalesFact(tx, productID, timeID, record.Sales, record.PriceUSD, record.PriceRub)
}

// wrapRecordError оборачивает нефатальные ошибки разрешения в RecordError,
// сохраняя фатальные (соединение, ограничения) как есть
func wrapRecordError(productID int, err error) error {
	if isFatalToRun(err) {
		return err
	}
	return &RecordError{ProductID: productID, Err: err}
}
