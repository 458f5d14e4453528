package load

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsnap/store-etl/models"
	"github.com/marketsnap/store-etl/utils"
)

var testETLTime = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func floatPtr(v float64) *float64 { return &v }

// testBatch собирает партию с общими полями по умолчанию
func testBatch(records ...models.ProductRecord) *models.RecordBatch {
	batch := &models.RecordBatch{
		ETLTime:      testETLTime,
		CbrUsdRub:    90.0,
		TempSnapshot: floatPtr(-5.5),
		BtcPriceUSD:  97000.0,
		BtcChange24h: 1.8,
	}
	for i := range records {
		records[i].ETLTime = testETLTime
		records[i].CbrUsdRub = batch.CbrUsdRub
		batch.Records = append(batch.Records, records[i])
	}
	return batch
}

func electronicsRecord() models.ProductRecord {
	return models.ProductRecord{
		ProductID: 1,
		Title:     "Портативный SSD 1TB",
		Category:  "electronics",
		Sales:     120,
		PriceUSD:  10.0,
		PriceRub:  floatPtr(900.0),
	}
}

func newTestCoordinator(db *fakeDB, strict bool) *TxCoordinator {
	return NewTxCoordinator(db, utils.NewETLLogger(false), strict)
}

func TestRunBatch_FirstLoad(t *testing.T) {
	db := newFakeDB()
	coordinator := newTestCoordinator(db, false)

	result, err := coordinator.RunBatch(testBatch(electronicsRecord()))
	require.NoError(t, err)

	assert.True(t, result.Committed)
	assert.Equal(t, 1, result.RecordsWritten)
	assert.Equal(t, 0, result.RecordsSkipped)
	assert.Equal(t, 3, result.SharedFactsWritten)
	assert.Equal(t, 0, result.SharedFactsSkipped)

	// Измерения созданы
	categoryID, ok := db.state.categories["electronics"]
	require.True(t, ok, "категория должна быть создана")

	product, ok := db.state.products[1]
	require.True(t, ok, "товар должен быть создан")
	assert.Equal(t, "Портативный SSD 1TB", product.title)
	assert.Equal(t, categoryID, product.categoryID)

	// Временное измерение: 2025-01-01 — среда, ISO день недели 3
	timeID, ok := db.state.timeIDs[timeKey(testETLTime)]
	require.True(t, ok, "временное измерение должно быть создано")
	timeDim := db.state.times[timeID]
	assert.Equal(t, "2025-01-01", timeDim.date)
	assert.Equal(t, 9, timeDim.hour)
	assert.Equal(t, 3, timeDim.weekday)

	// Факт продаж хранит пересчитанную цену
	sales, ok := db.state.salesFacts[factKey([]interface{}{1, timeID})]
	require.True(t, ok, "факт продаж должен быть вставлен")
	assert.Equal(t, 120, sales.sales)
	assert.Equal(t, 10.0, sales.priceUSD)
	require.NotNil(t, sales.priceRub)
	assert.Equal(t, 900.0, *sales.priceRub)
}

func TestRunBatch_RepeatedLoadIsIdempotent(t *testing.T) {
	db := newFakeDB()
	coordinator := newTestCoordinator(db, false)
	batch := testBatch(electronicsRecord())

	_, err := coordinator.RunBatch(batch)
	require.NoError(t, err)

	factsAfterFirst := db.state.factRows()
	categoriesAfterFirst := len(db.state.categories)

	// Повторная загрузка той же партии ничего не добавляет
	result, err := coordinator.RunBatch(batch)
	require.NoError(t, err)

	assert.True(t, result.Committed)
	assert.Equal(t, 0, result.RecordsWritten)
	assert.Equal(t, 1, result.RecordsSkipped)
	assert.Equal(t, 0, result.SharedFactsWritten)
	assert.Equal(t, 3, result.SharedFactsSkipped)

	assert.Equal(t, factsAfterFirst, db.state.factRows(), "повторный запуск не должен добавлять строк фактов")
	assert.Equal(t, categoriesAfterFirst, len(db.state.categories))
}

func TestRunBatch_SharedDimensionsResolvedOnce(t *testing.T) {
	db := newFakeDB()
	coordinator := newTestCoordinator(db, false)

	second := electronicsRecord()
	second.ProductID = 2
	second.Title = "Наушники"

	_, err := coordinator.RunBatch(testBatch(electronicsRecord(), second))
	require.NoError(t, err)

	// Обе записи одной категории дают одну строку измерения
	assert.Len(t, db.state.categories, 1)
	assert.Len(t, db.state.locations, 1)
	assert.Len(t, db.state.currencies, 1)
	assert.Len(t, db.state.assets, 1)
	assert.Len(t, db.state.salesFacts, 2)
}

func TestRunBatch_SkipAndContinue(t *testing.T) {
	db := newFakeDB()
	coordinator := newTestCoordinator(db, false)

	broken := electronicsRecord()
	broken.ProductID = 2
	broken.Category = "   "

	result, err := coordinator.RunBatch(testBatch(electronicsRecord(), broken))
	require.NoError(t, err)

	// Первая запись загружена, вторая пропущена, запуск успешен
	assert.True(t, result.Committed)
	assert.Equal(t, 1, result.RecordsWritten)
	assert.Equal(t, 1, result.RecordsSkipped)
	assert.Len(t, db.state.salesFacts, 1)
	assert.Contains(t, db.state.products, 1)
	assert.NotContains(t, db.state.products, 2)
}

func TestRunBatch_StrictModeAbortsWholeBatch(t *testing.T) {
	db := newFakeDB()
	coordinator := newTestCoordinator(db, true)

	broken := electronicsRecord()
	broken.ProductID = 2
	broken.Category = ""

	_, err := coordinator.RunBatch(testBatch(electronicsRecord(), broken))
	require.Error(t, err)

	var recordErr *RecordError
	assert.True(t, errors.As(err, &recordErr))

	// Полный откат: ни одна строка запуска не сохранилась
	assert.True(t, db.lastTx.rolledBack)
	assert.Equal(t, 0, db.state.factRows())
	assert.Empty(t, db.state.categories)
}

func TestRunBatch_ConstraintErrorRollsBackEverything(t *testing.T) {
	db := newFakeDB()
	db.execHook = func(query string, args []interface{}) error {
		// Ломаем вставку факта продаж второй записи
		if strings.Contains(query, "INSERT INTO fact_sales") && args[0].(int) == 2 {
			return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
		}
		return nil
	}
	coordinator := newTestCoordinator(db, false)

	second := electronicsRecord()
	second.ProductID = 2

	_, err := coordinator.RunBatch(testBatch(electronicsRecord(), second))
	require.Error(t, err)

	var constraintErr *ConstraintError
	assert.True(t, errors.As(err, &constraintErr))
	assert.Equal(t, "fact_sales", constraintErr.Table)

	// Откат стирает и успешно загруженную первую запись
	assert.True(t, db.lastTx.rolledBack)
	assert.False(t, db.lastTx.committed)
	assert.Equal(t, 0, db.state.factRows())
}

func TestRunBatch_ConnectionCheckedBeforeWrites(t *testing.T) {
	db := newFakeDB()
	db.queryHook = badConnOnPing
	coordinator := newTestCoordinator(db, false)

	_, err := coordinator.RunBatch(testBatch(electronicsRecord()))
	require.Error(t, err)

	var connErr *ConnectionError
	assert.True(t, errors.As(err, &connErr))

	// До записей дело не дошло
	assert.Equal(t, 0, db.state.factRows())
	assert.Empty(t, db.state.categories)
}

func TestRunBatch_ExactlyOneCommitOrRollback(t *testing.T) {
	db := newFakeDB()
	coordinator := newTestCoordinator(db, false)

	_, err := coordinator.RunBatch(testBatch(electronicsRecord()))
	require.NoError(t, err)

	assert.True(t, db.lastTx.committed)
	assert.False(t, db.lastTx.rolledBack)
	assert.Equal(t, 1, db.beginCount)
}

func TestRunBatch_WeatherFactWithoutTemperature(t *testing.T) {
	db := newFakeDB()
	coordinator := newTestCoordinator(db, false)

	batch := testBatch(electronicsRecord())
	batch.TempSnapshot = nil

	result, err := coordinator.RunBatch(batch)
	require.NoError(t, err)

	// Факт погоды записывается и при отсутствующей температуре
	assert.Equal(t, 3, result.SharedFactsWritten)
	assert.Len(t, db.state.weatherFacts, 1)
}
