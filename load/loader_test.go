package load

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsnap/store-etl/models"
	"github.com/marketsnap/store-etl/utils"
)

func newTestLoadManager(db *fakeDB, strict bool) *LoadManager {
	logger := utils.NewETLLogger(false)
	return &LoadManager{
		coordinator: NewTxCoordinator(db, logger, strict),
		logger:      logger,
	}
}

func TestLoad_EmptyBatchRejectedBeforeStoreAccess(t *testing.T) {
	db := newFakeDB()
	manager := newTestLoadManager(db, false)

	_, err := manager.Load(&models.RecordBatch{})
	require.Error(t, err)

	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))

	// Хранилище не тронуто: транзакция даже не открывалась
	assert.Equal(t, 0, db.beginCount)
}

func TestLoad_MissingETLTimeRejectedBeforeStoreAccess(t *testing.T) {
	db := newFakeDB()
	manager := newTestLoadManager(db, false)

	batch := &models.RecordBatch{
		Records: []models.ProductRecord{{ProductID: 1, Category: "electronics"}},
	}

	_, err := manager.Load(batch)
	require.Error(t, err)

	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, 0, db.beginCount)
}

func TestLoad_SuccessReportsCounts(t *testing.T) {
	db := newFakeDB()
	manager := newTestLoadManager(db, false)

	result, err := manager.Load(testBatch(electronicsRecord()))
	require.NoError(t, err)

	assert.True(t, result.Committed)
	assert.Equal(t, 1, result.RecordsWritten)
	assert.Equal(t, 0, result.RecordsSkipped)
}

func TestLoad_TerminalErrorIsSurfaced(t *testing.T) {
	db := newFakeDB()
	db.queryHook = badConnOnPing
	manager := newTestLoadManager(db, false)

	_, err := manager.Load(testBatch(electronicsRecord()))
	require.Error(t, err)

	// Ошибка не проглатывается и сохраняет тип для вызывающего
	var connErr *ConnectionError
	assert.True(t, errors.As(err, &connErr))
}

func TestLoad_MismatchedRecordTimestampRejected(t *testing.T) {
	db := newFakeDB()
	manager := newTestLoadManager(db, false)

	batch := testBatch(electronicsRecord())
	batch.Records[0].ETLTime = batch.ETLTime.Add(time.Minute)

	_, err := manager.Load(batch)
	require.Error(t, err)

	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, 0, db.beginCount)
}
