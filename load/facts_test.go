package load

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsnap/store-etl/utils"
)

func TestInsertIfAbsent_InsertThenSkip(t *testing.T) {
	db := newFakeDB()
	tx := newTestTx(db)
	writer := NewFactWriter(utils.NewETLLogger(false))

	inserted, err := writer.WriteWeatherFact(tx, 1, 1, floatPtr(-3.2))
	require.NoError(t, err)
	assert.True(t, inserted)

	// Повторная вставка с тем же натуральным ключом — no-op,
	// даже если полезная нагрузка отличается
	inserted, err = writer.WriteWeatherFact(tx, 1, 1, floatPtr(25.0))
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Len(t, tx.state.weatherFacts, 1)
}

func TestWriteCurrencyFact(t *testing.T) {
	db := newFakeDB()
	tx := newTestTx(db)
	writer := NewFactWriter(utils.NewETLLogger(false))

	inserted, err := writer.WriteCurrencyFact(tx, 1, "USD", 90.0)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Другая отметка времени — другой натуральный ключ, вставка разрешена
	inserted, err = writer.WriteCurrencyFact(tx, 2, "USD", 91.5)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Len(t, tx.state.currencyFacts, 2)
}

func TestWriteCryptoPriceFact(t *testing.T) {
	db := newFakeDB()
	tx := newTestTx(db)
	writer := NewFactWriter(utils.NewETLLogger(false))

	inserted, err := writer.WriteCryptoPriceFact(tx, 1, "bitcoin", 97000.0, -2.1)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = writer.WriteCryptoPriceFact(tx, 1, "bitcoin", 99000.0, 3.0)
	require.NoError(t, err)
	assert.False(t, inserted, "факт криптоцены не перезаписывается")
}

func TestWriteSalesFact_NullablePriceRub(t *testing.T) {
	db := newFakeDB()
	tx := newTestTx(db)
	writer := NewFactWriter(utils.NewETLLogger(false))

	// Цена в рублях может отсутствовать, если курс был недоступен
	inserted, err := writer.WriteSalesFact(tx, 5, 1, 42, 19.99, nil)
	require.NoError(t, err)
	assert.True(t, inserted)

	stored := tx.state.salesFacts[factKey([]interface{}{5, int64(1)})]
	assert.Equal(t, 42, stored.sales)
	assert.Equal(t, 19.99, stored.priceUSD)
	assert.Nil(t, stored.priceRub)
}
