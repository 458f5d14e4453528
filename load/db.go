package load

import (
	"database/sql"
)

// rowScanner минимальный интерфейс строки результата запроса
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// dbtx интерфейс исполнителя запросов внутри открытой транзакции.
// Резолвер измерений и писатель фактов работают только через него
// и никогда не управляют транзакцией сами.
type dbtx interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) rowScanner
}

// warehouseTx транзакция хранилища
type warehouseTx interface {
	dbtx
	Commit() error
	Rollback() error
}

// warehouseDB источник транзакций хранилища
type warehouseDB interface {
	Begin() (warehouseTx, error)
}

// sqlWarehouse адаптер *sql.DB к интерфейсу warehouseDB
type sqlWarehouse struct {
	db *sql.DB
}

func (w sqlWarehouse) Begin() (warehouseTx, error) {
	tx, err := w.db.Begin()
	if err != nil {
		return nil, err
	}
	return sqlTx{tx: tx}, nil
}

// sqlTx адаптер *sql.Tx к интерфейсу warehouseTx
type sqlTx struct {
	tx *sql.Tx
}

func (t sqlTx) Exec(query string, args ...interface{}) (sql.Result, error) {
	return t.tx.Exec(query, args...)
}

func (t sqlTx) QueryRow(query string, args ...interface{}) rowScanner {
	return t.tx.QueryRow(query, args...)
}

func (t sqlTx) Commit() error {
	return t.tx.Commit()
}

func (t sqlTx) Rollback() error {
	return t.tx.Rollback()
}
