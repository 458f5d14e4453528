package load

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// Коды ошибок MySQL, которые различает загрузчик
const (
	mysqlErrDuplicateEntry   = 1062 // нарушение уникального ключа
	mysqlErrRowIsReferenced  = 1451 // удаление строки, на которую есть ссылки
	mysqlErrNoReferencedRow  = 1452 // вставка строки с несуществующим внешним ключом
	mysqlErrNoReferencedRow2 = 1216
)

// ValidationError означает, что партия не прошла проверку.
// Возникает до какого-либо обращения к хранилищу.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("партия не прошла проверку: %s", e.Reason)
}

// ConnectionError означает, что хранилище недоступно или соединение
// было потеряно посреди запуска. Фатальна для запуска, повторных
// попыток не выполняется.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("ошибка соединения с хранилищем: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ConstraintError означает нарушение ограничения уникальности или
// внешнего ключа при вставке. Фатальна для текущей транзакции.
type ConstraintError struct {
	Table string
	Err   error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("нарушение ограничения в таблице %s: %v", e.Table, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// RecordError означает ошибку обработки одной записи партии,
// не фатальную для соединения. Политика обработки — пропустить
// запись и продолжить (если не включен строгий режим).
type RecordError struct {
	ProductID int
	Err       error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("ошибка обработки записи товара %d: %v", e.ProductID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// classifyStoreError переводит ошибку драйвера в ошибку таксономии загрузчика
func classifyStoreError(table string, err error) error {
	if err == nil {
		return nil
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrDuplicateEntry, mysqlErrRowIsReferenced, mysqlErrNoReferencedRow, mysqlErrNoReferencedRow2:
			return &ConstraintError{Table: table, Err: err}
		}
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return &ConnectionError{Err: err}
	}

	return fmt.Errorf("ошибка хранилища в таблице %s: %w", table, err)
}

// isFatalToRun сообщает, прерывает ли ошибка весь запуск загрузки.
// Ошибки соединения и нарушения ограничений откатывают транзакцию целиком,
// прочие ошибки одной записи обрабатываются политикой пропуска.
func isFatalToRun(err error) bool {
	var connErr *ConnectionError
	var constraintErr *ConstraintError
	return errors.As(err, &connErr) || errors.As(err, &constraintErr)
}
