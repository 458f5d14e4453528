package load

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/marketsnap/store-etl/models"
	"github.com/marketsnap/store-etl/utils"
)

// LoadManager отвечает за выполнение фазы Load: проверяет партию до
// открытия транзакции, передает ее координатору и сообщает исход
type LoadManager struct {
	coordinator *TxCoordinator
	logger      *utils.ETLLogger
}

// NewLoadManager создает новый экземпляр LoadManager поверх подключения к хранилищу
func NewLoadManager(db *sql.DB, logger *utils.ETLLogger, strict bool) *LoadManager {
	return &LoadManager{
		coordinator: NewTxCoordinator(sqlWarehouse{db: db}, logger, strict),
		logger:      logger,
	}
}

// Load выполняет фазу загрузки данных ETL-процесса.
// Партия проверяется до какого-либо обращения к хранилищу: пустая партия
// или отсутствующая отметка времени дают ValidationError без побочных эффектов.
func (m *LoadManager) Load(batch *models.RecordBatch) (*LoadResult, error) {
	if err := batch.Validate(); err != nil {
		m.logger.Error("Партия отклонена до загрузки: %v", err)
		return nil, &ValidationError{Reason: err.Error()}
	}

	startTime := time.Now()
	m.logger.Info("Начало фазы Load (Загрузка данных), записей в партии: %d", len(batch.Records))

	result, err := m.coordinator.RunBatch(batch)
	if err != nil {
		m.logger.Error("Ошибка при загрузке партии, транзакция откачена: %v", err)
		return nil, fmt.Errorf("ошибка при загрузке партии: %w", err)
	}

	duration := time.Since(startTime)
	m.logger.Info("Фаза Load завершена. Записей загружено: %d, пропущено: %d, общих фактов: %d/%d. Длительность: %v",
		result.RecordsWritten, result.RecordsSkipped,
		result.SharedFactsWritten, result.SharedFactsSkipped, duration)

	return result, nil
}
