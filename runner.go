package main

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/marketsnap/store-etl/config"
	"github.com/marketsnap/store-etl/extractors"
	"github.com/marketsnap/store-etl/load"
	"github.com/marketsnap/store-etl/models"
	"github.com/marketsnap/store-etl/monitor"
	"github.com/marketsnap/store-etl/transform"
	"github.com/marketsnap/store-etl/utils"
)

// ETLRunner связывает фазы Extract, Transform и Load в один процесс
// и ведет журнал запусков
type ETLRunner struct {
	config      config.ETLConfig
	db          *sql.DB
	logger      *utils.ETLLogger
	extractor   *extractors.Extractor
	transformer *transform.Transformer
	loadManager *load.LoadManager
	etlLogRepo  *models.MySQLETLLogRepository

	// Наблюдатели получают сводку каждого завершенного запуска
	observers []func(models.ETLRunLog)
}

// NewETLRunner создает новый экземпляр ETLRunner.
// Зерно seed задает детерминированную последовательность приращений
// счетчика продаж; нулевое зерно означает инициализацию от времени.
func NewETLRunner(seed int64) (*ETLRunner, error) {
	// Получаем конфигурацию
	etlConfig := config.GetConfig()

	// Инициализируем логгер
	logger := utils.NewETLLogger(etlConfig.EnableDetailedLogging)
	logger.Info("Инициализация ETL Runner")

	// Подключаемся к базе данных хранилища
	db, err := config.ConnectWarehouse(etlConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	// Создаем таблицы звездообразной схемы, если их еще нет
	if err := load.CreateWarehouseTables(db); err != nil {
		config.CloseWarehouse(db)
		return nil, fmt.Errorf("ошибка при создании таблиц хранилища: %w", err)
	}

	// Инициализируем репозиторий журнала запусков ETL
	etlLogRepo := models.NewMySQLETLLogRepository(db)
	if err := etlLogRepo.CreateETLLogTable(); err != nil {
		config.CloseWarehouse(db)
		return nil, fmt.Errorf("ошибка при создании таблицы журнала ETL: %w", err)
	}

	// Источник случайности для счетчика продаж
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// Создаем компоненты фаз ETL
	snapshots := extractors.NewSnapshotStore(etlConfig.DataDir, logger)
	extractor := extractors.NewExtractor(etlConfig.RequestTimeout, snapshots, logger)
	transformer := transform.NewTransformer(logger, etlConfig.DataDir, rng)
	loadManager := load.NewLoadManager(db, logger, etlConfig.StrictLoad)

	return &ETLRunner{
		config:      etlConfig,
		db:          db,
		logger:      logger,
		extractor:   extractor,
		transformer: transformer,
		loadManager: loadManager,
		etlLogRepo:  etlLogRepo,
	}, nil
}

// AddObserver регистрирует наблюдателя завершенных запусков
func (r *ETLRunner) AddObserver(observer func(models.ETLRunLog)) {
	r.observers = append(r.observers, observer)
}

// Close закрывает соединение с базой данных
func (r *ETLRunner) Close() {
	r.logger.Info("Завершение работы ETL Runner")
	config.CloseWarehouse(r.db)
}

// ExecuteETL выполняет полный ETL процесс: извлечение, преобразование,
// загрузка, запись в журнал запусков
func (r *ETLRunner) ExecuteETL() error {
	r.logger.LogETLStart()
	startTime := time.Now()
	runUID := uuid.NewString()

	// Создаем запись в журнале ETL
	logID, err := r.etlLogRepo.CreateLogEntry(runUID, startTime)
	if err != nil {
		r.logger.Error("Ошибка при создании записи в журнале ETL: %v", err)
		return fmt.Errorf("ошибка при создании записи в журнале ETL: %w", err)
	}

	runLog := models.ETLRunLog{
		ID:        logID,
		RunUID:    runUID,
		StartTime: startTime,
		Status:    "in_progress",
	}

	// 1. Фаза извлечения данных (Extract)
	extracted, err := r.extractor.Extract()
	if err != nil {
		return r.failRun(&runLog, fmt.Errorf("ошибка в фазе Extract: %w", err))
	}

	// 2. Фаза преобразования данных (Transform)
	batch, err := r.transformer.Transform(extracted)
	if err != nil {
		return r.failRun(&runLog, fmt.Errorf("ошибка в фазе Transform: %w", err))
	}

	// 3. Фаза загрузки данных (Load)
	result, err := r.loadManager.Load(batch)
	if err != nil {
		return r.failRun(&runLog, fmt.Errorf("ошибка в фазе Load: %w", err))
	}

	// Обновляем запись в журнале с информацией об успешном выполнении
	runLog.EndTime = time.Now()
	runLog.Status = "success"
	runLog.ProductsProcessed = len(batch.Records)
	runLog.FactsLoaded = result.RecordsWritten + result.SharedFactsWritten
	runLog.FactsSkipped = result.RecordsSkipped + result.SharedFactsSkipped
	runLog.ExecutionTimeSeconds = runLog.EndTime.Sub(runLog.StartTime).Seconds()

	if err := r.etlLogRepo.UpdateLogEntrySuccess(
		runLog.ID,
		runLog.EndTime,
		runLog.ProductsProcessed,
		runLog.FactsLoaded,
		runLog.FactsSkipped); err != nil {
		r.logger.Error("Ошибка при обновлении записи в журнале ETL: %v", err)
	}

	r.notify(runLog)
	r.logger.LogETLComplete(startTime, runLog.FactsLoaded, runLog.FactsSkipped)
	return nil
}

// failRun фиксирует неудачный запуск в журнале и возвращает ошибку вызывающему.
// Ошибка не проглатывается: процесс должен завершиться ненулевым статусом.
func (r *ETLRunner) failRun(runLog *models.ETLRunLog, runErr error) error {
	r.logger.Error("%v", runErr)

	runLog.EndTime = time.Now()
	runLog.Status = "failed"
	runLog.ErrorMessage = runErr.Error()
	runLog.ExecutionTimeSeconds = runLog.EndTime.Sub(runLog.StartTime).Seconds()

	if err := r.etlLogRepo.UpdateLogEntryFailure(runLog.ID, runLog.EndTime, runLog.ErrorMessage); err != nil {
		r.logger.Error("Ошибка при обновлении записи в журнале ETL: %v", err)
	}

	r.notify(*runLog)
	return runErr
}

// notify рассылает сводку запуска наблюдателям
func (r *ETLRunner) notify(runLog models.ETLRunLog) {
	for _, observer := range r.observers {
		observer(runLog)
	}
}

// StartScheduler запускает планировщик для регулярного выполнения ETL
func (r *ETLRunner) StartScheduler(ctx context.Context) {
	scheduler := gocron.NewScheduler(time.UTC)

	r.logger.Info("Запуск планировщика ETL с интервалом %v", r.config.RunInterval)

	_, err := scheduler.Every(r.config.RunInterval).Do(func() {
		r.logger.Info("Запланированный запуск ETL процесса")
		if err := r.ExecuteETL(); err != nil {
			r.logger.Error("Ошибка при выполнении запланированного ETL: %v", err)
		}
	})

	if err != nil {
		r.logger.Error("Ошибка при настройке планировщика: %v", err)
		return
	}

	// Запускаем планировщик
	scheduler.StartAsync()

	// Ожидаем сигнал остановки из контекста
	<-ctx.Done()

	// Останавливаем планировщик
	scheduler.Stop()
	r.logger.Info("Планировщик ETL остановлен")
}

// StartMonitor запускает HTTP-сервер мониторинга и подключает
// websocket-ленту к завершенным запускам
func (r *ETLRunner) StartMonitor() *monitor.Server {
	hub := monitor.NewHub(r.logger)
	server := monitor.NewServer(r.etlLogRepo, hub, r.logger)
	r.AddObserver(hub.NotifyRun)

	go func() {
		if err := server.ListenAndServe(r.config.MonitorAddr); err != nil {
			r.logger.Error("Сервер мониторинга остановлен: %v", err)
		}
	}()

	return server
}

// withShutdownContext возвращает контекст, отменяемый по SIGINT/SIGTERM
func withShutdownContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalCh
		cancel()
	}()

	return ctx, cancel
}

// ensureDataDir создает каталог данных, если его еще нет
func ensureDataDir(dir string) error {
	return os.MkdirAll(filepath.Clean(dir), 0755)
}
