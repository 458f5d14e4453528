package main

import (
	"flag"
	"log"
	"os"
)

func main() {
	// Параметры командной строки
	modePtr := flag.String("mode", "scheduled", "Режим работы: once, scheduled или serve")
	seedPtr := flag.Int64("seed", 0, "Зерно генератора приращений продаж (0 — от времени)")

	flag.Parse()

	log.Println("Запуск ETL Runner в режиме:", *modePtr)

	runner, err := NewETLRunner(*seedPtr)
	if err != nil {
		log.Fatalf("Ошибка при создании ETL Runner: %v", err)
	}
	defer runner.Close()

	if err := ensureDataDir(runner.config.DataDir); err != nil {
		log.Fatalf("Ошибка при создании каталога данных: %v", err)
	}

	switch *modePtr {
	case "once":
		// Одиночный запуск: ошибка завершает процесс ненулевым статусом
		if err := runner.ExecuteETL(); err != nil {
			log.Fatalf("Ошибка при выполнении ETL: %v", err)
		}

	case "scheduled":
		ctx, cancel := withShutdownContext()
		defer cancel()
		runner.StartScheduler(ctx)

	case "serve":
		// Планировщик плюс HTTP-сервер мониторинга
		runner.StartMonitor()

		ctx, cancel := withShutdownContext()
		defer cancel()
		runner.StartScheduler(ctx)

	default:
		log.Println("Неизвестный режим работы:", *modePtr)
		log.Println("Доступные режимы: once, scheduled, serve")
		os.Exit(1)
	}

	log.Println("ETL Runner завершил работу")
}
