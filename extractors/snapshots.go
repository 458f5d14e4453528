package extractors

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/marketsnap/store-etl/utils"
)

// SnapshotStore сохраняет сырые ответы внешних источников на диск.
// Снимки сжимаются snappy и перезаписываются каждым запуском:
// хранилищем истории служит звездообразная схема, а не эти файлы.
type SnapshotStore struct {
	dir    string
	logger *utils.ETLLogger
}

// NewSnapshotStore создает новый экземпляр SnapshotStore
func NewSnapshotStore(dir string, logger *utils.ETLLogger) *SnapshotStore {
	return &SnapshotStore{
		dir:    dir,
		logger: logger,
	}
}

// Save сжимает и записывает сырой снимок под заданным именем
func (s *SnapshotStore) Save(name string, payload []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("ошибка при создании каталога снимков: %w", err)
	}

	compressed := snappy.Encode(nil, payload)
	path := filepath.Join(s.dir, name+".json.sz")

	if err := os.WriteFile(path, compressed, 0644); err != nil {
		return fmt.Errorf("ошибка при записи снимка %s: %w", name, err)
	}

	s.logger.Debug("Снимок %s сохранен: %d байт (сжато из %d)", name, len(compressed), len(payload))
	return nil
}

// Load читает и распаковывает сохраненный снимок
func (s *SnapshotStore) Load(name string) ([]byte, error) {
	path := filepath.Join(s.dir, name+".json.sz")

	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка при чтении снимка %s: %w", name, err)
	}

	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("ошибка при распаковке снимка %s: %w", name, err)
	}

	return payload, nil
}
