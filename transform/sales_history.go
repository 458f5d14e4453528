package transform

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strconv"
)

// SalesHistory хранит счетчики продаж товаров между запусками ETL.
// Счетчик монотонно не убывает: каждый запуск увеличивает его на
// случайную величину от 1 до 10.
type SalesHistory struct {
	path     string
	counters map[string]int
}

// LoadSalesHistory загружает историю продаж из JSON-файла.
// Отсутствующий файл означает первый запуск и дает пустую историю.
func LoadSalesHistory(path string) (*SalesHistory, error) {
	history := &SalesHistory{
		path:     path,
		counters: make(map[string]int),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return history, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при чтении файла истории продаж: %w", err)
	}

	if err := json.Unmarshal(data, &history.counters); err != nil {
		return nil, fmt.Errorf("ошибка при разборе файла истории продаж: %w", err)
	}

	return history, nil
}

// Next возвращает новое значение счетчика продаж для товара:
// предыдущее значение (или базовое при первой встрече) плюс
// случайное приращение 1..10 из переданного генератора
func (h *SalesHistory) Next(productID, baseSales int, rng *rand.Rand) int {
	key := strconv.Itoa(productID)

	previous, ok := h.counters[key]
	if !ok {
		previous = baseSales
	}

	increment := rng.Intn(10) + 1
	updated := previous + increment
	h.counters[key] = updated

	return updated
}

// Save сохраняет историю продаж обратно в JSON-файл
func (h *SalesHistory) Save() error {
	data, err := json.MarshalIndent(h.counters, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка при сериализации истории продаж: %w", err)
	}

	if err := os.WriteFile(h.path, data, 0644); err != nil {
		return fmt.Errorf("ошибка при записи файла истории продаж: %w", err)
	}

	return nil
}
