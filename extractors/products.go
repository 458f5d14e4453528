package extractors

import (
	"encoding/json"
	"fmt"

	"github.com/marketsnap/store-etl/models"
)

// fetchProducts загружает список товаров из API магазина
// и сохраняет сырой ответ в снимок raw_products
func (e *Extractor) fetchProducts() ([]models.RawProduct, error) {
	body, err := e.get(e.productsURL, "raw_products")
	if err != nil {
		return nil, err
	}

	var products []models.RawProduct
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("ошибка при разборе списка товаров: %w", err)
	}

	if len(products) == 0 {
		return nil, fmt.Errorf("API магазина вернул пустой список товаров")
	}

	e.logger.Debug("Извлечено товаров: %d", len(products))
	return products, nil
}
