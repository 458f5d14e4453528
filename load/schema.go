package load

import (
	"database/sql"
	"fmt"
)

// Запросы создания таблиц звездообразной схемы хранилища.
// Уникальные индексы на натуральных ключах подкрепляют инварианты
// уникальности, внешние ключи — ссылочную целостность фактов.
var warehouseDDL = []string{
	`CREATE TABLE IF NOT EXISTS dim_category (
		category_id INT AUTO_INCREMENT PRIMARY KEY,
		category_name VARCHAR(255) NOT NULL UNIQUE
	);`,
	`CREATE TABLE IF NOT EXISTS dim_product (
		product_id INT PRIMARY KEY,
		title VARCHAR(512) NOT NULL,
		image VARCHAR(1024) NULL,
		category_id INT NOT NULL,
		FOREIGN KEY (category_id) REFERENCES dim_category(category_id)
	);`,
	`CREATE TABLE IF NOT EXISTS dim_time (
		time_id INT AUTO_INCREMENT PRIMARY KEY,
		etl_time TIMESTAMP NOT NULL UNIQUE,
		date DATE NOT NULL,
		hour INT NOT NULL,
		weekday INT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS dim_location (
		location_id INT AUTO_INCREMENT PRIMARY KEY,
		location_name VARCHAR(255) NOT NULL UNIQUE,
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS dim_currency (
		currency_code VARCHAR(8) PRIMARY KEY,
		description VARCHAR(255) NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS dim_crypto_asset (
		asset_id VARCHAR(64) PRIMARY KEY,
		symbol VARCHAR(16) NOT NULL,
		name VARCHAR(255) NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS fact_weather (
		fact_id INT AUTO_INCREMENT PRIMARY KEY,
		time_id INT NOT NULL,
		location_id INT NOT NULL,
		temperature DOUBLE NULL,
		UNIQUE KEY uq_fact_weather (time_id, location_id),
		FOREIGN KEY (time_id) REFERENCES dim_time(time_id),
		FOREIGN KEY (location_id) REFERENCES dim_location(location_id)
	);`,
	`CREATE TABLE IF NOT EXISTS fact_currency (
		fact_id INT AUTO_INCREMENT PRIMARY KEY,
		time_id INT NOT NULL,
		currency_code VARCHAR(8) NOT NULL,
		rate_cbr DOUBLE NOT NULL,
		UNIQUE KEY uq_fact_currency (time_id, currency_code),
		FOREIGN KEY (time_id) REFERENCES dim_time(time_id),
		FOREIGN KEY (currency_code) REFERENCES dim_currency(currency_code)
	);`,
	`CREATE TABLE IF NOT EXISTS fact_crypto_price (
		fact_id INT AUTO_INCREMENT PRIMARY KEY,
		time_id INT NOT NULL,
		asset_id VARCHAR(64) NOT NULL,
		price_usd DOUBLE NOT NULL,
		change_pct_24h DOUBLE NOT NULL,
		UNIQUE KEY uq_fact_crypto_price (time_id, asset_id),
		FOREIGN KEY (time_id) REFERENCES dim_time(time_id),
		FOREIGN KEY (asset_id) REFERENCES dim_crypto_asset(asset_id)
	);`,
	`CREATE TABLE IF NOT EXISTS fact_sales (
		fact_id INT AUTO_INCREMENT PRIMARY KEY,
		product_id INT NOT NULL,
		time_id INT NOT NULL,
		sales INT NOT NULL,
		price_usd DOUBLE NOT NULL,
		price_rub DOUBLE NULL,
		UNIQUE KEY uq_fact_sales (product_id, time_id),
		FOREIGN KEY (product_id) REFERENCES dim_product(product_id),
		FOREIGN KEY (time_id) REFERENCES dim_time(time_id)
	);`,
}

// CreateWarehouseTables создает таблицы хранилища, если они еще не существуют
func CreateWarehouseTables(db *sql.DB) error {
	for _, query := range warehouseDDL {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("ошибка при создании таблиц хранилища: %w", err)
		}
	}

	return nil
}
