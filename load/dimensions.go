package load

import (
	"database/sql"
	"time"

	"github.com/marketsnap/store-etl/utils"
)

// DimensionKind перечисляет виды измерений хранилища.
// Набор закрытый: добавление нового вида требует записи
// в dimensionSpecs и метода-обертки на резолвере.
type DimensionKind int

const (
	CategoryDim DimensionKind = iota
	ProductDim
	TimeDim
	LocationDim
	CurrencyDim
	CryptoAssetDim
)

// dimensionSpec описывает запросы get-or-create для одного вида измерения
type dimensionSpec struct {
	table       string
	lookupQuery string // поиск суррогатного ключа по натуральному
	insertQuery string
	passThrough bool // натуральный ключ совпадает с суррогатным, LastInsertId не используется
}

var dimensionSpecs = [...]dimensionSpec{
	CategoryDim: {
		table:       "dim_category",
		lookupQuery: "SELECT category_id FROM dim_category WHERE category_name = ?",
		insertQuery: "INSERT INTO dim_category (category_name) VALUES (?)",
	},
	ProductDim: {
		table:       "dim_product",
		lookupQuery: "SELECT product_id FROM dim_product WHERE product_id = ?",
		insertQuery: "INSERT INTO dim_product (product_id, title, image, category_id) VALUES (?, ?, ?, ?)",
		passThrough: true,
	},
	TimeDim: {
		table:       "dim_time",
		lookupQuery: "SELECT time_id FROM dim_time WHERE etl_time = ?",
		insertQuery: "INSERT INTO dim_time (etl_time, date, hour, weekday) VALUES (?, ?, ?, ?)",
	},
	LocationDim: {
		table:       "dim_location",
		lookupQuery: "SELECT location_id FROM dim_location WHERE location_name = ?",
		insertQuery: "INSERT INTO dim_location (location_name, latitude, longitude) VALUES (?, ?, ?)",
	},
	CurrencyDim: {
		table:       "dim_currency",
		lookupQuery: "SELECT currency_code FROM dim_currency WHERE currency_code = ?",
		insertQuery: "INSERT INTO dim_currency (currency_code, description) VALUES (?, ?)",
		passThrough: true,
	},
	CryptoAssetDim: {
		table:       "dim_crypto_asset",
		lookupQuery: "SELECT asset_id FROM dim_crypto_asset WHERE asset_id = ?",
		insertQuery: "INSERT INTO dim_crypto_asset (asset_id, symbol, name) VALUES (?, ?, ?)",
		passThrough: true,
	},
}

// DimensionResolver разрешает натуральные ключи измерений в суррогатные,
// создавая строку измерения при первой встрече натурального ключа.
// Атрибуты, переданные при повторном разрешении, молча игнорируются:
// строка измерения фиксируется в момент первой вставки.
type DimensionResolver struct {
	logger *utils.ETLLogger
}

// NewDimensionResolver создает новый экземпляр DimensionResolver
func NewDimensionResolver(logger *utils.ETLLogger) *DimensionResolver {
	return &DimensionResolver{logger: logger}
}

// resolveGenerated выполняет двухшаговый get-or-create для измерений
// с генерируемым суррогатным ключом: поиск по натуральному ключу,
// при отсутствии — вставка и возврат нового ключа
func (r *DimensionResolver) resolveGenerated(tx dbtx, kind DimensionKind, lookupArgs, insertArgs []interface{}) (int64, error) {
	spec := dimensionSpecs[kind]

	var key int64
	err := tx.QueryRow(spec.lookupQuery, lookupArgs...).Scan(&key)
	if err == nil {
		return key, nil
	}
	if err != sql.ErrNoRows {
		return 0, classifyStoreError(spec.table, err)
	}

	result, err := tx.Exec(spec.insertQuery, insertArgs...)
	if err != nil {
		return 0, classifyStoreError(spec.table, err)
	}

	key, err = result.LastInsertId()
	if err != nil {
		return 0, classifyStoreError(spec.table, err)
	}

	r.logger.Debug("Создана строка измерения %s, суррогатный ключ %d", spec.table, key)
	return key, nil
}

// ensurePresent выполняет get-or-create для измерений со сквозным ключом:
// натуральный ключ и есть суррогатный, вставка нужна лишь при первой встрече
func (r *DimensionResolver) ensurePresent(tx dbtx, kind DimensionKind, lookupArgs, insertArgs []interface{}) error {
	spec := dimensionSpecs[kind]

	var existing interface{}
	err := tx.QueryRow(spec.lookupQuery, lookupArgs...).Scan(&existing)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return classifyStoreError(spec.table, err)
	}

	if _, err := tx.Exec(spec.insertQuery, insertArgs...); err != nil {
		return classifyStoreError(spec.table, err)
	}

	r.logger.Debug("Создана строка измерения %s, ключ %v", spec.table, lookupArgs[0])
	return nil
}

// ResolveCategory разрешает категорию по имени
func (r *DimensionResolver) ResolveCategory(tx dbtx, categoryName string) (int64, error) {
	return r.resolveGenerated(tx, CategoryDim,
		[]interface{}{categoryName},
		[]interface{}{categoryName})
}

// ResolveProduct разрешает товар по его натуральному идентификатору.
// Название и картинка фиксируются при первой вставке и при повторных
// запусках не обновляются.
func (r *DimensionResolver) ResolveProduct(tx dbtx, productID int, title string, image *string, categoryID int64) (int, error) {
	err := r.ensurePresent(tx, ProductDim,
		[]interface{}{productID},
		[]interface{}{productID, title, image, categoryID})
	if err != nil {
		return 0, err
	}
	return productID, nil
}

// ResolveTime разрешает временное измерение по отметке etl_time.
// Производные поля (дата, час, день недели по ISO) вычисляются
// один раз при создании строки.
func (r *DimensionResolver) ResolveTime(tx dbtx, etlTime time.Time) (int64, error) {
	return r.resolveGenerated(tx, TimeDim,
		[]interface{}{etlTime},
		[]interface{}{etlTime, etlTime.Format("2006-01-02"), etlTime.Hour(), isoWeekday(etlTime)})
}

// ResolveLocation разрешает локацию по имени
func (r *DimensionResolver) ResolveLocation(tx dbtx, name string, latitude, longitude float64) (int64, error) {
	return r.resolveGenerated(tx, LocationDim,
		[]interface{}{name},
		[]interface{}{name, latitude, longitude})
}

// ResolveCurrency разрешает валюту по коду
func (r *DimensionResolver) ResolveCurrency(tx dbtx, code, description string) (string, error) {
	err := r.ensurePresent(tx, CurrencyDim,
		[]interface{}{code},
		[]interface{}{code, description})
	if err != nil {
		return "", err
	}
	return code, nil
}

// ResolveCryptoAsset разрешает криптоактив по идентификатору
func (r *DimensionResolver) ResolveCryptoAsset(tx dbtx, assetID, symbol, name string) (string, error) {
	err := r.ensurePresent(tx, CryptoAssetDim,
		[]interface{}{assetID},
		[]interface{}{assetID, symbol, name})
	if err != nil {
		return "", err
	}
	return assetID, nil
}

// isoWeekday возвращает день недели по ISO: 1 = понедельник ... 7 = воскресенье
func isoWeekday(t time.Time) int {
	weekday := int(t.Weekday())
	if weekday == 0 {
		return 7
	}
	return weekday
}
