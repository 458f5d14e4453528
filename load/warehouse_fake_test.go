package load

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Фейковое хранилище в памяти для тестов движка загрузки.
// Begin снимает копию состояния, Commit публикует ее обратно,
// Rollback отбрасывает — это воспроизводит семантику транзакции.

type productRow struct {
	title      string
	image      *string
	categoryID int64
}

type timeRow struct {
	etlTime time.Time
	date    string
	hour    int
	weekday int
}

type salesRow struct {
	sales    int
	priceUSD float64
	priceRub *float64
}

type warehouseState struct {
	categories     map[string]int64
	nextCategoryID int64

	products map[int]productRow

	times      map[int64]timeRow
	timeIDs    map[string]int64
	nextTimeID int64

	locations      map[string]int64
	nextLocationID int64

	currencies map[string]string
	assets     map[string]string

	weatherFacts  map[string]bool
	currencyFacts map[string]bool
	cryptoFacts   map[string]bool
	salesFacts    map[string]salesRow
}

func newWarehouseState() *warehouseState {
	return &warehouseState{
		categories:     make(map[string]int64),
		nextCategoryID: 1,
		products:       make(map[int]productRow),
		times:          make(map[int64]timeRow),
		timeIDs:        make(map[string]int64),
		nextTimeID:     1,
		locations:      make(map[string]int64),
		nextLocationID: 1,
		currencies:     make(map[string]string),
		assets:         make(map[string]string),
		weatherFacts:   make(map[string]bool),
		currencyFacts:  make(map[string]bool),
		cryptoFacts:    make(map[string]bool),
		salesFacts:     make(map[string]salesRow),
	}
}

func (s *warehouseState) clone() *warehouseState {
	c := newWarehouseState()
	c.nextCategoryID = s.nextCategoryID
	c.nextTimeID = s.nextTimeID
	c.nextLocationID = s.nextLocationID
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.times {
		c.times[k] = v
	}
	for k, v := range s.timeIDs {
		c.timeIDs[k] = v
	}
	for k, v := range s.locations {
		c.locations[k] = v
	}
	for k, v := range s.currencies {
		c.currencies[k] = v
	}
	for k, v := range s.assets {
		c.assets[k] = v
	}
	for k, v := range s.weatherFacts {
		c.weatherFacts[k] = v
	}
	for k, v := range s.currencyFacts {
		c.currencyFacts[k] = v
	}
	for k, v := range s.cryptoFacts {
		c.cryptoFacts[k] = v
	}
	for k, v := range s.salesFacts {
		c.salesFacts[k] = v
	}
	return c
}

// factRows суммарное число строк фактов, для проверок идемпотентности
func (s *warehouseState) factRows() int {
	return len(s.weatherFacts) + len(s.currencyFacts) + len(s.cryptoFacts) + len(s.salesFacts)
}

type fakeResult struct {
	lastID int64
}

func (r fakeResult) LastInsertId() (int64, error) { return r.lastID, nil }
func (r fakeResult) RowsAffected() (int64, error) { return 1, nil }

type fakeRow struct {
	val interface{}
	err error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	switch d := dest[0].(type) {
	case *int64:
		*d = r.val.(int64)
	case *int:
		*d = r.val.(int)
	case *interface{}:
		*d = r.val
	default:
		return fmt.Errorf("неподдерживаемый тип назначения %T", dest[0])
	}
	return nil
}

type fakeDB struct {
	state    *warehouseState
	beginErr error

	// Хуки для инъекции сбоев
	queryHook func(query string, args []interface{}) error
	execHook  func(query string, args []interface{}) error

	beginCount int
	lastTx     *fakeTx
}

func newFakeDB() *fakeDB {
	return &fakeDB{state: newWarehouseState()}
}

func (db *fakeDB) Begin() (warehouseTx, error) {
	db.beginCount++
	if db.beginErr != nil {
		return nil, db.beginErr
	}
	tx := &fakeTx{db: db, state: db.state.clone()}
	db.lastTx = tx
	return tx, nil
}

type fakeTx struct {
	db         *fakeDB
	state      *warehouseState
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Commit() error {
	tx.committed = true
	tx.db.state = tx.state
	return nil
}

func (tx *fakeTx) Rollback() error {
	tx.rolledBack = true
	return nil
}

func timeKey(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

func (tx *fakeTx) QueryRow(query string, args ...interface{}) rowScanner {
	if tx.db.queryHook != nil {
		if err := tx.db.queryHook(query, args); err != nil {
			return fakeRow{err: err}
		}
	}

	switch {
	case strings.Contains(query, "SELECT 1"):
		return fakeRow{val: 1}

	case strings.Contains(query, "FROM dim_category"):
		if id, ok := tx.state.categories[args[0].(string)]; ok {
			return fakeRow{val: id}
		}
	case strings.Contains(query, "FROM dim_product"):
		if _, ok := tx.state.products[args[0].(int)]; ok {
			return fakeRow{val: int64(args[0].(int))}
		}
	case strings.Contains(query, "FROM dim_time"):
		if id, ok := tx.state.timeIDs[timeKey(args[0].(time.Time))]; ok {
			return fakeRow{val: id}
		}
	case strings.Contains(query, "FROM dim_location"):
		if id, ok := tx.state.locations[args[0].(string)]; ok {
			return fakeRow{val: id}
		}
	case strings.Contains(query, "FROM dim_currency"):
		if _, ok := tx.state.currencies[args[0].(string)]; ok {
			return fakeRow{val: args[0].(string)}
		}
	case strings.Contains(query, "FROM dim_crypto_asset"):
		if _, ok := tx.state.assets[args[0].(string)]; ok {
			return fakeRow{val: args[0].(string)}
		}

	case strings.Contains(query, "FROM fact_weather"):
		if tx.state.weatherFacts[factKey(args)] {
			return fakeRow{val: int64(1)}
		}
	case strings.Contains(query, "FROM fact_currency"):
		if tx.state.currencyFacts[factKey(args)] {
			return fakeRow{val: int64(1)}
		}
	case strings.Contains(query, "FROM fact_crypto_price"):
		if tx.state.cryptoFacts[factKey(args)] {
			return fakeRow{val: int64(1)}
		}
	case strings.Contains(query, "FROM fact_sales"):
		if _, ok := tx.state.salesFacts[factKey(args)]; ok {
			return fakeRow{val: int64(1)}
		}

	default:
		return fakeRow{err: fmt.Errorf("неожиданный запрос: %s", query)}
	}

	return fakeRow{err: sql.ErrNoRows}
}

func factKey(args []interface{}) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%v", a)
	}
	return strings.Join(parts, "|")
}

func (tx *fakeTx) Exec(query string, args ...interface{}) (sql.Result, error) {
	if tx.db.execHook != nil {
		if err := tx.db.execHook(query, args); err != nil {
			return nil, err
		}
	}

	switch {
	case strings.Contains(query, "INSERT INTO dim_category"):
		id := tx.state.nextCategoryID
		tx.state.nextCategoryID++
		tx.state.categories[args[0].(string)] = id
		return fakeResult{lastID: id}, nil

	case strings.Contains(query, "INSERT INTO dim_product"):
		var image *string
		if args[2] != nil {
			image = args[2].(*string)
		}
		tx.state.products[args[0].(int)] = productRow{
			title:      args[1].(string),
			image:      image,
			categoryID: args[3].(int64),
		}
		return fakeResult{}, nil

	case strings.Contains(query, "INSERT INTO dim_time"):
		id := tx.state.nextTimeID
		tx.state.nextTimeID++
		etlTime := args[0].(time.Time)
		tx.state.timeIDs[timeKey(etlTime)] = id
		tx.state.times[id] = timeRow{
			etlTime: etlTime,
			date:    args[1].(string),
			hour:    args[2].(int),
			weekday: args[3].(int),
		}
		return fakeResult{lastID: id}, nil

	case strings.Contains(query, "INSERT INTO dim_location"):
		id := tx.state.nextLocationID
		tx.state.nextLocationID++
		tx.state.locations[args[0].(string)] = id
		return fakeResult{lastID: id}, nil

	case strings.Contains(query, "INSERT INTO dim_currency"):
		tx.state.currencies[args[0].(string)] = args[1].(string)
		return fakeResult{}, nil

	case strings.Contains(query, "INSERT INTO dim_crypto_asset"):
		tx.state.assets[args[0].(string)] = args[1].(string)
		return fakeResult{}, nil

	case strings.Contains(query, "INSERT INTO fact_weather"):
		tx.state.weatherFacts[factKey(args[:2])] = true
		return fakeResult{lastID: 1}, nil

	case strings.Contains(query, "INSERT INTO fact_currency"):
		tx.state.currencyFacts[factKey(args[:2])] = true
		return fakeResult{lastID: 1}, nil

	case strings.Contains(query, "INSERT INTO fact_crypto_price"):
		tx.state.cryptoFacts[factKey(args[:2])] = true
		return fakeResult{lastID: 1}, nil

	case strings.Contains(query, "INSERT INTO fact_sales"):
		var priceRub *float64
		if args[4] != nil {
			priceRub = args[4].(*float64)
		}
		tx.state.salesFacts[factKey(args[:2])] = salesRow{
			sales:    args[2].(int),
			priceUSD: args[3].(float64),
			priceRub: priceRub,
		}
		return fakeResult{lastID: 1}, nil
	}

	return nil, fmt.Errorf("неожиданный запрос: %s", query)
}

// badConnOnPing хук, роняющий проверку живости соединения
func badConnOnPing(query string, args []interface{}) error {
	if strings.Contains(query, "SELECT 1") {
		return driver.ErrBadConn
	}
	return nil
}
