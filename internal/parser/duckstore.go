package parser

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb"
	"github.com/uav-flightlog/backend/internal/models"
	"go.uber.org/zap"
)

// catalogTable describes every exported column.
const catalogTable = "series_columns"

// DuckStore exports a ValuesList to a DuckDB file: one table per entry
// with a column per series named by its composite header, plus a catalog
// table describing each column. The file can be queried with any DuckDB
// client or loaded back into a ValuesList.
type DuckStore struct {
	db       *sql.DB
	dbPath   string
	log      *zap.Logger
	tables   int
	columns  int
	readOnly bool
}

// ExportedTable is one catalog row group: a table and the entry it holds.
type ExportedTable struct {
	Name        string
	EntryIndex  int
	MessageType string
	Columns     int
}

func duckPragmas(log *zap.Logger, fatal bool) func(execer driver.ExecerContext) error {
	return func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='1GB'",
			"PRAGMA threads=4",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				if fatal {
					return err
				}
				log.Warn("pragma failed", zap.String("pragma", pragma), zap.Error(err))
			}
		}
		return nil
	}
}

// NewDuckStoreAtPath creates a fresh export database at dbPath, replacing
// any existing file.
func NewDuckStoreAtPath(dbPath string, log *zap.Logger) (*DuckStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("duckdb")

	os.Remove(dbPath)
	os.Remove(dbPath + ".wal")

	connector, err := duckdb.NewConnector(dbPath, duckPragmas(log, true))
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}
	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE ` + catalogTable + ` (
			table_name    VARCHAR NOT NULL,
			entry_index   INTEGER NOT NULL,
			position      INTEGER NOT NULL,
			header        VARCHAR NOT NULL,
			column_name   VARCHAR NOT NULL,
			display_name  VARCHAR NOT NULL,
			unit          VARCHAR NOT NULL,
			message_type  VARCHAR NOT NULL,
			flight_date   VARCHAR NOT NULL,
			flight_number VARCHAR NOT NULL,
			textual       BOOLEAN NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("failed to create catalog table: %w", err)
	}

	log.Debug("export database created", zap.String("path", dbPath))
	return &DuckStore{db: db, dbPath: dbPath, log: log}, nil
}

// OpenDuckStoreReadOnly opens an existing export database for reading.
func OpenDuckStoreReadOnly(dbPath string, log *zap.Logger) (*DuckStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("duckdb")

	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("export database: %w", err)
	}

	connector, err := duckdb.NewConnector(dbPath+"?access_mode=READ_ONLY", duckPragmas(log, false))
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB connector: %w", err)
	}
	db := sql.OpenDB(connector)

	ds := &DuckStore{db: db, dbPath: dbPath, log: log, readOnly: true}
	err = db.QueryRow(`SELECT COUNT(DISTINCT table_name), COUNT(*) FROM ` + catalogTable).Scan(&ds.tables, &ds.columns)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ds, nil
}

// tableName derives a SQL-safe table name for an entry.
func tableName(messageType string, entryIndex int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(messageType) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return fmt.Sprintf("%s_%d", b.String(), entryIndex)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// AddEntry creates the table of one entry and appends its rows.
func (ds *DuckStore) AddEntry(ctx context.Context, entryIndex int, entry models.ValuesEntry) (string, error) {
	if ds.readOnly {
		return "", fmt.Errorf("export database is read-only")
	}
	if len(entry.Columns) == 0 {
		return "", nil
	}

	name := tableName(entry.MessageType, entryIndex)
	headers := make([]string, len(entry.Columns))
	sqlNames := make([]string, len(entry.Columns))
	defs := make([]string, len(entry.Columns))
	seen := make(map[string]int, len(entry.Columns))
	rows := 0
	for i := range entry.Columns {
		col := &entry.Columns[i]
		headers[i] = EncodeHeader(HeaderOf(col))
		// Two raw fields may share a display name and unit. DuckDB
		// identifiers are case-insensitive.
		key := strings.ToLower(headers[i])
		sqlNames[i] = headers[i]
		if n := seen[key]; n > 0 {
			sqlNames[i] = fmt.Sprintf("%s#%d", headers[i], n+1)
		}
		seen[key]++
		sqlType := "DOUBLE"
		if col.Text != nil {
			sqlType = "VARCHAR"
		}
		defs[i] = quoteIdent(sqlNames[i]) + " " + sqlType
		if col.Len() > rows {
			rows = col.Len()
		}
	}

	if _, err := ds.db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))); err != nil {
		return "", fmt.Errorf("failed to create table %s: %w", name, err)
	}

	start := time.Now()
	err := ds.withAppender(ctx, name, func(appender *duckdb.Appender) error {
		row := make([]driver.Value, len(entry.Columns))
		for r := 0; r < rows; r++ {
			for i := range entry.Columns {
				row[i] = cellValue(&entry.Columns[i], r)
			}
			if err := appender.AppendRow(row...); err != nil {
				return fmt.Errorf("failed to append row %d: %w", r, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	err = ds.withAppender(ctx, catalogTable, func(appender *duckdb.Appender) error {
		for i := range entry.Columns {
			col := &entry.Columns[i]
			err := appender.AppendRow(
				name,
				int32(entryIndex),
				int32(i),
				headers[i],
				sqlNames[i],
				col.DisplayName,
				col.Unit,
				entry.MessageType,
				col.FlightDate,
				col.FlightNumber,
				col.Text != nil,
			)
			if err != nil {
				return fmt.Errorf("failed to append catalog row: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	ds.tables++
	ds.columns += len(entry.Columns)
	ds.log.Debug("entry exported",
		zap.String("table", name),
		zap.Int("rows", rows),
		zap.Int("columns", len(entry.Columns)),
		zap.Duration("elapsed", time.Since(start)))
	return name, nil
}

// withAppender runs fn with a native appender on table and flushes it.
func (ds *DuckStore) withAppender(ctx context.Context, table string, fn func(*duckdb.Appender) error) error {
	conn, err := ds.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(driver.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", table)
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		if err := fn(appender); err != nil {
			return err
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error on %s: %w", table, err)
	}
	return nil
}

// cellValue returns the value of row r; missing and NaN samples are NULL.
func cellValue(col *models.Column, r int) driver.Value {
	if col.Text != nil {
		if r < len(col.Text) {
			return col.Text[r]
		}
		return nil
	}
	if r >= len(col.Values) || math.IsNaN(col.Values[r]) {
		return nil
	}
	return col.Values[r]
}

// ExportValues writes every entry of values to a new database at dbPath.
// The database is built in a private file next to dbPath and renamed into
// place once complete.
func ExportValues(ctx context.Context, dbPath string, values models.ValuesList, log *zap.Logger) error {
	staged, err := stagingPath(dbPath)
	if err != nil {
		return err
	}
	if err := exportTo(ctx, staged, values, log); err != nil {
		os.Remove(staged)
		os.Remove(staged + ".wal")
		return err
	}
	os.Remove(staged + ".wal")
	os.Remove(dbPath + ".wal")
	if err := os.Rename(staged, dbPath); err != nil {
		os.Remove(staged)
		return fmt.Errorf("publishing export database: %w", err)
	}
	return nil
}

// stagingPath reserves an unused file name in the directory of dbPath.
func stagingPath(dbPath string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(dbPath), "."+filepath.Base(dbPath)+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating staging file: %w", err)
	}
	name := f.Name()
	f.Close()
	return name, nil
}

func exportTo(ctx context.Context, dbPath string, values models.ValuesList, log *zap.Logger) error {
	ds, err := NewDuckStoreAtPath(dbPath, log)
	if err != nil {
		return err
	}
	defer ds.Close()

	for i, entry := range values.Entries {
		if _, err := ds.AddEntry(ctx, i, entry); err != nil {
			return err
		}
	}
	return ds.Finalize()
}

// Finalize checkpoints the database so the file is complete on disk.
func (ds *DuckStore) Finalize() error {
	if ds.readOnly {
		return nil
	}
	if _, err := ds.db.Exec("CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	ds.log.Info("export finalized",
		zap.String("path", ds.dbPath),
		zap.Int("tables", ds.tables),
		zap.Int("columns", ds.columns))
	return nil
}

// Len returns the number of exported tables.
func (ds *DuckStore) Len() int {
	return ds.tables
}

// Tables lists the exported tables in entry order.
func (ds *DuckStore) Tables(ctx context.Context) ([]ExportedTable, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT table_name, entry_index, message_type, COUNT(*)
		FROM `+catalogTable+`
		GROUP BY table_name, entry_index, message_type
		ORDER BY entry_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []ExportedTable
	for rows.Next() {
		var t ExportedTable
		if err := rows.Scan(&t.Name, &t.EntryIndex, &t.MessageType, &t.Columns); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// LoadValues reads the exported entries back into a ValuesList.
func (ds *DuckStore) LoadValues(ctx context.Context) (models.ValuesList, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT table_name, entry_index, column_name, display_name, unit, message_type,
		       flight_date, flight_number, textual
		FROM `+catalogTable+`
		ORDER BY entry_index, position`)
	if err != nil {
		return models.ValuesList{}, fmt.Errorf("failed to read catalog: %w", err)
	}

	type catalogRow struct {
		table   string
		index   int
		column  string
		col     models.Column
		textual bool
	}
	var catalog []catalogRow
	for rows.Next() {
		var c catalogRow
		err := rows.Scan(&c.table, &c.index, &c.column, &c.col.DisplayName, &c.col.Unit,
			&c.col.MessageType, &c.col.FlightDate, &c.col.FlightNumber, &c.textual)
		if err != nil {
			rows.Close()
			return models.ValuesList{}, err
		}
		catalog = append(catalog, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.ValuesList{}, err
	}

	var values models.ValuesList
	last := -1
	for _, c := range catalog {
		if c.index != last {
			values.Entries = append(values.Entries, models.ValuesEntry{MessageType: c.col.MessageType})
			last = c.index
		}
		col := c.col
		if err := ds.readColumn(ctx, c.table, c.column, c.textual, &col); err != nil {
			return models.ValuesList{}, err
		}
		entry := &values.Entries[len(values.Entries)-1]
		entry.Columns = append(entry.Columns, col)
	}
	return values, nil
}

func (ds *DuckStore) readColumn(ctx context.Context, table, column string, textual bool, col *models.Column) error {
	rows, err := ds.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", quoteIdent(column), quoteIdent(table)))
	if err != nil {
		return fmt.Errorf("failed to read %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	col.Values = make([]float64, 0, 64)
	if textual {
		col.Text = make([]string, 0, 64)
	}
	for rows.Next() {
		if textual {
			var s sql.NullString
			if err := rows.Scan(&s); err != nil {
				return err
			}
			v, _ := ParseNumeric(s.String)
			col.Text = append(col.Text, s.String)
			col.Values = append(col.Values, v)
			continue
		}
		var f sql.NullFloat64
		if err := rows.Scan(&f); err != nil {
			return err
		}
		if f.Valid {
			col.Values = append(col.Values, f.Float64)
		} else {
			col.Values = append(col.Values, math.NaN())
		}
	}
	return rows.Err()
}

// Close closes the database. The file is kept.
func (ds *DuckStore) Close() error {
	if ds.db != nil {
		return ds.db.Close()
	}
	return nil
}
