//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of GoJanitor.
//
// GoJanitor is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GoJanitor is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GoJanitor. If not, see https://www.gnu.org/licenses/.

package readers

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"reflect"
	"sync"
	"time"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresReaderError provides structured error information for Postgres reader operations
type PostgresReaderError struct {
	Op  string // Operation that failed (e.g., "connect", "query", "scan", "read")
	Err error  // Underlying error
}

func (e *PostgresReaderError) Error() string {
	return fmt.Sprintf("postgres reader %s: %v", e.Op, e.Err)
}

func (e *PostgresReaderError) Unwrap() error {
	return e.Err
}

// PostgresReader implements core.DataSource for PostgreSQL databases.
// Supports streaming query results with connection pooling and cursor-based batches.
type PostgresReader struct {
	mu                  sync.Mutex
	db                  *sql.DB
	ownsDB              bool
	tx                  *sql.Tx
	rows                *sql.Rows
	columnNames         []string
	columnTypes         []string
	scanBuffer          []interface{}
	values              []interface{}
	batchSize           int
	batchRows           int
	cursorName          string
	query               string
	params              []interface{}
	stats               PostgresReaderStats
	opts                *PostgresReaderOptions
	isFinished          bool
	lastHealthCheck     time.Time
	healthCheckInterval time.Duration
}

// PostgresReaderStats holds statistics about the Postgres reader's performance
type PostgresReaderStats struct {
	RecordsRead     int64
	BatchesFetched  int64
	QueryDuration   time.Duration
	ReadDuration    time.Duration
	LastReadTime    time.Time
	NullValueCounts map[string]int64
	ConnectionTime  time.Duration
}

// PostgresReaderOptions configures the Postgres reader
type PostgresReaderOptions struct {
	DSN                 string        // Database connection string
	DB                  *sql.DB       // Existing connection pool; takes precedence over DSN
	Query               string        // SQL query to execute
	Params              []interface{} // Optional query parameters
	BatchSize           int           // Rows fetched per cursor batch
	ConnMaxLifetime     time.Duration // Maximum connection lifetime
	ConnMaxIdleTime     time.Duration // Maximum connection idle time
	MaxOpenConns        int           // Maximum open connections
	MaxIdleConns        int           // Maximum idle connections
	QueryTimeout        time.Duration // Connect and query execution timeout
	UseCursor           bool          // Use server-side cursor for large results
	CursorName          string        // Name for the cursor (if UseCursor is true)
	HealthCheckInterval time.Duration
}

// PostgresReaderOption represents a configuration function for PostgresReaderOptions
type PostgresReaderOption func(*PostgresReaderOptions)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.DSN = dsn
	}
}

// WithPostgresDB reads through an existing connection pool, which the reader does not close.
func WithPostgresDB(db *sql.DB) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.DB = db
	}
}

// WithPostgresQuery sets the SQL query and optional parameters.
func WithPostgresQuery(query string, params ...interface{}) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.Query = query
		if len(params) > 0 {
			opts.Params = make([]interface{}, len(params))
			copy(opts.Params, params)
		}
	}
}

// WithPostgresBatchSize sets the cursor batch size.
func WithPostgresBatchSize(size int) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.BatchSize = size
	}
}

// WithPostgresConnectionPool configures the connection pool.
func WithPostgresConnectionPool(maxOpen, maxIdle int) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.MaxOpenConns = maxOpen
		opts.MaxIdleConns = maxIdle
	}
}

// WithPostgresConnectionTimeout sets connection and idle timeouts.
func WithPostgresConnectionTimeout(lifetime, idleTime time.Duration) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.ConnMaxLifetime = lifetime
		opts.ConnMaxIdleTime = idleTime
	}
}

// WithPostgresHealthCheckInterval sets how often Read pings the database.
func WithPostgresHealthCheckInterval(interval time.Duration) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.HealthCheckInterval = interval
	}
}

// WithPostgresQueryTimeout sets the query execution timeout.
func WithPostgresQueryTimeout(timeout time.Duration) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.QueryTimeout = timeout
	}
}

// WithPostgresCursor enables or disables server-side cursor usage for large results.
func WithPostgresCursor(useCursor bool, cursorName string) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.UseCursor = useCursor
		opts.CursorName = cursorName
	}
}

// withDefaults applies default values to PostgresReaderOptions
func (opts *PostgresReaderOptions) withDefaults() *PostgresReaderOptions {
	result := &PostgresReaderOptions{}
	if opts != nil {
		*result = *opts
	}
	if result.BatchSize <= 0 {
		result.BatchSize = 1000
	}
	if result.QueryTimeout <= 0 {
		result.QueryTimeout = 30 * time.Second
	}
	if result.ConnMaxLifetime <= 0 {
		result.ConnMaxLifetime = 5 * time.Minute
	}
	if result.ConnMaxIdleTime <= 0 {
		result.ConnMaxIdleTime = 1 * time.Minute
	}
	if result.MaxOpenConns <= 0 {
		result.MaxOpenConns = 10
	}
	if result.MaxIdleConns <= 0 {
		result.MaxIdleConns = 5
	}
	if result.HealthCheckInterval <= 0 {
		result.HealthCheckInterval = 30 * time.Second
	}
	if result.CursorName == "" {
		result.CursorName = "gojanitor_cursor"
	}
	return result
}

func (opts *PostgresReaderOptions) validate() error {
	if opts.DSN == "" && opts.DB == nil {
		return &PostgresReaderError{Op: "validate", Err: fmt.Errorf("dsn is required: %w", core.ErrMalformedArguments)}
	}
	if opts.Query == "" {
		return &PostgresReaderError{Op: "validate", Err: fmt.Errorf("query is required: %w", core.ErrMalformedArguments)}
	}
	if opts.UseCursor && !isValidCursorName(opts.CursorName) {
		return &PostgresReaderError{Op: "validate_cursor", Err: fmt.Errorf("invalid cursor name: %s", opts.CursorName)}
	}
	return nil
}

// NewPostgresReader creates a new PostgreSQL reader with the given options.
func NewPostgresReader(options ...PostgresReaderOption) (*PostgresReader, error) {
	opts := &PostgresReaderOptions{}
	for _, option := range options {
		option(opts)
	}
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return createPostgresReader(opts)
}

func createPostgresReader(opts *PostgresReaderOptions) (*PostgresReader, error) {
	startTime := time.Now()
	db, ownsDB := opts.DB, false
	if db == nil {
		var err error
		db, err = sql.Open("postgres", opts.DSN)
		if err != nil {
			return nil, &PostgresReaderError{Op: "connect", Err: err}
		}
		ownsDB = true
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxIdleConns)
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.QueryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if ownsDB {
			db.Close()
		}
		return nil, &PostgresReaderError{Op: "ping", Err: err}
	}

	reader := &PostgresReader{
		db:                  db,
		ownsDB:              ownsDB,
		query:               opts.Query,
		params:              opts.Params,
		batchSize:           opts.BatchSize,
		cursorName:          opts.CursorName,
		opts:                opts,
		healthCheckInterval: opts.HealthCheckInterval,
		lastHealthCheck:     time.Now(),
		stats: PostgresReaderStats{
			NullValueCounts: make(map[string]int64),
			ConnectionTime:  time.Since(startTime),
		},
	}

	// the cursor lives as long as its transaction, so it must not be bound
	// to the connect timeout
	queryCtx := ctx
	if opts.UseCursor {
		queryCtx = context.Background()
	}
	if err := reader.executeQuery(queryCtx); err != nil {
		reader.Close()
		return nil, err
	}
	return reader, nil
}

// Stats returns a copy of the reader statistics.
func (p *PostgresReader) Stats() PostgresReaderStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	statsCopy := p.stats
	statsCopy.NullValueCounts = make(map[string]int64, len(p.stats.NullValueCounts))
	for k, v := range p.stats.NullValueCounts {
		statsCopy.NullValueCounts[k] = v
	}
	return statsCopy
}

// Columns returns the result column names in query order.
func (p *PostgresReader) Columns() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.columnNames))
	copy(out, p.columnNames)
	return out
}

// Read implements the core.DataSource interface. Thread-safe.
func (p *PostgresReader) Read(ctx context.Context) (core.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	startTime := time.Now()
	defer func() {
		p.stats.ReadDuration += time.Since(startTime)
		p.stats.LastReadTime = time.Now()
	}()

	select {
	case <-ctx.Done():
		return nil, &PostgresReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	if p.db == nil {
		return nil, &PostgresReaderError{Op: "read", Err: fmt.Errorf("reader is closed")}
	}

	if time.Since(p.lastHealthCheck) > p.healthCheckInterval {
		if err := p.db.PingContext(ctx); err != nil {
			return nil, &PostgresReaderError{Op: "ping", Err: err}
		}
		p.lastHealthCheck = time.Now()
	}

	if p.isFinished || p.rows == nil {
		return nil, io.EOF
	}

	for !p.rows.Next() {
		if err := p.rows.Err(); err != nil {
			return nil, &PostgresReaderError{Op: "read", Err: err}
		}
		// a full cursor batch means there may be more rows on the server
		if p.tx != nil && p.batchRows == p.batchSize {
			if err := p.fetchBatch(ctx); err != nil {
				return nil, err
			}
			continue
		}
		p.isFinished = true
		return nil, io.EOF
	}

	if err := p.rows.Scan(p.scanBuffer...); err != nil {
		return nil, &PostgresReaderError{Op: "scan", Err: err}
	}

	p.batchRows++
	p.stats.RecordsRead++
	return p.convertRowToRecord(), nil
}

// Close releases all resources held by the PostgreSQL reader
func (p *PostgresReader) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error

	if p.rows != nil {
		if err := p.rows.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing rows: %w", err))
		}
		p.rows = nil
	}

	if p.tx != nil {
		if err := p.tx.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("rolling back transaction: %w", err))
		}
		p.tx = nil
	}

	if p.db != nil {
		if p.ownsDB {
			if err := p.db.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing database: %w", err))
			}
		}
		p.db = nil
	}

	if len(errs) > 0 {
		return &PostgresReaderError{Op: "close", Err: fmt.Errorf("multiple errors: %v", errs)}
	}
	return nil
}

// Schema returns a map of column name to database type name.
func (p *PostgresReader) Schema() map[string]string {
	schema := make(map[string]string)
	for i, name := range p.columnNames {
		if i < len(p.columnTypes) {
			schema[name] = p.columnTypes[i]
		}
	}
	return schema
}

func (p *PostgresReader) executeQuery(ctx context.Context) error {
	startTime := time.Now()

	var err error
	if p.opts.UseCursor {
		err = p.declareCursor(ctx)
	} else {
		p.rows, err = p.db.QueryContext(ctx, p.query, p.params...)
		if err != nil {
			err = &PostgresReaderError{Op: "query", Err: err}
		}
	}
	if err != nil {
		return err
	}

	p.stats.QueryDuration = time.Since(startTime)
	return p.describeColumns()
}

func (p *PostgresReader) describeColumns() error {
	columnNames, err := p.rows.Columns()
	if err != nil {
		return &PostgresReaderError{Op: "columns", Err: err}
	}
	columnTypes, err := p.rows.ColumnTypes()
	if err != nil {
		return &PostgresReaderError{Op: "column_types", Err: err}
	}
	p.columnNames = columnNames
	p.columnTypes = make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		p.columnTypes[i] = ct.DatabaseTypeName()
	}

	p.values = make([]interface{}, len(columnNames))
	p.scanBuffer = make([]interface{}, len(columnNames))
	for i := range p.scanBuffer {
		p.scanBuffer[i] = &p.values[i]
	}
	return nil
}

// declareCursor opens a server-side cursor inside a transaction and fetches the first batch.
func (p *PostgresReader) declareCursor(ctx context.Context) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return &PostgresReaderError{Op: "begin_transaction", Err: err}
	}
	p.tx = tx

	declareSQL := fmt.Sprintf("DECLARE %s NO SCROLL CURSOR FOR %s", p.cursorName, p.query)
	if _, err := tx.ExecContext(ctx, declareSQL, p.params...); err != nil {
		return &PostgresReaderError{Op: "declare_cursor", Err: err}
	}
	return p.fetchBatch(ctx)
}

func (p *PostgresReader) fetchBatch(ctx context.Context) error {
	if p.rows != nil {
		p.rows.Close()
	}
	var err error
	p.rows, err = p.tx.QueryContext(ctx, fmt.Sprintf("FETCH %d FROM %s", p.batchSize, p.cursorName))
	if err != nil {
		p.rows = nil
		return &PostgresReaderError{Op: "fetch_cursor", Err: err}
	}
	p.batchRows = 0
	p.stats.BatchesFetched++
	return nil
}

// isValidCursorName validates cursor name for SQL injection prevention
func isValidCursorName(name string) bool {
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_') {
			return false
		}
	}
	return len(name) > 0 && len(name) <= 63 // PostgreSQL identifier limit
}

// convertSQLValue converts SQL driver values to plain Go types. Byte slices
// are text for every type but BYTEA, which covers user-defined ENUM types.
func convertSQLValue(value interface{}, dbType string) interface{} {
	if b, ok := value.([]byte); ok {
		if dbType == "BYTEA" {
			out := make([]byte, len(b))
			copy(out, b)
			return out
		}
		return string(b)
	}

	switch v := value.(type) {
	case time.Time, bool, int64, float64, string:
		return v
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32:
		return rv.Float()
	}
	return fmt.Sprintf("%v", value)
}

func (p *PostgresReader) convertRowToRecord() core.Record {
	record := make(core.Record, len(p.columnNames))
	for i, columnName := range p.columnNames {
		value := p.values[i]
		if value == nil {
			p.stats.NullValueCounts[columnName]++
			record[columnName] = nil
			continue
		}
		record[columnName] = convertSQLValue(value, p.columnTypes[i])
	}
	return record
}

// ReadPostgresFrame runs a query and loads the whole result into a frame in column order.
func ReadPostgresFrame(ctx context.Context, options ...PostgresReaderOption) (*frame.Frame, error) {
	reader, err := NewPostgresReader(options...)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return frame.FromSource(ctx, reader)
}
