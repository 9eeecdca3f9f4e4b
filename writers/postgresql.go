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

package writers

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
)

// PostgresWriterError wraps PostgreSQL-specific write errors with context about the operation.
type PostgresWriterError struct {
	Op  string // The operation being performed (e.g., "write", "connect")
	Err error  // The underlying error
}

// Error returns the error string for PostgresWriterError.
func (e *PostgresWriterError) Error() string {
	return fmt.Sprintf("postgres writer %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for PostgresWriterError.
func (e *PostgresWriterError) Unwrap() error {
	return e.Err
}

// PostgresWriterStats holds PostgreSQL write performance statistics.
type PostgresWriterStats struct {
	RecordsWritten   int64
	BatchesWritten   int64
	TransactionCount int64
	LastWriteTime    time.Time
	WriteDuration    time.Duration
	ConnectionTime   time.Duration
	NullValueCounts  map[string]int64
	ConflictCount    int64
	EnumTypesCreated int64
}

// ConflictResolution defines how to handle INSERT conflicts in PostgreSQL.
type ConflictResolution int

const (
	// ConflictError returns an error on conflict (default PostgreSQL behavior).
	ConflictError ConflictResolution = iota
	// ConflictIgnore ignores conflicting rows (ON CONFLICT DO NOTHING).
	ConflictIgnore
	// ConflictUpdate updates conflicting rows (ON CONFLICT DO UPDATE).
	ConflictUpdate
)

// PostgresWriterOptions configures the PostgreSQL writer.
type PostgresWriterOptions struct {
	DSN                string
	DB                 *sql.DB // Existing pool; takes precedence over DSN and is not closed
	TableName          string  // Target table, optionally schema-qualified
	Columns            []string
	BatchSize          int
	CreateTable        bool
	TruncateTable      bool
	ConflictResolution ConflictResolution
	ConflictColumns    []string
	UpdateColumns      []string
	TransactionMode    bool
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	MaxOpenConns       int
	MaxIdleConns       int
	QueryTimeout       time.Duration
}

// PostgresWriterOption represents a configuration function for PostgresWriterOptions.
type PostgresWriterOption func(*PostgresWriterOptions)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.DSN = dsn
	}
}

// WithPostgresDB writes through an existing connection pool.
func WithPostgresDB(db *sql.DB) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.DB = db
	}
}

// WithTableName sets the target table name.
func WithTableName(tableName string) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.TableName = tableName
	}
}

// WithColumns sets the columns to write.
func WithColumns(columns []string) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.Columns = append([]string(nil), columns...)
	}
}

// WithPostgresBatchSize sets the batch size for writes.
func WithPostgresBatchSize(size int) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.BatchSize = size
	}
}

// WithCreateTable creates the table if it does not exist. Categorical
// columns of a written frame become ENUM types.
func WithCreateTable(create bool) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.CreateTable = create
	}
}

// WithTruncateTable enables or disables table truncation before writing.
func WithTruncateTable(truncate bool) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.TruncateTable = truncate
	}
}

// WithConflictResolution sets the conflict resolution strategy and columns.
func WithConflictResolution(resolution ConflictResolution, conflictCols, updateCols []string) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.ConflictResolution = resolution
		opts.ConflictColumns = append([]string(nil), conflictCols...)
		opts.UpdateColumns = append([]string(nil), updateCols...)
	}
}

// WithTransactionMode enables or disables transaction wrapping for batches.
func WithTransactionMode(enabled bool) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.TransactionMode = enabled
	}
}

// WithPostgresConnectionPool configures the connection pool.
func WithPostgresConnectionPool(maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.MaxOpenConns = maxOpen
		opts.MaxIdleConns = maxIdle
		opts.ConnMaxLifetime = maxLifetime
		opts.ConnMaxIdleTime = maxIdleTime
	}
}

// WithPostgresQueryTimeout sets the query timeout.
func WithPostgresQueryTimeout(timeout time.Duration) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.QueryTimeout = timeout
	}
}

func (opts *PostgresWriterOptions) withDefaults() *PostgresWriterOptions {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	if opts.QueryTimeout == 0 {
		opts.QueryTimeout = 30 * time.Second
	}
	if opts.ConnMaxLifetime == 0 {
		opts.ConnMaxLifetime = 5 * time.Minute
	}
	if opts.ConnMaxIdleTime == 0 {
		opts.ConnMaxIdleTime = time.Minute
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	return opts
}

func (opts *PostgresWriterOptions) validate() error {
	if opts.DSN == "" && opts.DB == nil {
		return fmt.Errorf("dsn or db is required: %w", core.ErrMalformedArguments)
	}
	if opts.TableName == "" {
		return fmt.Errorf("table name is required: %w", core.ErrMalformedArguments)
	}
	if opts.ConflictResolution == ConflictUpdate && len(opts.UpdateColumns) == 0 {
		return fmt.Errorf("update columns required for conflict update resolution: %w", core.ErrMalformedArguments)
	}
	if opts.ConflictResolution != ConflictError && len(opts.ConflictColumns) == 0 {
		return fmt.Errorf("conflict columns required for conflict resolution: %w", core.ErrMalformedArguments)
	}
	return nil
}

// PostgresWriter implements core.DataSink and frame.Sink for PostgreSQL.
type PostgresWriter struct {
	mu          sync.Mutex
	db          *sql.DB
	ownsDB      bool
	options     PostgresWriterOptions
	columns     []string
	recordBuf   []core.Record
	stats       PostgresWriterStats
	prepared    *sql.Stmt
	initialized bool
	errorState  bool
}

// NewPostgresWriter validates the options and connects.
func NewPostgresWriter(opts ...PostgresWriterOption) (*PostgresWriter, error) {
	options := &PostgresWriterOptions{}
	for _, opt := range opts {
		opt(options)
	}
	options = options.withDefaults()

	if err := options.validate(); err != nil {
		return nil, &PostgresWriterError{Op: "validate", Err: err}
	}

	w := &PostgresWriter{
		options:   *options,
		columns:   append([]string(nil), options.Columns...),
		recordBuf: make([]core.Record, 0, options.BatchSize),
		stats:     PostgresWriterStats{NullValueCounts: make(map[string]int64)},
	}
	if options.DB != nil {
		w.db = options.DB
		return w, nil
	}
	if err := w.connect(); err != nil {
		return nil, &PostgresWriterError{Op: "connect", Err: err}
	}
	return w, nil
}

// Stats returns a copy of the current write statistics.
func (w *PostgresWriter) Stats() PostgresWriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := w.stats
	out.NullValueCounts = make(map[string]int64, len(w.stats.NullValueCounts))
	for k, v := range w.stats.NullValueCounts {
		out.NullValueCounts[k] = v
	}
	return out
}

// Write buffers a record and inserts a batch when the buffer is full.
func (w *PostgresWriter) Write(ctx context.Context, record core.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.errorState {
		return &PostgresWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}
	if !w.initialized {
		if len(w.columns) == 0 {
			for key := range record {
				w.columns = append(w.columns, key)
			}
			sort.Strings(w.columns)
		}
		types := make(map[string]string, len(w.columns))
		for _, col := range w.columns {
			types[col] = inferSQLType(record[col])
		}
		if err := w.initializeLocked(ctx, types, nil); err != nil {
			w.errorState = true
			return &PostgresWriterError{Op: "initialize", Err: err}
		}
	}

	w.bufferLocked(record)
	if len(w.recordBuf) >= w.options.BatchSize {
		if err := w.flushBufferLocked(ctx); err != nil {
			w.errorState = true
			return &PostgresWriterError{Op: "flush_batch", Err: err}
		}
	}
	return nil
}

// WriteFrame inserts every row of f. On the first write the frame fixes the
// column list; with table creation enabled, categorical columns get an ENUM
// type whose labels are the categories in order.
func (w *PostgresWriter) WriteFrame(ctx context.Context, f *frame.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.errorState {
		return &PostgresWriterError{Op: "write_frame", Err: fmt.Errorf("writer is in error state")}
	}
	if !w.initialized {
		if len(w.columns) == 0 {
			w.columns = f.Names()
		}
		types, enums, err := frameColumnTypes(w.options.TableName, f, w.columns)
		if err != nil {
			w.errorState = true
			return &PostgresWriterError{Op: "initialize", Err: err}
		}
		if err := w.initializeLocked(ctx, types, enums); err != nil {
			w.errorState = true
			return &PostgresWriterError{Op: "initialize", Err: err}
		}
	}

	for i := 0; i < f.Len(); i++ {
		w.bufferLocked(f.Row(i))
		if len(w.recordBuf) >= w.options.BatchSize {
			if err := w.flushBufferLocked(ctx); err != nil {
				w.errorState = true
				return &PostgresWriterError{Op: "flush_batch", Err: err}
			}
		}
	}
	return nil
}

func (w *PostgresWriter) bufferLocked(record core.Record) {
	for k, v := range record {
		if frame.IsNull(v) {
			w.stats.NullValueCounts[k]++
		}
	}
	w.recordBuf = append(w.recordBuf, record)
	w.stats.RecordsWritten++
}

// Flush inserts any buffered records.
func (w *PostgresWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), w.options.QueryTimeout)
	defer cancel()
	if err := w.flushBufferLocked(ctx); err != nil {
		return &PostgresWriterError{Op: "flush", Err: err}
	}
	return nil
}

// Close flushes and releases the statement and any owned connection pool.
func (w *PostgresWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.prepared != nil {
		w.prepared.Close()
		w.prepared = nil
	}
	if w.db != nil && w.ownsDB {
		err := w.db.Close()
		w.db = nil
		return err
	}
	return nil
}

func (w *PostgresWriter) connect() error {
	start := time.Now()

	db, err := sql.Open("postgres", w.options.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(w.options.MaxOpenConns)
	db.SetMaxIdleConns(w.options.MaxIdleConns)
	db.SetConnMaxLifetime(w.options.ConnMaxLifetime)
	db.SetConnMaxIdleTime(w.options.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), w.options.QueryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	w.db = db
	w.ownsDB = true
	w.stats.ConnectionTime = time.Since(start)
	return nil
}

// enumType is an ENUM to create before the table.
type enumType struct {
	Name   string
	Labels []string
}

func (w *PostgresWriter) initializeLocked(ctx context.Context, types map[string]string, enums []enumType) error {
	if w.options.CreateTable {
		for _, e := range enums {
			if _, err := w.db.ExecContext(ctx, createEnumSQL(e)); err != nil {
				return fmt.Errorf("failed to create enum %s: %w", e.Name, err)
			}
			w.stats.EnumTypesCreated++
		}
		if _, err := w.db.ExecContext(ctx, createTableSQL(w.options.TableName, w.columns, types)); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	if w.options.TruncateTable {
		if _, err := w.db.ExecContext(ctx, "TRUNCATE TABLE "+quoteTable(w.options.TableName)); err != nil {
			return fmt.Errorf("failed to truncate table: %w", err)
		}
	}

	stmt, err := w.db.PrepareContext(ctx, insertSQL(&w.options, w.columns))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	w.prepared = stmt
	w.initialized = true
	return nil
}

func (w *PostgresWriter) flushBufferLocked(ctx context.Context) (err error) {
	if len(w.recordBuf) == 0 {
		return nil
	}
	start := time.Now()

	var tx *sql.Tx
	if w.options.TransactionMode {
		tx, err = w.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			if err != nil {
				tx.Rollback()
			}
		}()
	}

	stmt := w.prepared
	if tx != nil {
		stmt = tx.StmtContext(ctx, w.prepared)
		defer stmt.Close()
	}

	values := make([]interface{}, len(w.columns))
	for _, record := range w.recordBuf {
		for i, col := range w.columns {
			values[i] = convertSQLValue(record[col])
		}
		result, execErr := stmt.ExecContext(ctx, values...)
		if execErr != nil {
			return fmt.Errorf("failed to execute insert: %w", execErr)
		}
		if n, rerr := result.RowsAffected(); rerr == nil && n == 0 {
			w.stats.ConflictCount++
		}
	}

	if tx != nil {
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		w.stats.TransactionCount++
	}

	w.stats.BatchesWritten++
	w.stats.LastWriteTime = time.Now()
	w.stats.WriteDuration += time.Since(start)
	w.recordBuf = w.recordBuf[:0]
	return nil
}

// quoteTable quotes a possibly schema-qualified table name.
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// frameColumnTypes maps frame columns to SQL types. Categorical columns map to
// an ENUM named <table>_<column>.
func frameColumnTypes(table string, f *frame.Frame, columns []string) (map[string]string, []enumType, error) {
	types := make(map[string]string, len(columns))
	var enums []enumType
	base := table
	if i := strings.LastIndex(table, "."); i >= 0 {
		base = table[i+1:]
	}
	for _, name := range columns {
		col, ok := f.Column(name)
		if !ok {
			return nil, nil, core.ColumnErrorf("write_postgres", name, core.ErrMissingColumn, "column not in frame")
		}
		if dt := col.Categorical(); dt != nil {
			e := enumType{Name: base + "_" + name}
			if i := strings.LastIndex(table, "."); i >= 0 {
				e.Name = table[:i] + "." + e.Name
			}
			for _, c := range dt.Categories {
				e.Labels = append(e.Labels, fmt.Sprintf("%v", c))
			}
			enums = append(enums, e)
			types[name] = quoteTable(e.Name)
			continue
		}
		types[name] = "TEXT"
		for _, v := range col.Values() {
			if !frame.IsNull(v) {
				types[name] = inferSQLType(v)
				break
			}
		}
	}
	return types, enums, nil
}

// createEnumSQL creates the type unless it already exists.
func createEnumSQL(e enumType) string {
	labels := make([]string, len(e.Labels))
	for i, l := range e.Labels {
		labels[i] = pq.QuoteLiteral(l)
	}
	return fmt.Sprintf("DO $$ BEGIN CREATE TYPE %s AS ENUM (%s); EXCEPTION WHEN duplicate_object THEN NULL; END $$",
		quoteTable(e.Name), strings.Join(labels, ", "))
}

func createTableSQL(table string, columns []string, types map[string]string) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		t := types[col]
		if t == "" {
			t = "TEXT"
		}
		defs[i] = pq.QuoteIdentifier(col) + " " + t
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteTable(table), strings.Join(defs, ", "))
}

func quoteIdentifiers(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = pq.QuoteIdentifier(n)
	}
	return strings.Join(out, ", ")
}

func insertSQL(opts *PostgresWriterOptions, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteTable(opts.TableName), quoteIdentifiers(columns), strings.Join(placeholders, ", "))

	switch opts.ConflictResolution {
	case ConflictIgnore:
		query += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", quoteIdentifiers(opts.ConflictColumns))
	case ConflictUpdate:
		sets := make([]string, len(opts.UpdateColumns))
		for i, col := range opts.UpdateColumns {
			q := pq.QuoteIdentifier(col)
			sets[i] = q + " = EXCLUDED." + q
		}
		query += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
			quoteIdentifiers(opts.ConflictColumns), strings.Join(sets, ", "))
	}
	return query
}

func inferSQLType(value interface{}) string {
	switch value.(type) {
	case bool:
		return "BOOLEAN"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "BIGINT"
	case float32, float64:
		return "DOUBLE PRECISION"
	case time.Time:
		return "TIMESTAMP"
	case []byte:
		return "BYTEA"
	}
	return "TEXT"
}

// convertSQLValue converts cells to types lib/pq can bind.
func convertSQLValue(value interface{}) interface{} {
	if frame.IsNull(value) {
		return nil
	}
	switch v := value.(type) {
	case time.Time, bool, int64, float64, string, []byte:
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
