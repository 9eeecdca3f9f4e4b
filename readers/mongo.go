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
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoReaderError provides structured error information for MongoDB reader operations
type MongoReaderError struct {
	Op         string // Operation that failed (e.g., "connect", "query", "decode", "aggregate")
	Collection string // Collection being accessed when error occurred
	Err        error  // Underlying error
}

func (e *MongoReaderError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("mongo reader %s [%s]: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("mongo reader %s: %v", e.Op, e.Err)
}

func (e *MongoReaderError) Unwrap() error {
	return e.Err
}

// MongoReaderStats holds statistics about the MongoDB reader's performance
type MongoReaderStats struct {
	RecordsRead     int64
	QueriesExecuted int64
	ReadDuration    time.Duration
	LastReadTime    time.Time
	BytesRead       int64
	NullValueCounts map[string]int64
	ErrorCount      int64
}

// MongoReadMode defines how data should be read from MongoDB
type MongoReadMode string

const (
	ModeFind      MongoReadMode = "find"      // Standard find query
	ModeAggregate MongoReadMode = "aggregate" // Aggregation pipeline
)

// MongoReaderOptions configures the MongoDB reader
type MongoReaderOptions struct {
	URI             string        // MongoDB connection URI
	Database        string        // Database name
	Collection      string        // Collection name
	Mode            MongoReadMode // Read mode
	Filter          bson.M        // Query filter for find operations
	Fields          []string      // Projected fields, also the column order
	Sort            bson.D        // Sort specification
	Pipeline        []bson.M      // Aggregation pipeline stages
	BatchSize       int32         // Batch size for cursor
	Limit           int64         // Maximum number of documents to read
	Skip            int64         // Number of documents to skip
	Timeout         time.Duration // Connect timeout
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
	ReadPreference  string // primary, primaryPreferred, secondary, secondaryPreferred, nearest
	ReadConcern     string // local, available, majority, linearizable, snapshot
	AuthDatabase    string
	Username        string
	Password        string
	TLS             bool
	TLSInsecure     bool
	AllowDiskUse    bool
	MaxTime         time.Duration
	Comment         string
}

// ReaderOptionMongo is a functional option for MongoReaderOptions
type ReaderOptionMongo func(*MongoReaderOptions)

func WithMongoURI(uri string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) { opts.URI = uri }
}

func WithMongoDB(database string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) { opts.Database = database }
}

func WithMongoCollection(collection string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) { opts.Collection = collection }
}

func WithMongoFilter(filter bson.M) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) { opts.Filter = filter }
}

// WithMongoFields projects the documents onto fields, which also fix the
// column order of frames built from the reader.
func WithMongoFields(fields ...string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Fields = make([]string, len(fields))
		copy(opts.Fields, fields)
	}
}

func WithMongoSort(sort bson.D) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) { opts.Sort = sort }
}

// WithMongoPipeline switches the reader to aggregate mode.
func WithMongoPipeline(pipeline []bson.M) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Pipeline = pipeline
		opts.Mode = ModeAggregate
	}
}

func WithMongoLimit(limit int64) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) { opts.Limit = limit }
}

func WithMongoSkip(skip int64) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) { opts.Skip = skip }
}

func WithMongoBatchSize(batchSize int32) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) { opts.BatchSize = batchSize }
}

func WithMongoTimeout(timeout time.Duration) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) { opts.Timeout = timeout }
}

func WithMongoPoolSize(min, max uint64) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.MinPoolSize = min
		opts.MaxPoolSize = max
	}
}

func WithMongoReadPreference(preference string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) { opts.ReadPreference = preference }
}

func WithMongoReadConcern(concern string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) { opts.ReadConcern = concern }
}

func WithMongoAuth(username, password, authDB string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Username = username
		opts.Password = password
		opts.AuthDatabase = authDB
	}
}

func WithMongoTLS(enabled, insecure bool) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.TLS = enabled
		opts.TLSInsecure = insecure
	}
}

func WithMongoAllowDiskUse(allow bool) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) { opts.AllowDiskUse = allow }
}

func WithMongoMaxTime(d time.Duration) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) { opts.MaxTime = d }
}

func WithMongoComment(comment string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) { opts.Comment = comment }
}

func (opts *MongoReaderOptions) withDefaults() *MongoReaderOptions {
	result := &MongoReaderOptions{}
	if opts != nil {
		*result = *opts
	}
	if result.URI == "" {
		result.URI = "mongodb://localhost:27017"
	}
	if result.Mode == "" {
		result.Mode = ModeFind
	}
	if result.BatchSize <= 0 {
		result.BatchSize = 1000
	}
	if result.Timeout <= 0 {
		result.Timeout = 30 * time.Second
	}
	if result.MaxPoolSize == 0 {
		result.MaxPoolSize = 100
	}
	if result.MaxConnIdleTime <= 0 {
		result.MaxConnIdleTime = 10 * time.Minute
	}
	if result.ReadPreference == "" {
		result.ReadPreference = "primary"
	}
	if result.ReadConcern == "" {
		result.ReadConcern = "local"
	}
	return result
}

// MongoReader implements core.DataSource for MongoDB collections. It connects
// lazily on the first Read.
type MongoReader struct {
	client     *mongo.Client
	collection *mongo.Collection
	cursor     *mongo.Cursor
	opts       *MongoReaderOptions
	stats      MongoReaderStats
}

// NewMongoReader creates a new MongoDB reader with configurable options
func NewMongoReader(options ...ReaderOptionMongo) (*MongoReader, error) {
	opts := &MongoReaderOptions{}
	for _, option := range options {
		option(opts)
	}
	opts = opts.withDefaults()

	if opts.Database == "" {
		return nil, &MongoReaderError{Op: "validate", Err: fmt.Errorf("database name is required: %w", core.ErrMalformedArguments)}
	}
	if opts.Collection == "" {
		return nil, &MongoReaderError{Op: "validate", Err: fmt.Errorf("collection name is required: %w", core.ErrMalformedArguments)}
	}
	if opts.Mode == ModeAggregate && len(opts.Pipeline) == 0 {
		return nil, &MongoReaderError{Op: "validate", Err: fmt.Errorf("pipeline is required for aggregate mode: %w", core.ErrMalformedArguments)}
	}
	if opts.Mode != ModeFind && opts.Mode != ModeAggregate {
		return nil, &MongoReaderError{Op: "validate", Err: fmt.Errorf("unsupported read mode %q: %w", opts.Mode, core.ErrInvalidValue)}
	}
	if _, err := buildMongoClientOptions(opts); err != nil {
		return nil, &MongoReaderError{Op: "build_options", Err: err}
	}

	return &MongoReader{
		opts:  opts,
		stats: MongoReaderStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Connect establishes the connection to MongoDB.
func (mr *MongoReader) Connect(ctx context.Context) error {
	if mr.client != nil {
		return nil
	}
	clientOpts, err := buildMongoClientOptions(mr.opts)
	if err != nil {
		return &MongoReaderError{Op: "build_options", Err: err}
	}
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return &MongoReaderError{Op: "connect", Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return &MongoReaderError{Op: "ping", Err: err}
	}
	mr.client = client
	mr.collection = client.Database(mr.opts.Database).Collection(mr.opts.Collection)
	return nil
}

func buildMongoClientOptions(opts *MongoReaderOptions) (*options.ClientOptions, error) {
	clientOpts := options.Client().ApplyURI(opts.URI)
	clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	if opts.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(opts.MinPoolSize)
	}
	clientOpts.SetMaxConnIdleTime(opts.MaxConnIdleTime)
	clientOpts.SetConnectTimeout(opts.Timeout)
	clientOpts.SetRetryReads(true)

	if opts.Username != "" {
		auth := options.Credential{
			Username:   opts.Username,
			Password:   opts.Password,
			AuthSource: opts.AuthDatabase,
		}
		if auth.AuthSource == "" {
			auth.AuthSource = opts.Database
		}
		clientOpts.SetAuth(auth)
	}

	if opts.TLS {
		clientOpts.SetTLSConfig(&tls.Config{InsecureSkipVerify: opts.TLSInsecure})
	}

	switch opts.ReadPreference {
	case "primary":
		clientOpts.SetReadPreference(readpref.Primary())
	case "primaryPreferred":
		clientOpts.SetReadPreference(readpref.PrimaryPreferred())
	case "secondary":
		clientOpts.SetReadPreference(readpref.Secondary())
	case "secondaryPreferred":
		clientOpts.SetReadPreference(readpref.SecondaryPreferred())
	case "nearest":
		clientOpts.SetReadPreference(readpref.Nearest())
	default:
		return nil, fmt.Errorf("invalid read preference: %s", opts.ReadPreference)
	}

	switch opts.ReadConcern {
	case "local":
		clientOpts.SetReadConcern(readconcern.Local())
	case "available":
		clientOpts.SetReadConcern(readconcern.Available())
	case "majority":
		clientOpts.SetReadConcern(readconcern.Majority())
	case "linearizable":
		clientOpts.SetReadConcern(readconcern.Linearizable())
	case "snapshot":
		clientOpts.SetReadConcern(readconcern.Snapshot())
	default:
		return nil, fmt.Errorf("invalid read concern: %s", opts.ReadConcern)
	}

	return clientOpts, clientOpts.Validate()
}

// Columns returns the projected fields, or nil when the reader is not projected.
func (mr *MongoReader) Columns() []string {
	out := make([]string, len(mr.opts.Fields))
	copy(out, mr.opts.Fields)
	return out
}

// Read implements the core.DataSource interface
func (mr *MongoReader) Read(ctx context.Context) (core.Record, error) {
	start := time.Now()
	defer func() {
		mr.stats.ReadDuration += time.Since(start)
		mr.stats.LastReadTime = time.Now()
	}()

	select {
	case <-ctx.Done():
		return nil, &MongoReaderError{Op: "read", Collection: mr.opts.Collection, Err: ctx.Err()}
	default:
	}

	if err := mr.Connect(ctx); err != nil {
		return nil, err
	}
	if mr.cursor == nil {
		if err := mr.openCursor(ctx); err != nil {
			mr.stats.ErrorCount++
			return nil, &MongoReaderError{Op: "open_cursor", Collection: mr.opts.Collection, Err: err}
		}
	}

	if !mr.cursor.Next(ctx) {
		if err := mr.cursor.Err(); err != nil {
			mr.stats.ErrorCount++
			return nil, &MongoReaderError{Op: "cursor_next", Collection: mr.opts.Collection, Err: err}
		}
		return nil, io.EOF
	}

	var doc bson.M
	if err := mr.cursor.Decode(&doc); err != nil {
		mr.stats.ErrorCount++
		return nil, &MongoReaderError{Op: "decode", Collection: mr.opts.Collection, Err: err}
	}

	record := convertBSONDocument(doc)
	mr.stats.RecordsRead++
	mr.stats.BytesRead += int64(len(mr.cursor.Current))
	for key, val := range record {
		if val == nil {
			mr.stats.NullValueCounts[key]++
		}
	}
	return record, nil
}

// Close implements the core.DataSource interface
func (mr *MongoReader) Close() error {
	ctx := context.Background()
	var errs []string

	if mr.cursor != nil {
		if err := mr.cursor.Close(ctx); err != nil {
			errs = append(errs, fmt.Sprintf("cursor close: %v", err))
		}
		mr.cursor = nil
	}
	if mr.client != nil {
		if err := mr.client.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Sprintf("client disconnect: %v", err))
		}
		mr.client = nil
	}

	if len(errs) > 0 {
		return &MongoReaderError{Op: "close", Err: fmt.Errorf("multiple errors: %s", strings.Join(errs, "; "))}
	}
	return nil
}

// Stats returns MongoDB reader performance statistics
func (mr *MongoReader) Stats() MongoReaderStats {
	return mr.stats
}

func (mr *MongoReader) projection() bson.M {
	if len(mr.opts.Fields) == 0 {
		return nil
	}
	p := bson.M{}
	hasID := false
	for _, f := range mr.opts.Fields {
		p[f] = 1
		hasID = hasID || f == "_id"
	}
	if !hasID {
		p["_id"] = 0
	}
	return p
}

func (mr *MongoReader) openCursor(ctx context.Context) error {
	mr.stats.QueriesExecuted++
	var err error
	switch mr.opts.Mode {
	case ModeAggregate:
		aggOpts := options.Aggregate().SetBatchSize(mr.opts.BatchSize)
		if mr.opts.AllowDiskUse {
			aggOpts.SetAllowDiskUse(true)
		}
		if mr.opts.MaxTime > 0 {
			aggOpts.SetMaxTime(mr.opts.MaxTime)
		}
		if mr.opts.Comment != "" {
			aggOpts.SetComment(mr.opts.Comment)
		}
		pipeline := mr.opts.Pipeline
		if p := mr.projection(); p != nil {
			pipeline = append(append([]bson.M{}, pipeline...), bson.M{"$project": p})
		}
		mr.cursor, err = mr.collection.Aggregate(ctx, pipeline, aggOpts)
	default:
		findOpts := options.Find().SetBatchSize(mr.opts.BatchSize)
		if mr.opts.Limit > 0 {
			findOpts.SetLimit(mr.opts.Limit)
		}
		if mr.opts.Skip > 0 {
			findOpts.SetSkip(mr.opts.Skip)
		}
		if p := mr.projection(); p != nil {
			findOpts.SetProjection(p)
		}
		if mr.opts.Sort != nil {
			findOpts.SetSort(mr.opts.Sort)
		}
		if mr.opts.MaxTime > 0 {
			findOpts.SetMaxTime(mr.opts.MaxTime)
		}
		if mr.opts.Comment != "" {
			findOpts.SetComment(mr.opts.Comment)
		}
		filter := mr.opts.Filter
		if filter == nil {
			filter = bson.M{}
		}
		mr.cursor, err = mr.collection.Find(ctx, filter, findOpts)
	}
	return err
}

func convertBSONDocument(doc bson.M) core.Record {
	record := make(core.Record, len(doc))
	for key, value := range doc {
		record[key] = convertBSONValue(value)
	}
	return record
}

// convertBSONValue converts BSON values to plain Go types. Integers widen to
// int64 and nested documents become maps.
func convertBSONValue(value interface{}) interface{} {
	switch v := value.(type) {
	case int32:
		return int64(v)
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.Decimal128:
		return v.String()
	case primitive.Binary:
		return v.Data
	case primitive.Regex:
		return v.Pattern
	case primitive.JavaScript:
		return string(v)
	case primitive.Symbol:
		return string(v)
	case primitive.Timestamp:
		return time.Unix(int64(v.T), 0).UTC()
	case primitive.Undefined, primitive.Null:
		return nil
	case bson.M:
		result := make(map[string]interface{}, len(v))
		for k, val := range v {
			result[k] = convertBSONValue(val)
		}
		return result
	case bson.D:
		result := make(map[string]interface{}, len(v))
		for _, e := range v {
			result[e.Key] = convertBSONValue(e.Value)
		}
		return result
	case bson.A:
		result := make([]interface{}, len(v))
		for i, val := range v {
			result[i] = convertBSONValue(val)
		}
		return result
	}
	return value
}

// ReadMongoFrame loads the documents selected by the options into a frame.
func ReadMongoFrame(ctx context.Context, options ...ReaderOptionMongo) (*frame.Frame, error) {
	reader, err := NewMongoReader(options...)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return frame.FromSource(ctx, reader)
}
