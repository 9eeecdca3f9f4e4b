// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of GoJanitor
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
// along with GoJanitor If not, see https://www.gnu.org/licenses/.

package writers

import (
	"testing"
	"time"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresWriter_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts []PostgresWriterOption
	}{
		{"no connection", []PostgresWriterOption{WithTableName("t")}},
		{"no table", []PostgresWriterOption{WithPostgresDSN("postgres://x")}},
		{"update without columns", []PostgresWriterOption{
			WithPostgresDSN("postgres://x"), WithTableName("t"),
			WithConflictResolution(ConflictUpdate, []string{"id"}, nil),
		}},
		{"ignore without conflict columns", []PostgresWriterOption{
			WithPostgresDSN("postgres://x"), WithTableName("t"),
			WithConflictResolution(ConflictIgnore, nil, nil),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPostgresWriter(tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrMalformedArguments)
		})
	}
}

func TestPostgresWriter_EnumDDL(t *testing.T) {
	f := sizesFrame(t)
	types, enums, err := frameColumnTypes("shop.orders", f, f.Names())
	require.NoError(t, err)

	require.Len(t, enums, 1)
	assert.Equal(t, "shop.orders_size", enums[0].Name)
	assert.Equal(t, []string{"S", "M", "L", "XL"}, enums[0].Labels)
	assert.Equal(t, `"shop"."orders_size"`, types["size"])
	assert.Equal(t, "BIGINT", types["qty"])

	assert.Equal(t,
		`DO $$ BEGIN CREATE TYPE "shop"."orders_size" AS ENUM ('S', 'M', 'L', 'XL'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
		createEnumSQL(enums[0]))
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "shop"."orders" ("size" "shop"."orders_size", "qty" BIGINT)`,
		createTableSQL("shop.orders", f.Names(), types))

	_, _, err = frameColumnTypes("orders", f, []string{"ghost"})
	assert.ErrorIs(t, err, core.ErrMissingColumn)
}

func TestPostgresWriter_EnumLabelsAreQuoted(t *testing.T) {
	col, err := frame.NewCategoricalColumn("note", []interface{}{"it's"},
		frame.CategoricalType{Categories: []interface{}{"it's", 2}})
	require.NoError(t, err)
	_, enums, err := frameColumnTypes("t", frame.MustNew(col), []string{"note"})
	require.NoError(t, err)
	assert.Contains(t, createEnumSQL(enums[0]), `('it''s', '2')`)
}

func TestPostgresWriter_InsertSQL(t *testing.T) {
	cols := []string{"id", "size"}
	opts := &PostgresWriterOptions{TableName: "orders"}
	assert.Equal(t, `INSERT INTO "orders" ("id", "size") VALUES ($1, $2)`, insertSQL(opts, cols))

	opts.ConflictResolution = ConflictIgnore
	opts.ConflictColumns = []string{"id"}
	assert.Equal(t, `INSERT INTO "orders" ("id", "size") VALUES ($1, $2) ON CONFLICT ("id") DO NOTHING`, insertSQL(opts, cols))

	opts.ConflictResolution = ConflictUpdate
	opts.UpdateColumns = []string{"size"}
	assert.Equal(t,
		`INSERT INTO "orders" ("id", "size") VALUES ($1, $2) ON CONFLICT ("id") DO UPDATE SET "size" = EXCLUDED."size"`,
		insertSQL(opts, cols))
}

func TestPostgresWriter_ConvertValue(t *testing.T) {
	now := time.Now()
	assert.Nil(t, convertSQLValue(nil))
	assert.Equal(t, int64(3), convertSQLValue(int32(3)))
	assert.Equal(t, int64(3), convertSQLValue(uint8(3)))
	assert.Equal(t, now, convertSQLValue(now))
	assert.Equal(t, "[1 2]", convertSQLValue([]int{1, 2}))
	assert.Equal(t, "DOUBLE PRECISION", inferSQLType(1.5))
	assert.Equal(t, "TEXT", inferSQLType(nil))
}
