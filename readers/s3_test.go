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

package readers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/gojanitor/core"
	"github.com/aaronlmathis/gojanitor/frame"
)

// fakeS3 serves objects from memory.
type fakeS3 struct {
	objects map[string]string
	failGet map[string]bool
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(f.objects[k]))),
			LastModified: aws.Time(time.Unix(0, 0)),
			ETag:         aws.String(`"etag"`),
		})
	}
	return out, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	if f.failGet[key] {
		return nil, errors.New("access denied")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(f.objects[key]))}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return &s3.HeadObjectOutput{Metadata: map[string]string{"owner": "ops"}}, nil
}

func TestS3Reader_ReadsObjectsInKeyOrder(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{
		objects: map[string]string{
			"data/a.csv":       "size,qty\nS,1\nM,2\n",
			"data/b.jsonl":     `{"size":"L","qty":3}` + "\n",
			"data/nested/c.csv": "size,qty\nXL,4\n",
			"other/d.csv":      "size,qty\nXS,0\n",
		},
		failGet: map[string]bool{},
	}

	reader, err := NewS3Reader(ctx, WithS3Bucket("bucket"), WithS3Prefix("data/"), WithS3Recursive(false), WithS3Client(client))
	require.NoError(t, err)
	defer reader.Close()

	f, err := frame.FromSource(ctx, reader)
	require.NoError(t, err)
	size, _ := f.Column("size")
	assert.Equal(t, []interface{}{"S", "M", "L"}, size.Values())
	qty, _ := f.Column("qty")
	assert.Equal(t, []interface{}{1, 2, int64(3)}, qty.Values())

	stats := reader.Stats()
	assert.Equal(t, int64(2), stats.ObjectsListed)
	assert.Equal(t, []string{"data/a.csv", "data/b.jsonl"}, stats.ProcessedFiles)
}

func TestS3Reader_SkipsFailedObjects(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{
		objects: map[string]string{"a.csv": "x\n1\n", "b.csv": "x\n2\n"},
		failGet: map[string]bool{"a.csv": true},
	}
	reader, err := NewS3Reader(ctx, WithS3Bucket("bucket"), WithS3Suffix(".csv"), WithS3IncludeMetadata(true), WithS3Client(client))
	require.NoError(t, err)

	rec, err := reader.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rec["x"])
	assert.Equal(t, "b.csv", rec["_s3_key"])
	assert.Equal(t, "ops", rec["_s3_meta_owner"])

	_, err = reader.Read(ctx)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, int64(1), reader.Stats().ObjectErrors)
}

func TestS3Reader_Validation(t *testing.T) {
	_, err := NewS3Reader(context.Background(), WithS3Client(&fakeS3{}))
	assert.True(t, errors.Is(err, core.ErrMalformedArguments))

	_, err = NewS3Reader(context.Background(), WithS3Bucket("b"), WithS3FilePattern("("), WithS3Client(&fakeS3{}))
	assert.Error(t, err)
}

func TestSortObjects(t *testing.T) {
	objs := []S3Object{{Key: "b", Size: 1}, {Key: "a", Size: 3}, {Key: "c", Size: 2}}
	sortObjects(objs, SortBySize)
	assert.Equal(t, "b", objs[0].Key)
	sortObjects(objs, SortByName)
	assert.Equal(t, "a", objs[0].Key)
}
