package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/catalogstore/internal/repository"
	apperrors "github.com/utafrali/catalogstore/pkg/errors"
	"github.com/utafrali/catalogstore/pkg/tracing"
)

const tracerName = "github.com/utafrali/catalogstore/internal/repository/jsonfile"

// Collection stores a slice of T as one JSON array document. A single
// process-wide lock serializes writers; readers share it.
type Collection[T any] struct {
	name string
	path string
	mu   sync.RWMutex
}

// NewCollection returns the collection stored at path. The file need not
// exist yet.
func NewCollection[T any](name, path string) *Collection[T] {
	return &Collection[T]{name: name, path: path}
}

// Path returns the document location.
func (c *Collection[T]) Path() string {
	return c.path
}

// Load reads the whole collection. A missing or blank document is an empty
// collection.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	ctx, span := c.startSpan(ctx, "load")
	defer span.End()

	c.mu.RLock()
	defer c.mu.RUnlock()

	items, err := c.read(ctx)
	endSpan(span, len(items), err)
	return items, err
}

// Save overwrites the whole collection.
func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	ctx, span := c.startSpan(ctx, "save")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.write(ctx, items)
	endSpan(span, len(items), err)
	return err
}

// Mutate runs load, fn and save under the write lock. When fn fails nothing
// is written and its error is returned unchanged.
func (c *Collection[T]) Mutate(ctx context.Context, fn repository.MutateFunc[T]) error {
	ctx, span := c.startSpan(ctx, "mutate")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.read(ctx)
	if err != nil {
		endSpan(span, 0, err)
		return err
	}

	next, err := fn(items)
	if err != nil {
		// Domain outcomes such as not-found are not span errors.
		span.SetAttributes(attribute.Bool("catalog.mutation.aborted", true))
		return err
	}

	err = c.write(ctx, next)
	endSpan(span, len(next), err)
	return err
}

func (c *Collection[T]) read(ctx context.Context) ([]T, error) {
	start := time.Now()
	defer observe(c.name, "read", start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, apperrors.Storage("read "+c.name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, apperrors.Storage("decode "+c.name, err)
	}
	if items == nil {
		items = []T{}
	}
	documentItems.WithLabelValues(c.name).Set(float64(len(items)))
	return items, nil
}

// write replaces the document through a temp file and rename so readers
// never observe a partial array.
func (c *Collection[T]) write(ctx context.Context, items []T) error {
	start := time.Now()
	defer observe(c.name, "write", start)

	if err := ctx.Err(); err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return apperrors.Storage("encode "+c.name, err)
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(c.path)+"-*.tmp")
	if err != nil {
		return apperrors.Storage("write "+c.name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return apperrors.Storage("write "+c.name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return apperrors.Storage("sync "+c.name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return apperrors.Storage("close "+c.name, err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		cleanup()
		return apperrors.Storage("replace "+c.name, err)
	}

	documentItems.WithLabelValues(c.name).Set(float64(len(items)))
	return nil
}

func (c *Collection[T]) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracing.Tracer(tracerName).Start(ctx, fmt.Sprintf("jsonfile.%s %s", op, c.name),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("db.system", "jsonfile"),
			attribute.String("db.collection.name", c.name),
			attribute.String("db.operation.name", op),
		),
	)
}

func endSpan(span trace.Span, n int, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(attribute.Int("catalog.collection.size", n))
}
