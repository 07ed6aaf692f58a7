package resources

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-ops/internal/access"
	"github.com/odyssey-erp/odyssey-ops/internal/platform/httpx"
)

const dateLayout = time.DateOnly

// coerce converts a caller-supplied value to the Go type stored for col.
// Query strings arrive as text and JSON numbers as float64, so both are
// accepted for every scalar type. nil passes through unchanged.
func coerce(col access.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch col.Type {
	case access.TypeUUID:
		return coerceUUID(v)
	case access.TypeInteger:
		return coerceInteger(v)
	case access.TypeNumeric:
		return coerceNumeric(v)
	case access.TypeBoolean:
		return coerceBoolean(v)
	case access.TypeTimestamp:
		return coerceTime(v, time.RFC3339Nano)
	case access.TypeDate:
		return coerceTime(v, dateLayout, time.RFC3339Nano)
	case access.TypeText:
		switch t := v.(type) {
		case string:
			return t, nil
		case fmt.Stringer:
			return t.String(), nil
		}
		return nil, fmt.Errorf("expected text, got %T", v)
	default:
		return v, nil
	}
}

func coerceUUID(v any) (any, error) {
	switch t := v.(type) {
	case uuid.UUID:
		return t.String(), nil
	case [16]byte:
		return uuid.UUID(t).String(), nil
	case string:
		id, err := uuid.Parse(t)
		if err != nil {
			return nil, err
		}
		return id.String(), nil
	}
	return nil, fmt.Errorf("expected uuid, got %T", v)
}

func coerceInteger(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return nil, fmt.Errorf("expected integer, got %T", v)
}

func coerceNumeric(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return nil, fmt.Errorf("expected number, got %T", v)
}

func coerceBoolean(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(b)
	}
	return nil, fmt.Errorf("expected boolean, got %T", v)
}

func coerceTime(v any, layouts ...string) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		var err error
		for _, layout := range layouts {
			var parsed time.Time
			if parsed, err = time.Parse(layout, t); err == nil {
				return parsed.UTC(), nil
			}
		}
		return nil, err
	}
	return nil, fmt.Errorf("expected time, got %T", v)
}

// columnValue coerces v for the named column, reporting failures as
// validation errors.
func columnValue(schema *access.Schema, name string, v any) (any, error) {
	col, ok := schema.Column(name)
	if !ok {
		return v, nil
	}
	out, err := coerce(col, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %w", httpx.ErrValidation, schema.Resource, name, err)
	}
	return out, nil
}

// primaryKey coerces a caller-supplied id. An id of the wrong shape cannot
// match any row, so it is reported as not found.
func primaryKey(schema *access.Schema, id any) (any, error) {
	col, ok := schema.Column(schema.PrimaryKey())
	if !ok {
		return id, nil
	}
	out, err := coerce(col, id)
	if err != nil || out == nil {
		return nil, notFound(schema.Resource, id)
	}
	return out, nil
}

// requireValues rejects explicit nulls in non-nullable columns. A nil primary
// key is dropped so storage can generate one.
func requireValues(schema *access.Schema, row Row) error {
	for name, v := range row {
		if v != nil {
			continue
		}
		col, ok := schema.Column(name)
		if !ok || col.Nullable {
			continue
		}
		if col.PrimaryKey {
			delete(row, name)
			continue
		}
		return fmt.Errorf("%w: %s.%s must not be null", httpx.ErrValidation, schema.Resource, name)
	}
	return nil
}
