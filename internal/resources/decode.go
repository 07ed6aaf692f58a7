package resources

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
)

var (
	uuidBytesType = reflect.TypeOf([16]byte{})
	uuidType      = reflect.TypeOf(uuid.UUID{})
)

// uuidHook converts between raw UUID bytes, uuid.UUID and strings.
func uuidHook(from, to reflect.Type, data any) (any, error) {
	switch {
	case from == uuidBytesType && to.Kind() == reflect.String:
		return uuid.UUID(data.([16]byte)).String(), nil
	case from == uuidType && to.Kind() == reflect.String:
		return data.(uuid.UUID).String(), nil
	case from.Kind() == reflect.String && to == uuidType:
		return uuid.Parse(data.(string))
	}
	return data, nil
}

func decodeRow[T any](row Row) (T, error) {
	var out T
	switch target := any(&out).(type) {
	case *Row:
		*target = row
		return out, nil
	case *map[string]any:
		*target = row
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "db",
		Result:  &out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			uuidHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return out, fmt.Errorf("resources: decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(row)); err != nil {
		return out, fmt.Errorf("resources: decode %T: %w", out, err)
	}
	return out, nil
}

func decodeRows[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		v, err := decodeRow[T](row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
