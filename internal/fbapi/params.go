package fbapi

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
)

// EncodeParams serializes request parameters the way the provider expects:
// scalars stringified directly, arrays and objects embedded as JSON strings.
func EncodeParams(params map[string]any) (url.Values, error) {
	values := url.Values{}
	for key, v := range params {
		s, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", key, err)
		}
		values.Set(key, s)
	}
	return values, nil
}

func encodeValue(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case json.RawMessage:
		return string(t), nil
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Ptr:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return fmt.Sprint(v), nil
	}
}
