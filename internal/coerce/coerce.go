// Package coerce converts raw caller values into the typed values a field's
// declared data type expects.
package coerce

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/pkg/model"
)

// DefaultDateLayout is the fixed DATE text format (dd-MM-yyyy).
const DefaultDateLayout = "02-01-2006"

// Options tunes coercion.
type Options struct {
	// DateLayout is the Go time layout for DATE text. Empty means DefaultDateLayout.
	DateLayout string

	// Location is used when parsing DATE text. Nil means UTC.
	Location *time.Location
}

// DefaultOptions returns the default coercion options.
func DefaultOptions() Options {
	return Options{DateLayout: DefaultDateLayout, Location: time.UTC}
}

func (o Options) layout() string {
	if o.DateLayout == "" {
		return DefaultDateLayout
	}
	return o.DateLayout
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// Value coerces raw into the type declared by def.
//
// nil stays nil for every type. "" stays "" for STRING and becomes nil for
// other types, so an empty value always means "clear".
func Value(def model.FieldDefinition, raw any, opts Options) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if s, ok := raw.(string); ok && s == "" {
		if def.DataType == model.DataTypeString {
			return "", nil
		}
		return nil, nil
	}

	switch def.DataType {
	case model.DataTypeInteger:
		return toInteger(def.Name, raw)
	case model.DataTypeDecimal:
		return toDecimal(def.Name, raw)
	case model.DataTypeDate:
		return toDate(def.Name, raw, opts)
	default:
		return toText(raw, opts), nil
	}
}

// ServerValue converts a value computed by the document server, such as a
// datasource result, for the field declared by def. Server values keep their
// shape except that INTEGER still rejects fractional values and DATE maps
// epoch milliseconds to a UTC time.
func ServerValue(def model.FieldDefinition, raw any, opts Options) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch def.DataType {
	case model.DataTypeInteger:
		if s, ok := raw.(string); ok && s == "" {
			return nil, nil
		}
		return toInteger(def.Name, raw)
	case model.DataTypeDate:
		return serverDate(raw, opts), nil
	default:
		return raw, nil
	}
}

func serverDate(raw any, opts Options) any {
	switch v := raw.(type) {
	case json.Number:
		if ms, err := v.Int64(); err == nil {
			return time.UnixMilli(ms).UTC()
		}
	case float64:
		if v == math.Trunc(v) {
			return time.UnixMilli(int64(v)).UTC()
		}
	case int64:
		return time.UnixMilli(v).UTC()
	case int:
		return time.UnixMilli(int64(v)).UTC()
	case string:
		if v == "" {
			return nil
		}
		if t, err := time.ParseInLocation(opts.layout(), strings.TrimSpace(v), opts.location()); err == nil {
			return t
		}
		if ms, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return time.UnixMilli(ms).UTC()
		}
	}
	return raw
}

func toText(raw any, opts Options) string {
	switch v := raw.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case time.Time:
		return v.Format(opts.layout())
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func toInteger(field string, raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return unsignedToInt64(field, raw, uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return unsignedToInt64(field, raw, v)
	case float32:
		return integralFloat(field, raw, float64(v))
	case float64:
		return integralFloat(field, raw, v)
	case json.Number:
		return integerText(field, raw, v.String())
	case string:
		return integerText(field, raw, v)
	default:
		return 0, edmerrors.InvalidIntegerValue(field, raw)
	}
}

func unsignedToInt64(field string, raw any, v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, edmerrors.InvalidIntegerValue(field, raw)
	}
	return int64(v), nil
}

func integralFloat(field string, raw any, f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, edmerrors.InvalidIntegerValue(field, raw)
	}
	return int64(f), nil
}

func integerText(field string, raw any, s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	// Accept integral decimal text such as "100.0".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, edmerrors.InvalidIntegerValue(field, raw)
	}
	return integralFloat(field, raw, f)
}

func toDecimal(field string, raw any) (json.Number, error) {
	switch v := raw.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return json.Number(fmt.Sprint(v)), nil
	case float32:
		return finiteDecimal(field, raw, float64(v), strconv.FormatFloat(float64(v), 'f', -1, 32))
	case float64:
		return finiteDecimal(field, raw, v, strconv.FormatFloat(v, 'f', -1, 64))
	case json.Number:
		return decimalText(field, raw, v.String())
	case string:
		return decimalText(field, raw, v)
	default:
		return "", edmerrors.InvalidDecimalValue(field, raw)
	}
}

func finiteDecimal(field string, raw any, f float64, text string) (json.Number, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", edmerrors.InvalidDecimalValue(field, raw)
	}
	return json.Number(text), nil
}

func decimalText(field string, raw any, s string) (json.Number, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", edmerrors.InvalidDecimalValue(field, raw)
	}
	// Keep the caller's digits so precision is preserved on the wire.
	return finiteDecimal(field, raw, f, s)
}

func toDate(field string, raw any, opts Options) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := time.ParseInLocation(opts.layout(), strings.TrimSpace(v), opts.location())
		if err != nil {
			return time.Time{}, edmerrors.DateParse(field, raw, opts.layout(), err)
		}
		return t, nil
	default:
		return time.Time{}, edmerrors.DateParse(field, raw, opts.layout(), nil)
	}
}
