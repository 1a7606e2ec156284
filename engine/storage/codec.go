package storage

import (
	"encoding/json"
	"math"
	"reflect"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/saganet/engine/gwlog"
)

// Struct tag controlling persistence: `table:"-"` skips the field, `table:"Name"` renames the column
const tableTag = "table"

type columnKind int

const (
	kindString columnKind = iota
	kindBool
	kindInt32
	kindInt64
	kindFloat64
	kindTime
	kindBytes
	// kindJSON columns hold the JSON encoding of the field in a string column
	kindJSON
)

type fieldInfo struct {
	column string
	index  []int
	kind   columnKind
}

var (
	timeType      = reflect.TypeOf(time.Time{})
	bytesType     = reflect.TypeOf([]byte(nil))
	fieldInfoMemo sync.Map // reflect.Type -> []fieldInfo
)

func kindOf(t reflect.Type) columnKind {
	if t == timeType {
		return kindTime
	}
	if t == bytesType {
		return kindBytes
	}
	switch t.Kind() {
	case reflect.String:
		return kindString
	case reflect.Bool:
		return kindBool
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16:
		return kindInt32
	case reflect.Int, reflect.Int64, reflect.Uint32:
		return kindInt64
	case reflect.Float32, reflect.Float64:
		return kindFloat64
	}
	return kindJSON
}

// fieldsOf lists the persisted fields of a struct type, flattening embedded structs
func fieldsOf(t reflect.Type) []fieldInfo {
	if v, ok := fieldInfoMemo.Load(t); ok {
		return v.([]fieldInfo)
	}
	var fields []fieldInfo
	collectFields(t, nil, &fields)
	fieldInfoMemo.Store(t, fields)
	return fields
}

func collectFields(t reflect.Type, parent []int, fields *[]fieldInfo) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int(nil), parent...), i)
		tag := f.Tag.Get(tableTag)
		if tag == "-" {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct && tag == "" {
			collectFields(f.Type, index, fields)
			continue
		}
		if f.PkgPath != "" { // unexported
			continue
		}
		column := f.Name
		if tag != "" {
			column = tag
		}
		*fields = append(*fields, fieldInfo{column: column, index: index, kind: kindOf(f.Type)})
	}
}

// encodeColumns writes every persisted field of the entity struct into store columns. Raw text of a
// JSON column is written back only while its field is still zero; kept lists the columns written that way.
func encodeColumns(v reflect.Value, raw map[string]string) (cols map[string]interface{}, kept map[string]string, err error) {
	fields := fieldsOf(v.Type())
	cols = make(map[string]interface{}, len(fields))
	for _, fi := range fields {
		fv := v.FieldByIndex(fi.index)
		switch fi.kind {
		case kindString:
			cols[fi.column] = fv.String()
		case kindBool:
			cols[fi.column] = fv.Bool()
		case kindInt32:
			if fv.Kind() >= reflect.Uint && fv.Kind() <= reflect.Uintptr {
				cols[fi.column] = int32(fv.Uint())
			} else {
				cols[fi.column] = int32(fv.Int())
			}
		case kindInt64:
			if fv.Kind() >= reflect.Uint && fv.Kind() <= reflect.Uintptr {
				cols[fi.column] = int64(fv.Uint())
			} else {
				cols[fi.column] = fv.Int()
			}
		case kindFloat64:
			cols[fi.column] = fv.Float()
		case kindTime:
			cols[fi.column] = fv.Interface().(time.Time).UTC()
		case kindBytes:
			cols[fi.column] = fv.Bytes()
		case kindJSON:
			if text, ok := raw[fi.column]; ok && fv.IsZero() {
				// undecodable text read from the store is written back untouched
				cols[fi.column] = text
				if kept == nil {
					kept = map[string]string{}
				}
				kept[fi.column] = text
				continue
			}
			data, err := json.Marshal(fv.Interface())
			if err != nil {
				return nil, nil, errors.Wrapf(err, "encode column %s", fi.column)
			}
			cols[fi.column] = string(data)
		}
	}
	return cols, kept, nil
}

// decodeColumns reads store columns into the entity struct. Columns that are absent or of an
// unexpected type leave the field unchanged. JSON columns that fail to parse are returned in raw.
func decodeColumns(v reflect.Value, cols map[string]interface{}) (raw map[string]string) {
	for _, fi := range fieldsOf(v.Type()) {
		col, ok := cols[fi.column]
		if !ok || col == nil {
			continue
		}
		fv := v.FieldByIndex(fi.index)
		switch fi.kind {
		case kindString:
			if s, ok := col.(string); ok {
				fv.SetString(s)
			}
		case kindBool:
			if b, ok := col.(bool); ok {
				fv.SetBool(b)
			}
		case kindInt32, kindInt64:
			if n, ok := toInt64(col); ok {
				if fv.Kind() >= reflect.Uint && fv.Kind() <= reflect.Uintptr {
					fv.SetUint(uint64(n))
				} else {
					fv.SetInt(n)
				}
			}
		case kindFloat64:
			if f, ok := toFloat64(col); ok {
				fv.SetFloat(f)
			}
		case kindTime:
			if t, ok := col.(time.Time); ok {
				fv.Set(reflect.ValueOf(t.UTC()))
			}
		case kindBytes:
			if b, ok := col.([]byte); ok {
				fv.SetBytes(b)
			}
		case kindJSON:
			text, ok := col.(string)
			if !ok {
				continue
			}
			target := reflect.New(fv.Type())
			if err := json.Unmarshal([]byte(text), target.Interface()); err != nil {
				gwlog.Debugf("storage: column %s is not valid JSON, keeping raw text", fi.column)
				if raw == nil {
					raw = map[string]string{}
				}
				raw[fi.column] = text
				continue
			}
			fv.Set(target.Elem())
		}
	}
	return
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
