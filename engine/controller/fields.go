package controller

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/xiaonanln/typeconv"
)

// Input binds a request field to a handler field
type Input struct {
	Name string
	// Set converts and stores the value, reporting false when it is not convertible
	Set func(v gjson.Result) bool
	// Optional inputs may be absent
	Optional bool
}

// In declares a required input stored into ptr
func In[T any](name string, ptr *T) Input {
	return Input{
		Name: name,
		Set: func(v gjson.Result) bool {
			return setValue(v, ptr)
		},
	}
}

// Opt declares an optional input stored into ptr
func Opt[T any](name string, ptr *T) Input {
	in := In(name, ptr)
	in.Optional = true
	return in
}

func setValue[T any](v gjson.Result, ptr *T) bool {
	if v.Type == gjson.Null {
		return false
	}
	typ := reflect.TypeOf(ptr).Elem()
	var val interface{}
	switch typ.Kind() {
	case reflect.String:
		if v.Type != gjson.String && v.Type != gjson.Number {
			return false
		}
		val = v.String()
	case reflect.Bool:
		if v.Type != gjson.True && v.Type != gjson.False {
			return false
		}
		val = v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := integerOf(v, typ.Bits())
		if !ok {
			return false
		}
		val = n
	case reflect.Float32, reflect.Float64:
		f, ok := floatOf(v)
		if !ok {
			return false
		}
		val = f
	default:
		return json.Unmarshal([]byte(v.Raw), ptr) == nil
	}
	return convertInto(val, ptr)
}

// convertInto stores val converted to the type of *ptr, reporting false when typeconv rejects it
func convertInto[T any](val interface{}, ptr *T) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	*ptr = typeconv.Convert(val, reflect.TypeOf(ptr).Elem()).Interface().(T)
	return true
}

// integerOf reads an integral value that fits in a signed integer of the given bits
func integerOf(v gjson.Result, bits int) (int64, bool) {
	switch v.Type {
	case gjson.Number:
		if v.Num != math.Trunc(v.Num) {
			return 0, false
		}
		n, err := strconv.ParseInt(v.Raw, 10, bits)
		if err == nil {
			return n, true
		} else if errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		// exponent or fraction notation
		limit := math.Ldexp(1, bits-1)
		if v.Num < -limit || v.Num >= limit {
			return 0, false
		}
		return int64(v.Num), true
	case gjson.String:
		n, err := strconv.ParseInt(v.Str, 10, bits)
		return n, err == nil
	}
	return 0, false
}

func floatOf(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Num, true
	case gjson.String:
		f, err := strconv.ParseFloat(v.Str, 64)
		return f, err == nil
	}
	return 0, false
}

// Output binds a handler field to a response field
type Output struct {
	Name string
	// Get returns the value and whether it is set
	Get func() (interface{}, bool)
}

// Out declares an output read from ptr. Nil pointers, slices and maps are unset.
func Out[T any](name string, ptr *T) Output {
	return Output{
		Name: name,
		Get: func() (interface{}, bool) {
			v := any(*ptr)
			return v, !isNil(v)
		},
	}
}

// OutString declares a string output that is unset while empty
func OutString(name string, ptr *string) Output {
	return Output{
		Name: name,
		Get: func() (interface{}, bool) {
			return *ptr, *ptr != ""
		},
	}
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
