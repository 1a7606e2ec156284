// Package envelope parses JSON request envelopes and assembles JSON response envelopes.
package envelope

import (
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/xiaonanln/saganet/engine/status"
)

// Reserved request fields
const (
	FieldController    = "Controller"
	FieldRequestId     = "RequestId"
	FieldPlayerId      = "PlayerId"
	FieldSessionToken  = "SessionToken"
	FieldServerAuthKey = "ServerAuthKey"
)

// ErrInvalidJSON is returned by Parse for malformed input
var ErrInvalidJSON = errors.New("invalid json")

// Request is a parsed request envelope
type Request struct {
	raw    []byte
	fields map[string]gjson.Result
}

// Parse parses a request envelope
func Parse(data []byte) (*Request, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	root := gjson.ParseBytes(data)
	req := &Request{raw: data}
	if root.IsObject() {
		req.fields = root.Map()
	}
	return req, nil
}

// MustParse parses a request envelope and panics on malformed input
func MustParse(data string) *Request {
	req, err := Parse([]byte(data))
	if err != nil {
		panic(errors.Wrapf(err, "parse %q", data))
	}
	return req
}

// Empty reports whether the envelope is absent, not an object, or has no fields
func (req *Request) Empty() bool {
	return req == nil || len(req.fields) == 0
}

// Field returns the value of the field with the exact name
func (req *Request) Field(name string) (gjson.Result, bool) {
	if req == nil {
		return gjson.Result{}, false
	}
	v, ok := req.fields[name]
	return v, ok
}

// String returns the string value of a field, or "" when the field is absent or null
func (req *Request) String(name string) string {
	v, ok := req.Field(name)
	if !ok || v.Type == gjson.Null {
		return ""
	}
	return v.String()
}

// Raw returns the original bytes of the envelope
func (req *Request) Raw() []byte {
	if req == nil {
		return nil
	}
	return req.raw
}

// Response is a response envelope under construction
type Response struct {
	buf []byte
}

// NewResponse creates a response carrying the status token
func NewResponse(st status.Status) *Response {
	resp := &Response{buf: []byte("{}")}
	resp.mustSet(status.FieldStatus, st.Name)
	if st.ArgumentName != "" {
		resp.mustSet(status.FieldArgumentName, st.ArgumentName)
	}
	return resp
}

func (resp *Response) mustSet(name string, value interface{}) {
	if err := resp.Set(name, value); err != nil {
		panic(err)
	}
}

// Set sets a field; values that are not JSON primitives are marshalled with encoding/json
func (resp *Response) Set(name string, value interface{}) error {
	buf, err := sjson.SetBytes(resp.buf, escapePath(name), value)
	if err != nil {
		return errors.Wrapf(err, "set response field %s", name)
	}
	resp.buf = buf
	return nil
}

// SetRaw sets a field to pre-encoded JSON
func (resp *Response) SetRaw(name string, raw []byte) error {
	buf, err := sjson.SetRawBytes(resp.buf, escapePath(name), raw)
	if err != nil {
		return errors.Wrapf(err, "set response field %s", name)
	}
	resp.buf = buf
	return nil
}

// Get returns a field of the response
func (resp *Response) Get(name string) gjson.Result {
	return gjson.GetBytes(resp.buf, escapePath(name))
}

// Status returns the status name of the response
func (resp *Response) Status() string {
	return resp.Get(status.FieldStatus).String()
}

// Bytes returns the encoded response
func (resp *Response) Bytes() []byte {
	return resp.buf
}

func (resp *Response) String() string {
	return string(resp.buf)
}

// escapePath makes a field name safe to use as a gjson/sjson path
func escapePath(name string) string {
	var out []byte
	for i := 0; i < len(name); i++ {
		switch c := name[i]; c {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', ':':
			if out == nil {
				out = append(make([]byte, 0, len(name)+4), name[:i]...)
			}
			out = append(out, '\\', c)
		default:
			if out != nil {
				out = append(out, c)
			}
		}
	}
	if out == nil {
		return name
	}
	return string(out)
}
