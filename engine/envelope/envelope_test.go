package envelope

import (
	"testing"

	"github.com/bmizerany/assert"
	"github.com/tidwall/gjson"
	"github.com/xiaonanln/saganet/engine/status"
)

func TestParse(t *testing.T) {
	req, err := Parse([]byte(`{"PlayerId":"P1","Count":3,"Nested":{"a":[1,2]},"a.b":true}`))
	if err != nil {
		t.Fatal(err)
	}
	assert.T(t, !req.Empty())
	assert.Equal(t, "P1", req.String(FieldPlayerId))

	v, ok := req.Field("Count")
	assert.T(t, ok)
	assert.Equal(t, int64(3), v.Int())

	v, ok = req.Field("a.b")
	assert.T(t, ok, "dotted names are matched exactly")
	assert.T(t, v.Bool())

	_, ok = req.Field("count")
	assert.T(t, !ok, "field names are case sensitive")
	assert.Equal(t, "", req.String("Missing"))
}

func TestParseEmpty(t *testing.T) {
	for _, data := range []string{`{}`, `[]`, `[1,2]`, `"str"`, `null`, `12`} {
		req, err := Parse([]byte(data))
		assert.Equal(t, nil, err)
		assert.T(t, req.Empty(), data)
	}

	var nilReq *Request
	assert.T(t, nilReq.Empty())
	_, ok := nilReq.Field("x")
	assert.T(t, !ok)
}

func TestParseInvalid(t *testing.T) {
	for _, data := range []string{``, `{`, `{"a":}`, `not json`} {
		_, err := Parse([]byte(data))
		assert.Equal(t, ErrInvalidJSON, err)
	}
}

func TestNullFieldString(t *testing.T) {
	req := MustParse(`{"PlayerId":null}`)
	v, ok := req.Field(FieldPlayerId)
	assert.T(t, ok)
	assert.Equal(t, gjson.Null, v.Type)
	assert.Equal(t, "", req.String(FieldPlayerId))
}

func TestResponse(t *testing.T) {
	resp := NewResponse(status.Ok)
	assert.Equal(t, `{"Status":"Ok"}`, resp.String())

	assert.Equal(t, nil, resp.Set("SessionToken", "abc"))
	assert.Equal(t, nil, resp.Set("Resources", []int{1, 2, 3}))
	assert.Equal(t, nil, resp.SetRaw("Raw", []byte(`{"x":1}`)))
	assert.Equal(t, "Ok", resp.Status())
	assert.Equal(t, "abc", resp.Get("SessionToken").String())
	assert.Equal(t, int64(2), gjson.GetBytes(resp.Bytes(), "Resources.1").Int())
	assert.Equal(t, int64(1), gjson.GetBytes(resp.Bytes(), "Raw.x").Int())
}

func TestResponseArgumentNotFound(t *testing.T) {
	resp := NewResponse(status.RequestArgumentNotFound("PlayerId"))
	assert.Equal(t, "RequestArgumentNotFound", resp.Status())
	assert.Equal(t, "PlayerId", resp.Get(status.FieldArgumentName).String())
}

func TestEscapePath(t *testing.T) {
	assert.Equal(t, "Plain", escapePath("Plain"))
	assert.Equal(t, `a\.b`, escapePath("a.b"))
	resp := NewResponse(status.Ok)
	assert.Equal(t, nil, resp.Set("a.b", 1))
	assert.Equal(t, `{"Status":"Ok","a.b":1}`, resp.String())
}
