package steam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDetailFlat(t *testing.T) {
	body := []byte(`{"success": true, "data": {"name": "Half-Life", "short_description": "Run. Think. Shoot. Live."}}`)

	shape, ok, payload := DecodeDetail(70, body)
	assert.Equal(t, ShapeFlat, shape)
	assert.True(t, ok)
	require.NotNil(t, payload)
	assert.Equal(t, "Half-Life", payload.Name)
}

func TestDecodeDetailFlatFailure(t *testing.T) {
	body := []byte(`{"success": false}`)

	shape, ok, payload := DecodeDetail(70, body)
	assert.Equal(t, ShapeFlat, shape)
	assert.False(t, ok)
	assert.Nil(t, payload)
}

func TestDecodeDetailKeyed(t *testing.T) {
	body := []byte(`{"620": {"success": true, "data": {"name": "Portal 2"}}}`)

	shape, ok, payload := DecodeDetail(620, body)
	assert.Equal(t, ShapeKeyed, shape)
	assert.True(t, ok)
	require.NotNil(t, payload)
	assert.Equal(t, "Portal 2", payload.Name)
}

func TestDecodeDetailKeyedWrongID(t *testing.T) {
	// keyed under a different appid than requested
	body := []byte(`{"440": {"success": true, "data": {"name": "Team Fortress 2"}}}`)

	shape, ok, payload := DecodeDetail(620, body)
	assert.Equal(t, ShapeNone, shape)
	assert.False(t, ok)
	assert.Nil(t, payload)
}

func TestDecodeDetailBare(t *testing.T) {
	body := []byte(`{"name": "Dota 2", "release_date": {"coming_soon": false, "date": "Jul 9, 2013"}}`)

	shape, ok, payload := DecodeDetail(570, body)
	assert.Equal(t, ShapeBare, shape)
	assert.True(t, ok)
	require.NotNil(t, payload)
	assert.Equal(t, "Dota 2", payload.Name)
}

func TestDecodeDetailBareWithoutSignalFields(t *testing.T) {
	// decodes as DetailPayload but carries none of the fields that mark a
	// real payload, so it must not be accepted
	body := []byte(`{"type": "unknown"}`)

	shape, ok, payload := DecodeDetail(1, body)
	assert.Equal(t, ShapeNone, shape)
	assert.False(t, ok)
	assert.Nil(t, payload)
}

func TestDecodeDetailMalformed(t *testing.T) {
	for _, body := range []string{"", "not json", "[]", "42", `"string"`} {
		shape, ok, payload := DecodeDetail(1, []byte(body))
		assert.Equal(t, ShapeNone, shape, "body %q", body)
		assert.False(t, ok, "body %q", body)
		assert.Nil(t, payload, "body %q", body)
	}
}

func TestDecodeDetailSuccessWithEmptyData(t *testing.T) {
	body := []byte(`{"success": true}`)

	shape, ok, payload := DecodeDetail(1, body)
	assert.Equal(t, ShapeFlat, shape)
	assert.True(t, ok)
	assert.Nil(t, payload)
}
