package answers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	api "github.com/fyrsmithlabs/assessd/pkg/api/v1"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name         string
		in           api.Value
		responseType string
		want         api.Value
		wantErr      bool
	}{
		{"yes_no bool", api.YesNo(true), "yes_no", api.YesNo(true), false},
		{"yes_no text yes", api.Text("Yes"), "yes_no", api.YesNo(true), false},
		{"yes_no text no", api.Text(" no "), "YES_NO", api.YesNo(false), false},
		{"yes_no free text", api.Text("sometimes"), "yes_no", api.Value{}, true},
		{"text", api.Text("notes"), "text", api.Text("notes"), false},
		{"text stores bool as text", api.YesNo(true), "text", api.Text("Yes"), false},
		{"unknown type stored as text", api.YesNo(false), "scale", api.Text("No"), false},
		{"zero value", api.Value{}, "text", api.Value{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.in, tt.responseType)
			if tt.wantErr {
				assert.ErrorIs(t, err, api.ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	raw, err := Encode(api.YesNo(true))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"yes_no","value":true}`, string(raw))

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, api.YesNo(true), got)
}

func TestDecode_LegacyAndEmpty(t *testing.T) {
	got, err := Decode(datatypes.JSON(`"Yes"`))
	require.NoError(t, err)
	assert.Equal(t, api.Text("Yes"), got)

	got, err = Decode(nil)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = Decode(datatypes.JSON(`[1]`))
	assert.Error(t, err)
}

func TestDecodeAll_DropsBadValues(t *testing.T) {
	got := DecodeAll(context.Background(), map[string]datatypes.JSON{
		"Q1": datatypes.JSON(`true`),
		"Q2": datatypes.JSON(`{"kind":"bogus","value":1}`),
		"Q3": datatypes.JSON(`null`),
	}, nil)
	assert.Equal(t, map[string]api.Value{"Q1": api.YesNo(true)}, got)
}
