package keys

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     interface{}
		want   int
		wantOK bool
	}{
		{name: "int", in: 5, want: 5, wantOK: true},
		{name: "int32", in: int32(3), want: 3, wantOK: true},
		{name: "int64", in: int64(4), want: 4, wantOK: true},
		{name: "uint", in: uint(6), want: 6, wantOK: true},
		{name: "uint32", in: uint32(2), want: 2, wantOK: true},
		{name: "uint64", in: uint64(7), want: 7, wantOK: true},
		{name: "uint64 at max int", in: uint64(math.MaxInt), want: math.MaxInt, wantOK: true},
		{name: "uint64 above max int", in: uint64(math.MaxInt) + 1, wantOK: false},
		{name: "uint64 max", in: uint64(math.MaxUint64), wantOK: false},
		{name: "uint above max int", in: uint(math.MaxUint), wantOK: false},
		{name: "whole float", in: float64(9), want: 9, wantOK: true},
		{name: "fractional float", in: 2.5, wantOK: false},
		{name: "float beyond int range", in: 1e19, wantOK: false},
		{name: "negative float beyond int range", in: -1e19, wantOK: false},
		{name: "infinity", in: math.Inf(1), wantOK: false},
		{name: "NaN", in: math.NaN(), wantOK: false},
		{name: "float32", in: float32(8), want: 8, wantOK: true},
		{name: "json number", in: json.Number("5"), want: 5, wantOK: true},
		{name: "json number fraction", in: json.Number("5.5"), wantOK: false},
		{name: "numeric string", in: " 6 ", want: 6, wantOK: true},
		{name: "non-numeric string", in: "many", wantOK: false},
		{name: "string beyond int range", in: "99999999999999999999", wantOK: false},
		{name: "int pointer", in: Int(4), want: 4, wantOK: true},
		{name: "nil int pointer", in: (*int)(nil), wantOK: false},
		{name: "bool", in: true, wantOK: false},
		{name: "nil", in: nil, wantOK: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := intValue(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Zero(t, got)
			}
		})
	}
}

func TestRekeyUpdateBody_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      *RekeyUpdateBody
		wantField string
	}{
		{name: "nil body", body: nil, wantField: "body"},
		{name: "missing key", body: &RekeyUpdateBody{Nonce: "n"}, wantField: "body.key"},
		{name: "missing nonce", body: &RekeyUpdateBody{Key: "k"}, wantField: "body.nonce"},
		{name: "both missing reports key first", body: &RekeyUpdateBody{}, wantField: "body.key"},
		{name: "complete", body: &RekeyUpdateBody{Key: "k", Nonce: "n"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.body.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			if assert.ErrorAs(t, err, &verr) {
				assert.Equal(t, tt.wantField, verr.Field)
				assert.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}
