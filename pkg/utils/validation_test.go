package utils

import (
	"testing"

	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	TreeID string `validate:"required,max=8"`
	Kind   string `validate:"omitempty,oneof=genre media_type"`
	Name   string `validate:"notblank"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   sample
		wantErr string
	}{
		{name: "valid", input: sample{TreeID: "t1", Kind: "genre", Name: "Tree"}},
		{name: "missing id", input: sample{Name: "x"}, wantErr: "treeid is required"},
		{name: "long id", input: sample{TreeID: "123456789", Name: "x"}, wantErr: "treeid must be at most 8 characters"},
		{name: "bad kind", input: sample{TreeID: "t1", Kind: "album", Name: "x"}, wantErr: "kind must be one of: genre media_type"},
		{name: "blank name", input: sample{TreeID: "t1", Name: " \n "}, wantErr: "name must not be blank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, pkgerrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
