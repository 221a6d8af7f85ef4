package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-filestore/pkg/domain"
)

var userSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"name"},
	"properties": map[string]interface{}{
		"name": map[string]interface{}{"type": "string"},
		"age":  map[string]interface{}{"type": "integer", "minimum": 0},
	},
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty("  "))
	assert.True(t, IsEmpty(map[string]interface{}{}))
	assert.False(t, IsEmpty(userSchema))
	assert.False(t, IsEmpty(`{"type":"object"}`))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  interface{}
		docs    []domain.Document
		wantErr bool
		index   int
	}{
		{"valid documents", userSchema, []domain.Document{{"name": "Ernie", "age": 6}, {"name": "Oscar"}}, false, 0},
		{"missing required field", userSchema, []domain.Document{{"name": "Ernie"}, {"age": 3}}, true, 1},
		{"wrong type", userSchema, []domain.Document{{"name": 12}}, true, 0},
		{"below minimum", userSchema, []domain.Document{{"name": "Elmo", "age": -1}}, true, 0},
		{"schema as string", `{"type":"object","required":["colour"]}`, []domain.Document{{"name": "Ernie"}}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Compile(tt.schema)
			require.NoError(t, err)

			err = v.Validate(tt.docs)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDocument))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.index, verr.Index)
			assert.NotEmpty(t, verr.Errors)
		})
	}
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)

	_, err = Compile(`not json`)
	assert.Error(t, err)
}
