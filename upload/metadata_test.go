package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMetadata(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]interface{}
		wantErr  string
	}{
		{
			name:     "valid flat metadata",
			metadata: map[string]interface{}{"team": "search", "priority": 3},
		},
		{
			name: "valid nested metadata",
			metadata: map[string]interface{}{
				"source": map[string]interface{}{"system": "crm", "version": 2},
			},
		},
		{
			name:     "reserved key file_name",
			metadata: map[string]interface{}{"file_name": "override.pdf"},
			wantErr:  `"file_name" is a reserved metadata key`,
		},
		{
			name:     "reserved key user_id",
			metadata: map[string]interface{}{"user_id": "u-1"},
			wantErr:  `"user_id" is a reserved metadata key`,
		},
		{
			name:     "reserved key is allowed when nested",
			metadata: map[string]interface{}{"origin": map[string]interface{}{"file_name": "source.pdf"}},
		},
		{
			name:     "dot in top-level key",
			metadata: map[string]interface{}{"a.b": 1},
			wantErr:  `metadata key "a.b" contains a forbidden character`,
		},
		{
			name:     "hyphen in nested key",
			metadata: map[string]interface{}{"outer": map[string]interface{}{"inner-key": 1}},
			wantErr:  `metadata key "inner-key" contains a forbidden character`,
		},
		{
			name:     "backslash in deeply nested key",
			metadata: map[string]interface{}{"a": map[string]interface{}{"b": map[string]interface{}{`c\d`: 1}}},
			wantErr:  `metadata key "c\\d" contains a forbidden character`,
		},
		{
			name:     "forbidden key inside a list element",
			metadata: map[string]interface{}{"tags": []interface{}{map[string]interface{}{"bad.key": 1}}},
			wantErr:  `metadata key "bad.key" contains a forbidden character`,
		},
		{
			name:     "forbidden characters in values are fine",
			metadata: map[string]interface{}{"path_hint": "a.b-c\\d"},
		},
		{
			name:     "non-serializable value",
			metadata: map[string]interface{}{"callback": func() {}},
			wantErr:  "metadata is not JSON-serializable",
		},
		{
			name:     "empty metadata",
			metadata: map[string]interface{}{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMetadata(tt.metadata)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]interface{}
		want     map[string]interface{}
	}{
		{
			name:     "flat input is unchanged",
			metadata: map[string]interface{}{"team": "search", "priority": 3},
			want:     map[string]interface{}{"team": "search", "priority": 3},
		},
		{
			name: "single nesting level",
			metadata: map[string]interface{}{
				"source": map[string]interface{}{"system": "crm", "version": 2},
			},
			want: map[string]interface{}{"source_system": "crm", "source_version": 2},
		},
		{
			name: "two nesting levels",
			metadata: map[string]interface{}{
				"a": map[string]interface{}{
					"b": map[string]interface{}{"c": 1},
					"d": true,
				},
				"e": "top",
			},
			want: map[string]interface{}{"a_b_c": 1, "a_d": true, "e": "top"},
		},
		{
			name: "lists are kept as values",
			metadata: map[string]interface{}{
				"tags": []interface{}{"x", "y"},
			},
			want: map[string]interface{}{"tags": []interface{}{"x", "y"}},
		},
		{
			name:     "empty input",
			metadata: map[string]interface{}{},
			want:     map[string]interface{}{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flattened, err := Flatten(tt.metadata)

			require.NoError(t, err)
			assert.Equal(t, tt.want, flattened)
		})
	}
}

func TestFlatten_keyCollisions(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]interface{}
	}{
		{
			name: "nested key collides with a top-level key",
			metadata: map[string]interface{}{
				"a":   map[string]interface{}{"b": 1},
				"a_b": 2,
			},
		},
		{
			name: "two nested branches collide",
			metadata: map[string]interface{}{
				"a":   map[string]interface{}{"b_c": 1},
				"a_b": map[string]interface{}{"c": 2},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Flatten(tt.metadata)

			require.Error(t, err)
			assert.Contains(t, err.Error(), "collides")
		})
	}
}
