package upload

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// ReservedMetadataKeys cannot appear at the top level of file metadata; the
// service assigns them itself.
var ReservedMetadataKeys = []string{"file_name", "user_id", "file_path", "file_id"}

// Metadata keys must stay filterable after server-side flattening, so these
// characters are rejected at every nesting level.
const forbiddenKeyCharacters = `.-\`

// ValidateMetadata checks a metadata object before any network call: no
// reserved top-level keys, no forbidden characters in keys at any depth, and
// JSON-serializability of the whole object.
func ValidateMetadata(metadata map[string]interface{}) error {
	for _, reserved := range ReservedMetadataKeys {
		if _, ok := metadata[reserved]; ok {
			return fmt.Errorf("%q is a reserved metadata key (reserved keys: %s)", reserved, strings.Join(ReservedMetadataKeys, ", "))
		}
	}

	if err := validateKeys(reflect.ValueOf(metadata)); err != nil {
		return err
	}

	if _, err := json.Marshal(metadata); err != nil {
		return fmt.Errorf("metadata is not JSON-serializable: %w", err)
	}

	return nil
}

// validateKeys walks a generic tree-shaped value (maps, sequences, scalars)
// and rejects forbidden characters in map keys at any depth.
func validateKeys(value reflect.Value) error {
	if !value.IsValid() {
		return nil
	}

	switch value.Kind() {
	case reflect.Interface, reflect.Ptr:
		return validateKeys(value.Elem())
	case reflect.Map:
		for _, key := range value.MapKeys() {
			keyValue := key
			if keyValue.Kind() == reflect.Interface {
				keyValue = keyValue.Elem()
			}
			if keyValue.Kind() == reflect.String {
				name := keyValue.String()
				if strings.ContainsAny(name, forbiddenKeyCharacters) {
					return fmt.Errorf("metadata key %q contains a forbidden character (%q)", name, forbiddenKeyCharacters)
				}
			}
			if err := validateKeys(value.MapIndex(key)); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < value.Len(); i++ {
			if err := validateKeys(value.Index(i)); err != nil {
				return err
			}
		}
	}

	return nil
}

// Flatten collapses nested metadata objects into a single level, joining key
// segments with underscores, so every key becomes filterable server-side.
// The transformation never loses key/value pairs: if two keys would flatten
// to the same name, an error is returned instead of overwriting one of them.
// It is not meant to be restorable to the original nesting.
func Flatten(metadata map[string]interface{}) (map[string]interface{}, error) {
	flattened := make(map[string]interface{}, len(metadata))
	if err := flattenInto(flattened, "", metadata); err != nil {
		return nil, err
	}
	return flattened, nil
}

func flattenInto(out map[string]interface{}, prefix string, metadata map[string]interface{}) error {
	for key, value := range metadata {
		name := key
		if prefix != "" {
			name = prefix + "_" + key
		}
		if nested, ok := value.(map[string]interface{}); ok {
			if err := flattenInto(out, name, nested); err != nil {
				return err
			}
			continue
		}
		if _, exists := out[name]; exists {
			return fmt.Errorf("flattened metadata key %q collides with another key", name)
		}
		out[name] = value
	}
	return nil
}
