package sqlite

import (
	"database/sql"

	json "github.com/goccy/go-json"

	"github.com/feastwise/larder/pkg/flavor"
)

// Tags and flavor vectors live in TEXT columns as JSON. Decode failures
// degrade to empty values rather than failing the whole scan; a corrupt
// column should not take the catalog down.

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeStrings(column sql.NullString) []string {
	if !column.Valid || column.String == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(column.String), &values); err != nil {
		return nil
	}
	return values
}

func encodeFlavor(v flavor.Vector) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeFlavor(column sql.NullString) flavor.Vector {
	var v flavor.Vector
	if !column.Valid || column.String == "" {
		return v
	}
	if err := json.Unmarshal([]byte(column.String), &v); err != nil {
		return flavor.Vector{}
	}
	return v
}
