package helpers

import (
	"encoding/json"
	"os"
)

// WriteJSON writes v to filename as indented JSON
func WriteJSON(filename string, v interface{}) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
