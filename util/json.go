package util

import (
	"encoding/json"
	"io"
	"os"
)

// Save writes obj as indented JSON.
func Save(obj interface{}, out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(obj)
}

func Load(obj interface{}, in io.Reader) error {
	dec := json.NewDecoder(in)
	return dec.Decode(obj)
}

// FileExists reports whether filename names an existing regular file.
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}
