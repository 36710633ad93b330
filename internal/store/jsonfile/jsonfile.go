// Package jsonfile implements the store interfaces on top of flat JSON
// files. Every mutation rewrites the whole file; writes go to a temp
// file in the same directory and are renamed into place so a reader
// never observes a partial document.
package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quillhq/quill/internal/store"
)

// indent matches the original on-disk layout: pretty-printed with four
// spaces, trailing newline.
const indent = "    "

func readInto(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return os.ErrNotExist
		}
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", store.ErrCorrupt, filepath.Base(path), err)
	}
	return nil
}

func writeAtomic(path string, src any) error {
	data, err := json.MarshalIndent(src, "", indent)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
