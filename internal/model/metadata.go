package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// MetadataFilename is the optional metadata file shipped next to the model.
const MetadataFilename = "metadata.json"

// ReadMetadata returns the raw contents of dir/metadata.json.
// ok is false when the file does not exist.
func ReadMetadata(dir string) (raw json.RawMessage, ok bool, err error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFilename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", MetadataFilename, err)
	}

	if !json.Valid(data) {
		return nil, false, fmt.Errorf("%w: %s", ErrInvalidMetadata, dir)
	}

	return json.RawMessage(data), true, nil
}
