package util

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// WriteJson writes a JSON config object to a file creating parent directories if required.
// The output JSON is pretty-formatted and written through a temporary file so readers
// never observe a partial document.
func WriteJson(ctx context.Context, file string, obj interface{}) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	configDir := filepath.Dir(file)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("create config dir %s: %w", configDir, err)
	}

	bs, err := json.MarshalIndent(obj, "", "    ")
	if err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(configDir, ".*.tmp")
	if err != nil {
		return err
	}
	tempFileName := tempFile.Name()

	if _, err = tempFile.Write(bs); err != nil {
		_ = tempFile.Close()
		return err
	}
	if err = tempFile.Close(); err != nil {
		return err
	}

	if err = os.Rename(tempFileName, file); err != nil {
		if removeErr := os.Remove(tempFileName); removeErr != nil {
			log.Warnf("failed to remove temp file %s: %v", tempFileName, removeErr)
		}
		return err
	}

	return nil
}

// ReadJson reads a JSON config file and maps it to a provided interface
func ReadJson(file string, res interface{}) (interface{}, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warnf("failed to close file %s: %v", file, err)
		}
	}()

	if err = json.NewDecoder(f).Decode(res); err != nil {
		return nil, err
	}

	return res, nil
}
