package config

import "errors"

var errReadNotSupported = errors.New("config: bytes provider only supports ReadBytes")

// bytesProvider feeds embedded YAML to koanf.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) {
	return b, nil
}

func (b bytesProvider) Read() (map[string]any, error) {
	return nil, errReadNotSupported
}
