package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

func decodeYAML(content string) (filePayload, error) {
	decoder := yaml.NewDecoder(strings.NewReader(content))
	decoder.KnownFields(true)

	var payload filePayload
	if err := decoder.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return filePayload{}, nil
		}
		return filePayload{}, fmt.Errorf("decode yaml: %w", err)
	}

	var extra any
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			return filePayload{}, errors.New("multiple YAML documents are not allowed")
		}
		return filePayload{}, fmt.Errorf("decode yaml: %w", err)
	}
	return payload, nil
}
