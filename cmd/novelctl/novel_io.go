package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Corphon/NovelBuilder/internal/models"
)

// Supported file formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatJSON
	}
}

// readNovel parses a novel file by extension. JSON may also be a bare scene array.
func readNovel(path string) (*models.Novel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return decodeNovel(data, formatOf(path))
}

func decodeNovel(data []byte, format string) (*models.Novel, error) {
	if format == formatYAML {
		return models.DecodeYAML(data)
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var scenes []models.Scene
		if err := json.Unmarshal([]byte(trimmed), &scenes); err != nil {
			return nil, fmt.Errorf("decode scenes: %w", err)
		}
		models.Normalize(scenes)
		return &models.Novel{Scenes: scenes}, nil
	}
	return models.DecodeNovel(data)
}

func encodeNovel(novel *models.Novel, format string) ([]byte, error) {
	if format == formatYAML {
		return models.EncodeYAML(novel)
	}
	data, err := json.MarshalIndent(novel, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return append(data, '\n'), nil
}

// writeNovel writes to path, or to stdout when path is empty or "-".
func writeNovel(path, format string, novel *models.Novel, stdout func([]byte) error) error {
	data, err := encodeNovel(novel, format)
	if err != nil {
		return err
	}
	if path == "" || path == "-" {
		return stdout(data)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
