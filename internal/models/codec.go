// internal/models/codec.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnmarshalJSON accepts older data: the target may be nextScene or next_scene,
// a number or a string. Anything unreadable becomes 0 (end).
func (c *Choice) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		Text      string          `json:"text"`
		NextScene json.RawMessage `json:"nextScene"`
		Legacy    json.RawMessage `json:"next_scene"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.ID = parseID(raw.ID)
	c.Text = raw.Text
	c.NextScene = parseOrdinal(raw.NextScene)
	if c.NextScene == 0 {
		c.NextScene = parseOrdinal(raw.Legacy)
	}
	return nil
}

func parseID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func parseOrdinal(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return int(f)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// DecodeNovel parses novel JSON and puts the scenes in canonical order.
func DecodeNovel(data []byte) (*Novel, error) {
	var novel Novel
	if err := json.Unmarshal(data, &novel); err != nil {
		return nil, fmt.Errorf("failed to decode novel: %w", err)
	}
	if novel.Scenes == nil {
		novel.Scenes = []Scene{}
	}
	Normalize(novel.Scenes)
	return &novel, nil
}

// DecodePayload parses a save body. Scenes without order take their position.
func DecodePayload(data []byte) (*NovelPayload, error) {
	var probe struct {
		Scenes []map[string]json.RawMessage `json:"scenes"`
	}
	var payload NovelPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	if err := json.Unmarshal(data, &probe); err == nil {
		for i := range payload.Scenes {
			if i < len(probe.Scenes) {
				if _, ok := probe.Scenes[i]["order"]; !ok {
					payload.Scenes[i].Order = i
				}
			}
		}
	}
	if payload.Scenes == nil {
		payload.Scenes = []Scene{}
	}
	Normalize(payload.Scenes)
	return &payload, nil
}

// EncodeYAML exports a novel as YAML.
func EncodeYAML(novel *Novel) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(novel); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeYAML imports a novel from YAML.
func DecodeYAML(data []byte) (*Novel, error) {
	var novel Novel
	if err := yaml.Unmarshal(data, &novel); err != nil {
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}
	if novel.Scenes == nil {
		novel.Scenes = []Scene{}
	}
	Normalize(novel.Scenes)
	return &novel, nil
}
