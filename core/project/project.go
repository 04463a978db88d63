// Package project loads schedules from YAML or JSON project files.
package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/crunch/core/model"
)

var (
	// ErrEmpty is returned for a schedule without tasks or hours profile.
	ErrEmpty = errors.New("project: schedule has neither tasks nor a weekly profile")
	// ErrInvalid wraps every other Validate failure.
	ErrInvalid = errors.New("project: invalid schedule")
	// ErrUnsupportedFormat is returned for unknown file extensions.
	ErrUnsupportedFormat = errors.New("project: unsupported format")
)

// Format names accepted by Parse.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Load reads the project file at path. The format follows the extension
// and the schedule name defaults to the file name.
func Load(path string) (model.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("read project: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	var format string
	switch ext {
	case ".yaml", ".yml":
		format = FormatYAML
	case ".json":
		format = FormatJSON
	default:
		return model.Schedule{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	s, err := Parse(data, format)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse decodes and validates a schedule.
func Parse(data []byte, format string) (model.Schedule, error) {
	var s model.Schedule
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return s, fmt.Errorf("decode json: %w", err)
		}
	default:
		return s, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return s, Validate(s)
}

// Validate rejects schedules the engine cannot interpret. Dangling
// relationships are accepted; the network drops them.
func Validate(s model.Schedule) error {
	if !s.HasGraph() && s.Profile.Total() <= 0 {
		return ErrEmpty
	}
	seen := make(map[string]bool, len(s.Tasks))
	for _, t := range s.Tasks {
		if t.ID == "" {
			return fmt.Errorf("%w: task without id", ErrInvalid)
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: duplicate task %q", ErrInvalid, t.ID)
		}
		seen[t.ID] = true
		if t.Hours < 0 {
			return fmt.Errorf("%w: task %q has negative hours", ErrInvalid, t.ID)
		}
		if t.End < t.Start {
			return fmt.Errorf("%w: task %q ends before it starts", ErrInvalid, t.ID)
		}
	}
	for _, d := range s.Disciplines {
		if d.BaseRate < 0 || d.OTRate < 0 {
			return fmt.Errorf("%w: discipline %q has a negative rate", ErrInvalid, d.ID)
		}
	}
	for id, series := range s.Profile {
		for _, h := range series {
			if h < 0 {
				return fmt.Errorf("%w: profile %q has negative hours", ErrInvalid, id)
			}
		}
	}
	return nil
}
