package event

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// FileSource reads events from a JSON or YAML file holding a list of records.
type FileSource struct {
	path     string
	location *time.Location
}

func NewFileSource(path string, location *time.Location) *FileSource {
	return &FileSource{path: path, location: location}
}

func (s *FileSource) Name() string {
	return "file:" + s.path
}

func (s *FileSource) Load(ctx context.Context) ([]Event, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("could not read events file: %w", err)
	}

	records, err := DecodeRecords(data, filepath.Ext(s.path))
	if err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", s.path, err)
	}

	events, err := recordsToEvents(records, s.location)
	if err != nil {
		return nil, err
	}
	log.Debugf("Loaded %d events from %s", len(events), s.path)
	return events, nil
}

// DecodeRecords decodes a list of records; ext selects YAML for ".yaml" and ".yml", JSON otherwise.
func DecodeRecords(data []byte, ext string) ([]Record, error) {
	var records []Record
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, err
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&records); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func recordsToEvents(records []Record, loc *time.Location) ([]Event, error) {
	events := make([]Event, 0, len(records))
	for i, r := range records {
		e, err := FromRecord(r, loc)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		events = append(events, e)
	}
	if err := ValidateNames(events); err != nil {
		return nil, err
	}
	return events, nil
}
