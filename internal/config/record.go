package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"hypogate/domain/experiment"
	"hypogate/domain/validation"
	"hypogate/internal/errors"
)

// RecordFormat selects the experiment record encoding.
type RecordFormat string

const (
	FormatJSON RecordFormat = "json"
	FormatYAML RecordFormat = "yaml"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// LoadRecordFile reads and validates an experiment record, picking the
// format from the file extension.
func LoadRecordFile(path string) (*experiment.ConfigRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read experiment record %s", path)
	}
	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}
	return DecodeRecord(data, format)
}

// DecodeRecord parses and validates an experiment record. Any problem is a
// CONFIGURATION_ERROR; nothing downstream should see an invalid record.
func DecodeRecord(data []byte, format RecordFormat) (*experiment.ConfigRecord, error) {
	var rec experiment.ConfigRecord
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rec); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("decode json record: %w", err))
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&rec); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("decode yaml record: %w", err))
		}
	default:
		return nil, errors.ConfigInvalidf("unsupported record format %q", format)
	}
	if err := ValidateRecord(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ValidateRecord runs struct-tag validation followed by semantic checks.
func ValidateRecord(rec *experiment.ConfigRecord) error {
	if err := structValidator.Struct(rec); err != nil {
		return errors.ConfigInvalidf("invalid experiment record: %s", describeValidation(err))
	}

	for _, name := range sortedKeys(rec.Parameters) {
		if !validation.IsFinite(rec.Parameters[name]) {
			return errors.ConfigInvalidf("parameter %s is not finite", name)
		}
	}
	for name := range rec.Floors {
		if _, ok := validation.ParseCriterion(name); !ok {
			return errors.ConfigInvalidf("unknown criterion floor %q", name)
		}
	}
	if rec.DomainOverride != "" {
		if _, err := experiment.ParseDomain(rec.DomainOverride); err != nil {
			return errors.WithCode(errors.CodeConfigInvalid, err)
		}
	}
	if rec.SNRFloorDB != nil && !validation.IsFinite(*rec.SNRFloorDB) {
		return errors.ConfigInvalid("snr_floor_db is not finite")
	}
	return nil
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, ", ")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
