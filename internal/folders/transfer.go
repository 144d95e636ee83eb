package folders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mfolders/internal/apperr"
	"github.com/starford/mfolders/internal/models"
)

// ExportState returns the persisted folder map as indented JSON.
func (e *Engine) ExportState(ctx context.Context) ([]byte, error) {
	var out []byte
	err := e.do(ctx, func(context.Context) error {
		data, err := json.MarshalIndent(e.records, "", "  ")
		if err != nil {
			return fmt.Errorf("folders: export: %w", err)
		}
		out = data
		return nil
	})
	return out, err
}

// ImportState replaces the persisted folder map with data and reconciles.
// Nothing changes unless every record is acceptable. An empty map falls back
// to the sentinel bootstrap.
func (e *Engine) ImportState(ctx context.Context, data []byte) (models.ReconcileReport, error) {
	recs, err := DecodeRecords(data)
	if err != nil {
		return models.ReconcileReport{}, err
	}
	if err := ValidateRecords(recs, e.limit); err != nil {
		return models.ReconcileReport{}, err
	}

	var rep models.ReconcileReport
	err = e.do(ctx, func(ctx context.Context) error {
		prev := e.records
		e.records = recs
		if err := e.writeRecords(ctx); err != nil {
			e.records = prev
			return err
		}
		var err error
		rep, err = e.reconcile(ctx, true)
		return err
	})
	return rep, err
}

// legacyRecord is a folder record as older exports wrote it. The extra keys
// are accepted and dropped.
type legacyRecord struct {
	models.FolderRecord
	Type     json.RawMessage `json:"type"`
	Entity   json.RawMessage `json:"entity"`
	Sorting  json.RawMessage `json:"sorting"`
	Parent   json.RawMessage `json:"parent"`
	Expanded json.RawMessage `json:"expanded"`
}

// DecodeRecords parses an exported folder map. Unknown record fields are
// rejected. Blank input decodes to an empty map.
func DecodeRecords(data []byte) (models.FolderMap, error) {
	recs := models.FolderMap{}
	if len(bytes.TrimSpace(data)) == 0 {
		return recs, nil
	}
	var raw map[string]legacyRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrParse, err.Error())
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after folder map", apperr.ErrParse)
	}
	for id, rec := range raw {
		recs[id] = rec.FolderRecord
	}
	return recs, nil
}

// ValidateRecords checks every record before any is accepted.
func ValidateRecords(recs models.FolderMap, limit int) error {
	ids := make([]string, 0, len(recs))
	for id := range recs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		rec := recs[id]
		if id == "" {
			return fmt.Errorf("%w: empty folder id", apperr.ErrValidation)
		}
		if len(rec.PathToFolder) >= limit {
			return fmt.Errorf("folder %s: depth %d of %d: %w", id, len(rec.PathToFolder), limit, apperr.ErrDepthLimit)
		}
		err := validation.ValidateStruct(&rec,
			validation.Field(&rec.TitleText, validation.Length(0, maxTitleLen)),
			validation.Field(&rec.ColorText, validation.Match(hexColor)),
			validation.Field(&rec.FontColorText, validation.Match(hexColor)),
		)
		if err != nil {
			return fmt.Errorf("folder %s: %w", id, invalid(err))
		}
	}
	return nil
}
