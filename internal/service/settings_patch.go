package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/repository"
)

// SettingsPatch device configuration change; nil fields are not written
type SettingsPatch struct {
	NoiseThreshold     *float64
	SamplingPeriod     *float64
	RecordDuration     *float64
	RecordDurationUnit *string
	Status             *string
}

func (p SettingsPatch) Empty() bool {
	return p.NoiseThreshold == nil && p.SamplingPeriod == nil && p.RecordDuration == nil && p.Status == nil
}

// Applied the fields as written, keyed like the request
func (p SettingsPatch) Applied() map[string]any {
	out := make(map[string]any, 5)
	if p.NoiseThreshold != nil {
		out["noiseThreshold"] = *p.NoiseThreshold
	}
	if p.SamplingPeriod != nil {
		out["samplingPeriod"] = *p.SamplingPeriod
	}
	if p.RecordDuration != nil {
		out["recordDuration"] = *p.RecordDuration
		if p.RecordDurationUnit != nil {
			out["recordDurationUnit"] = *p.RecordDurationUnit
		}
	}
	if p.Status != nil {
		out["status"] = *p.Status
	}
	return out
}

func (p SettingsPatch) devicePatch() repository.DevicePatch {
	return repository.DevicePatch{
		NoiseThreshold:     p.NoiseThreshold,
		SamplingPeriod:     p.SamplingPeriod,
		RecordDuration:     p.RecordDuration,
		RecordDurationUnit: p.RecordDurationUnit,
		Status:             p.Status,
	}
}

// ParseSettingsPatch reads noiseThreshold, samplingPeriod, recordDuration,
// recordDurationUnit and status from a decoded JSON object. Numbers may arrive
// as strings. recordDuration may also be {"value": n, "unit": "..."}; a bare
// number takes defaultUnit. Unknown keys are ignored.
func ParseSettingsPatch(raw map[string]any, defaultUnit string) (SettingsPatch, error) {
	var p SettingsPatch
	var err error

	if v, ok := raw["noiseThreshold"]; ok && v != nil {
		if p.NoiseThreshold, err = coerceFloat("noiseThreshold", v); err != nil {
			return p, err
		}
	}
	if v, ok := raw["samplingPeriod"]; ok && v != nil {
		if p.SamplingPeriod, err = coerceFloat("samplingPeriod", v); err != nil {
			return p, err
		}
	}

	unitIn := ""
	if v, ok := raw["recordDurationUnit"]; ok && v != nil {
		s, isStr := v.(string)
		if !isStr {
			return p, domain.InvalidInputf("recordDurationUnit must be a string")
		}
		unitIn = s
	}
	if v, ok := raw["recordDuration"]; ok && v != nil {
		if obj, isObj := v.(map[string]any); isObj {
			if p.RecordDuration, err = coerceFloat("recordDuration.value", obj["value"]); err != nil {
				return p, err
			}
			if u, isStr := obj["unit"].(string); isStr && u != "" {
				unitIn = u
			}
		} else if p.RecordDuration, err = coerceFloat("recordDuration", v); err != nil {
			return p, err
		}
		unit, ok := domain.NormalizeUnit(unitIn, defaultUnit)
		if !ok {
			return p, domain.InvalidInputf("invalid recordDurationUnit: %s", unitIn)
		}
		p.RecordDurationUnit = &unit
	}

	if v, ok := raw["status"]; ok && v != nil {
		s, _ := v.(string)
		status, valid := domain.NormalizeStatus(s)
		if !valid {
			return p, domain.InvalidInputf("invalid status: %v (must be Active or Inactive)", v)
		}
		p.Status = &status
	}
	return p, nil
}

func coerceFloat(field string, v any) (*float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil, domain.InvalidInputf("%s must be a number", field)
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, domain.InvalidInputf("%s must be a number", field)
		}
		f = parsed
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return nil, domain.InvalidInputf("%s must be a number", field)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, domain.InvalidInputf("%s must be a finite number", field)
	}
	return &f, nil
}
