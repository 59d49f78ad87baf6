package handler

import (
	"encoding/json"
	"time"

	"refunds/internal/parameter/models"
)

// ResolutionResponse is the HTTP response for GET /parameters/{name}.
type ResolutionResponse struct {
	Name           string          `json:"name"`
	Value          json.RawMessage `json:"value"`
	DataType       string          `json:"data_type"`
	Level          string          `json:"level"`
	EntityID       string          `json:"entity_id,omitempty"`
	Version        int             `json:"version"`
	Locked         bool            `json:"locked"`
	EffectiveDate  time.Time       `json:"effective_date"`
	ExpirationDate *time.Time      `json:"expiration_date,omitempty"`
	AsOf           time.Time       `json:"as_of"`
}

func FromResolution(res *models.Resolution) *ResolutionResponse {
	out := &ResolutionResponse{
		Name:   res.Name,
		Value:  res.Value.JSON(),
		Level:  string(res.Level),
		Locked: res.Locked,
		AsOf:   res.AsOf,
	}
	out.DataType = string(res.Value.DataType())
	if p := res.Parameter; p != nil {
		out.EntityID = p.EntityID
		out.Version = p.Version
		out.EffectiveDate = p.EffectiveDate
		out.ExpirationDate = p.ExpirationDate
	}
	return out
}
