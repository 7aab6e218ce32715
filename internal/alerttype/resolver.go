// Package alerttype resolves loosely-typed alert type references
// against the catalog using a fallback chain of lookup strategies.
package alerttype

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rescuedev/rescue-api/internal/fault"
	"github.com/rescuedev/rescue-api/internal/models"
	"github.com/rescuedev/rescue-api/internal/repository"
)

// Resolved is the outcome of a type resolution. When no catalog entry
// matched a free-text reference, Code carries the uppercased raw value
// and Matched is false: field hardware may use codes not yet
// registered in the catalog, and those alerts are still recorded.
type Resolved struct {
	Code               string   `json:"code"`
	TypeID             *string  `json:"type_id,omitempty"`
	Raw                string   `json:"raw"`
	Matched            bool     `json:"matched"`
	Name               string   `json:"name,omitempty"`
	Image              []byte   `json:"image,omitempty"`
	RecommendedActions []string `json:"recommended_actions,omitempty"`
	RequiredEquipment  []string `json:"required_equipment,omitempty"`
}

// Resolver looks up alert type references against the catalog.
type Resolver struct {
	catalog repository.AlertTypeRepository
}

func NewResolver(catalog repository.AlertTypeRepository) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve accepts a structured object carrying an id and/or one of
// {code, key, slug, name}, a plain string, or any other scalar coerced
// to string. First match wins: id, exact code, case-insensitive code,
// case-insensitive name, then permissive free-text passthrough.
// Resolution fails only when neither an id nor a text value is present.
func (r *Resolver) Resolve(ref interface{}) (Resolved, error) {
	idCandidate, value := extractReference(ref)

	if idCandidate == "" && value == "" {
		return Resolved{}, fault.New(fault.KindMissingAlertType, "alert type reference is required")
	}

	if idCandidate != "" {
		at, err := r.catalog.FindByID(idCandidate)
		if err == nil {
			return fromCatalog(at, idCandidate), nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return Resolved{}, fault.Wrap(err, fault.KindUnexpected, "alert type lookup failed")
		}
	}

	if value != "" {
		normalized := strings.ToUpper(strings.TrimSpace(value))

		for _, lookup := range []func(string) (models.AlertType, error){
			r.catalog.FindByCode,
			r.catalog.FindByCodeFold,
			r.catalog.FindByNameFold,
		} {
			at, err := lookup(normalized)
			if err == nil {
				return fromCatalog(at, value), nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return Resolved{}, fault.Wrap(err, fault.KindUnexpected, "alert type lookup failed")
			}
		}

		// No catalog backing; keep the code for record-keeping.
		return Resolved{Code: normalized, Raw: value}, nil
	}

	// An id was supplied but never matched and no text came with it.
	// Still permissive: the raw reference is kept as the code.
	return Resolved{Code: strings.ToUpper(idCandidate), Raw: idCandidate}, nil
}

func fromCatalog(at models.AlertType, raw string) Resolved {
	id := at.ID
	return Resolved{
		Code:               string(at.Code),
		TypeID:             &id,
		Raw:                raw,
		Matched:            true,
		Name:               at.Name,
		Image:              at.Image,
		RecommendedActions: at.RecommendedActions,
		RequiredEquipment:  at.RequiredEquipment,
	}
}

// extractReference pulls an id candidate and a free-text value out of
// whatever shape the caller supplied.
func extractReference(ref interface{}) (idCandidate, value string) {
	switch v := ref.(type) {
	case nil:
		return "", ""
	case map[string]interface{}:
		for _, key := range []string{"id", "_id", "type_id"} {
			if s := stringValue(v[key]); s != "" {
				idCandidate = s
				break
			}
		}
		for _, key := range []string{"code", "key", "slug", "name"} {
			if s := stringValue(v[key]); s != "" {
				value = s
				break
			}
		}
		return idCandidate, value
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return "", ""
		}
		if looksLikeID(trimmed) {
			return trimmed, ""
		}
		return "", trimmed
	default:
		return "", strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

func stringValue(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}

func looksLikeID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
