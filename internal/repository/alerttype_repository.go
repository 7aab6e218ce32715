package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rescuedev/rescue-api/internal/models"
)

type AlertTypeRepository interface {
	FindByID(id string) (models.AlertType, error)
	FindByCode(code string) (models.AlertType, error)
	FindByCodeFold(code string) (models.AlertType, error)
	FindByNameFold(name string) (models.AlertType, error)
	Create(at models.AlertType) (models.AlertType, error)
	List() ([]models.AlertType, error)
}

type alertTypeRepository struct {
	db *sql.DB
}

func NewAlertTypeRepository(db *sql.DB) AlertTypeRepository {
	return &alertTypeRepository{db: db}
}

const alertTypeColumns = `id, name, description, code, color, image, sound,
	recommended_actions, required_equipment, company_id, active, created_at, updated_at`

func (r *alertTypeRepository) FindByID(id string) (models.AlertType, error) {
	query := `
		SELECT ` + alertTypeColumns + `
		FROM rescue.alert_types
		WHERE id = $1 AND active = TRUE`

	return scanAlertType(r.db.QueryRow(query, id))
}

func (r *alertTypeRepository) FindByCode(code string) (models.AlertType, error) {
	query := `
		SELECT ` + alertTypeColumns + `
		FROM rescue.alert_types
		WHERE code = $1 AND active = TRUE
		ORDER BY company_id NULLS LAST
		LIMIT 1`

	return scanAlertType(r.db.QueryRow(query, code))
}

func (r *alertTypeRepository) FindByCodeFold(code string) (models.AlertType, error) {
	query := `
		SELECT ` + alertTypeColumns + `
		FROM rescue.alert_types
		WHERE UPPER(code) = UPPER($1) AND active = TRUE
		ORDER BY company_id NULLS LAST
		LIMIT 1`

	return scanAlertType(r.db.QueryRow(query, code))
}

func (r *alertTypeRepository) FindByNameFold(name string) (models.AlertType, error) {
	query := `
		SELECT ` + alertTypeColumns + `
		FROM rescue.alert_types
		WHERE LOWER(name) = LOWER($1) AND active = TRUE
		ORDER BY company_id NULLS LAST
		LIMIT 1`

	return scanAlertType(r.db.QueryRow(query, strings.TrimSpace(name)))
}

func (r *alertTypeRepository) Create(at models.AlertType) (models.AlertType, error) {
	if !models.IsValidAlertCode(at.Code) {
		return models.AlertType{}, fmt.Errorf("invalid alert code %q", at.Code)
	}
	if len(at.Name) == 0 || len(at.Name) > models.AlertTypeNameMaxLen {
		return models.AlertType{}, fmt.Errorf("alert type name must be 1-%d characters", models.AlertTypeNameMaxLen)
	}
	if len(at.Description) > models.AlertTypeDescriptionMaxLen {
		return models.AlertType{}, fmt.Errorf("alert type description exceeds %d characters", models.AlertTypeDescriptionMaxLen)
	}
	if len(at.Image) > models.AlertTypeImageMaxBytes {
		return models.AlertType{}, fmt.Errorf("alert type image exceeds %d bytes", models.AlertTypeImageMaxBytes)
	}

	const query = `
		INSERT INTO rescue.alert_types (name, description, code, color, image, sound,
			recommended_actions, required_equipment, company_id, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query, at.Name, at.Description, at.Code, at.Color, at.Image, at.Sound,
		pq.Array(at.RecommendedActions), pq.Array(at.RequiredEquipment), at.CompanyID, at.Active).
		Scan(&at.ID, &at.CreatedAt, &at.UpdatedAt)
	if err != nil {
		return models.AlertType{}, errors.Wrap(err, "insert alert type")
	}
	return at, nil
}

func (r *alertTypeRepository) List() ([]models.AlertType, error) {
	query := `
		SELECT ` + alertTypeColumns + `
		FROM rescue.alert_types
		WHERE active = TRUE
		ORDER BY code, name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []models.AlertType
	for rows.Next() {
		at, err := scanAlertType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, at)
	}
	return types, rows.Err()
}

func scanAlertType(scanner interface {
	Scan(dest ...interface{}) error
}) (models.AlertType, error) {
	var at models.AlertType
	var companyID sql.NullString
	var actions, equipment pq.StringArray
	err := scanner.Scan(&at.ID, &at.Name, &at.Description, &at.Code, &at.Color, &at.Image,
		&at.Sound, &actions, &equipment, &companyID, &at.Active, &at.CreatedAt, &at.UpdatedAt)
	if err != nil {
		return models.AlertType{}, err
	}
	at.RecommendedActions = actions
	at.RequiredEquipment = equipment
	if companyID.Valid {
		val := companyID.String
		at.CompanyID = &val
	}
	return at, nil
}
