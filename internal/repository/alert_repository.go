package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rescuedev/rescue-api/internal/models"
)

// ErrTargetNotFound is returned when an alert exists but the requested
// notification-target entry does not.
var ErrTargetNotFound = errors.New("notification target not found")

type AlertRepository interface {
	Create(alert models.Alert) (models.Alert, error)
	FindByID(id string) (models.Alert, error)
	ListByCompany(companyName string, limit, offset int) ([]models.Alert, error)
	Authorize(id, userID string, at time.Time) (models.Alert, error)
	ToggleActive(id string) (models.Alert, error)
	// DeactivateIfActive performs an atomic conditional update: it only
	// writes attribution when none exists yet, so two racing
	// deactivations cannot both win. Returns changed=false when the
	// alert was already deactivated.
	DeactivateIfActive(id string, d models.Deactivation) (alert models.Alert, changed bool, err error)
	UpdateTargetStatus(id, userID string, available, onboard *bool) (models.Alert, error)
	SoftDelete(id string) error
}

type alertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) AlertRepository {
	return &alertRepository{db: db}
}

const alertColumns = `id, company_name, site, hardware_id, hardware_name, code, type_id,
	type_name, image, description, priority, recommended_actions, required_equipment,
	context, targets, topics, verified, authorized, authorized_by, authorized_at,
	active, deactivated_by_id, deactivated_by_kind, deactivated_at, deactivation_message,
	location, created_at, updated_at`

func (r *alertRepository) Create(alert models.Alert) (models.Alert, error) {
	targets, err := json.Marshal(alert.Targets)
	if err != nil {
		return models.Alert{}, errors.Wrap(err, "marshal targets")
	}

	const query = `
		INSERT INTO rescue.alerts (company_name, site, hardware_id, hardware_name, code,
			type_id, type_name, image, description, priority, recommended_actions,
			required_equipment, context, targets, topics, verified, authorized, active, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at`
	err = r.db.QueryRow(query,
		alert.CompanyName,
		alert.Site,
		alert.HardwareID,
		alert.HardwareName,
		alert.Code,
		alert.TypeID,
		alert.TypeName,
		alert.Image,
		alert.Description,
		alert.Priority,
		pq.Array(alert.RecommendedActions),
		pq.Array(alert.RequiredEquipment),
		nullableJSON(alert.Context),
		targets,
		pq.Array(alert.Topics),
		alert.Verified,
		alert.Authorized,
		alert.Active,
		nullableJSON(alert.Location),
	).Scan(&alert.ID, &alert.CreatedAt, &alert.UpdatedAt)
	if err != nil {
		return models.Alert{}, errors.Wrap(err, "insert alert")
	}
	return alert, nil
}

func (r *alertRepository) FindByID(id string) (models.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM rescue.alerts
		WHERE id = $1 AND deleted_at IS NULL`

	return scanAlert(r.db.QueryRow(query, id))
}

func (r *alertRepository) ListByCompany(companyName string, limit, offset int) ([]models.Alert, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	query := `
		SELECT ` + alertColumns + `
		FROM rescue.alerts
		WHERE company_name = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(query, companyName, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (r *alertRepository) Authorize(id, userID string, at time.Time) (models.Alert, error) {
	query := `
		UPDATE rescue.alerts
		SET authorized = TRUE, authorized_by = $2, authorized_at = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + alertColumns

	return scanAlert(r.db.QueryRow(query, id, userID, at))
}

func (r *alertRepository) ToggleActive(id string) (models.Alert, error) {
	query := `
		UPDATE rescue.alerts
		SET active = NOT active, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + alertColumns

	return scanAlert(r.db.QueryRow(query, id))
}

func (r *alertRepository) DeactivateIfActive(id string, d models.Deactivation) (models.Alert, bool, error) {
	query := `
		UPDATE rescue.alerts
		SET active = FALSE, deactivated_by_id = $2, deactivated_by_kind = $3,
			deactivated_at = $4, deactivation_message = $5, updated_at = now()
		WHERE id = $1 AND deactivated_at IS NULL AND deleted_at IS NULL
		RETURNING ` + alertColumns

	alert, err := scanAlert(r.db.QueryRow(query, id, d.ByID, d.ByKind, d.At, d.Message))
	if err == nil {
		return alert, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Alert{}, false, err
	}

	// Guard did not match: either the alert is gone or it was already
	// deactivated. Re-read to tell the two apart.
	alert, err = r.FindByID(id)
	if err != nil {
		return models.Alert{}, false, err
	}
	return alert, false, nil
}

func (r *alertRepository) UpdateTargetStatus(id, userID string, available, onboard *bool) (models.Alert, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return models.Alert{}, err
	}
	defer tx.Rollback()

	var raw []byte
	if err := tx.QueryRow(`SELECT targets FROM rescue.alerts WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id).
		Scan(&raw); err != nil {
		return models.Alert{}, err
	}

	var targets []models.NotificationTarget
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &targets); err != nil {
			return models.Alert{}, errors.Wrap(err, "unmarshal targets")
		}
	}

	found := false
	for i := range targets {
		if targets[i].UserID != userID {
			continue
		}
		if available != nil {
			targets[i].Available = *available
		}
		if onboard != nil {
			targets[i].Onboard = *onboard
		}
		found = true
		break
	}
	if !found {
		return models.Alert{}, ErrTargetNotFound
	}

	updated, err := json.Marshal(targets)
	if err != nil {
		return models.Alert{}, errors.Wrap(err, "marshal targets")
	}

	query := `
		UPDATE rescue.alerts
		SET targets = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + alertColumns
	alert, err := scanAlert(tx.QueryRow(query, id, updated))
	if err != nil {
		return models.Alert{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Alert{}, err
	}
	return alert, nil
}

func (r *alertRepository) SoftDelete(id string) error {
	const query = `
		UPDATE rescue.alerts
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	res, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func scanAlert(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Alert, error) {
	var (
		alert        models.Alert
		hardwareID   sql.NullString
		hardwareName sql.NullString
		typeID       sql.NullString
		authorizedBy sql.NullString
		authorizedAt sql.NullTime
		deactByID    sql.NullString
		deactByKind  sql.NullString
		deactAt      sql.NullTime
		deactMsg     sql.NullString
		contextRaw   []byte
		targetsRaw   []byte
		locationRaw  []byte
		actions      pq.StringArray
		equipment    pq.StringArray
		topics       pq.StringArray
	)

	err := scanner.Scan(
		&alert.ID,
		&alert.CompanyName,
		&alert.Site,
		&hardwareID,
		&hardwareName,
		&alert.Code,
		&typeID,
		&alert.TypeName,
		&alert.Image,
		&alert.Description,
		&alert.Priority,
		&actions,
		&equipment,
		&contextRaw,
		&targetsRaw,
		&topics,
		&alert.Verified,
		&alert.Authorized,
		&authorizedBy,
		&authorizedAt,
		&alert.Active,
		&deactByID,
		&deactByKind,
		&deactAt,
		&deactMsg,
		&locationRaw,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
	if err != nil {
		return models.Alert{}, err
	}

	alert.RecommendedActions = actions
	alert.RequiredEquipment = equipment
	alert.Topics = topics
	if hardwareID.Valid {
		val := hardwareID.String
		alert.HardwareID = &val
	}
	if hardwareName.Valid {
		val := hardwareName.String
		alert.HardwareName = &val
	}
	if typeID.Valid {
		val := typeID.String
		alert.TypeID = &val
	}
	if authorizedBy.Valid {
		val := authorizedBy.String
		alert.AuthorizedBy = &val
	}
	if authorizedAt.Valid {
		t := authorizedAt.Time
		alert.AuthorizedAt = &t
	}
	if deactAt.Valid {
		alert.Deactivation = &models.Deactivation{
			ByID:   deactByID.String,
			ByKind: models.DeactivatorKind(deactByKind.String),
			At:     deactAt.Time,
		}
		if deactMsg.Valid {
			alert.Deactivation.Message = deactMsg.String
		}
	}
	if len(contextRaw) > 0 {
		alert.Context = contextRaw
	}
	if len(locationRaw) > 0 {
		alert.Location = locationRaw
	}
	if len(targetsRaw) > 0 {
		if err := json.Unmarshal(targetsRaw, &alert.Targets); err != nil {
			return models.Alert{}, errors.Wrap(err, "unmarshal targets")
		}
	}

	return alert, nil
}
