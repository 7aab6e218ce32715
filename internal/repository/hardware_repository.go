package repository

import (
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rescuedev/rescue-api/internal/models"
)

type HardwareRepository interface {
	FindActiveByNameAndCompany(name, companyID string) (models.Hardware, error)
	FindByID(id string) (models.Hardware, error)
	ListActiveByCompanySite(companyID, site string) ([]models.Hardware, error)
	Create(hw models.Hardware) (models.Hardware, error)
	UpdatePhysicalStatus(id, status string) error
	TouchLastSeen(id string, at time.Time) error
	ListStale(cutoff time.Time) ([]models.Hardware, error)
}

type hardwareRepository struct {
	db *sql.DB
}

func NewHardwareRepository(db *sql.DB) HardwareRepository {
	return &hardwareRepository{db: db}
}

const hardwareColumns = `id, name, category, company_id, site, topic, address, maps_url,
	active, physical_status, last_seen_at, created_at, updated_at`

func (r *hardwareRepository) FindActiveByNameAndCompany(name, companyID string) (models.Hardware, error) {
	query := `
		SELECT ` + hardwareColumns + `
		FROM rescue.hardware
		WHERE name = $1 AND company_id = $2 AND active = TRUE AND deleted_at IS NULL`

	return scanHardware(r.db.QueryRow(query, strings.TrimSpace(name), companyID))
}

func (r *hardwareRepository) FindByID(id string) (models.Hardware, error) {
	query := `
		SELECT ` + hardwareColumns + `
		FROM rescue.hardware
		WHERE id = $1 AND deleted_at IS NULL`

	return scanHardware(r.db.QueryRow(query, id))
}

func (r *hardwareRepository) ListActiveByCompanySite(companyID, site string) ([]models.Hardware, error) {
	query := `
		SELECT ` + hardwareColumns + `
		FROM rescue.hardware
		WHERE company_id = $1 AND site = $2 AND active = TRUE AND deleted_at IS NULL
		ORDER BY name`

	rows, err := r.db.Query(query, companyID, site)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHardware(rows)
}

func (r *hardwareRepository) Create(hw models.Hardware) (models.Hardware, error) {
	if hw.PhysicalStatus == "" {
		hw.PhysicalStatus = models.PhysicalStatusOK
	}

	const query = `
		INSERT INTO rescue.hardware (name, category, company_id, site, topic, address, maps_url, active, physical_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query, hw.Name, hw.Category, hw.CompanyID, hw.Site, hw.Topic,
		hw.Address, hw.MapsURL, hw.Active, hw.PhysicalStatus).
		Scan(&hw.ID, &hw.CreatedAt, &hw.UpdatedAt)
	if err != nil {
		return models.Hardware{}, errors.Wrap(err, "insert hardware")
	}
	return hw, nil
}

func (r *hardwareRepository) UpdatePhysicalStatus(id, status string) error {
	const query = `
		UPDATE rescue.hardware
		SET physical_status = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	res, err := r.db.Exec(query, id, status)
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

func (r *hardwareRepository) TouchLastSeen(id string, at time.Time) error {
	const query = `
		UPDATE rescue.hardware
		SET last_seen_at = $2, physical_status = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	_, err := r.db.Exec(query, id, at, models.PhysicalStatusOK)
	return err
}

func (r *hardwareRepository) ListStale(cutoff time.Time) ([]models.Hardware, error) {
	query := `
		SELECT ` + hardwareColumns + `
		FROM rescue.hardware
		WHERE active = TRUE AND deleted_at IS NULL
		  AND (last_seen_at IS NULL OR last_seen_at < $1)
		ORDER BY last_seen_at NULLS FIRST`

	rows, err := r.db.Query(query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHardware(rows)
}

func scanHardware(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Hardware, error) {
	var hw models.Hardware
	var lastSeen sql.NullTime
	err := scanner.Scan(&hw.ID, &hw.Name, &hw.Category, &hw.CompanyID, &hw.Site, &hw.Topic,
		&hw.Address, &hw.MapsURL, &hw.Active, &hw.PhysicalStatus, &lastSeen,
		&hw.CreatedAt, &hw.UpdatedAt)
	if err != nil {
		return models.Hardware{}, err
	}
	if lastSeen.Valid {
		t := lastSeen.Time
		hw.LastSeenAt = &t
	}
	return hw, nil
}

func collectHardware(rows *sql.Rows) ([]models.Hardware, error) {
	var devices []models.Hardware
	for rows.Next() {
		hw, err := scanHardware(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, hw)
	}
	return devices, rows.Err()
}
