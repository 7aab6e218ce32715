package repository

import (
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rescuedev/rescue-api/internal/models"
)

type CompanyRepository interface {
	FindActiveByName(name string) (models.Company, error)
	GetByID(id string) (models.Company, error)
	Create(name string, sites []string, address string) (models.Company, error)
	List() ([]models.Company, error)
}

type companyRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) FindActiveByName(name string) (models.Company, error) {
	const query = `
		SELECT id, name, sites, address, active, created_at, updated_at
		FROM rescue.companies
		WHERE name = $1 AND active = TRUE AND deleted_at IS NULL`

	return r.scanOne(r.db.QueryRow(query, strings.TrimSpace(name)))
}

func (r *companyRepository) GetByID(id string) (models.Company, error) {
	const query = `
		SELECT id, name, sites, address, active, created_at, updated_at
		FROM rescue.companies
		WHERE id = $1 AND deleted_at IS NULL`

	return r.scanOne(r.db.QueryRow(query, id))
}

func (r *companyRepository) Create(name string, sites []string, address string) (models.Company, error) {
	company := models.Company{
		Name:    strings.TrimSpace(name),
		Sites:   sites,
		Address: strings.TrimSpace(address),
		Active:  true,
	}

	const query = `
		INSERT INTO rescue.companies (name, sites, address, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query, company.Name, pq.Array(company.Sites), company.Address, company.Active).
		Scan(&company.ID, &company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		return models.Company{}, errors.Wrap(err, "insert company")
	}
	return company, nil
}

func (r *companyRepository) List() ([]models.Company, error) {
	const query = `
		SELECT id, name, sites, address, active, created_at, updated_at
		FROM rescue.companies
		WHERE deleted_at IS NULL
		ORDER BY name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []models.Company
	for rows.Next() {
		var company models.Company
		var sites pq.StringArray
		if err := rows.Scan(&company.ID, &company.Name, &sites, &company.Address,
			&company.Active, &company.CreatedAt, &company.UpdatedAt); err != nil {
			return nil, err
		}
		company.Sites = sites
		companies = append(companies, company)
	}
	return companies, rows.Err()
}

func (r *companyRepository) scanOne(row *sql.Row) (models.Company, error) {
	var company models.Company
	var sites pq.StringArray
	err := row.Scan(&company.ID, &company.Name, &sites, &company.Address,
		&company.Active, &company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		return models.Company{}, err
	}
	company.Sites = sites
	return company, nil
}
