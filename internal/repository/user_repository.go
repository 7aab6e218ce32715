package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/rescuedev/rescue-api/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	CreateUser(companyName, site, name, email, phone, password string, roles []models.UserRole) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
	GetUserByID(userID string) (models.User, error)
	FindPhoneableByCompanyAndSite(companyName, site string) ([]models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (u *userRepository) CreateUser(companyName, site, name, email, phone, password string, roles []models.UserRole) (models.User, error) {
	if len(roles) == 0 {
		roles = []models.UserRole{models.RoleViewer}
	}
	if !models.IsValidRoleList(roles) {
		return models.User{}, errors.New("invalid roles")
	}
	normalized := models.EnsureDefaultRole(models.NormalizeRoles(roles))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		CompanyName:  strings.TrimSpace(companyName),
		Site:         strings.TrimSpace(site),
		Name:         strings.TrimSpace(name),
		Email:        strings.TrimSpace(email),
		Phone:        strings.TrimSpace(phone),
		PasswordHash: string(hash),
		Roles:        normalized,
		Active:       true,
	}

	const query = `
		INSERT INTO rescue.users (company_name, site, name, email, phone, password_hash, roles, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	err = u.db.QueryRow(query, user.CompanyName, user.Site, user.Name, user.Email, user.Phone,
		user.PasswordHash, pq.Array(toStringSlice(user.Roles)), user.Active).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (u *userRepository) AuthenticateUser(email, password string) (models.User, error) {
	var user models.User
	var roles pq.StringArray

	const query = `
		SELECT id, company_name, site, name, email, phone, password_hash, roles, active
		FROM rescue.users
		WHERE email = $1 AND deleted_at IS NULL`
	err := u.db.QueryRow(query, strings.TrimSpace(email)).Scan(
		&user.ID,
		&user.CompanyName,
		&user.Site,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&roles,
		&user.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, errors.New("invalid credentials")
		}
		return models.User{}, err
	}

	user.Roles = models.EnsureDefaultRole(toUserRoleSlice(roles))
	if !user.Active {
		return models.User{}, errors.New("user is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, errors.New("invalid credentials")
	}

	return user, nil
}

func (u *userRepository) GetUserByID(userID string) (models.User, error) {
	var user models.User
	var roles pq.StringArray

	const query = `
		SELECT id, company_name, site, name, email, phone, password_hash, roles, active
		FROM rescue.users
		WHERE id = $1 AND deleted_at IS NULL`
	err := u.db.QueryRow(query, userID).Scan(
		&user.ID,
		&user.CompanyName,
		&user.Site,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&roles,
		&user.Active,
	)
	if err != nil {
		return models.User{}, err
	}

	user.Roles = models.EnsureDefaultRole(toUserRoleSlice(roles))
	return user, nil
}

// FindPhoneableByCompanyAndSite returns the active users in scope that
// can be reached by phone for alert fan-out.
func (u *userRepository) FindPhoneableByCompanyAndSite(companyName, site string) ([]models.User, error) {
	const query = `
		SELECT id, company_name, site, name, email, phone, roles, active
		FROM rescue.users
		WHERE company_name = $1 AND site = $2
		  AND active = TRUE AND deleted_at IS NULL
		  AND phone IS NOT NULL AND phone <> ''
		ORDER BY name`

	rows, err := u.db.Query(query, strings.TrimSpace(companyName), strings.TrimSpace(site))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var roles pq.StringArray
		if err := rows.Scan(&user.ID, &user.CompanyName, &user.Site, &user.Name,
			&user.Email, &user.Phone, &roles, &user.Active); err != nil {
			return nil, err
		}
		user.Roles = models.EnsureDefaultRole(toUserRoleSlice(roles))
		users = append(users, user)
	}
	return users, rows.Err()
}

func toStringSlice(roles []models.UserRole) []string {
	result := make([]string, 0, len(roles))
	for _, role := range roles {
		result = append(result, string(role))
	}
	return result
}

func toUserRoleSlice(roles []string) []models.UserRole {
	result := make([]models.UserRole, 0, len(roles))
	for _, role := range roles {
		result = append(result, models.UserRole(role))
	}
	return models.NormalizeRoles(result)
}
