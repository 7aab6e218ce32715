package repository

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/rescuedev/rescue-api/internal/models"
)

type SessionRepository interface {
	Append(session models.HardwareSession) (models.HardwareSession, error)
	FindByTokenID(tokenID string) (models.HardwareSession, error)
	ListActive(hardwareID string, now time.Time) ([]models.HardwareSession, error)
	DeleteByTokenID(tokenID string) error
	DeleteExpired(before time.Time) (int64, error)
}

type sessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{db: db}
}

const sessionColumns = `id, token_id, hardware_id, hardware_name, company_id, company_name,
	site, issued_at, expires_at`

func (r *sessionRepository) Append(session models.HardwareSession) (models.HardwareSession, error) {
	const query = `
		INSERT INTO rescue.hardware_sessions (token_id, hardware_id, hardware_name,
			company_id, company_name, site, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := r.db.QueryRow(query, session.TokenID, session.HardwareID, session.HardwareName,
		session.CompanyID, session.CompanyName, session.Site, session.IssuedAt, session.ExpiresAt).
		Scan(&session.ID)
	if err != nil {
		return models.HardwareSession{}, errors.Wrap(err, "insert hardware session")
	}
	return session, nil
}

func (r *sessionRepository) FindByTokenID(tokenID string) (models.HardwareSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM rescue.hardware_sessions
		WHERE token_id = $1`

	var s models.HardwareSession
	err := r.db.QueryRow(query, tokenID).Scan(&s.ID, &s.TokenID, &s.HardwareID, &s.HardwareName,
		&s.CompanyID, &s.CompanyName, &s.Site, &s.IssuedAt, &s.ExpiresAt)
	if err != nil {
		return models.HardwareSession{}, err
	}
	return s, nil
}

func (r *sessionRepository) ListActive(hardwareID string, now time.Time) ([]models.HardwareSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM rescue.hardware_sessions
		WHERE expires_at > $1 AND ($2 = '' OR hardware_id = $2)
		ORDER BY issued_at DESC`

	rows, err := r.db.Query(query, now, hardwareID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.HardwareSession
	for rows.Next() {
		var s models.HardwareSession
		if err := rows.Scan(&s.ID, &s.TokenID, &s.HardwareID, &s.HardwareName,
			&s.CompanyID, &s.CompanyName, &s.Site, &s.IssuedAt, &s.ExpiresAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *sessionRepository) DeleteByTokenID(tokenID string) error {
	res, err := r.db.Exec(`DELETE FROM rescue.hardware_sessions WHERE token_id = $1`, tokenID)
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

func (r *sessionRepository) DeleteExpired(before time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM rescue.hardware_sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
