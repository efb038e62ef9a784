package profilestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hireloop/talentsearch/internal/models"
	"github.com/hireloop/talentsearch/internal/normalize"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS candidates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		title TEXT,
		location TEXT,
		years_experience INTEGER NOT NULL DEFAULT 0,
		skills TEXT,
		bio TEXT,
		resume_url TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_candidates_created_at ON candidates(created_at);

	CREATE TABLE IF NOT EXISTS skill_library (
		normalized TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Upsert inserts or replaces a candidate. CreatedAt is kept on replace.
func (s *SQLiteStore) Upsert(ctx context.Context, cand *models.Candidate) error {
	skillsJSON, err := json.Marshal(cand.Skills)
	if err != nil {
		return fmt.Errorf("failed to marshal skills: %w", err)
	}
	now := time.Now()
	if cand.CreatedAt.IsZero() {
		cand.CreatedAt = now
	}
	cand.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO candidates (id, name, title, location, years_experience, skills, bio, resume_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			title = excluded.title,
			location = excluded.location,
			years_experience = excluded.years_experience,
			skills = excluded.skills,
			bio = excluded.bio,
			resume_url = excluded.resume_url,
			updated_at = excluded.updated_at`,
		cand.ID, cand.Name, cand.Title, cand.Location, cand.YearsExperience,
		string(skillsJSON), cand.Bio, cand.ResumeURL, cand.CreatedAt, cand.UpdatedAt,
	)
	return err
}

// Get returns a candidate by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Candidate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, title, location, years_experience, skills, bio, resume_url, created_at, updated_at
		 FROM candidates WHERE id = ?`, id)
	cand, err := scanCandidate(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return cand, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (*models.Candidate, error) {
	var cand models.Candidate
	var skillsJSON sql.NullString
	err := row.Scan(&cand.ID, &cand.Name, &cand.Title, &cand.Location,
		&cand.YearsExperience, &skillsJSON, &cand.Bio, &cand.ResumeURL,
		&cand.CreatedAt, &cand.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if skillsJSON.Valid && skillsJSON.String != "" {
		if err := json.Unmarshal([]byte(skillsJSON.String), &cand.Skills); err != nil {
			return nil, fmt.Errorf("failed to unmarshal skills: %w", err)
		}
	}
	return &cand, nil
}

// HydrateByIDs loads candidates in bulk, skipping ids that no longer exist.
func (s *SQLiteStore) HydrateByIDs(ctx context.Context, ids []string) (map[string]*models.Candidate, error) {
	out := make(map[string]*models.Candidate, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := ""
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, title, location, years_experience, skills, bio, resume_url, created_at, updated_at
		 FROM candidates WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		cand, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out[cand.ID] = cand
	}
	return out, rows.Err()
}

// List returns candidates newest first.
func (s *SQLiteStore) List(ctx context.Context, offset, limit int) ([]*models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, title, location, years_experience, skills, bio, resume_url, created_at, updated_at
		 FROM candidates ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Candidate
	for rows.Next() {
		cand, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cand)
	}
	return out, rows.Err()
}

// Delete removes a candidate by id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM candidates WHERE id = ?`, id)
	return err
}

// SkillLibrary returns canonical skill names keyed by normalized form.
func (s *SQLiteStore) SkillLibrary(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT normalized, name FROM skill_library`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var norm, name string
		if err := rows.Scan(&norm, &name); err != nil {
			return nil, err
		}
		out[norm] = name
	}
	return out, rows.Err()
}

// AddSkills records canonical skill names. First spelling wins per
// normalized form.
func (s *SQLiteStore) AddSkills(ctx context.Context, names []string) error {
	for _, name := range names {
		norm := normalize.Skill(name)
		if norm == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO skill_library (normalized, name) VALUES (?, ?)
			 ON CONFLICT(normalized) DO NOTHING`, norm, name); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
