package store

import (
	"context"

	"github.com/pkg/errors"
)

// FormSubmission is one lead captured from the sign-up form.
type FormSubmission struct {
	ID                    int64
	SubmittedAt           string
	UserID                string
	Name                  string
	Phone                 string
	ContactMethod         string
	HowFoundUs            string
	WhyInterested         string
	ProgrammingExperience string
	LanguageInterest      string
	LearningFormat        string
	PreferredDay          string
	PreferredTime         string
}

// CreateFormSubmission inserts a lead. Name and phone are required.
func (s *Store) CreateFormSubmission(ctx context.Context, create *FormSubmission) error {
	if create.Name == "" || create.Phone == "" {
		return errors.New("name and phone are required")
	}

	query := `
		INSERT INTO form_submissions (
			submitted_at, user_id, name, phone, contact_method,
			how_found_us, why_interested, programming_experience,
			language_interest, learning_format, preferred_day, preferred_time
		) VALUES (datetime('now'), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		create.UserID, create.Name, create.Phone, create.ContactMethod,
		create.HowFoundUs, create.WhyInterested, create.ProgrammingExperience,
		create.LanguageInterest, create.LearningFormat, create.PreferredDay, create.PreferredTime,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save form submission")
	}

	if id, err := result.LastInsertId(); err == nil {
		create.ID = id
	}
	return nil
}

// ListFormSubmissions returns the most recent leads, newest first.
func (s *Store) ListFormSubmissions(ctx context.Context, limit int) ([]*FormSubmission, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, submitted_at, user_id, name, phone, contact_method,
			how_found_us, why_interested, programming_experience,
			language_interest, learning_format, preferred_day, preferred_time
		FROM form_submissions
		ORDER BY submitted_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list form submissions")
	}
	defer rows.Close()

	var list []*FormSubmission
	for rows.Next() {
		var sub FormSubmission
		if err := rows.Scan(
			&sub.ID, &sub.SubmittedAt, &sub.UserID, &sub.Name, &sub.Phone, &sub.ContactMethod,
			&sub.HowFoundUs, &sub.WhyInterested, &sub.ProgrammingExperience,
			&sub.LanguageInterest, &sub.LearningFormat, &sub.PreferredDay, &sub.PreferredTime,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan form submission")
		}
		list = append(list, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate form submissions")
	}
	return list, nil
}

// CountFormSubmissions returns the total number of leads.
func (s *Store) CountFormSubmissions(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM form_submissions`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count form submissions")
	}
	return count, nil
}
