package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// UserEvent is one behavioral analytics event reported by the tracker.
type UserEvent struct {
	ID               int64
	ReceivedAt       string
	UserID           string
	PageName         string
	PageVariant      string
	TimeSpentSec     int64
	ScrollDepthPerc  int64
	FinalAction      string
	NavigationPath   []string
	SectionViewTimes map[string]float64
}

// CreateUserEvent inserts an analytics event. The path and view-time
// structures are stored as JSON text columns.
func (s *Store) CreateUserEvent(ctx context.Context, create *UserEvent) error {
	if create.NavigationPath == nil {
		create.NavigationPath = []string{}
	}
	if create.SectionViewTimes == nil {
		create.SectionViewTimes = map[string]float64{}
	}

	navigationPath, err := json.Marshal(create.NavigationPath)
	if err != nil {
		return errors.Wrap(err, "failed to marshal navigation path")
	}
	sectionViewTimes, err := json.Marshal(create.SectionViewTimes)
	if err != nil {
		return errors.Wrap(err, "failed to marshal section view times")
	}

	query := `
		INSERT INTO user_events (
			received_at, user_id, page_name, page_variant, time_spent_sec,
			scroll_depth_perc, final_action, navigation_path, section_view_times
		) VALUES (datetime('now'), ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		create.UserID, create.PageName, create.PageVariant, create.TimeSpentSec,
		create.ScrollDepthPerc, create.FinalAction, string(navigationPath), string(sectionViewTimes),
	)
	if err != nil {
		return errors.Wrap(err, "failed to save user event")
	}

	if id, err := result.LastInsertId(); err == nil {
		create.ID = id
	}
	return nil
}

// ListUserEvents returns the most recent analytics events, newest first.
func (s *Store) ListUserEvents(ctx context.Context, limit int) ([]*UserEvent, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, received_at, user_id, page_name, page_variant, time_spent_sec,
			scroll_depth_perc, final_action, navigation_path, section_view_times
		FROM user_events
		ORDER BY received_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user events")
	}
	defer rows.Close()

	var list []*UserEvent
	for rows.Next() {
		var (
			event            UserEvent
			navigationPath   string
			sectionViewTimes string
		)
		if err := rows.Scan(
			&event.ID, &event.ReceivedAt, &event.UserID, &event.PageName, &event.PageVariant,
			&event.TimeSpentSec, &event.ScrollDepthPerc, &event.FinalAction,
			&navigationPath, &sectionViewTimes,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan user event")
		}

		// A malformed JSON column is tolerated: the row is still listed.
		_ = json.Unmarshal([]byte(navigationPath), &event.NavigationPath)
		_ = json.Unmarshal([]byte(sectionViewTimes), &event.SectionViewTimes)

		list = append(list, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate user events")
	}
	return list, nil
}

// CountUserEvents returns the total number of analytics events.
func (s *Store) CountUserEvents(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_events`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count user events")
	}
	return count, nil
}
