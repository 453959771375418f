package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/nbolat/course-site/internal/profile"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	// :memory: databases vanish when the pool opens a second connection.
	sqlDB.SetMaxOpenConns(1)

	s := New(sqlDB, &profile.Profile{Mode: "dev"})
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
}

func TestMigrateDropsPromocode(t *testing.T) {
	s := newTestStore(t)

	rows, err := s.db.Query(`SELECT name FROM pragma_table_info('form_submissions')`)
	require.NoError(t, err)
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		columns = append(columns, name)
	}
	require.NoError(t, rows.Err())
	require.Contains(t, columns, "phone")
	require.NotContains(t, columns, "promocode")
}

func TestCreateFormSubmission(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	create := &FormSubmission{
		UserID:           "user-1",
		Name:             "Айгерим",
		Phone:            "+77011234567",
		ContactMethod:    "whatsapp",
		LanguageInterest: "python",
	}
	require.NoError(t, s.CreateFormSubmission(ctx, create))
	require.NotZero(t, create.ID)

	list, err := s.ListFormSubmissions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Айгерим", list[0].Name)
	require.Equal(t, "+77011234567", list[0].Phone)
	require.Equal(t, "whatsapp", list[0].ContactMethod)
	require.NotEmpty(t, list[0].SubmittedAt)

	count, err := s.CountFormSubmissions(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestCreateFormSubmissionRequiresNameAndPhone(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.Error(t, s.CreateFormSubmission(ctx, &FormSubmission{Phone: "+77011234567"}))
	require.Error(t, s.CreateFormSubmission(ctx, &FormSubmission{Name: "Айгерим"}))

	count, err := s.CountFormSubmissions(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestListFormSubmissionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, s.CreateFormSubmission(ctx, &FormSubmission{Name: name, Phone: "+77011234567"}))
	}

	list, err := s.ListFormSubmissions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "third", list[0].Name)
	require.Equal(t, "second", list[1].Name)
}

func TestCreateUserEvent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	create := &UserEvent{
		UserID:          "user-1",
		PageName:        "landing",
		PageVariant:     "b",
		TimeSpentSec:    42,
		ScrollDepthPerc: 85,
		FinalAction:     "form_submitted",
		NavigationPath:  []string{"hero", "pricing", "form"},
		SectionViewTimes: map[string]float64{
			"hero":    3.5,
			"pricing": 12,
		},
	}
	require.NoError(t, s.CreateUserEvent(ctx, create))
	require.NotZero(t, create.ID)

	list, err := s.ListUserEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, []string{"hero", "pricing", "form"}, list[0].NavigationPath)
	require.Equal(t, 12.0, list[0].SectionViewTimes["pricing"])
	require.Equal(t, int64(85), list[0].ScrollDepthPerc)

	count, err := s.CountUserEvents(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestCreateUserEventDefaultsEmptyCollections(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateUserEvent(ctx, &UserEvent{UserID: "user-1", PageName: "landing"}))

	list, err := s.ListUserEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Empty(t, list[0].NavigationPath)
	require.Empty(t, list[0].SectionViewTimes)
}
