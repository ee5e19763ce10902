package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sqlpanel/internal/model"
	"sqlpanel/internal/utils"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockRepository(t *testing.T, ttl time.Duration) (PanelRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	repo := NewPanelRepository(db, PanelOptions{
		PublicBaseURL: "https://panels.example.com/",
		TTL:           ttl,
		Now:           func() time.Time { return fixedNow },
	})
	return repo, mock
}

func TestPanelRepositoryCreate(t *testing.T) {
	repo, mock := newMockRepository(t, 24*time.Hour)

	mock.ExpectExec("INSERT INTO `panels`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	handle, err := repo.Create(context.Background(), "https://cdn/report.html", model.PanelSpec{
		OwnerID: "u-1",
		Title:   "Sales",
	})
	require.NoError(t, err)

	assert.Len(t, handle.ID, model.PanelIDLength)
	assert.True(t, utils.IsAlphanumeric(handle.ID))
	assert.Equal(t, "https://panels.example.com/p/"+handle.ID, handle.URL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPanelRepositoryCreateRejectsEmptyTarget(t *testing.T) {
	repo, mock := newMockRepository(t, 0)

	_, err := repo.Create(context.Background(), "", model.PanelSpec{OwnerID: "u-1"})
	assert.ErrorIs(t, err, ErrEmptyTarget)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPanelRepositoryCreateError(t *testing.T) {
	repo, mock := newMockRepository(t, 0)

	mock.ExpectExec("INSERT INTO `panels`").WillReturnError(errors.New("duplicate entry"))

	_, err := repo.Create(context.Background(), "https://cdn/x.html", model.PanelSpec{OwnerID: "u-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate entry")
}

func panelRows(expires *time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "target_url", "owner_id", "title", "description", "visibility", "created_at", "expires_at"}).
		AddRow("Ab3dE6gH", "https://cdn/report.html", "u-1", "Sales", "pie chart by alice", "private", fixedNow, expires)
}

func TestPanelRepositoryGetByID(t *testing.T) {
	repo, mock := newMockRepository(t, 0)

	mock.ExpectQuery("SELECT \\* FROM `panels` WHERE id = \\?").
		WillReturnRows(panelRows(nil))

	panel, err := repo.GetByID(context.Background(), "Ab3dE6gH")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/report.html", panel.TargetURL)
	assert.Equal(t, model.VisibilityPrivate, panel.Visibility)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPanelRepositoryGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepository(t, 0)

	mock.ExpectQuery("SELECT \\* FROM `panels`").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "zzzzzzzz")
	assert.ErrorIs(t, err, ErrPanelNotFound)
}

func TestPanelRepositoryGetByIDRejectsMalformed(t *testing.T) {
	repo, mock := newMockRepository(t, 0)

	for _, id := range []string{"", "short", "has-dash", "waytoolongtoken"} {
		_, err := repo.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, ErrInvalidPanelID, id)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPanelRepositoryResolveExpired(t *testing.T) {
	repo, mock := newMockRepository(t, time.Hour)

	past := fixedNow.Add(-time.Minute)
	mock.ExpectQuery("SELECT \\* FROM `panels`").WillReturnRows(panelRows(&past))
	_, err := repo.Resolve(context.Background(), "Ab3dE6gH")
	assert.ErrorIs(t, err, ErrPanelExpired)

	future := fixedNow.Add(time.Minute)
	mock.ExpectQuery("SELECT \\* FROM `panels`").WillReturnRows(panelRows(&future))
	panel, err := repo.Resolve(context.Background(), "Ab3dE6gH")
	require.NoError(t, err)
	assert.Equal(t, "Ab3dE6gH", panel.ID)
}

func TestPanelRepositoryListByOwner(t *testing.T) {
	repo, mock := newMockRepository(t, 0)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `panels` WHERE owner_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT \\* FROM `panels` WHERE owner_id = \\? ORDER BY created_at DESC").
		WillReturnRows(panelRows(nil))

	panels, total, err := repo.ListByOwner(context.Background(), "u-1", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, panels, 1)
	assert.Equal(t, "Sales", panels[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}
