package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *HubRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewHubRepository(db, logger)

	return db, mock, repo
}

func TestMarkHubReady_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	hubID := "b8:f8:62:f3:2b:7e"
	readyAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO hubs`).
		WithArgs(hubID, readyAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkHubReady(hubID, readyAt)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceConnectedDevices_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	hubID := "aa:bb:cc:dd:ee:ff"
	devices := []string{"aa:11:22:33:44:55", "bb:11:22:33:44:55"}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO hubs`).
		WithArgs(hubID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM hub_devices`).
		WithArgs(hubID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO hub_devices`).
		WithArgs(hubID, "aa:11:22:33:44:55", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO hub_devices`).
		WithArgs(hubID, "bb:11:22:33:44:55", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ReplaceConnectedDevices(hubID, devices)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceConnectedDevices_EmptySnapshot(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	hubID := "aa:bb:cc:dd:ee:ff"

	// 空快照也是合法上报：清空列表
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO hubs`).
		WithArgs(hubID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM hub_devices`).
		WithArgs(hubID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.ReplaceConnectedDevices(hubID, []string{})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHub_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	hubID := "b8:f8:62:f3:2b:7e"
	readyAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	updatedAt := time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"hub_id", "last_ready_at", "updated_at"}).
		AddRow(hubID, readyAt, updatedAt)

	mock.ExpectQuery(`SELECT`).
		WithArgs(hubID).
		WillReturnRows(rows)

	hub, err := repo.GetHub(hubID)

	require.NoError(t, err)
	assert.Equal(t, hubID, hub.HubID)
	require.NotNil(t, hub.LastReadyAt)
	assert.Equal(t, readyAt, *hub.LastReadyAt)
	assert.Equal(t, updatedAt, hub.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHub_NotFound(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("00:00:00:00:00:00").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetHub("00:00:00:00:00:00")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "hub not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListConnectedDevices_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	hubID := "aa:bb:cc:dd:ee:ff"

	rows := sqlmock.NewRows([]string{"device_id"}).
		AddRow("aa:11:22:33:44:55").
		AddRow("bb:11:22:33:44:55")

	mock.ExpectQuery(`SELECT d.device_id`).
		WithArgs(hubID).
		WillReturnRows(rows)

	devices, err := repo.ListConnectedDevices(hubID)

	require.NoError(t, err)
	assert.Equal(t, []string{"aa:11:22:33:44:55", "bb:11:22:33:44:55"}, devices)
	assert.NoError(t, mock.ExpectationsWereMet())
}
