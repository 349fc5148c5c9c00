package queue

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMySQLStore(db, slog.Default()), mock
}

func TestEnqueueReport(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO pending_reports").
		WithArgs([]byte(`{"disasterType":"Flood"}`), "[3,4]", StatusPendingUpload, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := store.EnqueueReport(context.Background(), []byte(`{"disasterType":"Flood"}`), []int64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnqueueReport_StorageUnavailable(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO pending_reports").
		WillReturnError(errors.New("disk full"))

	_, err := store.EnqueueReport(context.Background(), []byte(`{}`), nil)
	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "disk full")
}

func TestEnqueueAttachment(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO pending_attachments").
		WithArgs("user-9", "house.jpg", []byte{0xff, 0xd8}, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(12, 1))

	id, err := store.EnqueueAttachment(context.Background(), []byte{0xff, 0xd8}, "house.jpg", "user-9")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
}

func TestListPendingReports_InsertionOrder(t *testing.T) {
	store, mock := newMockStore(t)

	captured := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "payload", "attachment_ids", "status", "captured_at"}).
		AddRow(1, []byte(`{"a":1}`), "[5]", StatusPendingUpload, captured).
		AddRow(2, []byte(`{"b":2}`), "", StatusPendingUpload, captured)
	mock.ExpectQuery("SELECT id, payload, attachment_ids, status, captured_at").
		WithArgs(StatusPendingUpload).
		WillReturnRows(rows)

	reports, err := store.ListPendingReports(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, int64(1), reports[0].LocalID)
	assert.Equal(t, []int64{5}, reports[0].AttachmentIDs)
	assert.Equal(t, int64(2), reports[1].LocalID)
	assert.Nil(t, reports[1].AttachmentIDs)
}

func TestListPendingAttachments(t *testing.T) {
	store, mock := newMockStore(t)

	captured := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "file_name", "payload", "captured_at"}).
		AddRow(5, "user-9", "house.jpg", []byte{1, 2, 3}, captured)
	mock.ExpectQuery("SELECT id, user_id, file_name, payload, captured_at").
		WillReturnRows(rows)

	attachments, err := store.ListPendingAttachments(context.Background())
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "house.jpg", attachments[0].FileName)
	assert.Equal(t, []byte{1, 2, 3}, attachments[0].Payload)
}

func TestMarkReportUploaded_IdempotentOnUnknownID(t *testing.T) {
	store, mock := newMockStore(t)

	// Zero affected rows: already uploaded or unknown. Not an error.
	mock.ExpectExec("UPDATE pending_reports SET status").
		WithArgs(StatusUploaded, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.MarkReportUploaded(context.Background(), 42))
}

func TestDeleteAttachment_IdempotentOnUnknownID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM pending_attachments").
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.DeleteAttachment(context.Background(), 99))
}

func TestListPendingReports_QueryFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, payload, attachment_ids").
		WillReturnError(errors.New("connection refused"))

	_, err := store.ListPendingReports(context.Background())
	require.ErrorIs(t, err, ErrStorageUnavailable)
}
