package importer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/hirepurchase/hpadmin/internal/sheets"
)

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) { c.calls++ }

func validWorkbook(t *testing.T) []byte {
	return workbook(t, map[string][][]any{
		sheets.Customers: {
			{"customer_code*", "name*", "id_card*"},
			{"C001", "Malee", "1234567890123"},
			{"C002", "Suda", "1234567890124"},
		},
		sheets.Installments: {
			{"contract_number*", "customer_code*", "total_amount*"},
			{"CT001", "C001", 25300},
		},
	})
}

func newTestService(t *testing.T, creator Creator) (*Service, *miniredis.Miniredis, *countingInvalidator) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ref := &countingInvalidator{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(NewSessionStore(client, time.Hour), newTestExecutor(creator), NewHistory(nil), ref, logger)
	return svc, mr, ref
}

func TestServiceUploadAndExecuteOnce(t *testing.T) {
	creator := &fakeCreator{}
	svc, mr, ref := newTestService(t, creator)
	ctx := context.Background()

	sess, err := svc.Upload(ctx, "batch.xlsx", bytes.NewReader(validWorkbook(t)))
	require.NoError(t, err)
	require.Equal(t, StatusValidated, sess.Status)
	require.Equal(t, 2, sess.Counts[sheets.Customers])
	require.True(t, mr.Exists("import:session:"+sess.ID))

	done, err := svc.Execute(ctx, sess.ID, nil)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)
	require.Equal(t, 3, done.Result.Created())
	require.Equal(t, 1, ref.calls)

	stored, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, stored.Status)
	require.NotNil(t, stored.Result)

	_, err = svc.Execute(ctx, sess.ID, nil)
	require.ErrorIs(t, err, ErrAlreadyExecuted)
	require.Len(t, creator.calls, 3)

	runs, err := svc.Recent(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestServiceRefusesInvalidSession(t *testing.T) {
	creator := &fakeCreator{}
	svc, _, _ := newTestService(t, creator)
	ctx := context.Background()
	raw := workbook(t, map[string][][]any{
		sheets.Customers: {
			{"customer_code*", "name*", "id_card*"},
			{"C001", "Malee", "123"},
		},
	})

	sess, err := svc.Upload(ctx, "bad.xlsx", bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, StatusInvalid, sess.Status)
	require.Equal(t, ValidationErrors{
		"Installments sheet must contain at least one row",
		"Customers row 2: id_card must be exactly 13 characters",
	}, sess.Errors)

	_, err = svc.Execute(ctx, sess.ID, nil)
	require.ErrorIs(t, err, ErrNotImportable)
	require.Empty(t, creator.calls)
}

func TestServiceUploadUnreadableFile(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeCreator{})

	_, err := svc.Upload(context.Background(), "notes.txt", bytes.NewReader([]byte("hello")))
	var fre *FileReadError
	require.True(t, errors.As(err, &fre))
	require.Equal(t, "notes.txt", fre.Name)
}

func TestServiceSessionExpires(t *testing.T) {
	svc, mr, _ := newTestService(t, &fakeCreator{})
	ctx := context.Background()

	sess, err := svc.Upload(ctx, "batch.xlsx", bytes.NewReader(validWorkbook(t)))
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = svc.Get(ctx, sess.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestServiceExecuteReleasesClaimWhenNothingWasCreated(t *testing.T) {
	creator := &fakeCreator{reject: map[string]string{"C001": "duplicate code"}}
	svc, mr, ref := newTestService(t, creator)

	sess, err := svc.Upload(context.Background(), "batch.xlsx", bytes.NewReader(validWorkbook(t)))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	creator.onCall = func(int) { <-ctx.Done() }

	aborted, err := svc.Execute(ctx, sess.ID, nil)
	var berr *BatchError
	require.ErrorAs(t, err, &berr)
	require.Equal(t, sheets.Customers, berr.Sheet)
	require.Equal(t, 3, berr.Row)
	require.Equal(t, StatusValidated, aborted.Status)
	require.Nil(t, aborted.Result)
	require.False(t, mr.Exists("import:claim:"+sess.ID))
	require.Zero(t, ref.calls)

	creator.onCall = nil
	done, err := svc.Execute(context.Background(), sess.ID, nil)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)
	require.Equal(t, 2, done.Result.Created())
	require.Equal(t, 1, done.Result.Failed())
	require.Empty(t, done.Failure)
	require.Len(t, creator.calls, 4)
}

func TestServiceExecuteKeepsClaimAfterPartialRun(t *testing.T) {
	creator := &fakeCreator{}
	svc, mr, _ := newTestService(t, creator)

	sess, err := svc.Upload(context.Background(), "batch.xlsx", bytes.NewReader(validWorkbook(t)))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	creator.onCall = func(int) { <-ctx.Done() }

	failed, err := svc.Execute(ctx, sess.ID, nil)
	var berr *BatchError
	require.ErrorAs(t, err, &berr)
	require.Equal(t, StatusFailed, failed.Status)
	require.Equal(t, 1, failed.Result.Created())
	require.True(t, mr.Exists("import:claim:"+sess.ID))

	creator.onCall = nil
	_, err = svc.Execute(context.Background(), sess.ID, nil)
	require.ErrorIs(t, err, ErrAlreadyExecuted)
}
