package client

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taekwondodev/go-BaaS-Client/internal/customerrors"
	"github.com/taekwondodev/go-BaaS-Client/internal/dto"
	"github.com/taekwondodev/go-BaaS-Client/internal/logger"
	"github.com/taekwondodev/go-BaaS-Client/internal/models"
	"github.com/taekwondodev/go-BaaS-Client/internal/repository"
	"github.com/taekwondodev/go-BaaS-Client/internal/retry"
	"github.com/taekwondodev/go-BaaS-Client/internal/service"
	"github.com/viant/afs"
)

const (
	selectPostsQuery      = `SELECT * FROM "public"."posts" LIMIT 100`
	selectUserPostsQuery  = `SELECT "id" FROM "public"."posts" WHERE "user_id" = $1 ORDER BY "id" ASC LIMIT 100`
	selectSinglePostQuery = `SELECT * FROM "public"."posts" WHERE "id" = $1 LIMIT 1`
	insertPostQuery       = `INSERT INTO "public"."posts" ("title") VALUES ($1) RETURNING *`
	callGetUserPostsQuery = `SELECT * FROM "public"."get_user_posts"("user_id" => $1)`
	testTable             = "posts"
	testUserID            = "user-1"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return nil
}

func networkError() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func setupClient(t *testing.T) (pgxmock.PgxPoolIface, *sleepRecorder, *Client) {
	mockDB, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("Failed to create pgxmock: %v", err)
	}
	t.Cleanup(func() {
		mockDB.Close()
	})

	recorder := &sleepRecorder{}
	c := New(Deps{
		Data:    repository.New(mockDB, "", 0),
		Storage: service.NewStorage(afs.New(), "file://"+t.TempDir(), "https://project.supabase.co/storage/v1/object/public"),
		Retrier: retry.New(retry.WithSleep(recorder.sleep)),
		Logger:  logger.Discard(),
	})
	return mockDB, recorder, c
}

func postRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "title"}).AddRow(int64(1), "hello")
}

func TestQuery_SelectRetriesTransientFailures(t *testing.T) {
	mockDB, recorder, c := setupClient(t)
	mockDB.ExpectQuery(regexp.QuoteMeta(selectPostsQuery)).WillReturnError(networkError())
	mockDB.ExpectQuery(regexp.QuoteMeta(selectPostsQuery)).WillReturnError(errors.New("fetch failed"))
	mockDB.ExpectQuery(regexp.QuoteMeta(selectPostsQuery)).WillReturnRows(postRows())

	rows, err := c.From(testTable).Select(context.Background())

	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, recorder.delays)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestQuery_ErrorsAreNormalized(t *testing.T) {
	testCases := []struct {
		name            string
		setupMock       func(mockDB pgxmock.PgxPoolIface)
		expectedMessage string
		expectedKind    customerrors.Kind
		expectedDelays  int
	}{
		{
			name: "unique violation",
			setupMock: func(mockDB pgxmock.PgxPoolIface) {
				mockDB.ExpectQuery(regexp.QuoteMeta(selectPostsQuery)).
					WillReturnError(&pgconn.PgError{Code: customerrors.CodeUniqueViolation, Message: "duplicate key value"})
			},
			expectedMessage: customerrors.MsgDuplicateEmail,
			expectedKind:    customerrors.KindValidation,
		},
		{
			name: "no rows",
			setupMock: func(mockDB pgxmock.PgxPoolIface) {
				mockDB.ExpectQuery(regexp.QuoteMeta(selectPostsQuery)).WillReturnError(pgx.ErrNoRows)
			},
			expectedMessage: customerrors.MsgResourceNotFound,
			expectedKind:    customerrors.KindNotFound,
		},
		{
			name: "unknown code keeps its message",
			setupMock: func(mockDB pgxmock.PgxPoolIface) {
				mockDB.ExpectQuery(regexp.QuoteMeta(selectPostsQuery)).
					WillReturnError(&pgconn.PgError{Code: "XX000", Message: "custom failure"})
			},
			expectedMessage: "custom failure",
			expectedKind:    customerrors.KindUnknown,
		},
		{
			name: "network failure after every retry",
			setupMock: func(mockDB pgxmock.PgxPoolIface) {
				for i := 0; i < 4; i++ {
					mockDB.ExpectQuery(regexp.QuoteMeta(selectPostsQuery)).WillReturnError(networkError())
				}
			},
			expectedMessage: customerrors.MsgNetwork,
			expectedKind:    customerrors.KindNetwork,
			expectedDelays:  3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockDB, recorder, c := setupClient(t)
			tc.setupMock(mockDB)

			_, err := c.From(testTable).Select(context.Background())

			var normalized *customerrors.Error
			require.ErrorAs(t, err, &normalized)
			assert.Equal(t, tc.expectedMessage, normalized.Error())
			assert.Equal(t, tc.expectedKind, normalized.Kind)
			assert.Len(t, recorder.delays, tc.expectedDelays)
			assert.NoError(t, mockDB.ExpectationsWereMet())
		})
	}
}

func TestQuery_BuilderIsImmutable(t *testing.T) {
	mockDB, _, c := setupClient(t)
	mockDB.ExpectQuery(regexp.QuoteMeta(selectUserPostsQuery)).
		WithArgs(testUserID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))

	base := c.From(testTable).Eq("user_id", testUserID).Order("id", true)
	_ = base.Limit(5).Eq("published", true)

	rows, err := base.Select(context.Background(), "id")

	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestQuery_Single(t *testing.T) {
	mockDB, _, c := setupClient(t)
	mockDB.ExpectQuery(regexp.QuoteMeta(selectSinglePostQuery)).WithArgs(int64(1)).WillReturnRows(postRows())
	mockDB.ExpectQuery(regexp.QuoteMeta(selectSinglePostQuery)).WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title"}))

	row, err := c.From(testTable).Eq("id", int64(1)).Single(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", row["title"])

	_, err = c.From(testTable).Eq("id", int64(2)).Single(context.Background())
	assert.ErrorIs(t, err, customerrors.ErrResourceNotFound)
	assert.Equal(t, customerrors.MsgResourceNotFound, err.Error())
}

func TestQuery_Insert(t *testing.T) {
	mockDB, _, c := setupClient(t)
	mockDB.ExpectQuery(regexp.QuoteMeta(insertPostQuery)).WithArgs("hello").WillReturnRows(postRows())

	rows, err := c.From(testTable).Insert(context.Background(), repository.Row{"title": "hello"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), rows[0]["id"])
}

func TestRPC(t *testing.T) {
	mockDB, _, c := setupClient(t)
	mockDB.ExpectQuery(regexp.QuoteMeta(callGetUserPostsQuery)).WithArgs(testUserID).WillReturnRows(postRows())

	rows, err := c.RPC(context.Background(), "get_user_posts", map[string]any{"user_id": testUserID})

	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCheckConnection(t *testing.T) {
	mockDB, _, c := setupClient(t)
	mockDB.ExpectPing()
	assert.True(t, c.CheckConnection(context.Background()))

	mockDB.ExpectPing().WillReturnError(errors.New("password authentication failed"))
	assert.False(t, c.CheckConnection(context.Background()))
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestStorage_UploadDuplicate(t *testing.T) {
	_, _, c := setupClient(t)
	ctx := context.Background()

	_, err := c.Storage().Upload(ctx, "avatars", "me.png", strings.NewReader("png"), service.UploadOptions{})
	require.NoError(t, err)

	_, err = c.Storage().Upload(ctx, "avatars", "me.png", strings.NewReader("png"), service.UploadOptions{})

	assert.ErrorIs(t, err, customerrors.ErrDuplicateKey)
	assert.Equal(t, customerrors.MsgDuplicateKey, err.Error())
	assert.Equal(t,
		"https://project.supabase.co/storage/v1/object/public/avatars/me.png",
		c.Storage().GetPublicURL("avatars", "me.png"),
	)
}

type stubAuth struct {
	service.AuthService
	signInErr error
	events    *service.Events
}

func (s *stubAuth) SignIn(context.Context, string, string) (*dto.AuthResponse, error) {
	return nil, s.signInErr
}

func (s *stubAuth) Events() *service.Events {
	return s.events
}

func TestAuth_SignInNormalizesError(t *testing.T) {
	auth := &stubAuth{
		signInErr: &customerrors.BackendError{Status: 400, Code: customerrors.CodeInvalidCredentials, Message: "Invalid login credentials"},
		events:    service.NewEvents(),
	}
	c := New(Deps{Auth: auth, Retrier: retry.New(retry.WithSleep(func(context.Context, time.Duration) error { return nil }))})

	_, err := c.Auth().SignIn(context.Background(), "user@example.com", "wrong")

	assert.Equal(t, customerrors.MsgAuthenticationFailed, err.Error())
	assert.Equal(t, customerrors.KindAuth, customerrors.KindOf(err))
}

func TestAuth_OnAuthStateChange(t *testing.T) {
	auth := &stubAuth{events: service.NewEvents()}
	c := New(Deps{Auth: auth})
	var got []models.AuthEvent

	unsubscribe := c.Auth().OnAuthStateChange(func(e models.AuthEvent, _ *models.Session) { got = append(got, e) })
	auth.events.Emit(models.EventSignedIn, nil)
	unsubscribe()
	auth.events.Emit(models.EventSignedOut, nil)

	assert.Equal(t, []models.AuthEvent{models.EventSignedIn}, got)
}
