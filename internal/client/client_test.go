package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schooldesk/internal/dispatch"
	"schooldesk/internal/httpapi"
	"schooldesk/internal/lock"
	"schooldesk/internal/logger"
	"schooldesk/internal/rowstore"
	"schooldesk/internal/school"
)

func newServer(t *testing.T, authCfg httpapi.AuthConfig) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rows := rowstore.NewMemory(map[string][][]any{
		"Students": {
			{"id", "username", "name", "grade", "class", "guardianName", "guardianPhone", "status", "password"},
			{1, "amal", "Amal", 10, "A", "", "", "active", "x1"},
			{2, "badr", "Badr", 11, "B", "", "", "pending", "y2"},
		},
		"Grades": {
			{"studentId", "subject", "score"},
			{1, "Math", 92.5},
			{2, "Math", ""},
		},
	})
	svc := school.NewService(rows, lock.NewLocal(), school.Options{})
	require.NoError(t, svc.Bootstrap(context.Background(), "admin", "secret"))

	router := httpapi.NewRouter(httpapi.Options{
		Dispatcher:     dispatch.New(svc, dispatch.Options{Logger: logger.Discard()}),
		Store:          rows,
		Logger:         logger.Discard(),
		Auth:           authCfg,
		MetricsHandler: promhttp.Handler(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(srv.URL + "/exec")
	require.NoError(t, err)
	return c
}

func TestNew_ExportURL(t *testing.T) {
	tests := []struct {
		dispatch string
		export   string
	}{
		{"http://api.local/exec", "http://api.local/export"},
		{"http://api.local/", "http://api.local/export"},
		{"http://api.local", "http://api.local/export"},
		{"https://api.local/school/exec?x=1", "https://api.local/school/export"},
	}
	for _, tt := range tests {
		t.Run(tt.dispatch, func(t *testing.T) {
			c, err := New(tt.dispatch)
			require.NoError(t, err)
			assert.Equal(t, tt.export, c.exportURL)
		})
	}

	_, err := New("not a url")
	assert.Error(t, err)
}

func TestParseCSV(t *testing.T) {
	recs, err := ParseCSV(strings.NewReader("id,name,teacherId,score,code\n3,Math,,88.5,007\n4,Art,2,,A1\n"))
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"id": 3, "name": "Math", "teacherId": nil, "score": 88.5, "code": "007"},
		{"id": 4, "name": "Art", "teacherId": 2, "score": nil, "code": "A1"},
	}, recs)

	recs, err = ParseCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCall(t *testing.T) {
	srv := newServer(t, httpapi.AuthConfig{})
	c := newClient(t, srv)
	ctx := context.Background()

	var teacher map[string]any
	require.NoError(t, c.Call(ctx, dispatch.AddTeacher, map[string]any{"name": "Sara"}, &teacher))
	assert.Equal(t, 1.0, teacher["id"])

	err := c.Call(ctx, "FLY", nil, nil)
	var serr *ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Unknown action: FLY", serr.Message)
}

func TestCall_Unreachable(t *testing.T) {
	srv := newServer(t, httpapi.AuthConfig{})
	c := newClient(t, srv)
	srv.Close()

	err := c.Call(context.Background(), dispatch.GetAllStudents, nil, nil)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestExportTable(t *testing.T) {
	srv := newServer(t, httpapi.AuthConfig{})
	c := newClient(t, srv)

	grades, err := c.ExportTable(context.Background(), "Grades")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"studentId": 1, "subject": "Math", "score": 92.5},
		{"studentId": 2, "subject": "Math", "score": nil},
	}, grades)

	_, err = c.ExportTable(context.Background(), "Settings")
	var serr *ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 404, serr.StatusCode)
}

func TestSnapshot(t *testing.T) {
	srv := newServer(t, httpapi.AuthConfig{})
	c := newClient(t, srv)

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Students, 2)
	for _, s := range snap.Students {
		assert.NotContains(t, s, "password")
	}
	assert.Len(t, snap.Grades, 2)
	assert.Empty(t, snap.Teachers)
	assert.NotNil(t, snap.Teachers)
	assert.Equal(t, []school.Admin{{ID: 1, Name: "Admin", Username: "admin"}}, snap.Admins)
}

func TestLogin(t *testing.T) {
	srv := newServer(t, httpapi.AuthConfig{})
	c := newClient(t, srv)
	ctx := context.Background()

	id, err := c.Login(ctx, "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", id.Role)
	assert.Equal(t, "admin", id.Admin.Username)

	id, err = c.Login(ctx, "amal", "x1")
	require.NoError(t, err)
	assert.Equal(t, "student", id.Role)
	assert.Equal(t, "Amal", id.Student["name"])
	assert.NotContains(t, id.Student, "password")

	_, err = c.Login(ctx, "badr", "y2")
	var serr *ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, school.ErrAccountPending.Error(), serr.Message)

	_, err = c.Login(ctx, "amal", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_CapturesSession(t *testing.T) {
	srv := newServer(t, httpapi.AuthConfig{Required: true, SigningKey: "k", Issuer: "test", TTL: time.Hour})
	c := newClient(t, srv)
	ctx := context.Background()

	err := c.Call(ctx, dispatch.GetAllStudents, nil, nil)
	var serr *ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 401, serr.StatusCode)

	_, err = c.Login(ctx, "admin", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Token())

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Students, 2)
}
