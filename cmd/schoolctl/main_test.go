package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schooldesk/internal/dispatch"
	"schooldesk/internal/httpapi"
	"schooldesk/internal/lock"
	"schooldesk/internal/logger"
	"schooldesk/internal/rowstore"
	"schooldesk/internal/school"
)

func newServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rows := rowstore.NewMemory(nil)
	svc := school.NewService(rows, lock.NewLocal(), school.Options{})
	require.NoError(t, svc.Bootstrap(context.Background(), "admin", "secret"))

	srv := httptest.NewServer(httpapi.NewRouter(httpapi.Options{
		Dispatcher: dispatch.New(svc, dispatch.Options{Logger: logger.Discard()}),
		Store:      rows,
		Logger:     logger.Discard(),
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/exec"
}

func TestRun_Call(t *testing.T) {
	url := newServer(t)
	var out, errOut bytes.Buffer

	err := run([]string{"-url", url, "call", "ADD_SUBJECT", `{"name":"Math"}`}, &out, &errOut)
	require.NoError(t, err)

	var subject map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &subject))
	assert.Equal(t, 1.0, subject["id"])
	assert.Equal(t, "Math", subject["name"])

	out.Reset()
	require.NoError(t, run([]string{"-url", url, "export", "Subjects"}, &out, &errOut))
	assert.JSONEq(t, `[{"id":1,"name":"Math","code":"","teacherId":null}]`, out.String())
}

func TestRun_Errors(t *testing.T) {
	url := newServer(t)
	var out, errOut bytes.Buffer

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no command", []string{"-url", url}, "missing command"},
		{"unknown command", []string{"-url", url, "fly"}, `unknown command "fly"`},
		{"bad payload", []string{"-url", url, "call", "ADD_SUBJECT", "{"}, "payload is not valid JSON"},
		{"login arity", []string{"-url", url, "login", "admin"}, "usage: login USERNAME PASSWORD"},
		{"server error", []string{"-url", url, "call", "FLY"}, "Unknown action: FLY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.args, &out, &errOut)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_Login(t *testing.T) {
	url := newServer(t)
	var out, errOut bytes.Buffer

	require.NoError(t, run([]string{"-url", url, "login", "admin", "secret"}, &out, &errOut))
	assert.Contains(t, out.String(), `"Role": "admin"`)
}
