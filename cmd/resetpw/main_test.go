package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eswan18/passwordreset/pkg/resetform"
)

func stdinWith(t *testing.T, content string) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestRun(t *testing.T) {
	var mu sync.Mutex
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotBody = string(b)
		mu.Unlock()
		if r.URL.Path == "/spent/" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"token":"abc"}`))
	}))
	defer srv.Close()

	tests := []struct {
		name       string
		args       []string
		stdin      string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "success",
			args:       []string{srv.URL + "/ok/"},
			stdin:      "hunter22\nhunter22\n",
			wantCode:   exitOK,
			wantStdout: resetform.SuccessMessage,
		},
		{
			name:       "no trailing newline",
			args:       []string{srv.URL + "/ok/"},
			stdin:      "hunter22\nhunter22",
			wantCode:   exitOK,
			wantStdout: resetform.SuccessMessage,
		},
		{
			name:       "mismatch",
			args:       []string{srv.URL + "/ok/"},
			stdin:      "hunter22\nhunter23\n",
			wantCode:   exitMismatch,
			wantStderr: resetform.MismatchMessage,
		},
		{
			name:       "spent link",
			args:       []string{srv.URL + "/spent/"},
			stdin:      "hunter22\nhunter22\n",
			wantCode:   exitFailed,
			wantStderr: resetform.FailureMessage,
		},
		{
			name:       "missing link",
			args:       nil,
			stdin:      "",
			wantCode:   exitUsage,
			wantStderr: "usage: resetpw",
		},
		{
			name:       "one line only",
			args:       []string{srv.URL + "/ok/"},
			stdin:      "hunter22\n",
			wantCode:   exitFailed,
			wantStderr: "read password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, stdinWith(t, tt.stdin), &stdout, &stderr)

			assert.Equal(t, tt.wantCode, code, stderr.String())
			assert.Contains(t, stdout.String(), tt.wantStdout)
			assert.Contains(t, stderr.String(), tt.wantStderr)
		})
	}

	mu.Lock()
	defer mu.Unlock()
	assert.JSONEq(t, `{"password":"hunter22"}`, gotBody)
}
