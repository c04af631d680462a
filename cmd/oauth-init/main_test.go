package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestCallbackHandler(t *testing.T) {
	codes := make(chan string, 1)
	h := callbackHandler("st", codes)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"provider error", "?error=access_denied", http.StatusBadRequest},
		{"wrong state", "?state=other&code=c", http.StatusBadRequest},
		{"missing code", "?state=st", http.StatusBadRequest},
		{"ok", "?state=st&code=abc", http.StatusOK},
		{"second code", "?state=st&code=def", http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, "abc", <-codes)
}

func TestSaveToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, saveToken(path, tok))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got oauth2.Token
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "r", got.RefreshToken)
}

func TestClientCredentials(t *testing.T) {
	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", "")
	t.Setenv("GOOGLE_OAUTH_CLIENT_FILE", "")
	_, err := clientCredentials()
	assert.Error(t, err)

	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", `{"installed":{}}`)
	b, err := clientCredentials()
	require.NoError(t, err)
	assert.JSONEq(t, `{"installed":{}}`, string(b))
}
