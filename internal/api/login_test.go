package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	tests := []struct {
		name         string
		data         LoginData
		expectedBody string
	}{
		{
			name:         "Plain credentials",
			data:         LoginData{Username: "bob", Password: "pw"},
			expectedBody: "username=bob&password=pw&grant_type=password",
		},
		{
			name:         "Reserved characters are escaped",
			data:         LoginData{Username: "bob smith@example.com", Password: "p&w=1"},
			expectedBody: "username=bob%20smith%40example.com&password=p%26w%3D1&grant_type=password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, seen := newBackend(t, http.StatusOK, `{"access_token":"abc","token_type":"bearer"}`)
			client, _, notifier, _ := newTestClient(srv.URL)

			resp, err := client.Login(context.Background(), tt.data)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.Status)
			assert.JSONEq(t, `{"access_token":"abc","token_type":"bearer"}`, string(resp.Body))

			got := seen.snapshot()
			assert.Equal(t, http.MethodPost, got.method)
			assert.Equal(t, TokenPath, got.path)
			assert.Equal(t, tt.expectedBody, got.body)
			assert.Equal(t, "application/x-www-form-urlencoded", got.header.Get("Content-Type"))
			assert.Equal(t, "Basic bXljbGllbnRpZDpteWNsaWVudHNlY3JldA==", got.header.Get("Authorization"))
			assert.Empty(t, notifier.errors)
		})
	}
}

func TestLoginUsesConfiguredClientIdentity(t *testing.T) {
	srv, seen := newBackend(t, http.StatusOK, `{"access_token":"abc"}`)
	client, _, _, _ := newTestClient(srv.URL, WithClientCredentials("app", "s3cret"))

	_, err := client.Login(context.Background(), LoginData{Username: "bob", Password: "pw"})
	require.NoError(t, err)

	// base64("app:s3cret")
	assert.Equal(t, "Basic YXBwOnMzY3JldA==", seen.snapshot().header.Get("Authorization"))
}

func TestLoginFailureGoesThroughInterceptor(t *testing.T) {
	srv, _ := newBackend(t, http.StatusUnauthorized, `{"error":"unauthorized"}`)
	client, store, notifier, navigator := newTestClient(srv.URL)

	_, err := client.Login(context.Background(), LoginData{Username: "bob", Password: "wrong"})
	require.Error(t, err)

	failure, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, failure.Status())
	assert.Equal(t, TokenPath, failure.Config.URL)
	assert.Equal(t, []string{MessageUnauthorized}, notifier.errors)
	assert.Empty(t, navigator.paths)

	// login never writes the store by itself
	_, getErr := store.Get(context.Background())
	assert.Error(t, getErr)
}

func TestDecodeSession(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expectedErr string
	}{
		{name: "Valid", body: `{"access_token":"abc","token_type":"bearer","expires_in":3600,"userId":3}`},
		{name: "Missing access token", body: `{"token_type":"bearer"}`, expectedErr: "invalid token response"},
		{name: "Empty access token", body: `{"access_token":""}`, expectedErr: "invalid token response"},
		{name: "Not JSON", body: `<html>`, expectedErr: "failed to parse token response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := DecodeSession(&Response{Status: http.StatusOK, Body: []byte(tt.body)})
			if tt.expectedErr != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "abc", session.AccessToken)
			assert.Equal(t, int64(3600), session.ExpiresIn)
			assert.False(t, session.IssuedAt.IsZero())
			assert.Equal(t, float64(3), session.Extra["userId"])
		})
	}
}
