package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// baseURL points at a running API instance. The integration suite talks to a
// real server with Postgres and MinIO behind it.
var baseURL = envOr("DOCREPO_TEST_BASE_URL", "http://localhost:8080")

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// skipWithoutServer probes the liveness endpoint and skips the test when no
// server is reachable, so the suite stays runnable from a bare checkout.
func skipWithoutServer(t *testing.T, client *http.Client) {
	t.Helper()

	resp, err := client.Get(baseURL + "/health/live")
	if err != nil {
		t.Skipf("no API server at %s: %v", baseURL, err)
	}
	resp.Body.Close()
}

type loginResult struct {
	User struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	Tokens struct {
		AccessToken string `json:"access_token"`
	} `json:"tokens"`
}

// SetupTestUser registers a fresh user (default VIEWER role) and returns an
// access token for it.
func SetupTestUser(client *http.Client, email, password, username string) (string, error) {
	payload := map[string]string{
		"email":    email,
		"password": password,
		"username": username,
	}

	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", baseURL+"/v1/auth/register", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("failed to register user: %d", resp.StatusCode)
	}

	var result loginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Tokens.AccessToken, nil
}

// SetupViewer registers a throwaway viewer account for the current test.
func SetupViewer(t *testing.T, client *http.Client) string {
	t.Helper()

	email := fmt.Sprintf("test_%s@example.com", uuid.NewString())
	username := fmt.Sprintf("test_%s", uuid.NewString()[:8])

	token, err := SetupTestUser(client, email, "password123", username)
	require.NoError(t, err)

	return token
}

// AdminToken logs in with the seeded admin account. Chunked uploads are
// role-gated, so most flows here need it. Skips when credentials are not
// provided in the environment.
func AdminToken(t *testing.T, client *http.Client) string {
	t.Helper()

	email := os.Getenv("DOCREPO_TEST_ADMIN_EMAIL")
	password := os.Getenv("DOCREPO_TEST_ADMIN_PASSWORD")
	if email == "" || password == "" {
		t.Skip("DOCREPO_TEST_ADMIN_EMAIL / DOCREPO_TEST_ADMIN_PASSWORD not set")
	}

	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", baseURL+"/v1/auth/login", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result loginResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.NotEmpty(t, result.Tokens.AccessToken)

	return result.Tokens.AccessToken
}
