package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"syscall"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/saif-ali01/projectXAPI/internal/models"
)

const (
	testAppBinary         = "./ledger_test_app"
	testAppPort           = "8089"
	testServiceApiPortApi = "8091"
	testServiceApiPortBg  = "8092"
	testAppURL            = "http://localhost:" + testAppPort
	testServiceApiURL     = "http://localhost:" + testServiceApiPortApi
	startupTimeout        = 15 * time.Second
	healthEndpoint        = testAppURL + "/api/health"
)

// testDbName isolates each run; TestMain drops it afterwards.
var testDbName = fmt.Sprintf("ledger_integration_%d", time.Now().UnixNano())

// TestMain builds the binary, starts an api process and a bg process against
// a throwaway database, and stops both after the tests.
func TestMain(m *testing.M) {
	defer func() {
		_ = os.Remove(testAppBinary)
	}()

	godotenv.Load()
	if os.Getenv("MONGO_URI") == "" {
		log.Println("MONGO_URI not set, skipping integration tests")
		return
	}

	log.Println("Integration Test Setup: Building application...")
	buildCmd := exec.Command("go", "build", "-o", testAppBinary, ".")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, string(out))
		os.Exit(1)
	}
	defer dropTestDatabase()

	commonEnv := append(os.Environ(),
		"MONGO_DB_NAME="+testDbName,
		"MONGO_TRANSACTIONS=false",
		"JWT_SECRET=integration-test-secret",
		"GIN_MODE=release",
		"EMAIL_MOCK_REDIS=true",
		"SMTP_HOST=",
		"SMTP_FROM_ADDRESS=test@example.com",
		"OUTBOX_INTERVAL_SECONDS=1",
		"RATE_LIMIT_RPS=50",
		"RATE_LIMIT_BURST=100",
		"AWS_S3_BUCKET=",
	)

	apiCmd := exec.Command(testAppBinary, "-m", "api")
	apiCmd.Env = append(commonEnv, "API_PORT="+testAppPort, "SERVICE_API_PORT="+testServiceApiPortApi)
	apiCmd.Stderr = os.Stderr
	apiCmd.Stdout = os.Stdout
	if err := apiCmd.Start(); err != nil {
		log.Printf("Failed to start API process: %v", err)
		os.Exit(1)
	}

	bgCmd := exec.Command(testAppBinary, "-m", "bg")
	bgCmd.Env = append(commonEnv, "SERVICE_API_PORT="+testServiceApiPortBg)
	bgCmd.Stderr = os.Stderr
	bgCmd.Stdout = os.Stdout
	if err := bgCmd.Start(); err != nil {
		_ = apiCmd.Process.Kill()
		log.Printf("Failed to start background process: %v", err)
		os.Exit(1)
	}

	defer func() {
		for _, cmd := range []*exec.Cmd{bgCmd, apiCmd} {
			if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
				_ = cmd.Process.Kill()
				continue
			}
			_, _ = cmd.Process.Wait()
		}
	}()

	if !waitForHealthy() {
		log.Printf("Application failed to start within %v", startupTimeout)
		return
	}
	// The worker has no health endpoint of its own.
	time.Sleep(2 * time.Second)

	exitCode := m.Run()
	log.Printf("Integration Test Teardown: Tests finished with exit code %d.", exitCode)
}

func waitForHealthy() bool {
	deadline := time.Now().Add(startupTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(healthEndpoint)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	return false
}

func dropTestDatabase() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(os.Getenv("MONGO_URI")))
	if err != nil {
		log.Printf("Cleanup: failed to connect to MongoDB: %v", err)
		return
	}
	defer client.Disconnect(ctx)
	if err := client.Database(testDbName).Drop(ctx); err != nil {
		log.Printf("Cleanup: failed to drop %s: %v", testDbName, err)
	}
}

// doJSON sends body (if any) as JSON and decodes the response into a map.
func doJSON(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, testAppURL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", string(raw))
	}
	return resp.StatusCode, out
}

func callServiceAPI(t *testing.T, method string, args []interface{}) (int, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{"method": method, "arguments": args})
	require.NoError(t, err)
	resp, err := http.Post(testServiceApiURL+"/api", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// signupAndLogin registers a fresh user and returns its email and token.
func signupAndLogin(t *testing.T) (string, string) {
	t.Helper()
	email := fmt.Sprintf("user_%d@example.com", time.Now().UnixNano())

	status, body := doJSON(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Integration User", "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, status, "signup: %v", body)

	status, body = doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, status, "login: %v", body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return email, token
}

func TestIntegration_Health(t *testing.T) {
	status, body := doJSON(t, http.MethodGet, "/api/health", "", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "up", checks["mongo"])
	assert.Equal(t, "up", checks["redis"])
}

func TestIntegration_SignupLoginAndMe(t *testing.T) {
	email, token := signupAndLogin(t)

	status, body := doJSON(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, email, body["email"])
	assert.NotContains(t, body, "password")

	status, _ = doJSON(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Integration User", "email": email, "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = doJSON(t, http.MethodGet, "/api/bills", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestIntegration_PasswordResetThroughOutbox(t *testing.T) {
	email, _ := signupAndLogin(t)

	status, body := doJSON(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, status, "forgot-password: %v", body)

	// The mail travels outbox -> asynq -> bg worker -> Redis, so allow a few polls.
	var mail map[string]interface{}
	deadline := time.Now().Add(20 * time.Second)
	for mail == nil && time.Now().Before(deadline) {
		if status, body := callServiceAPI(t, "getTestEmail", []interface{}{models.TemplatePasswordReset, email}); status == http.StatusOK {
			mail, _ = body["data"].(map[string]interface{})
		}
	}
	require.NotNil(t, mail, "password reset email was not delivered")

	match := regexp.MustCompile(`token=([0-9a-f]{40})`).FindStringSubmatch(mail["body"].(string))
	require.Len(t, match, 2, "reset link not found in %q", mail["body"])

	status, body = doJSON(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": match[1], "newPassword": "newsecret456",
	})
	require.Equal(t, http.StatusOK, status, "reset-password: %v", body)

	status, _ = doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "newsecret456"})
	assert.Equal(t, http.StatusOK, status)

	// Tokens are single use.
	status, _ = doJSON(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": match[1], "newPassword": "another789",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestIntegration_BillLifecycleKeepsEarningsInStep(t *testing.T) {
	_, token := signupAndLogin(t)

	bill := map[string]interface{}{
		"partyName":       "Acme Prints",
		"rows":            []map[string]interface{}{{"id": 1, "particulars": "Flyers", "quantity": 100, "rate": 2, "total": 200}},
		"previousBalance": 50,
		"advance":         30,
	}
	status, created := doJSON(t, http.MethodPost, "/api/bills", token, bill)
	require.Equal(t, http.StatusCreated, status, "create bill: %v", created)
	assert.Equal(t, "acme prints", created["partyName"])
	assert.Equal(t, float64(200), created["total"])
	assert.Equal(t, float64(220), created["balance"])
	serial := int64(created["serialNumber"].(float64))
	id := created["id"].(string)

	status, fetched := doJSON(t, http.MethodGet, fmt.Sprintf("/api/bills/serial/%d", serial), token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, id, fetched["id"])

	status, balance := doJSON(t, http.MethodGet, "/api/bills/party/acme", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, balance["matchedPartyNames"], "acme prints")

	// Unpaid bills have no earning yet.
	status, earnings := doJSON(t, http.MethodGet, "/api/earnings", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, earnings["data"])

	bill["status"] = "paid"
	status, updated := doJSON(t, http.MethodPut, "/api/bills/id/"+id, token, bill)
	require.Equal(t, http.StatusOK, status, "update bill: %v", updated)
	assert.Equal(t, float64(0), updated["balance"])

	status, earnings = doJSON(t, http.MethodGet, "/api/earnings", token, nil)
	require.Equal(t, http.StatusOK, status)
	list := earnings["data"].([]interface{})
	require.Len(t, list, 1)
	earning := list[0].(map[string]interface{})
	assert.Equal(t, float64(200), earning["amount"])
	assert.Equal(t, fmt.Sprintf("Bill #%d", serial), earning["source"])

	status, _ = doJSON(t, http.MethodDelete, "/api/bills/id/"+id, token, nil)
	require.Equal(t, http.StatusOK, status)

	status, earnings = doJSON(t, http.MethodGet, "/api/earnings", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, earnings["data"])
}

func TestIntegration_OwnersAreIsolated(t *testing.T) {
	_, alice := signupAndLogin(t)
	_, bob := signupAndLogin(t)

	status, party := doJSON(t, http.MethodPost, "/api/parties", alice, map[string]string{"name": "Private Co"})
	require.Equal(t, http.StatusCreated, status, "create party: %v", party)
	id := party["id"].(string)

	status, _ = doJSON(t, http.MethodGet, "/api/parties/"+id, bob, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, http.MethodDelete, "/api/parties/"+id, bob, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, http.MethodGet, "/api/parties/"+id, alice, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestIntegration_ExpensesDashboardAndReports(t *testing.T) {
	_, token := signupAndLogin(t)
	today := time.Now().UTC().Format("2006-01-02")
	from := time.Now().UTC().AddDate(0, 0, -7).Format("2006-01-02")
	to := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	for _, e := range []map[string]interface{}{
		{"description": "Lunch", "category": "Food", "amount": 120, "type": "Personal"},
		{"description": "Printer ink", "category": "Equipment", "amount": 900, "type": "Professional"},
	} {
		status, body := doJSON(t, http.MethodPost, "/api/expenses", token, e)
		require.Equal(t, http.StatusCreated, status, "create expense: %v", body)
	}

	status, body := doJSON(t, http.MethodPost, "/api/expenses", token, map[string]interface{}{
		"description": "Fuel", "category": "Fuel", "amount": 10, "type": "Personal",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, body["errors"])

	status, summary := doJSON(t, http.MethodGet, "/api/dashboard/summary", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1020), summary["totalExpenses"])

	status, report := doJSON(t, http.MethodGet, "/api/reports?startDate="+from+"&endDate="+to+"&type=category", token, nil)
	require.Equal(t, http.StatusOK, status, "report: %v", report)
	assert.Equal(t, true, report["success"])
	assert.Len(t, report["data"], 2)

	status, report = doJSON(t, http.MethodGet, "/api/reports?startDate=2001-01-01&endDate=2001-01-31&type=monthly", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, report["success"])

	// No bucket is configured for the test processes.
	status, _ = doJSON(t, http.MethodPost, "/api/reports/export", token, map[string]string{
		"startDate": today, "endDate": today, "type": "category",
	})
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
