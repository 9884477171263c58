package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shavivco/backoffice_backend/config"
	"github.com/shavivco/backoffice_backend/models"
	"github.com/shavivco/backoffice_backend/utils"
	"github.com/shopspring/decimal"
)

// Covers the persisted letter lifecycle end to end: one live draft per
// calculation, append-only send transition, versioning on regeneration and
// tenant isolation between firms.
func TestLetterLifecycle(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "backoffice_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	ctx = utils.SetUsernameInContext(ctx, "test@local")

	firm, err := models.CreateFirm(ctx, &models.NewFirm{Name: "Lifecycle Firm"})
	if err != nil {
		t.Fatalf("CreateFirm: %v", err)
	}
	ctx = utils.SetFirmIdInContext(ctx, firm.ID.String())

	client, err := models.CreateClient(ctx, &models.NewClient{
		Name:             "Lifecycle Client",
		InternalExternal: models.ClientTypeInternal,
	})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	fee, err := models.CreateFeeCalculation(ctx, &models.NewFeeCalculation{
		ClientId:    client.ID,
		Year:        2025,
		BaseAmount:  decimal.NewFromInt(10000),
		FinalAmount: decimal.NewFromInt(10000),
	})
	if err != nil {
		t.Fatalf("CreateFeeCalculation: %v", err)
	}

	input := &models.NewGeneratedLetter{
		ClientId:             client.ID,
		FeeCalculationId:     &fee.ID,
		TemplateType:         "internal_audit_index",
		Stage:                "primary",
		VariablesUsed:        `{"client_name":"Lifecycle Client"}`,
		GeneratedContentHtml: "<p>v1</p>",
	}

	draft, reused, err := models.CreateOrReuseDraftLetter(ctx, input)
	if err != nil {
		t.Fatalf("CreateOrReuseDraftLetter: %v", err)
	}
	if reused {
		t.Fatal("first draft must not be reused")
	}
	if draft.VersionNumber != 1 || draft.IsLatest == nil || !*draft.IsLatest {
		t.Fatalf("draft version=%d is_latest=%v", draft.VersionNumber, draft.IsLatest)
	}

	// Second save reuses the same slot and refreshes the content.
	input.GeneratedContentHtml = "<p>v1-refreshed</p>"
	again, reused, err := models.CreateOrReuseDraftLetter(ctx, input)
	if err != nil {
		t.Fatalf("CreateOrReuseDraftLetter (reuse): %v", err)
	}
	if !reused || again.ID != draft.ID {
		t.Fatalf("expected reuse of draft %d, got %d (reused=%v)", draft.ID, again.ID, reused)
	}
	fetched, err := models.GetLetter(ctx, draft.ID)
	if err != nil {
		t.Fatalf("GetLetter: %v", err)
	}
	if fetched.GeneratedContentHtml != "<p>v1-refreshed</p>" {
		t.Fatalf("draft content not refreshed: %q", fetched.GeneratedContentHtml)
	}

	// Send it.
	sent, err := models.MarkLetterSent(ctx, draft.ID, []string{"a@example.com"})
	if err != nil {
		t.Fatalf("MarkLetterSent: %v", err)
	}
	if sent.SentAt == nil {
		t.Fatal("sent letter must carry sent_at")
	}
	if _, err := models.MarkLetterSent(ctx, draft.ID, []string{"a@example.com"}); err == nil {
		t.Fatal("second send must be rejected")
	}

	// Regeneration after send: new version, old one demoted.
	input.GeneratedContentHtml = "<p>v2</p>"
	v2, reused, err := models.CreateOrReuseDraftLetter(ctx, input)
	if err != nil {
		t.Fatalf("CreateOrReuseDraftLetter (v2): %v", err)
	}
	if reused {
		t.Fatal("sent letter must not be reused as a draft")
	}
	if v2.VersionNumber != 2 {
		t.Fatalf("version = %d", v2.VersionNumber)
	}
	old, err := models.GetLetter(ctx, draft.ID)
	if err != nil {
		t.Fatalf("GetLetter (old): %v", err)
	}
	if old.IsLatest != nil && *old.IsLatest {
		t.Fatal("old version must be demoted")
	}
	if old.Status != models.LetterStatusSentEmail {
		t.Fatalf("demotion must not touch status: %s", old.Status)
	}

	// Another firm sees nothing.
	otherFirm, err := models.CreateFirm(ctx, &models.NewFirm{Name: "Other Firm"})
	if err != nil {
		t.Fatalf("CreateFirm (other): %v", err)
	}
	otherCtx := utils.SetFirmIdInContext(ctx, otherFirm.ID.String())
	if _, err := models.GetLetter(otherCtx, draft.ID); err == nil {
		t.Fatal("tenant guard must hide other firm's letters")
	}
	letters, err := models.ListLetters(otherCtx, fee.ID, false)
	if err != nil {
		t.Fatalf("ListLetters (other): %v", err)
	}
	if len(letters) != 0 {
		t.Fatalf("other firm must see no letters, got %d", len(letters))
	}

	// Fee status enforcement.
	if _, err := models.UpdateFeeStatus(ctx, fee.ID, models.FeeStatusPaid); err == nil {
		t.Fatal("draft -> paid must be rejected")
	}
	if _, err := models.UpdateFeeStatus(ctx, fee.ID, models.FeeStatusSent); err != nil {
		t.Fatalf("draft -> sent: %v", err)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("backoffice-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("backoffice-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=backoffice_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
