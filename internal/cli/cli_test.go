package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/protera/launchsync/internal/aws"
	"github.com/protera/launchsync/internal/config"
	"github.com/protera/launchsync/internal/models"
	"github.com/protera/launchsync/internal/reporter"
)

type mockAWSClient struct {
	configs   map[string]*models.ActualConfigurationState
	templates map[string]*models.ActualTemplateState
	stateErr  error

	created  []models.TemplatePatch
	promoted []string
	updated  []string
}

func (m *mockAWSClient) ActualState(_ context.Context, serverID string) (*models.ActualConfigurationState, *models.ActualTemplateState, error) {
	if m.stateErr != nil {
		return nil, nil, m.stateErr
	}
	return m.configs[serverID], m.templates[serverID], nil
}

func (m *mockAWSClient) CreateTemplateVersion(_ context.Context, patch models.TemplatePatch) (int64, error) {
	m.created = append(m.created, patch)
	return patch.SourceVersion + 1, nil
}

func (m *mockAWSClient) PromoteDefaultVersion(_ context.Context, templateID string, _ int64) error {
	m.promoted = append(m.promoted, templateID)
	return nil
}

func (m *mockAWSClient) UpdateConfiguration(_ context.Context, serverID string, _ models.ConfigurationPatch) error {
	m.updated = append(m.updated, serverID)
	return nil
}

func (m *mockAWSClient) Snapshot(_ context.Context, _ []string) ([]aws.ServerSnapshot, error) {
	return []aws.ServerSnapshot{
		{SourceServerID: "s-1111", LaunchDisposition: "STOPPED", TemplateID: "lt-aaa"},
	}, nil
}

func testSetup(t *testing.T) {
	t.Helper()
	setupOnce.Do(func() {
		setup(&config.Config{
			AWSRegion:    "us-east-1",
			Concurrency:  4,
			Timeout:      30 * time.Second,
			OutputFormat: "text",
			LogLevel:     "error",
			MaxRetries:   3,
			RetryDelay:   time.Second,
		})
	})
	timeout = 30 * time.Second
	concurrency = 4
	outputFmt = "text"
	logLevel = "error"
	serverIDs = nil
	snapshotOut = ""
}

func writeDesiredState(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "servers.hcl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const testHCL = `
server "s-1111" {
  hostname     = "app01"
  launch_state = "STARTED"
}
`

func testActual() (*models.ActualConfigurationState, *models.ActualTemplateState) {
	return &models.ActualConfigurationState{
			SourceServerID:    "s-1111",
			LaunchDisposition: "STOPPED",
			RightsizingMethod: "NONE",
			TemplateID:        "lt-aaa",
		}, &models.ActualTemplateState{
			TemplateID: "lt-aaa",
			Version:    4,
			TagSpecs: []models.TagSpec{{
				ResourceType: "instance",
				Tags:         []models.Tag{{Key: "protera_status", Value: "newbuild"}},
			}},
		}
}

func TestNewDefaultApp(t *testing.T) {
	app := newDefaultApp()
	if app == nil {
		t.Fatal("newDefaultApp returned nil")
	}
	if app.Output == nil {
		t.Error("Output should not be nil")
	}
	if app.NewAWSClient == nil {
		t.Error("NewAWSClient should not be nil")
	}
}

func TestGetReporter(t *testing.T) {
	testSetup(t)

	t.Run("returns default reporter when not set", func(t *testing.T) {
		defaultApp.Reporter = nil
		r, err := getReporter(newFactory(false))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r == nil {
			t.Error("getReporter returned nil")
		}
	})

	t.Run("returns custom reporter when set", func(t *testing.T) {
		custom, err := reporter.New(&bytes.Buffer{}, "json")
		if err != nil {
			t.Fatal(err)
		}
		defaultApp.Reporter = custom
		r, err := getReporter(newFactory(false))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r != custom {
			t.Error("getReporter should return custom reporter")
		}
		defaultApp.Reporter = nil
	})
}

func TestGetAWSClient(t *testing.T) {
	testSetup(t)

	mockClient := &mockAWSClient{}
	defaultApp.AWSClient = mockClient
	c, err := getAWSClient(context.Background(), newFactory(false))
	if err != nil {
		t.Errorf("getAWSClient returned error: %v", err)
	}
	if c != mockClient {
		t.Error("getAWSClient should return custom client")
	}
	defaultApp.AWSClient = nil
}

func TestNewFactory_CarriesRetrySettings(t *testing.T) {
	testSetup(t)

	prev := appCfg
	appCfg = &config.Config{MaxRetries: 7, RetryDelay: 2 * time.Second}
	defer func() { appCfg = prev }()

	cfg := newFactory(false).Config()
	if cfg.RetryConfig.MaxAttempts != 7 {
		t.Errorf("MaxAttempts = %d, want 7", cfg.RetryConfig.MaxAttempts)
	}
	if cfg.RetryConfig.InitialDelay != 2*time.Second {
		t.Errorf("InitialDelay = %v, want 2s", cfg.RetryConfig.InitialDelay)
	}
	if cfg.RetryConfig.ShouldRetry == nil {
		t.Error("retry predicate should be set")
	}
}

func TestReconcileWith_MissingDesiredFile(t *testing.T) {
	testSetup(t)

	desiredPath = "/nonexistent/servers.hcl"
	if err := reconcileWith(false); err == nil {
		t.Error("expected error for nonexistent desired-state file")
	}
}

func TestReconcileWith_EmptyDesiredFile(t *testing.T) {
	testSetup(t)

	desiredPath = writeDesiredState(t, "\n")
	if err := reconcileWith(false); err == nil {
		t.Error("expected error for an empty desired-state file")
	}
}

func TestReconcileWith_Success(t *testing.T) {
	testSetup(t)

	cfg, tmpl := testActual()
	mockClient := &mockAWSClient{
		configs:   map[string]*models.ActualConfigurationState{"s-1111": cfg},
		templates: map[string]*models.ActualTemplateState{"s-1111": tmpl},
	}

	var buf bytes.Buffer
	defaultApp.AWSClient = mockClient
	defaultApp.Output = &buf
	defer func() {
		defaultApp.AWSClient = nil
		defaultApp.Output = os.Stdout
	}()

	desiredPath = writeDesiredState(t, testHCL)
	if err := reconcileWith(false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mockClient.updated) != 1 || mockClient.updated[0] != "s-1111" {
		t.Errorf("updated = %v, want [s-1111]", mockClient.updated)
	}
	if len(mockClient.created) != 0 {
		t.Errorf("no template change requested, but versions were created: %v", mockClient.created)
	}
	if !strings.Contains(buf.String(), "s-1111") {
		t.Errorf("report output missing server ID:\n%s", buf.String())
	}
}

func TestReconcileWith_DryRun(t *testing.T) {
	testSetup(t)

	cfg, tmpl := testActual()
	mockClient := &mockAWSClient{
		configs:   map[string]*models.ActualConfigurationState{"s-1111": cfg},
		templates: map[string]*models.ActualTemplateState{"s-1111": tmpl},
	}

	var buf bytes.Buffer
	defaultApp.AWSClient = mockClient
	defaultApp.Output = &buf
	defer func() {
		defaultApp.AWSClient = nil
		defaultApp.Output = os.Stdout
	}()

	desiredPath = writeDesiredState(t, testHCL)
	if err := reconcileWith(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mockClient.updated) != 0 || len(mockClient.created) != 0 {
		t.Error("dry run must not touch AWS")
	}
	if !strings.Contains(buf.String(), "would update") {
		t.Errorf("dry-run output should say \"would update\":\n%s", buf.String())
	}
}

func TestReconcileWith_FailuresExitNonZero(t *testing.T) {
	testSetup(t)

	mockClient := &mockAWSClient{
		configs:   map[string]*models.ActualConfigurationState{},
		templates: map[string]*models.ActualTemplateState{},
	}

	var buf bytes.Buffer
	defaultApp.AWSClient = mockClient
	defaultApp.Output = &buf
	defer func() {
		defaultApp.AWSClient = nil
		defaultApp.Output = os.Stdout
	}()

	// Actual state is missing, so the server fails but the run completes.
	desiredPath = writeDesiredState(t, testHCL)
	err := reconcileWith(false)
	if err == nil {
		t.Fatal("expected error when servers fail")
	}
	if !strings.Contains(err.Error(), "1 of 1 servers failed") {
		t.Errorf("error = %q, want failure count", err.Error())
	}
}

func TestRunSnapshot(t *testing.T) {
	testSetup(t)

	var buf bytes.Buffer
	defaultApp.AWSClient = &mockAWSClient{}
	defaultApp.Output = &buf
	defer func() {
		defaultApp.AWSClient = nil
		defaultApp.Output = os.Stdout
	}()

	if err := runSnapshot(nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var snapshots []aws.ServerSnapshot
	if err := json.Unmarshal(buf.Bytes(), &snapshots); err != nil {
		t.Fatalf("snapshot output is not valid JSON: %v", err)
	}
	if len(snapshots) != 1 || snapshots[0].SourceServerID != "s-1111" {
		t.Errorf("snapshots = %+v, want one for s-1111", snapshots)
	}
}

func TestRunSnapshot_ToFile(t *testing.T) {
	testSetup(t)

	defaultApp.AWSClient = &mockAWSClient{}
	defer func() { defaultApp.AWSClient = nil }()

	path := filepath.Join(t.TempDir(), "snapshot.json")
	snapshotOut = path
	defer func() { snapshotOut = "" }()

	if err := runSnapshot(nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("snapshot file not written: %v", err)
	}
	var snapshots []aws.ServerSnapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		t.Fatalf("snapshot file is not valid JSON: %v", err)
	}
}
