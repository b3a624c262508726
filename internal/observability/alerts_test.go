package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	jobmetrics "github.com/hisab/hisab-ledger/internal/jobs"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertFile struct {
	Groups []struct {
		Name  string      `yaml:"name"`
		Rules []alertRule `yaml:"rules"`
	} `yaml:"groups"`
}

var metricName = regexp.MustCompile(`hisab_[a-z_]+`)

func loadLedgerRules(t *testing.T) []alertRule {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "ledger.yml"))
	require.NoError(t, err)

	var file alertFile
	require.NoError(t, yaml.Unmarshal(data, &file))
	for _, group := range file.Groups {
		if group.Name == "ledger" {
			return group.Rules
		}
	}
	t.Fatal("ledger alert group missing")
	return nil
}

// registeredNames exercises every collector once so vectors show up in Gather.
func registeredNames(t *testing.T) map[string]bool {
	t.Helper()
	m := NewMetrics()
	m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	_ = m.Jobs().Track("backup:export").End(errors.New("boom"))
	m.Jobs().RecordBackup(jobmetrics.BackupWritten, 10)

	families, err := m.registry.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	return names
}

func TestLedgerAlertRules(t *testing.T) {
	rules := loadLedgerRules(t)
	expected := map[string]string{
		"HighErrorRate": "critical",
		"BackupFailing": "warning",
		"BackupMissing": "warning",
	}
	require.Len(t, rules, len(expected))

	for _, rule := range rules {
		severity, ok := expected[rule.Alert]
		require.True(t, ok, "unexpected rule %q", rule.Alert)
		assert.Equal(t, severity, rule.Labels["severity"], rule.Alert)
		assert.Regexp(t, `^docs/runbook-ledger\.md#[a-z-]+$`, rule.Annotations["runbook"], rule.Alert)
		assert.NotEmpty(t, rule.Annotations["summary"], rule.Alert)
		assert.NotEmpty(t, rule.Annotations["description"], rule.Alert)
		assert.NotEmpty(t, rule.For, rule.Alert)
	}
}

func TestLedgerAlertRulesQueryExportedMetrics(t *testing.T) {
	names := registeredNames(t)
	for _, rule := range loadLedgerRules(t) {
		used := metricName.FindAllString(rule.Expr, -1)
		require.NotEmpty(t, used, rule.Alert)
		for _, name := range used {
			assert.True(t, names[name], "%s queries unknown metric %s", rule.Alert, name)
		}
	}
}
