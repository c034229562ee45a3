package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSLAReportOnEmptyStore(t *testing.T) {
	out, err := run(t, "sla", "report", "--kind", "litigation")
	require.NoError(t, err)

	var report struct {
		Kind   string         `json:"kind"`
		Open   int            `json:"open"`
		Counts map[string]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "litigation", report.Kind)
	assert.Zero(t, report.Open)
}

func TestSLAReportRejectsUnknownKind(t *testing.T) {
	_, err := run(t, "sla", "report", "--kind", "appeal")
	require.Error(t, err)
}

func TestSLASweepWithoutLockRuns(t *testing.T) {
	out, err := run(t, "sla", "sweep")
	require.NoError(t, err)

	var payload struct {
		Ran bool `json:"ran"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.True(t, payload.Ran)
}

func TestMigrateRequiresDSN(t *testing.T) {
	_, err := run(t, "migrate")
	require.EqualError(t, err, "POSTGRES_DSN is required")
}
