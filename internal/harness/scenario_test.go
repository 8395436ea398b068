package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gauge/internal/record"
)

var scenariosDir = filepath.Join("..", "..", "testdata", "scenarios")

// writeScenario writes a scenario next to a placeholder product file and
// returns its path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "product.yaml"), []byte("measurement_points: []\n"), 0644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
product: product.yaml
steps:
  - op: check
    item: thickness_a
    samples: [1, 2]
  - op: save
    results:
      - {item: thickness_a, samples: [1, 2]}
    expect: {ok: true, status: IN_PROGRESS}
assertions:
  - type: record
    expect: {status: IN_PROGRESS}
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "product.yaml"), scenario.Product)
	assert.Equal(t, DefaultBatch, scenario.Batch)
	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, OpCheck, scenario.Steps[0].Op)
	assert.Equal(t, "thickness_a", scenario.Steps[0].Item)
	require.NotNil(t, scenario.Steps[1].Expect)
	assert.True(t, scenario.Steps[1].Expect.OK)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MissingProductFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: x
description: "x"
product: absent.yaml
steps:
  - {op: check, item: a}
`), 0644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product file not found")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nproduct: p.yaml\nsteps: [{op: check, item: a}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nproduct: p.yaml\nsteps: [{op: check, item: a}]",
			wantErr: "description is required",
		},
		{
			name:    "missing product",
			content: "name: n\ndescription: d\nsteps: [{op: check, item: a}]",
			wantErr: "product is required",
		},
		{
			name:    "no steps",
			content: "name: n\ndescription: d\nproduct: p.yaml\nsteps: []",
			wantErr: "steps list is required",
		},
		{
			name:    "missing op",
			content: "name: n\ndescription: d\nproduct: p.yaml\nsteps: [{item: a}]",
			wantErr: "steps[0]: op is required",
		},
		{
			name:    "unknown op",
			content: "name: n\ndescription: d\nproduct: p.yaml\nsteps: [{op: delete}]",
			wantErr: `steps[0]: unknown op "delete"`,
		},
		{
			name:    "check without item",
			content: "name: n\ndescription: d\nproduct: p.yaml\nsteps: [{op: check}]",
			wantErr: "item is required for check",
		},
		{
			name:    "save with item",
			content: "name: n\ndescription: d\nproduct: p.yaml\nsteps: [{op: save, item: a}]",
			wantErr: "save takes results",
		},
		{
			name:    "result without item",
			content: "name: n\ndescription: d\nproduct: p.yaml\nsteps: [{op: submit, results: [{samples: [1]}]}]",
			wantErr: "steps[0].results[0]: item is required",
		},
		{
			name:    "expect both ok and code",
			content: "name: n\ndescription: d\nproduct: p.yaml\nsteps: [{op: check, item: a, expect: {ok: true, code: X}}]",
			wantErr: "exactly one of ok and code",
		},
		{
			name:    "warnings on success",
			content: "name: n\ndescription: d\nproduct: p.yaml\nsteps: [{op: check, item: a, expect: {ok: true, critical_count: 1}}]",
			wantErr: "need a code",
		},
		{
			name:    "item assertion without item",
			content: "name: n\ndescription: d\nproduct: p.yaml\nsteps: [{op: check, item: a}]\nassertions: [{type: item, expect: {status: true}}]",
			wantErr: "assertions[0]: item is required",
		},
		{
			name:    "unknown assertion type",
			content: "name: n\ndescription: d\nproduct: p.yaml\nsteps: [{op: check, item: a}]\nassertions: [{type: trace, expect: {x: 1}}]",
			wantErr: `unknown assertion type "trace"`,
		},
		{
			name:    "assertion without expect",
			content: "name: n\ndescription: d\nproduct: p.yaml\nsteps: [{op: check, item: a}]\nassertions: [{type: record}]",
			wantErr: "assertions[0]: expect is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_MalformedYAML(t *testing.T) {
	_, err := ParseScenario([]byte("name: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_UnknownFieldsRejected(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"top level", "name: n\ndescription: d\nproduct: p.yaml\nflow: []\nsteps: [{op: check, item: a}]"},
		{"step", "name: n\ndescription: d\nproduct: p.yaml\nsteps: [{op: check, itme: a}]"},
		{"expect", "name: n\ndescription: d\nproduct: p.yaml\nsteps: [{op: check, item: a, expect: {okay: true}}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err, "typos must not be silently ignored")
		})
	}
}

func TestParseScenario_KeepsBatch(t *testing.T) {
	s, err := ParseScenario([]byte("name: n\ndescription: d\nproduct: p.yaml\nbatch: B-9\nsteps: [{op: check, item: a}]"))
	require.NoError(t, err)
	assert.Equal(t, "B-9", s.Batch)
}

func TestParseSamples(t *testing.T) {
	samples, err := ParseSamples([]any{25, "26.5", 27.25, []any{10, "12"}, "scratched"})
	require.NoError(t, err)
	require.Len(t, samples, 5)

	for i, s := range samples {
		assert.Equal(t, i+1, s.Index)
	}
	assert.Equal(t, record.SingleValue(25), samples[0].Value)
	assert.Equal(t, record.SingleValue(26.5), samples[1].Value)
	assert.Equal(t, record.SingleValue(27.25), samples[2].Value)
	assert.Equal(t, record.BeforeAfterValue{Before: 10, After: 12}, samples[3].Value)
	assert.Equal(t, record.QualitativeValue("scratched"), samples[4].Value)
}

func TestParseSamples_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		values  []any
		wantErr string
	}{
		{"null", []any{nil}, "sample 1"},
		{"boolean", []any{1, true}, "sample 2"},
		{"short pair", []any{[]any{1}}, "needs 2 values"},
		{"non-numeric pair", []any{[]any{1, "x"}}, "after"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSamples(tt.values)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseSamples_Empty(t *testing.T) {
	samples, err := ParseSamples(nil)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestAssertionConstants(t *testing.T) {
	assert.Equal(t, "record", AssertRecord)
	assert.Equal(t, "item", AssertItem)
}

func TestLoadExampleScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join(scenariosDir, "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.NotEmpty(t, scenario.Steps)
		})
	}
}
