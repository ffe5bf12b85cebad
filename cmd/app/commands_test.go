package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zeroModel always predicts the dense bias, 0.5 in scaled space.
const zeroModel = `{"name":"zero","window_size":12,
 "layers":[{"units":1,"kernel":[[0,0,0,0]],"recurrent_kernel":[[0,0,0,0]],"bias":[0,0,0,0]}],
 "dense":[{"kernel":[[0]],"bias":[0.5]}]}`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(modelPath, []byte(zeroModel), 0o644))

	cfg := fmt.Sprintf(`
logging:
  level: error
forecast:
  models:
    income: {kind: lstm, path: %q}
    expenses: {kind: lstm, path: %q, name: expenses-zero}
`, modelPath, modelPath)
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestForecastCommandFromStdin(t *testing.T) {
	cfgPath := writeConfig(t)
	req := `{"income":[0,10,20,30,40,50,60,70,80,90,100,110],
	         "expenses":[5,5,5,5,5,5,5,5,5,5,5,15],"last_period":"2024-12"}`

	out, err := execute(t, req, "forecast", "--config", cfgPath)
	require.NoError(t, err)

	var resp struct {
		Income   []float64 `json:"forecasted_income"`
		Expenses []float64 `json:"forecasted_expenses"`
		Periods  []string  `json:"periods"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Income, 12)
	require.Len(t, resp.Expenses, 12)
	for i := range resp.Income {
		assert.InDelta(t, 55.0, resp.Income[i], 1e-9)
		assert.InDelta(t, 10.0, resp.Expenses[i], 1e-9)
	}
	assert.Equal(t, "2025-01", resp.Periods[0])
	assert.Equal(t, "2025-12", resp.Periods[11])
}

func TestForecastCommandFromFile(t *testing.T) {
	cfgPath := writeConfig(t)
	input := filepath.Join(t.TempDir(), "req.json")
	flat := "[1,1,1,1,1,1,1,1,1,1,1,1]"
	require.NoError(t, os.WriteFile(input, []byte(`{"income":`+flat+`,"expenses":`+flat+`}`), 0o644))

	out, err := execute(t, "", "forecast", "--config", cfgPath, "--input", input, "--pretty")
	require.NoError(t, err)
	assert.Contains(t, out, "\n  \"forecasted_income\"")
}

func TestForecastCommandErrors(t *testing.T) {
	cfgPath := writeConfig(t)

	_, err := execute(t, `{"income":[1,2,3],"expenses":[1,2,3]}`, "forecast", "--config", cfgPath)
	assert.ErrorContains(t, err, "insufficient history")

	_, err = execute(t, `{"incme":[]}`, "forecast", "--config", cfgPath)
	assert.ErrorContains(t, err, "decode request")

	_, err = execute(t, `{}`, "forecast", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestModelCommand(t *testing.T) {
	out, err := execute(t, "", "model", "--config", writeConfig(t))
	require.NoError(t, err)

	var info struct {
		Models     map[string]string `json:"models"`
		WindowSize int               `json:"window_size"`
		Steps      int               `json:"steps"`
		Scaling    string            `json:"scaling"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "zero", info.Models["income"])
	assert.Equal(t, "expenses-zero", info.Models["expenses"])
	assert.Equal(t, 12, info.WindowSize)
	assert.Equal(t, "refit", info.Scaling)
}
