package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gauge/internal/engine"
	"github.com/roach88/gauge/internal/footprint"
	"github.com/roach88/gauge/internal/product"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("INVALID_SAMPLES", "sample_index must be between 1 and 3", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_SAMPLES", resp.Error.Code)
	assert.Equal(t, "sample_index must be between 1 and 3", resp.Error.Message)
	assert.Nil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("All products valid")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "All products valid")
}

func TestOutputFormatter_Result(t *testing.T) {
	text := func(w io.Writer) { io.WriteString(w, "rendered") }

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: buf}
		require.NoError(t, f.Result(map[string]int{"n": 1}, text))
		assert.Equal(t, "rendered", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, f.Result(map[string]int{"n": 1}, text))
		assert.NotContains(t, buf.String(), "rendered")
		assert.Contains(t, buf.String(), `"n": 1`)
	})
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"measurement_item_name_id": "thickness_a"}
	err := formatter.Error("INVALID_SAMPLES", "duplicate sample_index", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [INVALID_SAMPLES]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			errBuf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    buf,
				ErrWriter: errBuf,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Processing %s", "bracket.yaml")

			assert.Empty(t, buf.String(), "diagnostics never go to stdout")
			if tt.wantLog {
				assert.Contains(t, errBuf.String(), "Processing bracket.yaml")
			} else {
				assert.Empty(t, errBuf.String())
			}
		})
	}
}

// =============================================================================
// Fail
// =============================================================================

func TestOutputFormatter_FailExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{
			name:     "staleness",
			err:      &footprint.StalenessError{CriticalCount: 1, Warnings: []footprint.Warning{{NameID: "a", Level: footprint.LevelCritical}}},
			wantCode: "VALIDATION_REQUIRED",
			wantExit: ExitFailure,
		},
		{
			name:     "engine error",
			err:      &engine.Error{Code: engine.ErrCodeRecordNotFound, Message: "measurement record r not found"},
			wantCode: "RECORD_NOT_FOUND",
			wantExit: ExitFailure,
		},
		{
			name:     "product file",
			err:      &product.LoadError{Path: "x.toml", Code: product.ErrCodeUnsupported, Message: "unsupported"},
			wantCode: "INVALID_PRODUCT_FILE",
			wantExit: ExitCommandError,
		},
		{
			name:     "internal",
			err:      errors.New("disk I/O error"),
			wantCode: "INTERNAL_ERROR",
			wantExit: ExitCommandError,
		},
		{
			name:     "command",
			err:      NewExitError(ExitCommandError, "failed to read payload"),
			wantCode: ErrCodeCommand,
			wantExit: ExitCommandError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: "json", Writer: buf}

			err := f.Fail(tt.err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "open", errors.New("denied"))))
}
