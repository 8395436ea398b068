package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/gauge/internal/engine"
	"github.com/roach88/gauge/internal/evaluator"
	"github.com/roach88/gauge/internal/record"
	"github.com/roach88/gauge/internal/store"
)

// StdinPath reads a payload from standard input.
const StdinPath = "-"

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	if opts.Verbose && level > slog.LevelInfo {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openEngine opens the database named by --db and returns an engine over
// it. The caller must call the returned close function.
func openEngine(opts *RootOptions, cmd *cobra.Command) (*engine.Engine, func(), error) {
	logger := newLogger(opts, cmd.ErrOrStderr())
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("database ready", "path", opts.Database)

	eng := engine.New(st, engine.WithLogger(logger))
	closeFn := func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}
	return eng, closeFn, nil
}

// readFile reads path, or standard input when path is StdinPath.
func readFile(cmd *cobra.Command, path string) ([]byte, error) {
	if path == StdinPath {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// decodePayload decodes a JSON or YAML payload into v. YAML is converted
// to JSON first so samples go through the same lenient decoding.
func decodePayload(name string, data []byte, v any) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return err
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		data = converted
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isList(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '-')
}

// LoadCheckInput reads the samples of one item. The payload is either a
// list of samples or an object with samples and variable_values.
func LoadCheckInput(cmd *cobra.Command, item, path string) (evaluator.Input, error) {
	in := evaluator.Input{NameID: item}
	data, err := readFile(cmd, path)
	if err != nil {
		return in, WrapExitError(ExitCommandError, "failed to read samples", err)
	}
	if isList(data) {
		var samples []record.Sample
		if err := decodePayload(path, data, &samples); err != nil {
			return in, invalidPayload(path, err)
		}
		in.Samples = samples
		return in, nil
	}
	var body struct {
		Samples        []record.Sample     `json:"samples"`
		VariableValues []record.NamedValue `json:"variable_values"`
	}
	if err := decodePayload(path, data, &body); err != nil {
		return in, invalidPayload(path, err)
	}
	in.Samples, in.VariableValues = body.Samples, body.VariableValues
	return in, nil
}

// LoadSaveRequest reads a save or submit payload: either a SaveRequest
// object or a bare list of measurement results.
func LoadSaveRequest(cmd *cobra.Command, path string) (engine.SaveRequest, error) {
	var req engine.SaveRequest
	data, err := readFile(cmd, path)
	if err != nil {
		return req, WrapExitError(ExitCommandError, "failed to read payload", err)
	}
	if isList(data) {
		err = decodePayload(path, data, &req.MeasurementResults)
	} else {
		err = decodePayload(path, data, &req)
	}
	if err != nil {
		return req, invalidPayload(path, err)
	}
	return req, nil
}

func invalidPayload(path string, err error) error {
	return &engine.Error{
		Code:    engine.ErrCodeInvalidSamples,
		Message: fmt.Sprintf("decoding %s: %v", path, err),
		Details: map[string]any{"path": path},
	}
}
