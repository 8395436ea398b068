package product

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// Load error codes (E100-E199).
const (
	ErrCodeReadFailed   = "E101"
	ErrCodeUnsupported  = "E102"
	ErrCodeDecodeFailed = "E103"
)

// LoadError reports a product file that could not be read or decoded.
type LoadError struct {
	Path    string
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLoadError reports whether err wraps a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// LoadFile reads a product file. The format follows the extension: .json,
// .yaml, .yml or .cue.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Code: ErrCodeReadFailed, Message: err.Error()}
	}
	return Decode(path, data)
}

// Decode decodes data according to the extension of name. A file holds
// either a Document or a bare list of measurement points.
func Decode(name string, data []byte) (*Document, error) {
	var (
		doc *Document
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		doc, err = decodeJSON(data)
	case ".yaml", ".yml":
		doc, err = decodeYAML(data)
	case ".cue":
		return decodeCUE(name, data)
	default:
		return nil, &LoadError{Path: name, Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported file type %q (want .json, .yaml, .yml or .cue)", filepath.Ext(name))}
	}
	if err != nil {
		return nil, &LoadError{Path: name, Code: ErrCodeDecodeFailed, Message: err.Error()}
	}
	return doc, nil
}

func decodeJSON(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var points []Point
		if err := dec.Decode(&points); err != nil {
			return nil, err
		}
		return &Document{MeasurementPoints: points}, nil
	}
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func decodeYAML(data []byte) (*Document, error) {
	var probe yaml.Node
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	isList := len(probe.Content) > 0 && probe.Content[0].Kind == yaml.SequenceNode

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if isList {
		var points []Point
		if err := dec.Decode(&points); err != nil {
			return nil, err
		}
		return &Document{MeasurementPoints: points}, nil
	}
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func decodeCUE(name string, data []byte) (*Document, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(name))
	if err := value.Err(); err != nil {
		return nil, cueLoadError(name, "compiling CUE", err)
	}

	var doc Document
	points := value.LookupPath(cue.ParsePath("measurement_points"))
	if !points.Exists() {
		return nil, &LoadError{Path: name, Code: ErrCodeDecodeFailed, Message: "measurement_points not found"}
	}
	if err := points.Decode(&doc.MeasurementPoints); err != nil {
		return nil, cueLoadError(name, "decoding measurement_points", err)
	}
	for _, f := range []struct {
		path string
		dst  *string
	}{{"id", &doc.ID}, {"product_name", &doc.Name}} {
		v := value.LookupPath(cue.ParsePath(f.path))
		if !v.Exists() {
			continue
		}
		s, err := v.String()
		if err != nil {
			return nil, cueLoadError(name, "decoding "+f.path, err)
		}
		*f.dst = s
	}
	return &doc, nil
}

func cueLoadError(name, what string, err error) *LoadError {
	le := &LoadError{Path: name, Code: ErrCodeDecodeFailed, Message: fmt.Sprintf("%s: %v", what, err)}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		le.Pos = errs[0].Position()
	}
	return le
}
