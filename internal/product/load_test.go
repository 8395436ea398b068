package product

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Formats(t *testing.T) {
	var versions []string
	for _, name := range []string{"bracket.json", "bracket.yaml", "bracket.cue"} {
		t.Run(name, func(t *testing.T) {
			doc, err := LoadFile(filepath.Join("testdata", name))
			require.NoError(t, err)
			assert.Equal(t, "bracket", doc.ID)
			assert.Equal(t, "Mounting bracket", doc.Name)
			require.Len(t, doc.MeasurementPoints, 2)

			def, err := Validate(doc.MeasurementPoints)
			require.NoError(t, err)
			assert.Equal(t, []string{"thickness_a", "thickness_b"}, def.NameIDs())
			assert.Equal(t, "(avg(thickness_a)+avg(thickness_b))/2", def.Items[1].Variables[0].Formula.Normalized)
			versions = append(versions, def.Version)
		})
	}

	// The three encodings describe the same definition.
	require.Len(t, versions, 3)
	assert.Equal(t, versions[0], versions[1])
	assert.Equal(t, versions[0], versions[2])
}

func TestLoadFile_BarePointList(t *testing.T) {
	doc, err := LoadFile(filepath.Join("testdata", "points.yaml"))
	require.NoError(t, err)
	require.Len(t, doc.MeasurementPoints, 1)
	assert.Equal(t, "Width", doc.MeasurementPoints[0].Setup.Name)

	doc, err = Decode("inline.json", []byte(`[{"setup":{"name":"Width","sample_amount":1,"source":"MANUAL"},"evaluation_type":"SKIP_CHECK","rule_evaluation_setting":null}]`))
	require.NoError(t, err)
	require.Len(t, doc.MeasurementPoints, 1)
}

func TestLoadFile_UnknownFieldRejected(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "unknown_field.yaml"))
	require.Error(t, err)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeDecodeFailed, le.Code)
	assert.Contains(t, err.Error(), "colour")
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "missing.json"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeReadFailed, le.Code)

	_, err = Decode("product.toml", []byte("x = 1"))
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeUnsupported, le.Code)

	_, err = Decode("broken.cue", []byte("measurement_points: [\n"))
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeDecodeFailed, le.Code)
	assert.True(t, IsLoadError(err))
}
