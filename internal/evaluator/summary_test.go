package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gauge/internal/product"
	"github.com/roach88/gauge/internal/record"
	"github.com/roach88/gauge/internal/testutil"
)

func TestSummarize(t *testing.T) {
	def := testutil.MustDefinition(t, []product.Point{
		testutil.RawPoint("a", 3),
		testutil.RawPoint("b", 3),
		testutil.QualitativePoint("visual"),
	})

	t.Run("missing item", func(t *testing.T) {
		results, err := Evaluate(def, map[string]Input{"a": {NameID: "a", Samples: testutil.Singles(10, 20, 30)}}, nil, Options{})
		require.NoError(t, err)

		sum := Summarize(def, results)
		assert.False(t, sum.Complete())
		assert.Equal(t, []string{"b"}, sum.Missing)
		assert.Equal(t, record.SampleNotComplete, sum.SampleStatus)
		assert.True(t, sum.OverallResult)
	})

	t.Run("all ok", func(t *testing.T) {
		results, err := Evaluate(def, map[string]Input{
			"a": {NameID: "a", Samples: testutil.Singles(10, 20, 30)},
			"b": {NameID: "b", Samples: testutil.Singles(10, 20, 30)},
		}, nil, Options{})
		require.NoError(t, err)

		sum := Summarize(def, results)
		assert.True(t, sum.Complete(), "SKIP_CHECK items are optional")
		assert.Equal(t, record.SampleOK, sum.SampleStatus)
		assert.True(t, sum.OverallResult)
	})

	t.Run("one sample out of range", func(t *testing.T) {
		results, err := Evaluate(def, map[string]Input{
			"a": {NameID: "a", Samples: testutil.Singles(10, 20, 30)},
			"b": {NameID: "b", Samples: testutil.Singles(10, 20, 99)},
		}, nil, Options{})
		require.NoError(t, err)

		sum := Summarize(def, results)
		assert.Equal(t, record.SampleNG, sum.SampleStatus)
		assert.False(t, sum.OverallResult)
	})

	t.Run("saved but not judged", func(t *testing.T) {
		results := record.Results{
			"a": {NameID: "a", Samples: testutil.Singles(10)},
		}
		sum := Summarize(def, results)
		assert.Equal(t, []string{"a"}, sum.Unjudged)
		assert.Equal(t, []string{"b"}, sum.Missing)
	})

	t.Run("fewer samples than sample_amount", func(t *testing.T) {
		results, err := Evaluate(def, map[string]Input{
			"a": {NameID: "a", Samples: testutil.Singles(10, 20, 30)},
			"b": {NameID: "b", Samples: testutil.Singles(10)},
		}, nil, Options{})
		require.NoError(t, err)
		require.NotNil(t, results["b"].Status)

		sum := Summarize(def, results)
		assert.False(t, sum.Complete())
		assert.Equal(t, []string{"b"}, sum.Short)
		assert.Empty(t, sum.Missing)
		assert.Empty(t, sum.Unjudged)
		assert.Equal(t, record.SampleNotComplete, sum.SampleStatus)
	})
}
