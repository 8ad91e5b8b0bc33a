package edm

import (
	"testing"

	"goedm/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataset_ColumnIsView(t *testing.T) {
	ds, err := DatasetFromRows([][]float32{
		{1, 10},
		{2, 20},
		{3, 30},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, 2, ds.Cols())
	assert.Equal(t, Sequence{10, 20, 30}, ds.Column(1))

	col := ds.Column(0)
	col[1] = 42
	assert.Equal(t, float32(42), ds.At(1, 0), "column must share storage with the dataset")

	assert.Equal(t, [][]float32{{1, 10}, {42, 20}, {3, 30}}, ds.Records())
}

func TestDatasetFromColumns_RejectsRaggedInput(t *testing.T) {
	_, err := DatasetFromColumns(Sequence{1, 2, 3}, Sequence{1, 2})
	require.Error(t, err)
	assert.True(t, core.IsShapeError(err))

	_, err = DatasetFromColumns()
	assert.True(t, core.IsInvalidArgument(err))
}

func TestDatasetFromRows_RejectsRaggedInput(t *testing.T) {
	_, err := DatasetFromRows([][]float32{{1, 2}, {3}})
	assert.True(t, core.IsShapeError(err))
}

func TestParams_Derived(t *testing.T) {
	p := Params{E: 3, Tau: 2, Tp: 1}
	assert.Equal(t, 5, p.Shift())
	assert.Equal(t, 4, p.Span())
	assert.Equal(t, 15, p.LibraryPoints(20))
	assert.Equal(t, 16, p.PredictionLength(20))
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		message string
	}{
		{"non-positive E", Params{E: -1, Tau: 1, Tp: 1}, "E must be greater than zero"},
		{"non-positive tau", Params{E: 2, Tau: -1, Tp: 1}, "tau must be greater than zero"},
		{"negative Tp", Params{E: 2, Tau: 1, Tp: -1}, "Tp must be greater or equal to zero"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			require.Error(t, err)
			assert.True(t, core.IsInvalidArgument(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	assert.NoError(t, Params{E: 1, Tau: 1, Tp: 0}.Validate())
}

func TestParams_ValidateLengths(t *testing.T) {
	p := Params{E: 1, Tau: 1, Tp: 1}
	assert.ErrorIs(t, p.ValidateLengths(1, 10, 2), core.ErrLibraryTooSmall)

	p = Params{E: 2, Tau: 1, Tp: 1}
	assert.ErrorIs(t, p.ValidateLengths(10, 1, 3), core.ErrTargetTooSmall)

	// top_k larger than the number of library points
	assert.ErrorIs(t, p.ValidateLengths(4, 10, 3), core.ErrLibraryTooSmall)
	assert.NoError(t, p.ValidateLengths(5, 10, 3))
}

func TestGroupByEmbedding(t *testing.T) {
	groups := GroupByEmbedding([]int{2, 1, 2, 4})
	assert.Equal(t, 4, groups.MaxE())
	assert.Equal(t, []int{1}, groups.Columns(1))
	assert.Equal(t, []int{0, 2}, groups.Columns(2))
	assert.Empty(t, groups.Columns(3))
	assert.Equal(t, []int{3}, groups.Columns(4))
	assert.Nil(t, groups.Columns(5))
}

func TestCrossMap(t *testing.T) {
	cm := NewCrossMap(2)
	cm.Set(0, 1, 0.5)
	cm.Row(1)[0] = 0.25

	assert.Equal(t, 2, cm.Size())
	assert.Equal(t, float32(0.5), cm.At(0, 1))
	assert.Equal(t, [][]float32{{0, 0.5}, {0.25, 0}}, cm.Matrix())
}
