package layout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frag(x, y float64, text string) TextFragment {
	return TextFragment{X: x, Y: y, Text: text, FontSizePt: 12}
}

func lineTexts(lines []Line) []string {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text()
	}
	return texts
}

func TestCluster_Empty(t *testing.T) {
	assert.Empty(t, Cluster(nil, DefaultClusterOptions()))
	assert.Empty(t, Cluster([]TextFragment{}, DefaultClusterOptions()))
	assert.True(t, IsEmpty(nil))

	err := RequireContent(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyInput))
	assert.NoError(t, RequireContent([]TextFragment{frag(0, 0, "x")}))
}

func TestCluster_LineGrouping(t *testing.T) {
	tests := []struct {
		name      string
		frags     []TextFragment
		wantLines int
	}{
		{
			name:      "within tolerance",
			frags:     []TextFragment{frag(10, 100.04, "Hel"), frag(30, 100.06, "lo")},
			wantLines: 1,
		},
		{
			name:      "one point apart",
			frags:     []TextFragment{frag(10, 100, "a"), frag(10, 101, "b")},
			wantLines: 2,
		},
		{
			name:      "identical baselines",
			frags:     []TextFragment{frag(10, 50, "a"), frag(20, 50, "b"), frag(30, 50, "c")},
			wantLines: 1,
		},
		{
			name: "chained jitter does not merge distinct lines",
			frags: []TextFragment{
				frag(0, 100.0, "a"), frag(0, 100.1, "b"), frag(0, 100.2, "c"), frag(0, 100.3, "d"),
			},
			wantLines: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := Cluster(tt.frags, DefaultClusterOptions())
			assert.Len(t, lines, tt.wantLines)
		})
	}
}

func TestCluster_WithinToleranceText(t *testing.T) {
	lines := Cluster([]TextFragment{frag(30, 100.06, "lo"), frag(10, 100.04, "Hel")}, DefaultClusterOptions())
	require.Len(t, lines, 1)
	assert.Equal(t, "Hello", lines[0].Text())
}

func TestCluster_ReadingOrder(t *testing.T) {
	frags := []TextFragment{
		frag(72, 600, "middle"),
		frag(72, 700, "top"),
		frag(72, 500, "bottom"),
	}

	// Document space grows upwards: descending y is top-to-bottom.
	topDown := Cluster(frags, DefaultClusterOptions())
	assert.Equal(t, []string{"top", "middle", "bottom"}, lineTexts(topDown))

	// Ascending order suits fragments already in preview space.
	ascending := Cluster(frags, ClusterOptions{Tolerance: 0.1, TopDown: false})
	assert.Equal(t, []string{"bottom", "middle", "top"}, lineTexts(ascending))
}

func TestCluster_OrdersWithinLineByX(t *testing.T) {
	frags := []TextFragment{
		frag(200, 400, "world "),
		frag(50, 400, "Hello"),
		frag(120, 400, ", "),
	}
	lines := Cluster(frags, DefaultClusterOptions())
	require.Len(t, lines, 1)
	assert.Equal(t, "Hello, world", lines[0].Text(), "trailing whitespace is trimmed")
}

func TestCluster_StableTieBreak(t *testing.T) {
	frags := []TextFragment{
		frag(10, 100, "first"),
		frag(10, 100, "second"),
		frag(10, 100.04, "third"),
	}
	lines := Cluster(frags, DefaultClusterOptions())
	require.Len(t, lines, 1)
	assert.Equal(t, "firstsecondthird", lines[0].Text())
}

func TestCluster_Deterministic(t *testing.T) {
	frags := []TextFragment{
		frag(10, 700, "a"), frag(5, 700.02, "b"), frag(10, 650, "c"),
		frag(10, 650, "d"), frag(300, 400.3, "e"), frag(1, 400.31, "f"),
		frag(7, 120, "g"), frag(7, 119.96, "h"),
	}

	first := Cluster(frags, DefaultClusterOptions())
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Cluster(frags, DefaultClusterOptions()))
	}
}

func TestCluster_ConfigurableTolerance(t *testing.T) {
	frags := []TextFragment{frag(10, 100, "scan"), frag(40, 101.5, "ned")}

	assert.Len(t, Cluster(frags, DefaultClusterOptions()), 2)
	assert.Len(t, Cluster(frags, ClusterOptions{Tolerance: 2, TopDown: true}), 1)

	// Invalid tolerances fall back to the default.
	assert.Len(t, Cluster(frags, ClusterOptions{Tolerance: -1, TopDown: true}), 2)
}

func TestQuantizeY(t *testing.T) {
	assert.InDelta(t, 100.0, QuantizeY(100.04, 0.1), 1e-9)
	assert.InDelta(t, 100.1, QuantizeY(100.06, 0.1), 1e-9)
	assert.InDelta(t, 102.0, QuantizeY(101.2, 2), 1e-9)
	assert.Equal(t, 0.0, QuantizeY(0, 0))
}

func TestLinesText(t *testing.T) {
	lines := Cluster([]TextFragment{frag(0, 20, "one"), frag(0, 10, "two")}, DefaultClusterOptions())
	assert.Equal(t, "one\ntwo", LinesText(lines))
}
