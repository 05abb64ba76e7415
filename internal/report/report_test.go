package report_test

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/paveg/segmentation/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterCounts(t *testing.T) {
	counts := report.ClusterCounts([]int{2, 0, 1, 2, 3, 0, 2, 1})
	assert.Equal(t, []report.ClusterCount{
		{Cluster: 2, Count: 3},
		{Cluster: 0, Count: 2},
		{Cluster: 1, Count: 2},
		{Cluster: 3, Count: 1},
	}, counts)

	assert.Empty(t, report.ClusterCounts(nil))
}

func TestWriteClusterCounts(t *testing.T) {
	var buf bytes.Buffer
	err := report.WriteClusterCounts(&buf, []report.ClusterCount{
		{Cluster: 1, Count: 31},
		{Cluster: 0, Count: 27},
		{Cluster: 3, Count: 22},
		{Cluster: 2, Count: 20},
	})
	require.NoError(t, err)

	expected := "Cluster\n" +
		"1    31\n" +
		"0    27\n" +
		"3    22\n" +
		"2    20\n" +
		"Name: count, dtype: int64\n"
	assert.Equal(t, expected, buf.String())
}

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), len(pngMagic))
	assert.Equal(t, pngMagic, data[:len(pngMagic)])
}

func TestScatterClusters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "clusters.png")

	x := []float64{20, 35, 50, 62, 28, 44}
	y := []float64{100, 900, 400, 1500, 250, 700}
	err := report.ScatterClusters(path, x, y, []int{0, 1, 2, 3, 0, 1}, report.ChartOptions{
		Title:  "Customer Segments",
		XLabel: "Age",
		YLabel: "Total Amount",
	})
	require.NoError(t, err)
	assertPNG(t, path)

	t.Run("overwrites existing file", func(t *testing.T) {
		require.NoError(t, report.ScatterClusters(path, x, y, []int{0, 0, 0, 1, 1, 1}, report.ChartOptions{}))
		assertPNG(t, path)
	})

	t.Run("invalid input", func(t *testing.T) {
		assert.Error(t, report.ScatterClusters(path, nil, nil, nil, report.ChartOptions{}))
		assert.Error(t, report.ScatterClusters(path, x, y[:2], []int{0, 1}, report.ChartOptions{}))
	})
}

func TestBarCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.png")

	err := report.BarCounts(path, []string{"Credit Card", "PayPal", "Cash"}, []int{40, 35, 25}, report.ChartOptions{
		Title:  "Payment Method Distribution",
		YLabel: "Number of Customers",
	})
	require.NoError(t, err)
	assertPNG(t, path)

	assert.Error(t, report.BarCounts(path, nil, nil, report.ChartOptions{}))
	assert.Error(t, report.BarCounts(path, []string{"a"}, []int{1, 2}, report.ChartOptions{}))
}

func rgb8(c color.Color) [3]int {
	r, g, b, _ := c.RGBA()
	return [3]int{int(r >> 8), int(g >> 8), int(b >> 8)}
}

func assertColorNear(t *testing.T, want [3]int, got color.Color) {
	t.Helper()
	for i, v := range rgb8(got) {
		assert.InDelta(t, want[i], v, 2, "channel %d of %v", i, got)
	}
}

func TestViridis(t *testing.T) {
	t.Run("endpoints", func(t *testing.T) {
		colors := report.Viridis(4)
		require.Len(t, colors, 4)
		assertColorNear(t, [3]int{0x44, 0x01, 0x54}, colors[0])
		assertColorNear(t, [3]int{0xfd, 0xe7, 0x25}, colors[3])
		assert.NotEqual(t, rgb8(colors[1]), rgb8(colors[2]))
	})

	t.Run("lightness increases", func(t *testing.T) {
		colors := report.Viridis(6)
		prev := -1.0
		for _, c := range colors {
			rgb := rgb8(c)
			luma := 0.2126*float64(rgb[0]) + 0.7152*float64(rgb[1]) + 0.0722*float64(rgb[2])
			assert.Greater(t, luma, prev)
			prev = luma
		}
	})

	t.Run("palette", func(t *testing.T) {
		p := report.ViridisPalette(3)
		assert.Len(t, p.Colors(), 3)
		assert.Equal(t, report.Viridis(3), p.Colors())
	})

	t.Run("small counts", func(t *testing.T) {
		one := report.Viridis(1)
		require.Len(t, one, 1)
		assertColorNear(t, [3]int{0x44, 0x01, 0x54}, one[0])
		assert.Empty(t, report.Viridis(0))
		assert.Empty(t, report.Viridis(-1))
	})
}
