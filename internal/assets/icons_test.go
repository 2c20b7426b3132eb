package assets

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Size(t *testing.T) {
	for _, size := range []int{16, TraySize, 64} {
		img := Render(size, false)
		assert.Equal(t, size, img.Bounds().Dx())
		assert.Equal(t, size, img.Bounds().Dy())
	}
}

func TestRender_TransparentCorner(t *testing.T) {
	img := Render(64, false)
	_, _, _, a := img.At(0, 0).RGBA()
	assert.Zero(t, a)

	_, _, _, a = img.At(32, 4).RGBA()
	assert.NotZero(t, a)
}

func TestPNG(t *testing.T) {
	data, err := PNG(TraySize, true)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, TraySize, img.Bounds().Dx())

	_, err = PNG(0, false)
	assert.Error(t, err)
}

func TestResources(t *testing.T) {
	require.NotNil(t, TrayIcon())
	require.NotNil(t, PausedTrayIcon())
	require.NotNil(t, AppIcon())
	assert.Equal(t, "tray.png", TrayIcon().Name())
	assert.NotEmpty(t, AppIcon().Content())
	assert.NotEqual(t, TrayIcon().Content(), PausedTrayIcon().Content())
}

func TestInRoundedRect(t *testing.T) {
	assert.True(t, inRoundedRect(5, 5, 0, 0, 10, 10, 2))
	assert.False(t, inRoundedRect(0.1, 0.1, 0, 0, 10, 10, 4))
	assert.True(t, inRoundedRect(0.1, 5, 0, 0, 10, 10, 4))
	assert.False(t, inRoundedRect(10, 5, 0, 0, 10, 10, 0))
}

func TestInTriangle(t *testing.T) {
	assert.True(t, inTriangle(5, 4, 0, 0, 10, 0, 5, 10))
	assert.False(t, inTriangle(0, 9, 0, 0, 10, 0, 5, 10))
}
