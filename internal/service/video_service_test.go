package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"quest_resume_backend/internal/config"
	"quest_resume_backend/internal/model"
	"quest_resume_backend/internal/util"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 最小的 mp4 ftyp 头，足以让 http.DetectContentType 识别为 video/mp4
var mp4Header = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")

func newVideoService(t *testing.T, maxMB int64) (*VideoService, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{Type: util.StorageLocal, LocalPath: dir},
		Video:   config.VideoConfig{MaxUploadMB: maxMB, ProbeWithFFmpeg: true},
	}
	svc := NewVideoService(NewStorageService(cfg), &cfg.Video)
	svc.ffmpegAvailable = func() bool { return false }
	return svc, dir
}

func TestFromYouTube(t *testing.T) {
	svc, _ := newVideoService(t, 500)

	v, err := svc.FromYouTube(context.Background(), " https://youtu.be/dQw4w9WgXcQ ", "Intro")
	require.NoError(t, err)
	assert.Equal(t, model.VideoYouTube, v.Type)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", v.URL)
	assert.Equal(t, "https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg", v.Thumbnail)
	assert.NotEmpty(t, v.ID)

	_, err = svc.FromYouTube(context.Background(), "https://example.com/video", "")
	assert.ErrorIs(t, err, util.ErrInvalidYouTubeURL)
}

func TestUploadStoresVideoLocally(t *testing.T) {
	svc, dir := newVideoService(t, 500)
	content := append(append([]byte{}, mp4Header...), bytes.Repeat([]byte{0x01}, 64)...)

	v, err := svc.Upload(context.Background(), "intro.mp4", int64(len(content)), "video/mp4", bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, model.VideoServer, v.Type)
	assert.Equal(t, "intro.mp4", v.Title)
	assert.True(t, strings.HasPrefix(v.URL, "/uploads/videos/"), v.URL)

	stored, err := os.ReadFile(filepath.Join(dir, "videos", v.ID+".mp4"))
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestUploadAcceptsUnsniffableContainerByExtension(t *testing.T) {
	svc, _ := newVideoService(t, 500)
	content := []byte{0x00, 0x00, 0x00, 0x14, 0x66, 0x72, 0x65, 0x65, 0x00, 0x01, 0x02}

	v, err := svc.Upload(context.Background(), "clip.mov", int64(len(content)), "video/quicktime", bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, model.VideoServer, v.Type)
}

func TestUploadRejectsInvalidFiles(t *testing.T) {
	svc, _ := newVideoService(t, 1)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "big.mp4", 2*1024*1024, "video/mp4", bytes.NewReader(mp4Header))
	assert.ErrorIs(t, err, util.ErrVideoTooLarge)

	text := []byte("just some notes, definitely not a video")
	_, err = svc.Upload(ctx, "notes.mp4", int64(len(text)), "video/mp4", bytes.NewReader(text))
	assert.ErrorIs(t, err, util.ErrInvalidVideoFile)

	binary := []byte{0x00, 0x01, 0x02, 0x03}
	_, err = svc.Upload(ctx, "data.bin", int64(len(binary)), "application/octet-stream", bytes.NewReader(binary))
	assert.ErrorIs(t, err, util.ErrInvalidVideoFile)
}
