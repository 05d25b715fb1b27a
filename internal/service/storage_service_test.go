package service

import (
	"bytes"
	"context"
	"path/filepath"
	"quest_resume_backend/internal/config"
	"quest_resume_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStorageBackedService 训练服务和视频服务共用同一个本地存储目录
func newStorageBackedService(t *testing.T) (*TrainingService, *VideoService, string) {
	t.Helper()
	videos, dir := newVideoService(t, 500)
	svc := newService(setupTestDB(t))
	svc.Storage = videos.Storage
	return svc, videos, dir
}

func uploadVideo(t *testing.T, videos *VideoService) *model.Video {
	t.Helper()
	content := append(append([]byte{}, mp4Header...), bytes.Repeat([]byte{0x02}, 32)...)
	v, err := videos.Upload(context.Background(), "lesson.mp4", int64(len(content)), "video/mp4", bytes.NewReader(content))
	require.NoError(t, err)
	return v
}

func objectPath(t *testing.T, storage *StorageService, dir, url string) string {
	t.Helper()
	key, ok := storage.KeyFromURL(url)
	require.True(t, ok, url)
	return filepath.Join(dir, filepath.FromSlash(key))
}

func TestKeyFromURL(t *testing.T) {
	local := NewStorageService(&config.Config{Storage: config.StorageConfig{LocalPath: t.TempDir()}})

	key, ok := local.KeyFromURL("/uploads/videos/a.mp4")
	assert.True(t, ok)
	assert.Equal(t, "videos/a.mp4", key)

	_, ok = local.KeyFromURL("/uploads/")
	assert.False(t, ok)
	_, ok = local.KeyFromURL("https://youtu.be/dQw4w9WgXcQ")
	assert.False(t, ok)

	remote := &StorageService{Store: &minioStore{cfg: &config.StorageConfig{MinioEndpoint: "minio:9000", MinioBucket: "quest"}}}
	key, ok = remote.KeyFromURL("http://minio:9000/quest/videos/b.mp4")
	assert.True(t, ok)
	assert.Equal(t, "videos/b.mp4", key)
	_, ok = remote.KeyFromURL("http://minio:9000/other/videos/b.mp4")
	assert.False(t, ok)
}

func TestRemoveVideoIgnoresForeignVideos(t *testing.T) {
	storage := NewStorageService(&config.Config{Storage: config.StorageConfig{LocalPath: t.TempDir()}})
	ctx := context.Background()

	assert.NoError(t, storage.RemoveVideo(ctx, nil))
	assert.NoError(t, storage.RemoveVideo(ctx, &model.Video{Type: model.VideoYouTube, URL: "https://youtu.be/dQw4w9WgXcQ"}))
	assert.NoError(t, storage.RemoveVideo(ctx, &model.Video{Type: model.VideoServer, URL: "https://cdn.example.com/a.mp4"}))
	// 对象已经不存在
	assert.NoError(t, storage.RemoveVideo(ctx, &model.Video{Type: model.VideoServer, URL: "/uploads/videos/gone.mp4"}))
}

func TestSharedVideoRemovedWithLastReference(t *testing.T) {
	svc, videos, dir := newStorageBackedService(t)
	ctx := context.Background()
	tr, q, objectives := seed(t, svc)

	video := uploadVideo(t, videos)
	path := objectPath(t, svc.Storage, dir, video.URL)
	for _, o := range objectives {
		_, err := svc.UpdateObjective(ctx, tr.ID, q.ID, o.ID, model.UpdateObjectiveDto{Video: video})
		require.NoError(t, err)
	}

	require.NoError(t, svc.DeleteObjective(ctx, tr.ID, q.ID, objectives[0].ID))
	assert.FileExists(t, path)

	_, err := svc.UpdateObjective(ctx, tr.ID, q.ID, objectives[1].ID, model.UpdateObjectiveDto{RemoveVideo: true})
	require.NoError(t, err)
	assert.NoFileExists(t, path)
}

func TestReplacedVideoIsRemoved(t *testing.T) {
	svc, videos, dir := newStorageBackedService(t)
	ctx := context.Background()
	tr, q, objectives := seed(t, svc)

	first := uploadVideo(t, videos)
	_, err := svc.UpdateObjective(ctx, tr.ID, q.ID, objectives[0].ID, model.UpdateObjectiveDto{Video: first})
	require.NoError(t, err)

	// 只改标题不动视频
	_, err = svc.UpdateObjective(ctx, tr.ID, q.ID, objectives[0].ID, model.UpdateObjectiveDto{Title: ptr("renamed")})
	require.NoError(t, err)
	assert.FileExists(t, objectPath(t, svc.Storage, dir, first.URL))

	second := uploadVideo(t, videos)
	_, err = svc.UpdateObjective(ctx, tr.ID, q.ID, objectives[0].ID, model.UpdateObjectiveDto{Video: second})
	require.NoError(t, err)
	assert.NoFileExists(t, objectPath(t, svc.Storage, dir, first.URL))
	assert.FileExists(t, objectPath(t, svc.Storage, dir, second.URL))
}

func TestDeletingTrainingAndQuestRemovesVideos(t *testing.T) {
	svc, videos, dir := newStorageBackedService(t)
	ctx := context.Background()
	tr, q, objectives := seed(t, svc)

	other, err := svc.CreateQuest(ctx, tr.ID, model.CreateQuestDto{Title: "Second", Order: 2})
	require.NoError(t, err)
	inOther := uploadVideo(t, videos)
	_, err = svc.CreateObjective(ctx, tr.ID, other.ID, model.CreateObjectiveDto{Title: "watch", Points: 5, Video: inOther})
	require.NoError(t, err)

	inFirst := uploadVideo(t, videos)
	_, err = svc.UpdateObjective(ctx, tr.ID, q.ID, objectives[0].ID, model.UpdateObjectiveDto{Video: inFirst})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteQuest(ctx, tr.ID, other.ID))
	assert.NoFileExists(t, objectPath(t, svc.Storage, dir, inOther.URL))
	assert.FileExists(t, objectPath(t, svc.Storage, dir, inFirst.URL))

	require.NoError(t, svc.DeleteTraining(ctx, tr.ID))
	assert.NoFileExists(t, objectPath(t, svc.Storage, dir, inFirst.URL))
}
