package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"quest_resume_backend/internal/config"
	"quest_resume_backend/internal/model"
	"quest_resume_backend/internal/util"
	"quest_resume_backend/pkg/logger"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ObjectStore 视频与缩略图对象的存储后端，key 形如 videos/<id>.mp4
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PutFile(ctx context.Context, key, path, contentType string) error
	Remove(ctx context.Context, key string) error
	// BaseURL 对象公开地址的前缀，BaseURL()+key 即对象地址
	BaseURL() string
}

// localStore 写入本地目录，通过 /uploads 静态路由访问
type localStore struct {
	root string
}

func (s *localStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

func (s *localStore) PutFile(ctx context.Context, key, path, contentType string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	return s.Put(ctx, key, src, -1, contentType)
}

// Remove 对象不存在视为成功
func (s *localStore) Remove(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *localStore) BaseURL() string {
	return "/uploads/"
}

type minioStore struct {
	client *minio.Client
	cfg    *config.StorageConfig
}

func newMinioStore(cfg *config.StorageConfig) (*minioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &minioStore{client: client, cfg: cfg}, nil
}

func (s *minioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.cfg.MinioBucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (s *minioStore) PutFile(ctx context.Context, key, path, contentType string) error {
	_, err := s.client.FPutObject(ctx, s.cfg.MinioBucket, key, path, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (s *minioStore) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.cfg.MinioBucket, key, minio.RemoveObjectOptions{})
}

func (s *minioStore) BaseURL() string {
	return fmt.Sprintf("http://%s/%s/", s.cfg.MinioEndpoint, s.cfg.MinioBucket)
}

// ossStore 阿里云 OSS，SDK 不支持 context
type ossStore struct {
	bucket *oss.Bucket
	cfg    *config.StorageConfig
}

func newOSSStore(cfg *config.StorageConfig) (*ossStore, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	return &ossStore{bucket: bucket, cfg: cfg}, nil
}

func (s *ossStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.bucket.PutObject(key, r, oss.ContentType(contentType))
}

func (s *ossStore) PutFile(ctx context.Context, key, path, contentType string) error {
	return s.bucket.PutObjectFromFile(key, path, oss.ContentType(contentType))
}

func (s *ossStore) Remove(ctx context.Context, key string) error {
	return s.bucket.DeleteObject(key)
}

func (s *ossStore) BaseURL() string {
	return fmt.Sprintf("https://%s.%s/", s.cfg.OSSBucket, s.cfg.OSSEndpoint)
}

// StorageService 保存上传的视频，并在目标不再引用时清理对象
type StorageService struct {
	Store ObjectStore
}

// NewStorageService 按 storage.type 选择后端，远程后端初始化失败时回退到本地存储
func NewStorageService(cfg *config.Config) *StorageService {
	var (
		store ObjectStore
		err   error
	)
	switch cfg.Storage.Type {
	case util.StorageMinio:
		if store, err = newMinioStore(&cfg.Storage); err != nil {
			logger.Log.Warn("MinIO unavailable, falling back to local storage", zap.Error(err))
			store = nil
		}
	case util.StorageOSS:
		if store, err = newOSSStore(&cfg.Storage); err != nil {
			logger.Log.Warn("OSS unavailable, falling back to local storage", zap.Error(err))
			store = nil
		}
	}

	if store == nil {
		store = &localStore{root: cfg.Storage.LocalPath}
	}
	return &StorageService{Store: store}
}

// Upload 写入对象并返回公开地址
func (s *StorageService) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if err := s.Store.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	return s.Store.BaseURL() + key, nil
}

func (s *StorageService) UploadFile(ctx context.Context, key, path, contentType string) (string, error) {
	if err := s.Store.PutFile(ctx, key, path, contentType); err != nil {
		return "", err
	}
	return s.Store.BaseURL() + key, nil
}

// KeyFromURL 把本服务生成的地址还原成对象 key；外部地址返回 false
func (s *StorageService) KeyFromURL(url string) (string, bool) {
	base := s.Store.BaseURL()
	if !strings.HasPrefix(url, base) || len(url) == len(base) {
		return "", false
	}
	return strings.TrimPrefix(url, base), true
}

// RemoveVideo 删除服务器视频及其缩略图，YouTube 视频和外部地址直接跳过
func (s *StorageService) RemoveVideo(ctx context.Context, v *model.Video) error {
	if s == nil || v == nil || !v.IsServer() {
		return nil
	}

	var errs []error
	for _, url := range []string{v.URL, v.Thumbnail} {
		key, ok := s.KeyFromURL(url)
		if !ok {
			continue
		}
		if err := s.Store.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
