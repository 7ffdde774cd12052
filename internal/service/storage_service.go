package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mystery_hunt_backend/internal/config"
	"mystery_hunt_backend/internal/util"
	"mystery_hunt_backend/pkg/logger"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 定义通用存储接口，ref 为不透明的对象键
type StorageProvider interface {
	Put(ctx context.Context, ref string, data []byte, contentType string) error
	Get(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// LocalStorageProvider 本地存储实现
type LocalStorageProvider struct {
	Root string
}

func (p *LocalStorageProvider) path(ref string) (string, error) {
	clean := filepath.Clean("/" + ref)
	if clean == "/" {
		return "", fmt.Errorf("empty ref")
	}
	return filepath.Join(p.Root, clean), nil
}

func (p *LocalStorageProvider) Put(ctx context.Context, ref string, data []byte, contentType string) error {
	dst, err := p.path(ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

func (p *LocalStorageProvider) Get(ctx context.Context, ref string) ([]byte, error) {
	src, err := p.path(ref)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(src)
}

func (p *LocalStorageProvider) Delete(ctx context.Context, ref string) error {
	dst, err := p.path(ref)
	if err != nil {
		return err
	}
	return os.Remove(dst)
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Bucket string
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioSecure,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Bucket: cfg.MinioBucket, Client: client}, nil
}

func (p *MinioStorageProvider) Put(ctx context.Context, ref string, data []byte, contentType string) error {
	_, err := p.Client.PutObject(ctx, p.Bucket, ref, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (p *MinioStorageProvider) Get(ctx context.Context, ref string) ([]byte, error) {
	obj, err := p.Client.GetObject(ctx, p.Bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func (p *MinioStorageProvider) Delete(ctx context.Context, ref string) error {
	return p.Client.RemoveObject(ctx, p.Bucket, ref, minio.RemoveObjectOptions{})
}

// OSSStorageProvider 阿里云OSS存储实现
type OSSStorageProvider struct {
	Bucket *oss.Bucket
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Bucket: bucket}, nil
}

func (p *OSSStorageProvider) Put(ctx context.Context, ref string, data []byte, contentType string) error {
	return p.Bucket.PutObject(ref, bytes.NewReader(data), oss.ContentType(contentType))
}

func (p *OSSStorageProvider) Get(ctx context.Context, ref string) ([]byte, error) {
	body, err := p.Bucket.GetObject(ref)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func (p *OSSStorageProvider) Delete(ctx context.Context, ref string) error {
	return p.Bucket.DeleteObject(ref)
}

// StorageService 存储服务，对象变更时通知订阅者（如图片缓存）
type StorageService struct {
	Provider StorageProvider

	mu        sync.RWMutex
	onChanged []func(ref string)
}

func NewStorageService(cfg *config.Config) *StorageService {
	var provider StorageProvider
	switch cfg.Storage.Type {
	case util.StorageMinio:
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Error("Failed to init minio storage, falling back to local", zap.Error(err))
		} else {
			provider = p
		}
	case util.StorageOSS:
		p, err := NewOSSStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Error("Failed to init oss storage, falling back to local", zap.Error(err))
		} else {
			provider = p
		}
	}

	if provider == nil {
		provider = &LocalStorageProvider{Root: cfg.Storage.LocalPath}
	}

	return &StorageService{Provider: provider}
}

// OnChanged 注册对象覆盖或删除时的回调
func (s *StorageService) OnChanged(fn func(ref string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChanged = append(s.onChanged, fn)
}

func (s *StorageService) notifyChanged(ref string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fn := range s.onChanged {
		fn(ref)
	}
}

// Save 保存新对象，返回生成的 ref
func (s *StorageService) Save(ctx context.Context, dir string, data []byte) (string, error) {
	mt := mimetype.Detect(data)
	ref := path.Join(dir, time.Now().Format("200601"), uuid.NewString()+mt.Extension())
	if err := s.Provider.Put(ctx, ref, data, mt.String()); err != nil {
		return "", fmt.Errorf("%w: put %s: %v", util.ErrCollaboratorFailure, ref, err)
	}
	return ref, nil
}

// Replace 覆盖已有对象
func (s *StorageService) Replace(ctx context.Context, ref string, data []byte) error {
	if err := s.Provider.Put(ctx, ref, data, mimetype.Detect(data).String()); err != nil {
		return fmt.Errorf("%w: put %s: %v", util.ErrCollaboratorFailure, ref, err)
	}
	s.notifyChanged(ref)
	return nil
}

// Fetch 读取对象及其 MIME 类型
func (s *StorageService) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, "", fmt.Errorf("%w: empty ref", util.ErrBlobFetch)
	}
	data, err := s.Provider.Get(ctx, ref)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", util.ErrBlobFetch, ref, err)
	}
	return data, mimetype.Detect(data).String(), nil
}

func (s *StorageService) Delete(ctx context.Context, ref string) error {
	if err := s.Provider.Delete(ctx, ref); err != nil {
		return err
	}
	s.notifyChanged(ref)
	return nil
}
