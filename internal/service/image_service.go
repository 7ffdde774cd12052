package service

import (
	"context"
	"fmt"
	"mystery_hunt_backend/internal/config"
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/util"
	"mystery_hunt_backend/pkg/logger"
	"mystery_hunt_backend/pkg/monitoring"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// BlobFetcher 读取不透明的图片引用
type BlobFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, string, error)
}

// ImageRefLookup 图片引用的归属
type ImageRefLookup interface {
	IsPublished(ctx context.Context, ref string) (bool, error)
	IsUploadedBy(ctx context.Context, ref string, userID uint) (bool, error)
}

type cachedImage struct {
	data     []byte
	mimeType string
}

// ImageService 图片读取代理，按字节数限制缓存大小并带过期时间
type ImageService struct {
	Fetcher BlobFetcher
	Refs    ImageRefLookup

	cache  *ristretto.Cache[string, *cachedImage]
	flight singleflight.Group
	ttl    time.Duration
}

func NewImageService(fetcher BlobFetcher, cfg config.ImageCacheConfig) (*ImageService, error) {
	maxCost := cfg.MaxCost
	if maxCost <= 0 {
		maxCost = 64 << 20
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, *cachedImage]{
		NumCounters:        10000,
		MaxCost:            maxCost,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &ImageService{
		Fetcher: fetcher,
		cache:   cache,
		ttl:     cfg.TTL(),
	}, nil
}

// Get 优先读缓存，同一引用的并发未命中只回源一次
func (s *ImageService) Get(ctx context.Context, ref string) ([]byte, string, error) {
	if img, ok := s.cache.Get(ref); ok {
		monitoring.ImageCacheRequests.WithLabelValues("hit").Inc()
		return img.data, img.mimeType, nil
	}
	monitoring.ImageCacheRequests.WithLabelValues("miss").Inc()

	v, err, _ := s.flight.Do(ref, func() (interface{}, error) {
		data, mimeType, err := s.Fetcher.Fetch(ctx, ref)
		if err != nil {
			return nil, err
		}
		img := &cachedImage{data: data, mimeType: mimeType}
		if s.ttl > 0 {
			s.cache.SetWithTTL(ref, img, int64(len(data)), s.ttl)
		} else {
			s.cache.Set(ref, img, int64(len(data)))
		}
		return img, nil
	})
	if err != nil {
		logger.Log.Warn("Image fetch failed", zap.String("ref", ref), zap.Error(err))
		return nil, "", err
	}
	img := v.(*cachedImage)
	return img.data, img.mimeType, nil
}

// CanView 审核员可查看全部图片；玩家只能查看已发布内容的图片和自己提交的答案图片
func (s *ImageService) CanView(ctx context.Context, userID uint, role model.UserRole, ref string) error {
	if role == model.Moderator || role == model.Admin {
		return nil
	}
	if s.Refs != nil {
		ok, err := s.Refs.IsPublished(ctx, ref)
		if err != nil || ok {
			return err
		}
		ok, err = s.Refs.IsUploadedBy(ctx, ref, userID)
		if err != nil || ok {
			return err
		}
	}
	logger.Log.Debug("Image access denied", zap.Uint("user_id", userID), zap.String("ref", ref))
	return fmt.Errorf("%w: image %s", util.ErrNotFound, ref)
}

// Fetch 经过缓存读取，供邮件附件使用
func (s *ImageService) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	return s.Get(ctx, ref)
}

// Invalidate 丢弃某个引用的缓存
func (s *ImageService) Invalidate(ref string) {
	s.cache.Del(ref)
}

// Wait 等待缓存写入生效
func (s *ImageService) Wait() {
	s.cache.Wait()
}

func (s *ImageService) Close() {
	s.cache.Close()
}
