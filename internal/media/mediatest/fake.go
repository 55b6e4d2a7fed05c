// Package mediatest 提供内存实现的媒体存储，供服务层测试使用
package mediatest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/anoixa/photogram/internal/errs"
	"github.com/anoixa/photogram/internal/imaging"
	"github.com/anoixa/photogram/internal/media"
	"github.com/anoixa/photogram/utils/generator"
)

// Store 记录所有对象的内存媒体存储
type Store struct {
	mu      sync.Mutex
	seq     int
	objects map[string]string

	// 以下字段为 true 时对应操作返回 ErrStorageUnavailable
	FailUpload    bool
	FailTransform bool
	FailQR        bool
	FailDelete    bool
	// NoEager 为 true 时 ApplyTransformInPlace 返回空地址
	NoEager bool
	// FailDeleteIDs 中的对象删除失败
	FailDeleteIDs map[string]bool
}

var _ media.Store = (*Store)(nil)

// New 创建空存储
func New() *Store {
	return &Store{objects: make(map[string]string), FailDeleteIDs: make(map[string]bool)}
}

func unavailable(op string) error {
	return errs.New(errs.ErrStorageUnavailable, "media store "+op+" failed")
}

func (s *Store) add(folder string) media.Asset {
	s.seq++
	id := fmt.Sprintf("%s/obj-%d", folder, s.seq)
	url := "https://media.test/" + id
	s.objects[id] = url
	return media.Asset{URL: url, PublicID: id}
}

func (s *Store) UploadOriginal(_ context.Context, userID uint, _ []byte, kind generator.Kind) (media.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpload {
		return media.Asset{}, unavailable("upload_original")
	}
	return s.add(fmt.Sprintf("user_%d/%s", userID, kind)), nil
}

func (s *Store) UploadTransformed(_ context.Context, userID uint, source media.Asset, params *imaging.Params) (media.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailTransform {
		return media.Asset{}, unavailable("upload_transformed")
	}
	if _, ok := s.objects[source.PublicID]; !ok {
		return media.Asset{}, unavailable("upload_transformed")
	}
	return s.add(fmt.Sprintf("user_%d/%s", userID, generator.KindTransformed)), nil
}

func (s *Store) ApplyTransformInPlace(_ context.Context, publicID string, params *imaging.Params) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailTransform {
		return "", unavailable("explicit_transform")
	}
	if s.NoEager {
		return "", nil
	}
	if _, ok := s.objects[publicID]; !ok {
		return "", unavailable("explicit_transform")
	}
	s.seq++
	url := fmt.Sprintf("https://media.test/%s/%s?v=%d", params.Transformation(), publicID, s.seq)
	s.objects[publicID] = url
	return url, nil
}

func (s *Store) UploadQR(_ context.Context, userID uint, _ []byte) (media.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailQR {
		return media.Asset{}, unavailable("upload_qr")
	}
	return s.add(fmt.Sprintf("user_%d/%s", userID, generator.KindQRCode)), nil
}

func (s *Store) Delete(_ context.Context, publicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDelete || s.FailDeleteIDs[publicID] {
		return unavailable("delete")
	}
	delete(s.objects, publicID)
	return nil
}

func (s *Store) Name() string {
	return "fake"
}

// Has 对象是否存在
func (s *Store) Has(publicID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[publicID]
	return ok
}

// IDs 返回当前所有对象标识
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.objects))
	for id := range s.objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
