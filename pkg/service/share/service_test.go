package share

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/anzhiyu-c/anheyu-drop/internal/infra/storage"
	"github.com/anzhiyu-c/anheyu-drop/pkg/constant"
	"github.com/anzhiyu-c/anheyu-drop/pkg/service/utility"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc      Service
	registry *Registry
	store    *storage.LocalProvider
	fs       afero.Fs
	snaps    *fakeSnapshots
	clock    *fakeClock
}

func newServiceFixture(t *testing.T, maxSize int64) *serviceFixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := storage.NewLocalProvider(fs, "secret")
	snaps := &fakeSnapshots{}
	clock := newFakeClock(epoch)
	registry := NewRegistry(store, snaps, nil, Options{TTL: 15 * time.Minute, Clock: clock.Now})
	cache := utility.NewMemoryCacheService()

	svc := NewService(registry, store, cache, ServiceOptions{MaxUploadSize: maxSize, PresignTTL: 10 * time.Minute})
	return &serviceFixture{svc: svc, registry: registry, store: store, fs: fs, snaps: snaps, clock: clock}
}

func TestService_UploadAndResolve(t *testing.T) {
	f := newServiceFixture(t, 1024)
	ctx := context.Background()

	content := []byte("%PDF-1.4\nhello")
	res, err := f.svc.Upload(ctx, "../季度 报告.pdf", bytes.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	assert.Equal(t, "季度 报告.pdf", res.FileName)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.Equal(t, int64(len(content)), res.Size)
	assert.True(t, res.ExpiresAt.Equal(epoch.Add(15*time.Minute)))
	assert.True(t, strings.HasPrefix(res.Link.ObjectKey, "uploads/"))

	rc, err := f.store.Get(ctx, res.Link.ObjectKey)
	require.NoError(t, err)
	stored, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, content, stored)

	raw, err := f.svc.Resolve(ctx, res.Link.ID, false)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "季度 报告.pdf", u.Query().Get("name"))
	assert.Empty(t, u.Query().Get("inline"))

	info, err := f.svc.Info(ctx, res.Link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.DownloadCount)
	assert.Equal(t, "季度 报告.pdf", info.FileName)
}

func TestService_ExpiresAtIsSecondAligned(t *testing.T) {
	f := newServiceFixture(t, 1024)
	ctx := context.Background()
	f.clock.Set(epoch.Add(750 * time.Millisecond))

	res, err := f.svc.Upload(ctx, "a.txt", strings.NewReader("x"), 1)
	require.NoError(t, err)
	assert.Zero(t, res.ExpiresAt.Nanosecond())
	assert.True(t, res.ExpiresAt.Equal(epoch.Add(15*time.Minute)))

	info, err := f.svc.Info(ctx, res.Link.ID)
	require.NoError(t, err)
	assert.True(t, info.ExpiresAt.Equal(res.ExpiresAt))
}

func TestService_UploadRejectsEmptyName(t *testing.T) {
	f := newServiceFixture(t, 1024)

	_, err := f.svc.Upload(context.Background(), "  ", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, constant.ErrBadRequest)
}

func TestService_UploadTooLarge(t *testing.T) {
	f := newServiceFixture(t, 8)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, "a.txt", strings.NewReader("0123456789"), 10)
	assert.ErrorIs(t, err, constant.ErrFileTooLarge)
	assert.Contains(t, err.Error(), "8 B")

	// 大小未知时，按实际读到的字节数判断，并清理已写入的对象
	_, err = f.svc.Upload(ctx, "a.txt", strings.NewReader("0123456789"), -1)
	assert.ErrorIs(t, err, constant.ErrFileTooLarge)
	assert.Equal(t, 0, f.registry.Len())

	entries, _ := afero.ReadDir(f.fs, constant.UploadObjectPrefix)
	assert.Empty(t, entries)
}

func TestService_UploadPersistenceFailureStillSucceeds(t *testing.T) {
	f := newServiceFixture(t, 1024)
	f.snaps.saveErr = errors.New("snapshot store down")

	res, err := f.svc.Upload(context.Background(), "a.txt", strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, f.registry.Len())

	_, err = f.svc.Resolve(context.Background(), res.Link.ID, true)
	assert.NoError(t, err)
}

func TestService_ResolvePresignNeverOutlivesLink(t *testing.T) {
	store := newFakeStore()
	clock := newFakeClock(epoch)
	registry := NewRegistry(store, &fakeSnapshots{}, nil, Options{TTL: 15 * time.Minute, Clock: clock.Now})
	svc := NewService(registry, store, nil, ServiceOptions{PresignTTL: 10 * time.Minute})
	ctx := context.Background()

	link, err := registry.Create(ctx, "uploads/u/a.txt")
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, link.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, store.lastPresign.Expires)
	assert.Equal(t, "a.txt", store.lastPresign.FileName)
	assert.False(t, store.lastPresign.Inline)

	// 剩余 2 分钟，小于下载链接的默认有效期
	clock.Set(epoch.Add(13 * time.Minute))
	_, err = svc.Resolve(ctx, link.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, store.lastPresign.Expires)
	assert.True(t, store.lastPresign.Inline)
}

func TestService_ResolveExpired(t *testing.T) {
	f := newServiceFixture(t, 1024)
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, "a.txt", strings.NewReader("hello"), 5)
	require.NoError(t, err)

	f.clock.Set(epoch.Add(15 * time.Minute))
	_, err = f.svc.Resolve(ctx, res.Link.ID, false)
	assert.ErrorIs(t, err, constant.ErrLinkExpired)

	_, err = f.store.Get(ctx, res.Link.ObjectKey)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestService_DeleteAndList(t *testing.T) {
	f := newServiceFixture(t, 1024)
	ctx := context.Background()

	a, err := f.svc.Upload(ctx, "a.txt", strings.NewReader("a"), 1)
	require.NoError(t, err)
	f.clock.Set(epoch.Add(time.Second))
	b, err := f.svc.Upload(ctx, "b.txt", strings.NewReader("b"), 1)
	require.NoError(t, err)

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.Link.ID, list[0].ID)
	assert.Equal(t, b.Link.ID, list[1].ID)

	require.NoError(t, f.svc.Delete(ctx, a.Link.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, a.Link.ID), constant.ErrLinkNotFound)

	list, err = f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b.txt", list[0].FileName)
}
