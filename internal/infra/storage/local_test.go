package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/anzhiyu-c/anheyu-drop/pkg/constant"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalProvider(t *testing.T) (*LocalProvider, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return NewLocalProvider(fs, "test-secret"), fs
}

func TestLocalProvider_PutGetRoundTrip(t *testing.T) {
	p, _ := newTestLocalProvider(t)
	ctx := context.Background()

	data := []byte("hello drop")
	require.NoError(t, p.Put(ctx, "uploads/abc/hello.txt", bytes.NewReader(data), int64(len(data)), "text/plain"))

	rc, err := p.Get(ctx, "uploads/abc/hello.txt")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalProvider_PutOverwrites(t *testing.T) {
	p, fs := newTestLocalProvider(t)
	ctx := context.Background()

	require.NoError(t, p.Put(ctx, "registry/share_links.json", strings.NewReader("{\"a\":1}"), -1, ""))
	require.NoError(t, p.Put(ctx, "registry/share_links.json", strings.NewReader("{}"), -1, ""))

	got, err := afero.ReadFile(fs, "registry/share_links.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))

	// 临时文件不应残留
	entries, err := afero.ReadDir(fs, "registry")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalProvider_PutSizeMismatch(t *testing.T) {
	p, fs := newTestLocalProvider(t)

	err := p.Put(context.Background(), "a/b.txt", strings.NewReader("abc"), 10, "")
	require.Error(t, err)

	exists, _ := afero.Exists(fs, "a/b.txt")
	assert.False(t, exists)
}

func TestLocalProvider_GetMissing(t *testing.T) {
	p, _ := newTestLocalProvider(t)

	_, err := p.Get(context.Background(), "nope/missing.bin")
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestLocalProvider_DeleteIsIdempotent(t *testing.T) {
	p, fs := newTestLocalProvider(t)
	ctx := context.Background()

	require.NoError(t, p.Put(ctx, "uploads/x/file.bin", strings.NewReader("1"), 1, ""))
	require.NoError(t, p.Delete(ctx, "uploads/x/file.bin"))
	require.NoError(t, p.Delete(ctx, "uploads/x/file.bin"))

	_, err := p.Get(ctx, "uploads/x/file.bin")
	assert.True(t, errors.Is(err, ErrObjectNotFound))

	// 空的上级目录被清理
	exists, _ := afero.DirExists(fs, "uploads/x")
	assert.False(t, exists)
}

func TestLocalProvider_RejectsTraversal(t *testing.T) {
	p, _ := newTestLocalProvider(t)
	ctx := context.Background()

	for _, key := range []string{"", "../etc/passwd", "a/../../b", "/"} {
		err := p.Put(ctx, key, strings.NewReader("x"), 1, "")
		assert.ErrorIs(t, err, ErrInvalidObjectKey, "key=%q", key)
	}
}

func TestLocalProvider_PresignAndVerify(t *testing.T) {
	p, _ := newTestLocalProvider(t)
	now := time.Unix(1_700_000_000, 0)
	p.now = func() time.Time { return now }

	raw, err := p.Presign(context.Background(), "uploads/id/报告 1.pdf", PresignOptions{
		Expires:  10 * time.Minute,
		FileName: "报告 1.pdf",
		Inline:   true,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(raw, LocalDownloadRoute))

	u, err := url.Parse(raw)
	require.NoError(t, err)
	key := strings.TrimPrefix(u.Path, LocalDownloadRoute)
	q := u.Query()

	assert.Equal(t, "uploads/id/报告 1.pdf", key)
	assert.Equal(t, "1700000600", q.Get("expires"))
	assert.Equal(t, "1", q.Get("inline"))
	assert.Equal(t, "报告 1.pdf", q.Get("name"))

	signed := PresignOptions{FileName: q.Get("name"), Inline: q.Get("inline") == "1"}
	require.NoError(t, p.VerifySignature(key, q.Get("expires"), q.Get("sign"), signed))

	// 篡改对象键
	assert.ErrorIs(t, p.VerifySignature("uploads/id/other.pdf", q.Get("expires"), q.Get("sign"), signed), constant.ErrSignatureInvalid)

	// 篡改文件名或展示方式
	assert.ErrorIs(t, p.VerifySignature(key, q.Get("expires"), q.Get("sign"),
		PresignOptions{FileName: "x.html", Inline: true}), constant.ErrSignatureInvalid)
	assert.ErrorIs(t, p.VerifySignature(key, q.Get("expires"), q.Get("sign"),
		PresignOptions{FileName: signed.FileName}), constant.ErrSignatureInvalid)

	// 过期之后
	now = now.Add(11 * time.Minute)
	assert.ErrorIs(t, p.VerifySignature(key, q.Get("expires"), q.Get("sign"), signed), constant.ErrSignatureInvalid)
}

func TestLocalProvider_PresignRequiresSecret(t *testing.T) {
	p := NewLocalProvider(afero.NewMemMapFs(), "")
	_, err := p.Presign(context.Background(), "a.txt", PresignOptions{})
	assert.Error(t, err)
}

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		name string
		opts PresignOptions
		want string
	}{
		{"附件无文件名", PresignOptions{}, "attachment"},
		{"预览无文件名", PresignOptions{Inline: true}, ""},
		{"附件ASCII文件名", PresignOptions{FileName: "a.txt"}, "attachment; filename=a.txt"},
		{"预览文件名", PresignOptions{FileName: "a b.txt", Inline: true}, `inline; filename="a b.txt"`},
		{"HTML强制附件", PresignOptions{FileName: "a.html", Inline: true}, "attachment; filename=a.html"},
		{"SVG强制附件", PresignOptions{FileName: "A.SVG", Inline: true}, "attachment; filename=A.SVG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentDisposition(tt.opts))
		})
	}
}

func TestSafeContentType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"page.html", "application/octet-stream"},
		{"logo.svg", "application/octet-stream"},
		{"app.js", "application/octet-stream"},
		{"noext", "application/octet-stream"},
		{"photo.png", "image/png"},
		{"doc.pdf", "application/pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeContentType(tt.name))
		})
	}
}

func TestCleanObjectKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"uploads/a/b.txt", "uploads/a/b.txt", false},
		{"/uploads//a/./b.txt", "uploads/a/b.txt", false},
		{"uploads\\a\\b.txt", "uploads/a/b.txt", false},
		{"", "", true},
		{"  ", "", true},
		{"a/../b", "", true},
		{".", "", true},
	}
	for _, tt := range tests {
		got, err := CleanObjectKey(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidObjectKey, "in=%q", tt.in)
			continue
		}
		require.NoError(t, err, "in=%q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewBlobStore_InvalidType(t *testing.T) {
	_, err := NewBlobStore(context.Background(), Options{Type: "ftp"})
	assert.ErrorIs(t, err, constant.ErrInvalidStorageType)
}

func TestResolveS3Endpoint(t *testing.T) {
	region, endpoint := resolveS3Endpoint("", "https://s3.us-west-2.amazonaws.com")
	assert.Equal(t, "us-west-2", region)
	assert.Equal(t, "https://s3.us-west-2.amazonaws.com", endpoint)

	region, endpoint = resolveS3Endpoint("", "eu-central-1")
	assert.Equal(t, "eu-central-1", region)
	assert.Empty(t, endpoint)

	region, endpoint = resolveS3Endpoint("", "")
	assert.Equal(t, "us-east-1", region)
	assert.Empty(t, endpoint)
}
