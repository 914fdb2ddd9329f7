package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateLinkID(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{name: "默认长度", length: DefaultLinkIDLength},
		{name: "单字符", length: 1},
		{name: "长ID", length: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := GenerateLinkID(tt.length)
			require.NoError(t, err)
			assert.Len(t, id, tt.length)
			for _, c := range id {
				assert.True(t, strings.ContainsRune(DefaultAlphabet, c), "字符 %q 不在字母表中", c)
			}
			assert.True(t, IsValidLinkID(id, tt.length))
		})
	}
}

func TestGenerateLinkIDInvalidLength(t *testing.T) {
	_, err := GenerateLinkID(0)
	assert.Error(t, err)
	_, err = GenerateLinkID(-3)
	assert.Error(t, err)
}

func TestGenerateLinkIDUniqueness(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id, err := GenerateLinkID(DefaultLinkIDLength)
		require.NoError(t, err)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestGenerateLinkIDConcurrent(t *testing.T) {
	const workers, perWorker = 8, 1250

	var mu sync.Mutex
	var wg sync.WaitGroup
	seen := make(map[string]struct{}, workers*perWorker)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				id, err := GenerateLinkID(DefaultLinkIDLength)
				if err != nil {
					t.Errorf("生成ID失败: %v", err)
					return
				}
				local = append(local, id)
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestGenerateLinkIDCoversAlphabet(t *testing.T) {
	counts := make(map[rune]int)
	for i := 0; i < 2000; i++ {
		id, err := GenerateLinkID(DefaultLinkIDLength)
		require.NoError(t, err)
		for _, c := range id {
			counts[c]++
		}
	}
	// 16000 次抽样下，62 个符号每个期望约 258 次，全部出现是必然的
	assert.Len(t, counts, len(DefaultAlphabet))
}

func TestIsValidLinkID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"aB3dE6gH", true},
		{"aB3dE6g", false},
		{"aB3dE6gH9", false},
		{"aB3d-6gH", false},
		{"../../et", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidLinkID(tt.id, DefaultLinkIDLength), tt.id)
	}
}
