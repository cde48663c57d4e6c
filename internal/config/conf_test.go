package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConf_OverridesWin(t *testing.T) {
	defaults := Properties{"a": "default", "b": "default"}
	overrides := Properties{"b": "override", "c": "new"}

	c := NewConf(defaults, overrides)

	assert.Equal(t, "default", c.GetOr("a", ""))
	assert.Equal(t, "override", c.GetOr("b", ""))
	assert.Equal(t, "new", c.GetOr("c", ""))
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"a", "b", "c"}, c.Keys())
}

func TestNewConf_InputsNotRetained(t *testing.T) {
	defaults := Properties{"a": "1"}
	c := NewConf(defaults, nil)

	defaults["a"] = "mutated"
	c.Set("a", "2")

	assert.Equal(t, "mutated", defaults["a"])
	assert.Equal(t, "2", c.GetOr("a", ""))
}

func TestConf_GetMissing(t *testing.T) {
	c := NewConf(nil, nil)
	_, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, "fallback", c.GetOr("missing", "fallback"))
}

func TestConf_AllIsSnapshot(t *testing.T) {
	c := NewConf(Properties{"a": "1"}, nil)
	all := c.All()
	c.Set("a", "2")
	assert.Equal(t, "1", all["a"])
}

func TestConf_ConcurrentAccess(t *testing.T) {
	c := NewConf(nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("k", "v")
				_, _ = c.Get("k")
				_ = c.Keys()
			}
		}()
	}
	wg.Wait()
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}
