package fuzzy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/telhawk-normalize/internal/fuzzy"
)

func TestGet_ExactMatch(t *testing.T) {
	m := fuzzy.New[int]("")
	m.Put("syslog", 1)
	m.Put("syslog:firewall", 2)

	v, ok := m.Get("syslog:firewall")
	require.True(t, ok)
	assert.Equal(t, 2, v, "exact registration wins over shorter prefix")
}

func TestGet_SuffixStripping(t *testing.T) {
	m := fuzzy.New[string]("")
	m.Put("syslog", "base")

	testCases := []struct {
		key  string
		want string
	}{
		{key: "syslog", want: "base"},
		{key: "syslog:1", want: "base"},
		{key: "syslog:firewall:7", want: "base"},
	}

	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			v, ok := m.Get(tc.key)
			require.True(t, ok)
			assert.Equal(t, tc.want, v)
		})
	}
}

func TestGet_MostSpecificFirst(t *testing.T) {
	m := fuzzy.New[string]("")
	m.Put("syslog", "generic")
	m.Put("syslog:firewall", "firewall")

	v, ok := m.Get("syslog:firewall:7")
	require.True(t, ok)
	assert.Equal(t, "firewall", v)
}

func TestGet_Miss(t *testing.T) {
	m := fuzzy.New[string]("")
	m.Put("syslog", "base")

	_, ok := m.Get("wineventlog:security")
	assert.False(t, ok)

	_, ok = m.Get("")
	assert.False(t, ok)
}

func TestGet_CustomSeparator(t *testing.T) {
	m := fuzzy.New[string]("/")
	m.Put("infoblox", "v")

	v, ok := m.Get("infoblox/dhcp/7")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = m.Get("infoblox:dhcp")
	assert.False(t, ok, "colon is not a separator here")
}

func TestLenAndKeys(t *testing.T) {
	m := fuzzy.New[int]("")
	m.Put("a", 1)
	m.Put("b", 2)

	assert.Equal(t, 2, m.Len())
	assert.ElementsMatch(t, []string{"a", "b"}, m.Keys())
}
