package translate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/telhawk-normalize/internal/translate"
)

// Predicates are exercised through the rule guard, the only place they
// appear in a rule document.
func guard(t *testing.T, when string) func(map[string]any) bool {
	t.Helper()
	rule, err := translate.FromJSON([]byte(`{
		"when": "` + when + `",
		"rules": []
	}`))
	require.NoError(t, err)
	return func(data map[string]any) bool {
		return rule.Apply(data) != nil
	}
}

func TestWhen_Comparisons(t *testing.T) {
	data := map[string]any{
		"message": "DHCPACK on 1.2.3.4",
		"action":  "ALLOWED",
		"code":    5,
		"nested":  map[string]any{"kind": "dhcp"},
	}

	testCases := []struct {
		when string
		want bool
	}{
		{when: "action = 'ALLOWED'", want: true},
		{when: "action = 'BLOCKED'", want: false},
		{when: "action != 'BLOCKED'", want: true},
		{when: "message like 'DHCPACK'", want: true},
		{when: "message like 'DHCPNAK'", want: false},
		{when: "code = '5'", want: true},
		{when: "nested.kind = 'dhcp'", want: true},
		{when: "missing = 'x'", want: false},
		{when: "missing != 'x'", want: false},
		{when: "missing like 'x'", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.when, func(t *testing.T) {
			assert.Equal(t, tc.want, guard(t, tc.when)(data))
		})
	}
}

func TestWhen_BooleanComposition(t *testing.T) {
	data := map[string]any{"a": "1", "b": "2"}

	testCases := []struct {
		when string
		want bool
	}{
		{when: "a = '1' and b = '2'", want: true},
		{when: "a = '1' and b = '9'", want: false},
		{when: "a = '9' or b = '2'", want: true},
		{when: "a = '9' or b = '9'", want: false},
		{when: "not a = '9'", want: true},
		{when: "not a = '1'", want: false},
		{when: "(a = '9' or b = '2') and a = '1'", want: true},
		{when: "not (a = '1' and b = '2')", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.when, func(t *testing.T) {
			assert.Equal(t, tc.want, guard(t, tc.when)(data))
		})
	}
}

func TestWhen_ParseErrors(t *testing.T) {
	testCases := []struct {
		name string
		when string
	}{
		{name: "missing literal", when: "a ="},
		{name: "unterminated literal", when: "a = 'x"},
		{name: "missing operator", when: "a 'x'"},
		{name: "unbalanced paren", when: "(a = 'x'"},
		{name: "trailing input", when: "a = 'x' b"},
		{name: "unquoted literal", when: "a = x"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := translate.FromJSON([]byte(`{"when": "` + tc.when + `", "rules": []}`))
			assert.Error(t, err)
		})
	}
}
