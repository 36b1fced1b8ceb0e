package constants

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialKeywordsSpecificBeforeGeneric(t *testing.T) {
	for i, rule := range MaterialKeywords {
		for _, earlier := range MaterialKeywords[:i] {
			assert.Falsef(t, strings.Contains(rule.Keyword, earlier.Keyword),
				"keyword %q is shadowed by earlier keyword %q", rule.Keyword, earlier.Keyword)
		}
	}
}

func TestMaterialKeywordsPointAtCatalogue(t *testing.T) {
	for _, rule := range MaterialKeywords {
		_, ok := LookupMaterial(rule.Material)
		assert.Truef(t, ok, "keyword %q maps to unknown material %q", rule.Keyword, rule.Material)
	}
}

func TestLookupMaterialIsCaseInsensitive(t *testing.T) {
	m, ok := LookupMaterial("  cement   opc grade 53 ")
	require.True(t, ok)
	assert.Equal(t, CementOPC, m.Name)
	assert.Equal(t, "50 kg Bag", m.Unit)
}

func TestCanonicalUnit(t *testing.T) {
	cases := map[string]string{
		"Bags":  "bag",
		"TON":   "mt",
		"cum":   "m3",
		"Sq.M":  "m2",
		"nos.":  "nos",
		"":      "",
		"cft":   "cft",
		"Tonne": "mt",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, CanonicalUnit(in))
		})
	}
}

func TestTonnesPerUnit(t *testing.T) {
	v, ok := TonnesPerUnit("bag", GroupCement)
	require.True(t, ok)
	assert.InDelta(t, 0.05, v, 1e-9)

	v, ok = TonnesPerUnit("m3", GroupAggregate)
	require.True(t, ok)
	assert.InDelta(t, 1.6, v, 1e-9)

	_, ok = TonnesPerUnit("m2", GroupAggregate)
	assert.False(t, ok)
}

func TestDocumentStatusTerminal(t *testing.T) {
	assert.True(t, DocumentStatusNoBOQ.Terminal())
	assert.True(t, DocumentStatusFailed.Terminal())
	assert.False(t, DocumentStatusRunning.Terminal())
}
