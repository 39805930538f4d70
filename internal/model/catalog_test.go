package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	keys := c.Keys()
	require.GreaterOrEqual(t, len(keys), 6)
	assert.Equal(t, []string{
		"indication_dosage", "application_reason", "efficacy",
		"safety", "cost_effectiveness", "other_considerations",
	}, keys[:6])

	for _, f := range c.Fields() {
		assert.NotEmpty(t, f.Description, f.Key)
		assert.NotEmpty(t, f.Query, f.Key)
		assert.Regexp(t, `^[a-z][a-z_]*$`, f.Key)
	}
	assert.False(t, c.Has(UnknownKey))
}

func TestNewCatalogDropsDuplicatesAndBlanks(t *testing.T) {
	t.Parallel()

	c := NewCatalog([]Field{
		{Key: "a", Description: "first"},
		{Key: ""},
		{Key: "b", Description: "bee"},
		{Key: "a", Description: "second"},
	})
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"a", "b"}, c.Keys())

	f, ok := c.ByKey("a")
	require.True(t, ok)
	assert.Equal(t, "first", f.Description)

	_, ok = c.ByKey("missing")
	assert.False(t, ok)
}

func TestCatalogQueryFallback(t *testing.T) {
	t.Parallel()

	c := NewCatalog([]Field{{Key: "a", Query: "what is a?"}, {Key: "b"}})
	assert.Equal(t, "what is a?", c.Query("a"))
	assert.Equal(t, "b", c.Query("b"))
	assert.Equal(t, "zzz", c.Query("zzz"))
}

func TestCatalogFieldsIsCopy(t *testing.T) {
	t.Parallel()

	c := NewCatalog([]Field{{Key: "a", Description: "x"}})
	fields := c.Fields()
	fields[0].Description = "mutated"
	f, _ := c.ByKey("a")
	assert.Equal(t, "x", f.Description)
}

func TestModeFor(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ModeNeedsTagging, ModeFor(nil))
	assert.Equal(t, ModeTagged, ModeFor([]string{"efficacy"}))
}
