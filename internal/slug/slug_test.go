package slug

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple title", input: "Eye Health Tips", expected: "eye-health-tips"},
		{name: "with special characters", input: "Hello, World!", expected: "hello-world"},
		{name: "ampersand", input: "News & Events", expected: "news-events"},
		{name: "with numbers", input: "Top 10 Cataract Facts", expected: "top-10-cataract-facts"},
		{name: "with accents", input: "Café résumé", expected: "cafe-resume"},
		{name: "german umlauts", input: "Über München", expected: "uber-munchen"},
		{name: "multiple spaces", input: "Hello   World", expected: "hello-world"},
		{name: "existing hyphens", input: "Hello - World", expected: "hello-world"},
		{name: "leading and trailing junk", input: "  --Hello World!--  ", expected: "hello-world"},
		{name: "underscores", input: "snake_case_title", expected: "snake-case-title"},
		{name: "mixed case", input: "HeLLo WoRLd", expected: "hello-world"},
		{name: "all special characters", input: "!@#$%^&*()", expected: Fallback},
		{name: "non latin", input: "日本語タイトル", expected: Fallback},
		{name: "empty", input: "", expected: Fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Slugify(tt.input)
			assert.Equal(t, tt.expected, result)
			assert.True(t, IsValid(result), "slug %q is not canonical", result)
		})
	}
}

func TestSlugify_Deterministic(t *testing.T) {
	titles := []string{"Glaucoma: What You Need to Know", "Ünïcödé —— dashes", "a"}
	for _, title := range titles {
		assert.Equal(t, Slugify(title), Slugify(title))
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("eye-health-tips"))
	assert.True(t, IsValid("post-2"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("-leading"))
	assert.False(t, IsValid("trailing-"))
	assert.False(t, IsValid("double--hyphen"))
	assert.False(t, IsValid("Upper"))
	assert.False(t, IsValid("white space"))
}

func TestUnique(t *testing.T) {
	ctx := context.Background()

	t.Run("bare slug when free", func(t *testing.T) {
		s, err := Unique(ctx, "Eye Health Tips", func(context.Context, string) (bool, error) {
			return false, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "eye-health-tips", s)
	})

	t.Run("counter suffix on conflict", func(t *testing.T) {
		taken := map[string]bool{"eye-health-tips": true, "eye-health-tips-2": true}
		s, err := Unique(ctx, "Eye Health Tips", func(_ context.Context, slug string) (bool, error) {
			return taken[slug], nil
		})
		require.NoError(t, err)
		assert.Equal(t, "eye-health-tips-3", s)
	})

	t.Run("lookup error", func(t *testing.T) {
		boom := errors.New("db down")
		_, err := Unique(ctx, "x", func(context.Context, string) (bool, error) {
			return false, boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("gives up", func(t *testing.T) {
		_, err := Unique(ctx, "x", func(context.Context, string) (bool, error) {
			return true, nil
		})
		assert.Error(t, err)
	})
}
