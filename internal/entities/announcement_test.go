package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitReferences(t *testing.T) {
	t.Run("five fields merge the embedded name", func(t *testing.T) {
		parts := SplitReferences("Premier, Gladys Berejiklian, Health, Media release, 16 March 2020")
		assert.Equal(t, []string{"Premier Gladys Berejiklian", "Health", "Media release", "16 March 2020"}, parts)
	})

	t.Run("three fields are padded with a missing release date", func(t *testing.T) {
		parts := SplitReferences("NSW Health,  COVID-19\n update,Statement")
		assert.Equal(t, []string{"NSW Health", "COVID-19 update", "Statement", ""}, parts)
	})

	t.Run("four fields pass through", func(t *testing.T) {
		parts := SplitReferences("NSW Government, Restrictions, Media release, 30 March 2020")
		assert.Len(t, parts, 4)
		assert.Equal(t, "30 March 2020", parts[3])
	})

	t.Run("other counts are left unmodified", func(t *testing.T) {
		assert.Equal(t, []string{"NSW Health"}, SplitReferences("NSW Health"))
		assert.Equal(t, []string{"a", "b"}, SplitReferences("a, b"))
		assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, SplitReferences("a,b,c,d,e,f"))
	})
}

func TestNewAnnouncement(t *testing.T) {
	date := time.Date(2020, time.March, 16, 9, 30, 0, 0, time.UTC)

	rec, ok := NewAnnouncement(date, "Gatherings over 500 cancelled", "NSW Health, Gatherings, Statement")
	require.True(t, ok)
	assert.Equal(t, time.Date(2020, time.March, 16, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, "NSW Health", rec.Source)
	assert.Equal(t, "Statement", rec.Medium)
	assert.Nil(t, rec.ReleaseDate)

	rec, ok = NewAnnouncement(date, "content", "only one field")
	assert.False(t, ok)
	assert.Equal(t, "only one field", rec.Source)
	assert.Empty(t, rec.Theme)
}
