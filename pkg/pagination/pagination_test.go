package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+10))
	assert.Equal(t, 7, NormalizeLimit(7))
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 123, time.UTC), ID: uuid.New()}

	parsed, err := ParseCursor(EncodeCursor(cursor))
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.True(t, cursor.CreatedAt.Equal(parsed.CreatedAt))
	assert.Equal(t, cursor.ID, parsed.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	parsed, err := ParseCursor("")
	require.NoError(t, err)
	assert.Nil(t, parsed)

	_, err = ParseCursor("not-base64!")
	assert.Error(t, err)

	_, err = ParseCursor(EncodeCursor(Cursor{ID: uuid.New()})[:6])
	assert.Error(t, err)
}

func TestPageParams(t *testing.T) {
	p := PageParams{}.Normalize(10)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, 0, p.Offset())

	p = PageParams{Page: 3, Limit: 500}.Normalize(10)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 2*MaxLimit, p.Offset())
}

func TestNewPageCountsPages(t *testing.T) {
	page := NewPage([]int{1, 2}, PageParams{Page: 2, Limit: 10}, 21)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, int64(21), page.Total)

	empty := NewPage[int](nil, PageParams{Page: 1, Limit: 10}, 0)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.TotalPages)

	mapped := MapPage(page, func(v int) string { return string(rune('a' + v)) })
	assert.Equal(t, []string{"b", "c"}, mapped.Items)
	assert.Equal(t, 3, mapped.TotalPages)
}
