package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvery(t *testing.T) {
	s := Every(time.Hour)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	next1 := s.Next(start)
	next2 := s.Next(next1)

	assert.Equal(t, time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC), next1)
	assert.Equal(t, time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC), next2)
}

func TestEvery_ZeroTimeIsDue(t *testing.T) {
	assert.True(t, Every(time.Minute).Next(time.Time{}).Before(time.Now()))
}

func TestDaily(t *testing.T) {
	s := Daily(2, 30)

	from := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 1, 2, 30, 0, 0, time.UTC), s.Next(from))

	from = time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 2, 2, 30, 0, 0, time.UTC), s.Next(from))
}

func TestCron(t *testing.T) {
	s := Cron("*/15 * * * *")
	from := time.Date(2026, 1, 1, 8, 7, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 1, 8, 15, 0, 0, time.UTC), s.Next(from))
}

func TestCron_InvalidExpression_Panics(t *testing.T) {
	assert.Panics(t, func() {
		Cron("invalid cron")
	})
}

func TestParse(t *testing.T) {
	from := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	s, err := Parse("30s")
	require.NoError(t, err)
	assert.Equal(t, from.Add(30*time.Second), s.Next(from))

	s, err = Parse("@every 2m")
	require.NoError(t, err)
	assert.Equal(t, from.Add(2*time.Minute), s.Next(from))

	s, err = Parse(" 0 9 * * 1-5 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC), s.Next(from))

	_, err = Parse("0s")
	assert.Error(t, err)
	_, err = Parse("every now and then")
	assert.Error(t, err)
}
