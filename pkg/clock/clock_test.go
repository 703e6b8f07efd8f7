package clock_test

import (
	"testing"
	"time"

	"github.com/julien-sobczak/anksidian/pkg/clock"
	"github.com/stretchr/testify/assert"
)

func TestSystemClock(t *testing.T) {
	assert.WithinDuration(t, time.Now(), clock.Now(), time.Second)
}

func TestFreeze(t *testing.T) {
	c := clock.Freeze()
	defer clock.Unfreeze()

	t1 := clock.Now()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, t1, clock.Now())
	assert.Equal(t, c.Now(), t1)
}

func TestFreezeAt(t *testing.T) {
	point := time.Date(2023, 1, 1, 14, 0, 0, 0, time.UTC)
	c := clock.FreezeAt(point)
	defer clock.Unfreeze()
	assert.Equal(t, point, clock.Now())

	next := c.FastForward(90 * time.Minute)
	assert.Equal(t, time.Date(2023, 1, 1, 15, 30, 0, 0, time.UTC), next)
	assert.Equal(t, next, clock.Now())
}

func TestUnfreeze(t *testing.T) {
	clock.FreezeAt(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	clock.Unfreeze()
	assert.WithinDuration(t, time.Now(), clock.Now(), time.Second)
}
