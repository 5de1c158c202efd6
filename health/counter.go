package health

import "time"

const counterBuckets = 60

// minuteCounter counts events in one-minute buckets over the last hour.
// It is not safe for concurrent use; the owning Pinger serializes access.
type minuteCounter struct {
	buckets [counterBuckets]int64
	minutes [counterBuckets]int64
}

func minuteOf(t time.Time) int64 {
	return t.Unix() / 60
}

// inc counts one event at t.
func (c *minuteCounter) inc(t time.Time) {
	m := minuteOf(t)
	i := int(m % counterBuckets)
	if c.minutes[i] != m {
		c.minutes[i] = m
		c.buckets[i] = 0
	}
	c.buckets[i]++
}

// last returns per-minute counts for the n minutes ending at now, most recent first.
func (c *minuteCounter) last(now time.Time, n int) []int64 {
	n = min(max(n, 0), counterBuckets)
	out := make([]int64, n)
	current := minuteOf(now)
	for k := range n {
		m := current - int64(k)
		i := int(m % counterBuckets)
		if c.minutes[i] == m {
			out[k] = c.buckets[i]
		}
	}
	return out
}

// total sums the counts for the n minutes ending at now.
func (c *minuteCounter) total(now time.Time, n int) int64 {
	var sum int64
	for _, v := range c.last(now, n) {
		sum += v
	}
	return sum
}
