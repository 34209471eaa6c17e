// Package generator produces synthetic cinema records. All randomness comes
// from the injected source so runs are reproducible under a fixed seed.
package generator

import (
	"math"
	"math/rand"
	"strings"
	"time"
)

// Volumes is how many top-level records one generation run produces.
type Volumes struct {
	Rooms        int
	Schedules    int
	Users        int
	Reservations int
	Movies       int
}

var (
	FullVolumes   = Volumes{Rooms: 100, Schedules: 12000, Users: 2000, Reservations: 15000, Movies: 8000}
	SampleVolumes = Volumes{Rooms: 10, Schedules: 100, Users: 50, Reservations: 200, Movies: 100}
)

type Generator struct {
	rnd *rand.Rand
	now func() time.Time
}

func New(rnd *rand.Rand, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{rnd: rnd, now: now}
}

// NewSeeded is New with a fresh source and the wall clock.
func NewSeeded(seed int64) *Generator {
	return New(rand.New(rand.NewSource(seed)), time.Now)
}

// between returns an int in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rnd.Intn(hi-lo+1)
}

// chance reports true with probability num/den.
func (g *Generator) chance(num, den int) bool {
	return g.rnd.Intn(den) < num
}

func (g *Generator) pick(list []string) string {
	return list[g.rnd.Intn(len(list))]
}

// sample returns n distinct elements of list in random order.
func (g *Generator) sample(list []string, n int) []string {
	if n > len(list) {
		n = len(list)
	}
	idx := g.rnd.Perm(len(list))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = list[j]
	}
	return out
}

func (g *Generator) money(lo, hi float64) float64 {
	return math.Round((lo+g.rnd.Float64()*(hi-lo))*100) / 100
}

func (g *Generator) digits(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + g.rnd.Intn(10)))
	}
	return b.String()
}

func (g *Generator) alnum(n int) string {
	const chars = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = chars[g.rnd.Intn(len(chars))]
	}
	return string(b)
}

// timeBetween returns a uniformly random instant in [from, to).
func (g *Generator) timeBetween(from, to time.Time) time.Time {
	span := to.Sub(from)
	if span <= 0 {
		return from
	}
	return from.Add(time.Duration(g.rnd.Int63n(int64(span))))
}

// movieRef mimics a catalog ObjectID string.
func (g *Generator) movieRef() string {
	return "507f1f77bcf86cd799" + itoa(g.between(100000, 999999))
}
