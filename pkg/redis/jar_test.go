package redis_test

import (
	"sync"

	"github.com/dmitrymomot/atomicsession/pkg/cookie"
)

// memJar is a CookieJar without HTTP: values written by Set become readable
// after replay, the way a browser sends them on the next request.
type memJar struct {
	mu       sync.Mutex
	incoming map[string]string
	outgoing map[string]string
}

func newJar() *memJar {
	return &memJar{incoming: map[string]string{}, outgoing: map[string]string{}}
}

func (j *memJar) Get(name string, _ ...cookie.Option) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, ok := j.incoming[name]
	return v, ok
}

func (j *memJar) Set(name, value string, _ ...cookie.Option) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outgoing[name] = value
}

func (j *memJar) replay() *memJar {
	j.mu.Lock()
	defer j.mu.Unlock()
	next := newJar()
	for k, v := range j.outgoing {
		if v != "" {
			next.incoming[k] = v
		}
	}
	return next
}
