package health

import (
	"context"
	"sort"
	"sync"
)

// Check reports whether a dependency answers.
type Check func(ctx context.Context) error

type Checks map[string]Check

// Run executes every check concurrently and returns the failures by name.
func (c Checks) Run(ctx context.Context) map[string]error {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed = make(map[string]error)
	)
	for name, check := range c {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			if err := check(ctx); err != nil {
				mu.Lock()
				failed[name] = err
				mu.Unlock()
			}
		}(name, check)
	}
	wg.Wait()
	return failed
}

func (c Checks) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
