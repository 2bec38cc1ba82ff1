// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lint

import (
	"sync"
	"sync/atomic"
)

// runIndexed executes fn(i) for every i in [0,n) on min(concurrency, n)
// workers pulling indices from a shared monotonic counter.
//
// Each fn invocation writes only its own pre-sized result slot, so output
// order always matches input order regardless of completion order, and a
// slow index cannot stall the remaining workers. fn must do its own error
// containment; the pool never cancels siblings.
func runIndexed(n, concurrency int, fn func(i int)) {
	if n <= 0 {
		return
	}
	workers := concurrency
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1)) - 1
				if i >= n {
					return
				}
				fn(i)
			}
		}()
	}
	wg.Wait()
}
