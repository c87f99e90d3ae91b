// Package utils holds small helpers shared by the layer kernels.
package utils

import (
	"runtime"
	"sync"
)

// MultiThread runs f for every integer in [start, end), splitting the range
// across goroutines. It is meant to be called sequentially from within a
// layer's forward or backward kernel, not from multiple threads at once;
// the per-step control flow stays single-threaded while the heavy loops
// fan out internally.
//
// 'opsPerThread' is the number of indexes a goroutine claims at a time, and
// 'threadsPerCPU' scales the number of goroutines per CPU. MultiThread
// assumes end >= start and returns once every index has been handled.
func MultiThread(start, end int, f func(int), opsPerThread, threadsPerCPU int) {
	numThreads := runtime.NumCPU() * threadsPerCPU
	index := start
	var indexMux sync.Mutex

	var wg sync.WaitGroup
	wg.Add(numThreads)
	for thread := 0; thread < numThreads; thread++ {
		go func() {
			for {
				indexMux.Lock()
				if index >= end {
					indexMux.Unlock()
					break
				}

				i := index
				index += opsPerThread
				indexMux.Unlock()

				e := i + opsPerThread
				if e > end {
					e = end
				}

				for ; i < e; i++ {
					f(i)
				}
			}

			wg.Done()
		}()
	}

	wg.Wait()
}
