// seehuhn.de/go/pdfclean - remove white backgrounds from PDF files
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package batch runs a function on many input files in parallel.
//
// Each file is processed independently: a failure, or even a panic, while
// processing one file does not affect the processing of the others.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Result is the outcome of processing one item.
type Result[T any] struct {
	Item  string
	Value T
	Err   error
}

// PanicError is used to report a panic which occurred while processing an
// item.
type PanicError struct {
	Item  string
	Value any
	Stack []byte
}

func (err *PanicError) Error() string {
	return fmt.Sprintf("%s: panic: %v", err.Item, err.Value)
}

// Run calls fn for every item, using at most workers goroutines.  If workers
// is not positive, runtime.NumCPU() is used.
//
// The results are returned in the order of the input items.  Once ctx is
// cancelled, no new items are started and the remaining items are reported
// with ctx.Err() as their error.  Items which are already being processed
// run to completion.
func Run[T any](ctx context.Context, items []string, workers int, fn func(string) (T, error)) []Result[T] {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(items))

	res := make([]Result[T], len(items))
	for i, item := range items {
		res[i].Item = item
	}

	distrib := make(chan int)
	wg := &sync.WaitGroup{}
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range distrib {
				res[i].Value, res[i].Err = call(fn, items[i])
			}
		}()
	}

	next := 0
distribLoop:
	for next < len(items) {
		select {
		case <-ctx.Done():
			break distribLoop
		case distrib <- next:
			next++
		}
	}
	close(distrib)
	wg.Wait()

	for i := next; i < len(items); i++ {
		res[i].Err = ctx.Err()
	}
	return res
}

// call runs fn(item) and converts a panic into a *PanicError.
func call[T any](fn func(string) (T, error), item string) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Item: item, Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(item)
}

// Policy determines the exit status of a batch run.
type Policy int

const (
	// BestEffort reports success even if some items failed.
	BestEffort Policy = iota

	// FailOnError reports failure if at least one item failed.
	FailOnError
)

// Summary aggregates the results of a batch run.
type Summary struct {
	Total  int
	Failed int
}

// Summarize counts the successful and failed items.
func Summarize[T any](results []Result[T]) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
		}
	}
	return s
}

// Succeeded returns the number of items which were processed without error.
func (s Summary) Succeeded() int {
	return s.Total - s.Failed
}

// ExitCode returns the process exit status for the summary under the given
// policy.
func (s Summary) ExitCode(p Policy) int {
	if p == FailOnError && s.Failed > 0 {
		return 1
	}
	return 0
}
