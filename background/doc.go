// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package background runs an open-ended, resumable scan of the library for
// a set of watched phrases.
//
// A Coordinator partitions the address space across W workers by stride:
// worker i scans resume+i, resume+i+W, resume+i+2W and so on, so no two
// workers ever scan the same address and together they cover every address
// from the resume point on. Workers run on an ants pool and report to the
// coordinator over a single channel:
//
//   - match: first occurrence of a phrase on a page
//   - progress: the next address the worker will scan
//   - fault: a page that failed; the worker skips it and continues
//
// The coordinator is the only goroutine touching shared state. It
// deduplicates matches by (address, phrase), appends new ones to a
// storage.ResultRepository and periodically saves the lowest worker
// frontier as a checkpoint. A worker's matches always reach the coordinator
// before its later progress, so a checkpoint never passes a result that was
// not persisted. Restarting from the checkpoint may rescan a short trailing
// range; it never skips one.
//
// # Stopping
//
// Stop, or cancelling the context passed to Run, clears a shared flag that
// workers check before every page. The coordinator keeps draining messages
// for the grace period, abandons workers that are still busy, and writes a
// final checkpoint from the progress it received.
//
// # Usage
//
//	c, err := background.New(results, checkpoints, []string{"babel"},
//	    background.WithWorkers(4),
//	)
//	if err != nil {
//	    return err
//	}
//	go func() {
//	    for ev := range c.Events() {
//	        log.Println(ev)
//	    }
//	}()
//	summary, err := c.Run(ctx)
package background
