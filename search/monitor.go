package search

import (
	"github.com/poiesic/babel/core"
)

// progressInterval is the number of pages between ScanMonitor.Progress calls.
const progressInterval = 1000

// ScanMonitor provides hooks to observe a scan.
// Implement this interface to report progress while a search runs.
// Hooks are called synchronously from the scanning goroutine.
type ScanMonitor interface {
	Start(query string, start core.Address, limit int64)
	Progress(scanned int64, address core.Address)
	Match(result *core.SearchResult)
	Finish(scanned int64, results []core.SearchResult)
}

// noopMonitor is a no-op implementation of ScanMonitor
type noopMonitor struct{}

var _ ScanMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.Address, _ int64) {}
func (n *noopMonitor) Progress(_ int64, _ core.Address)        {}
func (n *noopMonitor) Match(_ *core.SearchResult)              {}
func (n *noopMonitor) Finish(_ int64, _ []core.SearchResult)   {}
