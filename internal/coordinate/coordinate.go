// Package coordinate implements the parallel parse coordinator: a
// worker pool that consumes candidate paths and produces per-file parse
// outcomes, with no internal retry: parse failures are reported, not
// cancelled or retried, leaving that decision to the caller.
package coordinate

import (
	"github.com/sourcegraph/conc/pool"

	"github.com/fauli/dawidx/internal/fsmeta"
	"github.com/fauli/dawidx/internal/parse"
	"github.com/fauli/dawidx/internal/plugin"
)

// FileResult is one path's outcome: either a parsed Result with its source
// metadata, or an error.
type FileResult struct {
	Path string
	Info fsmeta.Info
	Result parse.Result
	Err    error
}

// workerCount clamps the pool size to [1,4], roughly half the candidate
// count, to bound CPU-bound parse parallelism without starving it.
func workerCount(candidates int) int {
	w := candidates / 2
	if w < 1 {
		w = 1
	}
	if w > 4 {
		w = 4
	}
	return w
}

// Run parses every path in paths using a bounded worker pool and returns
// one FileResult per path, in nondeterministic order: downstream identity
// is by dev_identifier/path, not arrival order.
func Run(paths []string) []FileResult {
	if len(paths) == 0 {
		return nil
	}

	results := make(chan FileResult, len(paths))
	p := pool.New().WithMaxGoroutines(workerCount(len(paths)))

	for _, path := range paths {
		path := path
		p.Go(func() {
			results <- parseOne(path)
		})
	}
	p.Wait()
	close(results)

	out := make([]FileResult, 0, len(paths))
	for r := range results {
		out = append(out, r)
	}
	return out
}

func parseOne(path string) FileResult {
	info, err := fsmeta.Read(path)
	if err != nil {
		return FileResult{Path: path, Err: err}
	}

	xmlData, err := fsmeta.Decompress(path)
	if err != nil {
		return FileResult{Path: path, Info: info, Err: err}
	}

	result, err := parse.Parse(xmlData)
	if err != nil {
		return FileResult{Path: path, Info: info, Err: err}
	}

	enrichPlugins(result.Plugins)

	return FileResult{Path: path, Info: info, Result: result}
}

// enrichPlugins applies the optional registry lookup in place. A miss or
// unconfigured registry leaves a plugin's enrichment fields nil.
func enrichPlugins(plugins []parse.Plugin) {
	for i := range plugins {
		info, ok := plugin.Enrich(plugins[i].DeviceID)
		if !ok {
			continue
		}
		if info.Vendor != "" {
			v := info.Vendor
			plugins[i].Vendor = &v
		}
		if info.Version != "" {
			v := info.Version
			plugins[i].Version = &v
		}
		if info.SDKVersion != "" {
			v := info.SDKVersion
			plugins[i].SDKVersion = &v
		}
		if info.Flags != "" {
			v := info.Flags
			plugins[i].Flags = &v
		}
	}
}
