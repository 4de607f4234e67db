// Package worker implements the worker subprocess side of the driver/
// worker protocol (spec.md §4.5, §9): a Runtime holds exactly one TU's
// state at a time, dispatching SemanticAnalysis and EmitIndex requests
// against internal/frontend, internal/prehash, internal/indexer, and
// internal/symbol, then reports back over internal/ipc's framed transport.
package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/scipcxx/internal/classgraph"
	"github.com/Sumatoshi-tech/scipcxx/internal/compdb"
	"github.com/Sumatoshi-tech/scipcxx/internal/frontend"
	"github.com/Sumatoshi-tech/scipcxx/internal/indexer"
	"github.com/Sumatoshi-tech/scipcxx/internal/ipc"
	"github.com/Sumatoshi-tech/scipcxx/internal/pathmodel"
	"github.com/Sumatoshi-tech/scipcxx/internal/prehash"
	"github.com/Sumatoshi-tech/scipcxx/internal/shard"
	"github.com/Sumatoshi-tech/scipcxx/internal/symbol"
)

// tuState is everything retained between a TU's SemanticAnalysis request
// and its matching EmitIndex request (spec.md §4.5 "the driver re-uses the
// loaded TU" — here, the worker's own retained parse and hash state,
// since nothing survives a tree-sitter Tree being Closed).
type tuState struct {
	mainPath pathmodel.AbsolutePath
	mainTree *frontend.Tree
	lang     frontend.Language
	search   frontend.SearchPath
	result   prehash.FlushResult
}

// Runtime owns the retained TU states for one worker process. A worker
// processes requests strictly sequentially (spec.md §9: "each per-worker
// process owns its preprocessor and AST state exclusively"), so no
// synchronization is needed here beyond what the request loop already
// serializes.
type Runtime struct {
	ProjectRoot pathmodel.AbsolutePath
	WorkerID    ipc.WorkerID
	ShardDir    string
	PackageMap  *pathmodel.PackageMap
	// GitBlob, when non-nil, resolves every file read (main TU source and
	// headers alike) against a fixed git revision instead of the working
	// tree (SPEC_FULL.md §11 "--git-blob"). Closed by the caller, not by
	// Runtime, since its lifetime spans every TU this worker processes.
	GitBlob *compdb.GitBlobResolver
	states  map[string]*tuState
}

// NewRuntime returns a Runtime rooted at projectRoot, used to compute the
// relative paths documents are filed under. shardDir is the temporary
// directory EmitIndex jobs write their shard file into. packageMap may be
// nil, in which case every TU keeps the formatter's placeholder package
// coordinates (spec.md §4.3). gitBlob may be nil, in which case files are
// read from the working tree.
func NewRuntime(projectRoot pathmodel.AbsolutePath, workerID ipc.WorkerID, shardDir string, packageMap *pathmodel.PackageMap, gitBlob *compdb.GitBlobResolver) *Runtime {
	return &Runtime{ProjectRoot: projectRoot, WorkerID: workerID, ShardDir: shardDir, PackageMap: packageMap, GitBlob: gitBlob, states: make(map[string]*tuState)}
}

// readFile reads path from the git-blob resolver when one is configured,
// falling back to the working tree otherwise. path is made relative to
// ProjectRoot for the git-blob lookup, since tree entries are repo-rooted.
func (r *Runtime) readFile(path string) ([]byte, error) {
	if r.GitBlob == nil {
		return os.ReadFile(path) //nolint:gosec // compile-database-controlled path.
	}

	abs, err := pathmodel.TryAbsolutePath(path)
	if err != nil {
		return nil, fmt.Errorf("worker: %s: %w", path, err)
	}

	rel, err := r.ProjectRoot.MakeRelative(abs)
	if err != nil {
		return nil, fmt.Errorf("worker: %s is outside the project root, can't resolve against --git-blob: %w", path, err)
	}

	return r.GitBlob.ReadFile(rel)
}

// Handle dispatches one request and returns the Result to send back.
// jobID names the shard file EmitIndex produces (spec.md §6: "shards are
// named by worker-id and job-id").
func (r *Runtime) Handle(jobID ipc.JobID, job ipc.Job) ipc.Result {
	switch job.Kind {
	case ipc.JobSemanticAnalysis:
		if job.SemanticAnalysis == nil {
			return errorResult(fmt.Errorf("worker: semantic_analysis job missing payload"))
		}

		res, err := r.semanticAnalysis(*job.SemanticAnalysis)
		if err != nil {
			return errorResult(err)
		}

		return ipc.Result{Kind: ipc.ResultSemanticAnalysis, SemanticAnalysis: &res}
	case ipc.JobEmitIndex:
		if job.EmitIndex == nil {
			return errorResult(fmt.Errorf("worker: emit_index job missing payload"))
		}

		res, err := r.emitIndex(jobID, *job.EmitIndex)
		if err != nil {
			return errorResult(err)
		}

		return ipc.Result{Kind: ipc.ResultEmitIndex, EmitIndex: &res}
	default:
		return errorResult(fmt.Errorf("worker: unrecognized job kind %q", job.Kind))
	}
}

func errorResult(err error) ipc.Result {
	return ipc.Result{Kind: ipc.ResultError, Error: err.Error()}
}

// semanticAnalysis runs Phase A (spec.md §4.2): parse the TU, walk its
// preprocessor-visible directives, and classify every header as well- or
// ill-behaved. The resulting Tree and hash state are retained under
// job.MainFile for the matching EmitIndex request.
func (r *Runtime) semanticAnalysis(job ipc.SemanticAnalysisJob) (ipc.SemanticAnalysisResult, error) {
	mainAbs, err := pathmodel.TryAbsolutePath(job.MainFile)
	if err != nil {
		return ipc.SemanticAnalysisResult{}, fmt.Errorf("worker: %s: %w", job.MainFile, err)
	}

	source, err := r.readFile(job.MainFile)
	if err != nil {
		return ipc.SemanticAnalysisResult{}, fmt.Errorf("worker: read %s: %w", job.MainFile, err)
	}

	lang := frontend.DetectLanguage(job.MainFile, job.Args)
	search := frontend.SearchPathFromArgs(job.Directory, job.Args)

	hasher := prehash.NewHasher(nil)
	walker := frontend.NewWalker(hasher, search, lang)

	tree, err := walker.WalkMain(mainAbs, source)
	if err != nil {
		return ipc.SemanticAnalysisResult{}, fmt.Errorf("worker: %w", err)
	}

	result := hasher.Flush()

	r.states[job.MainFile] = &tuState{
		mainPath: mainAbs,
		mainTree: tree,
		lang:     lang,
		search:   search,
		result:   result,
	}

	reports := make([]ipc.HeaderHashReport, 0, len(result.WellBehaved)+len(result.IllBehaved))

	for _, p := range result.WellBehaved {
		reports = append(reports, ipc.HeaderHashReport{Path: p.String(), WellBehaved: true, Hashes: result.Lookup.Hashes(p)})
	}

	for _, p := range result.IllBehaved {
		reports = append(reports, ipc.HeaderHashReport{Path: p.String(), WellBehaved: false, Hashes: result.Lookup.Hashes(p)})
	}

	return ipc.SemanticAnalysisResult{Headers: reports}, nil
}

// emitIndex runs Phase B (spec.md §4.4, §4.5): for every file this worker
// was assigned, build a PartialDocument (re-using the retained main-file
// Tree, or re-parsing an included header on its own since tree-sitter
// never produces a merged multi-file token stream for it), merge in this
// TU's macro occurrences, and write the result as a shard.
func (r *Runtime) emitIndex(jobID ipc.JobID, job ipc.EmitIndexJob) (ipc.EmitIndexResult, error) {
	state, ok := r.states[job.MainFile]
	if !ok {
		return ipc.EmitIndexResult{}, fmt.Errorf("worker: no retained state for %s (semantic_analysis must run first)", job.MainFile)
	}

	formatter := symbol.NewFormatter()
	hierarchy := classgraph.NewHierarchy()

	if r.PackageMap != nil {
		if pkg, ok := r.PackageMap.Lookup(state.mainPath); ok {
			formatter.SetPackage(symbol.PackageCoordinates{Manager: ".", Name: pkg.Name, Version: pkg.Version})
		}
	}

	fileIDs := make(map[string]pathmodel.FileID, len(job.Assigned))

	for _, a := range job.Assigned {
		abs, err := pathmodel.TryAbsolutePath(a.Path)
		if err != nil {
			continue
		}

		id, ok := state.result.Lookup.Lookup(abs, a.Hash)
		if !ok {
			continue
		}

		fileIDs[a.Path] = id
	}

	relPath := func(id pathmodel.FileID) (string, bool) {
		for path, fid := range fileIDs {
			if fid == id {
				return r.relativePath(path), true
			}
		}

		return "", false
	}

	macroIndexer := indexer.NewMacroIndexer(formatter, relPath)
	macroIndexer.Index(state.result.Macros)

	var tuDocs []*indexer.PartialDocument

	for _, a := range job.Assigned {
		id, ok := fileIDs[a.Path]
		if !ok {
			continue
		}

		doc, err := r.indexOneFile(state, formatter, hierarchy, id, a.Path)
		if err != nil {
			continue
		}

		tuDocs = append(tuDocs, doc)
	}

	merged := indexer.Merge(macroIndexer.Documents(), tuDocs, true)

	docs := make([]*indexer.PartialDocument, 0, len(merged))
	for _, doc := range merged {
		docs = append(docs, doc)
	}

	data := shard.FromPartialDocuments(docs)

	shardPath := shard.Path(r.ShardDir, uint64(r.WorkerID), uint64(jobID))
	if err := shard.Write(shardPath, data); err != nil {
		return ipc.EmitIndexResult{}, err
	}

	return ipc.EmitIndexResult{ShardPath: shardPath}, nil
}

// indexOneFile builds the PartialDocument for one assigned file: the
// retained main-file Tree if path is the TU's own main file, otherwise a
// fresh independent parse of that header (see package doc comment).
func (r *Runtime) indexOneFile(state *tuState, formatter *symbol.Formatter, hierarchy *classgraph.Hierarchy, file pathmodel.FileID, path string) (*indexer.PartialDocument, error) {
	tree := state.mainTree
	owned := false

	if path != state.mainPath.String() {
		source, err := r.readFile(path)
		if err != nil {
			return nil, fmt.Errorf("worker: read %s: %w", path, err)
		}

		tree, err = frontend.Parse(state.lang, source)
		if err != nil {
			return nil, fmt.Errorf("worker: parse %s: %w", path, err)
		}

		owned = true
	}

	if owned {
		defer tree.Close()
	}

	tu := indexer.NewTUIndexer(formatter, hierarchy, tree, file, r.relativePath(path), state.mainPath)
	frontend.Dispatch(tree, tu)

	return tu.Document(), nil
}

// relativePath renders path relative to r.ProjectRoot the way a
// PartialDocument's RelPath field is filed under, falling back to the
// absolute path for anything outside the project root (an external
// header, typically).
func (r *Runtime) relativePath(path string) string {
	root := r.ProjectRoot.String()

	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}

	return path
}

// Close releases every retained Tree, for worker shutdown.
func (r *Runtime) Close() {
	for _, s := range r.states {
		s.mainTree.Close()
	}
}
