// Package ipc defines the wire messages driver and worker subprocesses
// exchange, and the framing that carries them over the worker's stdin and
// stdout pipes. No message-queue library anywhere in the retrieval pack
// offers the POSIX named-queue transport the original implementation used
// (original_source/indexer/DriverWorkerComms.h's driverToWorkerQueueName /
// workerToDriverQueueName), so this substitutes the one IPC transport the
// teacher's own stack actually relies on: os/exec subprocesses connected by
// pipes, framed as newline-delimited JSON (see DESIGN.md).
package ipc

import (
	"encoding/json"
	"math"
)

// WorkerID identifies one worker subprocess for the lifetime of a run.
type WorkerID uint64

// JobID identifies one unit of work. ShutdownJobID is the sentinel a
// driver sends to tell a worker to exit cleanly (original_source's
// JobId::Shutdown()).
type JobID uint64

// ShutdownJobID is never assigned to real work; receiving it is a worker's
// signal to exit after acknowledging.
const ShutdownJobID JobID = math.MaxUint64

// JobKind selects which of the two TU-processing phases a Job carries
// (spec.md §4.5 "two kinds of jobs").
type JobKind string

const (
	JobSemanticAnalysis JobKind = "semantic_analysis"
	JobEmitIndex        JobKind = "emit_index"
	JobShutdown         JobKind = "shutdown"
)

// SemanticAnalysisJob is the Phase A payload: parse mainFile and its
// transitive includes, and report every header's preprocessor-transcript
// hash (spec.md §4.2).
type SemanticAnalysisJob struct {
	MainFile string `json:"main_file"`
	Args     []string `json:"args"`
	Directory string `json:"directory"`
}

// EmitIndexJob is the Phase B payload: re-use the TU state retained from
// the matching SemanticAnalysisJob and emit documents only for the listed
// (path, hash) pairs this worker was chosen to own (spec.md §4.5 "the
// driver enqueues an EmitIndex job for the same worker").
type EmitIndexJob struct {
	MainFile string        `json:"main_file"`
	Assigned []AssignedFile `json:"assigned"`
}

// AssignedFile is one file this worker must emit a document for.
type AssignedFile struct {
	Path string `json:"path"`
	Hash uint64 `json:"hash"`
}

// Job is the envelope a Request carries; exactly one of the two payload
// fields is set according to Kind.
type Job struct {
	Kind            JobKind               `json:"kind"`
	SemanticAnalysis *SemanticAnalysisJob `json:"semantic_analysis,omitempty"`
	EmitIndex        *EmitIndexJob        `json:"emit_index,omitempty"`
}

// Request is one driver-to-worker message.
type Request struct {
	ID  JobID `json:"id"`
	Job Job   `json:"job"`
}

// ResultKind selects which of Result's payload fields is populated.
type ResultKind string

const (
	ResultSemanticAnalysis ResultKind = "semantic_analysis"
	ResultEmitIndex        ResultKind = "emit_index"
	ResultError            ResultKind = "error"
	ResultShutdownAck      ResultKind = "shutdown_ack"
)

// HeaderHashReport is one header's classification from Phase A (spec.md
// §4.2 "well-behaved" vs "ill-behaved").
type HeaderHashReport struct {
	Path         string   `json:"path"`
	WellBehaved  bool     `json:"well_behaved"`
	Hashes       []uint64 `json:"hashes"`
}

// SemanticAnalysisResult is a worker's Phase A response.
type SemanticAnalysisResult struct {
	Headers []HeaderHashReport `json:"headers"`
}

// EmitIndexResult is a worker's Phase B response: the shard file it wrote.
type EmitIndexResult struct {
	ShardPath string `json:"shard_path"`
}

// Result is the envelope a Response carries.
type Result struct {
	Kind             ResultKind              `json:"kind"`
	SemanticAnalysis *SemanticAnalysisResult `json:"semantic_analysis,omitempty"`
	EmitIndex        *EmitIndexResult        `json:"emit_index,omitempty"`
	Error            string                  `json:"error,omitempty"`
}

// Response is one worker-to-driver message.
type Response struct {
	WorkerID WorkerID `json:"worker_id"`
	JobID    JobID    `json:"job_id"`
	Result   Result   `json:"result"`
}

// MarshalSize reports the encoded size of v, for enforcing
// ConfigParams.IPCSlotSize the way spec.md §6 describes (a job whose
// encoded request would exceed the configured slot size is rejected before
// send rather than silently truncated).
func MarshalSize(v any) (int, []byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, nil, err
	}

	return len(b), b, nil
}
