package domain

// Stage is a state of the per-request answering pipeline
type Stage string

const (
	StageFetching  Stage = "fetching"
	StageChunking  Stage = "chunking"
	StageEmbedding Stage = "embedding"
	StageIndexing  Stage = "indexing"
	StageAnswering Stage = "answering"
	StageDone      Stage = "done"
	StageFailed    Stage = "failed"
)

// stageOrder lists the forward path through the pipeline
var stageOrder = []Stage{
	StageFetching,
	StageChunking,
	StageEmbedding,
	StageIndexing,
	StageAnswering,
	StageDone,
}

// IsTerminal returns true for done and failed
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// CanTransitionTo reports whether next is a legal successor of s.
// Any non-terminal stage may fail; otherwise only the next forward stage is allowed.
// A cached index lets CHUNKING/EMBEDDING/INDEXING be skipped straight to ANSWERING.
func (s Stage) CanTransitionTo(next Stage) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	if s == StageFetching && next == StageAnswering {
		return true
	}
	for i, st := range stageOrder {
		if st == s {
			return i+1 < len(stageOrder) && stageOrder[i+1] == next
		}
	}
	return false
}
