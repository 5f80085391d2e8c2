package model

import "fmt"

const (
	StageQueued             = "queued"
	StageFetchingMetadata   = "fetching_metadata"
	StageFetchingManifest   = "fetching_manifest"
	StageSelectingRendition = "selecting_rendition"
	StageFetchingKey        = "fetching_key"
	StageRewriting          = "rewriting"
	StageDownloadingVideo   = "downloading_video"
	StageDownloadingAudio   = "downloading_audio"
	StageRemuxing           = "remuxing"
	StageCleaningUp         = "cleaning_up"
	StageDone               = "done"
	StageAborted            = "aborted"
)

// pipelineOrder is the happy path; every non-terminal stage may also abort.
var pipelineOrder = []string{
	StageQueued,
	StageFetchingMetadata,
	StageFetchingManifest,
	StageSelectingRendition,
	StageFetchingKey,
	StageRewriting,
	StageDownloadingVideo,
	StageDownloadingAudio,
	StageRemuxing,
	StageCleaningUp,
	StageDone,
}

var allowedTransitions = buildTransitions()

func buildTransitions() map[string]map[string]bool {
	t := make(map[string]map[string]bool, len(pipelineOrder)+1)
	for i, stage := range pipelineOrder {
		next := map[string]bool{}
		if i+1 < len(pipelineOrder) {
			next[pipelineOrder[i+1]] = true
			next[StageAborted] = true
		}
		t[stage] = next
	}
	t[StageAborted] = map[string]bool{}
	return t
}

func IsKnownStage(stage string) bool {
	_, ok := allowedTransitions[stage]
	return ok
}

func IsTerminalStage(stage string) bool {
	return stage == StageDone || stage == StageAborted
}

func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func TransitionJob(job *Job, toStage string, reason string) error {
	from := job.Stage
	if !CanTransition(from, toStage) {
		return fmt.Errorf("invalid job stage transition: %q -> %q (index=%d video_url=%s)", from, toStage, job.Index, job.VideoURL)
	}
	job.Stage = toStage
	job.Reason = reason
	return nil
}
