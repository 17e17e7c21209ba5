package pipeline

import (
	"context"
	"time"
)

// StepName is a state of the sync state machine.
type StepName string

// Sync states. DONE is terminal.
const (
	StepCheck         StepName = "CHECK"
	StepSkip          StepName = "SKIP"
	StepDownload      StepName = "DOWNLOAD"
	StepDecrypt       StepName = "DECRYPT"
	StepFinalize      StepName = "FINALIZE"
	StepCatalogUpdate StepName = "CATALOG_UPDATE"
	StepDone          StepName = "DONE"
)

// stepFn implement a single sync step. It returns the next step.
type stepFn func(s *Syncer, ctx context.Context, j *job) (StepName, error)

type step struct {
	Name StepName
	Fn   stepFn
}

// StepInfo is used to represent executed step and its duration.
type StepInfo struct {
	Name     StepName
	Num      int
	Duration time.Duration
}

var steps = []step{
	{Name: StepCheck, Fn: check},
	{Name: StepSkip, Fn: skip},
	{Name: StepDownload, Fn: download},
	{Name: StepDecrypt, Fn: decrypt},
	{Name: StepFinalize, Fn: finalize},
	{Name: StepCatalogUpdate, Fn: catalogUpdate},
}
