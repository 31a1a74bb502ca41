// ABOUTME: Startup recovery: finds an unfinished run for the same target, roots and mode, and asks what to do.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389-research/ark/runstore"
)

// RecoveryChoice is the answer to the recovery prompt.
type RecoveryChoice int

const (
	RecoveryResume RecoveryChoice = iota
	RecoveryNew
	RecoveryCancel
)

func (c RecoveryChoice) String() string {
	switch c {
	case RecoveryResume:
		return "resume"
	case RecoveryNew:
		return "new"
	case RecoveryCancel:
		return "cancel"
	}
	return fmt.Sprintf("RecoveryChoice(%d)", int(c))
}

// ErrCancelled is returned when the user cancels at the recovery prompt.
var ErrCancelled = errors.New("run cancelled by user")

// RecoveryPrompt decides what to do with an unfinished run.
type RecoveryPrompt interface {
	ChooseRecovery(ctx context.Context, run *runstore.Summary) (RecoveryChoice, error)
}

// StaticRecoveryPrompt always answers Choice.
type StaticRecoveryPrompt struct {
	Choice RecoveryChoice
}

// ChooseRecovery returns p.Choice.
func (p StaticRecoveryPrompt) ChooseRecovery(context.Context, *runstore.Summary) (RecoveryChoice, error) {
	return p.Choice, nil
}

// Resolution is how ResolveRun settled the run to execute.
type Resolution struct {
	RunID  string
	Resume bool
	// Discarded is the run abandoned by a "new" answer, if any.
	Discarded string
}

// ResolveRun looks for the latest resumable run with the same identity. With
// none, it returns an empty resolution and the caller starts fresh. Choosing
// new marks the old run discarded; cancel returns ErrCancelled.
func ResolveRun(ctx context.Context, store *runstore.Store, prompt RecoveryPrompt, target string, roots []string, dryRun bool) (Resolution, error) {
	latest, err := store.FindLatestResumable(target, roots, dryRun)
	if err != nil {
		return Resolution{}, err
	}
	if latest == nil {
		return Resolution{}, nil
	}
	if prompt == nil {
		prompt = StaticRecoveryPrompt{Choice: RecoveryResume}
	}

	choice, err := prompt.ChooseRecovery(ctx, latest)
	if err != nil {
		return Resolution{}, fmt.Errorf("recovery prompt: %w", err)
	}
	switch choice {
	case RecoveryResume:
		return Resolution{RunID: latest.RunID, Resume: true}, nil
	case RecoveryNew:
		if err := store.MarkStatus(latest.RunID, runstore.StatusDiscarded); err != nil {
			return Resolution{}, err
		}
		return Resolution{Discarded: latest.RunID}, nil
	default:
		return Resolution{}, ErrCancelled
	}
}
