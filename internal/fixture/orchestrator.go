// Package fixture builds the ledger state the conformance cases depend on.
// A plan is an ordered list of steps, each declaring the conditions it
// needs and the conditions it establishes.
package fixture

import (
	"context"
	"fmt"
	"time"

	"github.com/LeJamon/xrplconform/internal/log"
	"github.com/LeJamon/xrplconform/internal/metrics"
	"github.com/LeJamon/xrplconform/internal/txn"
)

// Condition names a fact about the remote ledger.
type Condition string

// Env submits fixture transactions. Apply prepares, signs and submits
// intent for signer, then closes the ledger. It returns the transaction id.
type Env interface {
	Apply(ctx context.Context, signer txn.Wallet, intent txn.Intent) (string, error)
}

// Step is one fixture action.
type Step struct {
	Name     string
	Requires []Condition
	Produces []Condition
	Run      func(ctx context.Context, env Env) error
}

// Orchestrator runs a plan strictly in order.
type Orchestrator struct {
	Steps   []Step
	Initial []Condition
	Metrics *metrics.Metrics
}

// New returns an orchestrator for steps, given the conditions that hold
// before the first step.
func New(steps []Step, initial ...Condition) *Orchestrator {
	return &Orchestrator{Steps: steps, Initial: initial}
}

// Validate checks that every precondition is an initial fact or is
// produced by an earlier step.
func (o *Orchestrator) Validate() error {
	if len(o.Steps) == 0 {
		return ErrEmptyPlan
	}
	held := make(map[Condition]bool, len(o.Initial))
	for _, c := range o.Initial {
		held[c] = true
	}
	for _, step := range o.Steps {
		if step.Run == nil {
			return fmt.Errorf("fixture step %q has nothing to run", step.Name)
		}
		var missing []Condition
		for _, c := range step.Requires {
			if !held[c] {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 {
			return &PlanError{Step: step.Name, Missing: missing}
		}
		for _, c := range step.Produces {
			held[c] = true
		}
	}
	return nil
}

// Run validates the plan and executes it. The first failing step stops the
// run with a *SetupError; later steps never start.
func (o *Orchestrator) Run(ctx context.Context, env Env) error {
	if err := o.Validate(); err != nil {
		return err
	}
	for i, step := range o.Steps {
		if err := ctx.Err(); err != nil {
			return &SetupError{Step: step.Name, Err: err}
		}
		log.Debug("Running fixture step", "step", step.Name, "index", i+1, "total", len(o.Steps))

		start := time.Now()
		err := step.Run(ctx, env)
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.Metrics.RecordFixtureStep(step.Name, status, time.Since(start).Seconds())
		if err != nil {
			log.Error("Fixture step failed", "step", step.Name, "err", err)
			return &SetupError{Step: step.Name, Err: err}
		}
	}
	log.Info("Fixtures ready", "steps", len(o.Steps))
	return nil
}
