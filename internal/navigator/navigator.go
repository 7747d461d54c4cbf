// Package navigator drives the browser from the authenticated landing page to
// the product-listing view through a fixed sequence of UI steps.
package navigator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"inventory-extractor/internal/config"
	"inventory-extractor/internal/metrics"
)

// StepError is fatal: a required navigation step did not complete. Partial
// navigation state is not salvaged.
type StepError struct {
	Step    string
	Timeout time.Duration
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("navigation step %q did not complete within %s: %v", e.Step, e.Timeout, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Navigator runs the configured step sequence on a single page.
type Navigator struct {
	page    *rod.Page
	steps   []config.Step
	timeout time.Duration
	metrics *metrics.Metrics
}

// New builds a navigator over the given page and step sequence.
func New(page *rod.Page, steps []config.Step, timeout time.Duration, m *metrics.Metrics) *Navigator {
	return &Navigator{
		page:    page,
		steps:   steps,
		timeout: timeout,
		metrics: m,
	}
}

// Run executes every step in order. Optional steps are skipped when their
// element never shows up; anything else that times out aborts the run.
func (n *Navigator) Run() error {
	for _, step := range n.steps {
		start := time.Now()

		el, err := n.find(step)
		if err != nil {
			if step.Optional {
				slog.Debug("optional step not present, skipping", "step", step.Name)
				continue
			}
			return &StepError{Step: step.Name, Timeout: n.timeout, Err: err}
		}

		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			if step.Optional {
				slog.Debug("optional step not clickable, skipping", "step", step.Name)
				continue
			}
			return &StepError{Step: step.Name, Timeout: n.timeout, Err: err}
		}

		n.settle(step)
		n.metrics.ObserveStep(step.Name, time.Since(start))
		slog.Info("navigation step complete", "step", step.Name)
	}
	return nil
}

func (n *Navigator) find(step config.Step) (*rod.Element, error) {
	page := n.page.Timeout(n.timeout)

	var el *rod.Element
	var err error
	if step.Match != "" {
		el, err = page.ElementR(step.Selector, step.Match)
	} else {
		el, err = page.Element(step.Selector)
	}
	if err != nil {
		return nil, err
	}
	if err := el.WaitVisible(); err != nil {
		return nil, err
	}
	return el, nil
}

// settle gives the UI time to react to the click before the next lookup.
func (n *Navigator) settle(step config.Step) {
	_ = n.page.Timeout(n.timeout).WaitLoad()
	n.page.Timeout(n.timeout).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	if step.SettleMs > 0 {
		time.Sleep(time.Duration(step.SettleMs) * time.Millisecond)
	}
}
