// ABOUTME: Non-interactive role implementations for automation and tests.
package review

import (
	"context"
	"sync"
)

// ScriptedNavigator replays a fixed list of actions, then reports Done. Every
// view it was shown is recorded.
type ScriptedNavigator struct {
	mu      sync.Mutex
	actions []Action
	Views   []View
}

// NewScriptedNavigator returns a navigator that plays actions in order.
func NewScriptedNavigator(actions ...Action) *ScriptedNavigator {
	return &ScriptedNavigator{actions: actions}
}

// Next returns the next scripted action.
func (n *ScriptedNavigator) Next(_ context.Context, v View) (Action, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Views = append(n.Views, v)
	if len(n.actions) == 0 {
		return Action{Kind: ActionDone}, nil
	}
	a := n.actions[0]
	n.actions = n.actions[1:]
	return a, nil
}

// AutoNavigator finishes immediately, keeping the default selection.
type AutoNavigator struct{}

// Next always returns Done.
func (AutoNavigator) Next(context.Context, View) (Action, error) {
	return Action{Kind: ActionDone}, nil
}

// StaticConfirmer always gives the same answer.
type StaticConfirmer struct {
	Answer bool
}

// Confirm returns c.Answer.
func (c StaticConfirmer) Confirm(context.Context, string, bool) (bool, error) {
	return c.Answer, nil
}
