package ai

type StopConditionEvent struct {
	Steps []StepResult
}

// StopCondition ends a multi-step run when it returns true. It is evaluated
// after every step that produced client tool results.
type StopCondition func(event StopConditionEvent) bool

func StepCountIs(maxSteps int) StopCondition {
	return func(event StopConditionEvent) bool {
		return len(event.Steps) >= maxSteps
	}
}

// HasToolCall stops once the latest step called toolName.
func HasToolCall(toolName string) StopCondition {
	return func(event StopConditionEvent) bool {
		if len(event.Steps) == 0 {
			return false
		}
		for _, tc := range event.Steps[len(event.Steps)-1].ToolCalls() {
			if tc.ToolName == toolName {
				return true
			}
		}
		return false
	}
}

func isStopConditionMet(conds []StopCondition, steps []StepResult) bool {
	ev := StopConditionEvent{Steps: steps}
	for _, c := range conds {
		if c != nil && c(ev) {
			return true
		}
	}
	return false
}
