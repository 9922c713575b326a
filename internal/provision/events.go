package provision

// StepEvent reports bring-up progress to an optional observer channel.
type StepEvent struct {
	Type    string // step_started, step_done, step_skipped, step_failed
	Step    string
	Message string
}

// emit sends a progress event if events is non-nil.
// The send is non-blocking; events are dropped if the channel is full.
func emit(events chan<- StepEvent, ev StepEvent) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}
