package logic

// Next applies the transition table. It returns the resulting status and
// whether a rule fired. A rule may fire without changing status (LowReservoir
// while already in Error); in that case the output is still reapplied.
func Next(current Status, event Event) (Status, bool) {
	switch event {
	case EventReset:
		// Recovery path: only meaningful from Error.
		if current == StatusError {
			return StatusIdle, true
		}
	case EventToggleStartStop:
		if current == StatusDisabled {
			return StatusIdle, true
		}
		return StatusDisabled, true
	case EventLowReservoir:
		return StatusError, true
	case EventToggleRunIdle:
		switch current {
		case StatusIdle:
			return StatusRunning, true
		case StatusRunning:
			return StatusIdle, true
		}
	}
	return current, false
}

// OutputFor returns the indicator colour and fan state for a status.
// Only Running drives the fan.
func OutputFor(s Status) Output {
	switch s {
	case StatusError:
		return Output{Color: ColorRed}
	case StatusRunning:
		return Output{Color: ColorBlue, FanOn: true}
	case StatusDisabled:
		return Output{Color: ColorYellow}
	default:
		return Output{Color: ColorGreen}
	}
}
