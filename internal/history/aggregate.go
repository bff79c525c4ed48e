package history

// TimesOpened counts the entries that differ from the previous known status
// while that previous status was not open. The scan starts from an undefined
// previous status, so the first known entry always counts, whatever it is.
// Entries with an unknown status are skipped and never become "previous".
func TimesOpened(events []Event) int64 {
	var count int64
	prev := StatusUnknown
	for _, e := range events {
		if !e.Known() {
			continue
		}
		if e.Status != prev && prev != StatusOpen {
			count++
		}
		prev = e.Status
	}
	return count
}

// OpenDuration sums the length of every interval whose starting entry was open.
func OpenDuration(events []Event) int64 {
	return durationIn(events, StatusOpen)
}

// ClosedDuration sums the length of every interval whose starting entry was closed.
func ClosedDuration(events []Event) int64 {
	return durationIn(events, StatusClosed)
}

// durationIn adds (time - prevTime) for each complete entry whose previous
// complete entry had status want. Non-monotonic input yields negative deltas,
// which are added as computed.
func durationIn(events []Event, want Status) int64 {
	var (
		total    int64
		prev     = StatusUnknown
		prevTime int64
	)
	for _, e := range events {
		if !e.Complete() {
			continue
		}
		if prev == want {
			total += e.Time - prevTime
		}
		prev = e.Status
		prevTime = e.Time
	}
	return total
}

// LastActivation returns the offset in seconds from the initial time to the
// most recent state boundary.
//
// With no initial time it is 0. While the contact is open it is the time
// elapsed since the initial time. Otherwise it is the start of the trailing
// run of closed entries, found by walking the history backwards.
func LastActivation(events []Event, initial int64, hasInitial bool, current Status, now int64) int64 {
	if !hasInitial {
		return 0
	}
	if current == StatusOpen {
		return now - initial
	}

	i := len(events) - 1
	for i >= 0 && !events[i].Complete() {
		i--
	}
	if i < 0 {
		return 0
	}

	last := events[i].Time
	for ; i >= 0; i-- {
		e := events[i]
		if !e.Complete() {
			// Unknown entries must not change the result, so they cannot end the run.
			continue
		}
		if e.Status != StatusClosed {
			break
		}
		last = e.Time
	}
	return last - initial
}

// Summarize computes all four metrics over the same slice of history.
func Summarize(events []Event, initial int64, hasInitial bool, current Status, now int64) Summary {
	return Summary{
		TimesOpened:    TimesOpened(events),
		OpenDuration:   OpenDuration(events),
		ClosedDuration: ClosedDuration(events),
		LastActivation: LastActivation(events, initial, hasInitial, current, now),
	}
}
