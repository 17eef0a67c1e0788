package event

// MergeResult is the outcome of merging first-party and third-party events.
type MergeResult struct {
	Events     []*Event
	Suppressed int // third-party events dropped as duplicates of first-party ones
	Malformed  int // third-party events dropped for lacking a fingerprint
}

// Merge combines first-party events with third-party ones.
//
// Every first-party event is kept. A third-party event is kept only if its
// fingerprint matches no first-party event; third-party events are not
// deduplicated against each other. The result is sorted ascending by start time; the sort is
// stable, so ties keep first-party events ahead of third-party ones.
func Merge(firstParty, thirdParty []*Event) *MergeResult {
	result := &MergeResult{
		Events: make([]*Event, 0, len(firstParty)+len(thirdParty)),
	}

	seen := make(map[string]bool, len(firstParty))
	for _, e := range firstParty {
		if fp, err := e.ComputeFingerprint(); err == nil {
			seen[fp] = true
		}
		result.Events = append(result.Events, e)
	}

	for _, e := range thirdParty {
		fp, err := e.ComputeFingerprint()
		if err != nil {
			result.Malformed++
			continue
		}
		if seen[fp] {
			result.Suppressed++
			continue
		}
		result.Events = append(result.Events, e)
	}

	SortByDate(result.Events)
	return result
}

// Partition splits stored events into first-party and third-party groups.
func Partition(events []*Event) (firstParty, thirdParty []*Event) {
	for _, e := range events {
		if e.Source.FirstParty() {
			firstParty = append(firstParty, e)
		} else {
			thirdParty = append(thirdParty, e)
		}
	}
	return firstParty, thirdParty
}
