package recognizer

import "slices"

// resultWindow folds a stream of per-segment updates into cumulative
// events: the current segment occupies the last slot until it becomes final,
// and every event re-delivers the whole list starting at the changed slot.
type resultWindow struct {
	interim bool
	results []Result
}

func newResultWindow(interim bool) *resultWindow {
	return &resultWindow{interim: interim}
}

// update records text for the open segment. It reports false when the update
// must not be delivered (interim results disabled, or an empty interim).
func (w *resultWindow) update(text string, confidence float64, isFinal bool) (Event, bool) {
	if !isFinal && (!w.interim || text == "") {
		return Event{}, false
	}

	r := Result{
		Alternatives: []Alternative{{Transcript: text, Confidence: confidence}},
		IsFinal:      isFinal,
	}

	idx := len(w.results)
	if idx > 0 && !w.results[idx-1].IsFinal {
		idx--
		w.results[idx] = r
	} else {
		w.results = append(w.results, r)
	}

	if isFinal && text == "" {
		// an empty final closes a segment that only ever had interims
		w.results = w.results[:idx]
	}
	return Event{ResultIndex: idx, Results: slices.Clone(w.results)}, true
}
