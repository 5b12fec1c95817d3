/*
match.go - One-to-one pairing between lessons and sheet rows

PURPOSE:
  Builds the at-most-one-to-one pairing between authoritative lessons and
  sheet rows and classifies every record into one of the four outcome
  buckets. The algorithm is deterministic and order-sensitive by design.

ALGORITHM:
  1. For every lesson, compute its best attainable candidate score against
     any row, ignoring claims.
  2. Process lessons in descending order of that best score. A lesson with
     an unambiguous high-confidence counterpart claims it before a lesson
     with a merely plausible one, so a weak match can never steal a row a
     stronger match also wants.
  3. Each lesson claims the highest-scoring unclaimed candidate row.
     Zero diffs -> Matched; otherwise -> Mismatched. Exact score ties go to
     the first row in input order (stable sort keeps runs reproducible for
     identical inputs).
  4. Second pass: each unclaimed row is offered to unclaimed lessons under
     the looser partial-match test (first found wins). A hit is an
     explainable Mismatched; a miss lands the row in MissingInDb.
  5. Unclaimed lessons land in MissingInSheet.

POSTCONDITION:
  The four buckets partition the input. Upstream validity filtering
  (active lessons, non-blank student names) is the caller's concern;
  records dropped there never reach this function.

SEE ALSO:
  - score.go: Candidate and partial-match tests
  - diff.go:  Field differences for paired records
*/
package reconcile

import "sort"

// Reconciler runs reconciliation passes with optional tracing.
// The zero value is usable; Reconcile below is the common entry point.
type Reconciler struct {
	Log Logger
}

// Reconcile classifies lessons and sheet rows with a silent Reconciler.
func Reconcile(lessons []*Lesson, rows []*SheetLesson) *Result {
	return (&Reconciler{Log: NopLogger{}}).Reconcile(lessons, rows)
}

// Reconcile computes the one-to-one pairing and the four outcome buckets.
func (rc *Reconciler) Reconcile(lessons []*Lesson, rows []*SheetLesson) *Result {
	log := rc.Log
	if log == nil {
		log = NopLogger{}
	}

	result := &Result{}

	// Pass 1: best attainable candidate score per lesson, ignoring claims.
	type ranked struct {
		lesson *Lesson
		best   Score
	}
	order := make([]ranked, 0, len(lessons))
	for _, l := range lessons {
		best := NewScore(0)
		for _, r := range rows {
			if !IsCandidateMatch(l, r) {
				continue
			}
			if s := ScorePair(l, r); s.GreaterThan(best) {
				best = s
			}
		}
		order = append(order, ranked{lesson: l, best: best})
	}

	// Confident lessons claim first.
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].best.GreaterThan(order[j].best)
	})

	claimedRows := make(map[*SheetLesson]bool, len(rows))
	claimedLessons := make(map[*Lesson]bool, len(lessons))

	// Pass 2: greedy claiming in confidence order.
	for _, entry := range order {
		l := entry.lesson

		var best *SheetLesson
		bestScore := NewScore(0)
		for _, r := range rows {
			if claimedRows[r] || !IsCandidateMatch(l, r) {
				continue
			}
			if s := ScorePair(l, r); s.GreaterThan(bestScore) {
				best = r
				bestScore = s
			}
		}
		if best == nil {
			continue
		}

		claimedRows[best] = true
		claimedLessons[l] = true

		diffs := Diff(l, best)
		if len(diffs) == 0 {
			log.Debugf("reconcile: lesson %s matched sheet row %d (score %s)", l.ID, best.RowNumber, bestScore)
			result.Matched = append(result.Matched, MatchedPair{Lesson: l, Row: best})
		} else {
			log.Debugf("reconcile: lesson %s mismatched sheet row %d, %d diffs", l.ID, best.RowNumber, len(diffs))
			result.Mismatched = append(result.Mismatched, MismatchedPair{Lesson: l, Row: best, Diffs: diffs})
		}
	}

	// Pass 3: partial-match net for unclaimed rows. First unclaimed lesson
	// to pass wins; no scoring here.
	for _, r := range rows {
		if claimedRows[r] {
			continue
		}
		var partner *Lesson
		for _, l := range lessons {
			if !claimedLessons[l] && IsPartialMatch(l, r) {
				partner = l
				break
			}
		}
		if partner == nil {
			log.Debugf("reconcile: sheet row %d has no counterpart", r.RowNumber)
			result.MissingInDb = append(result.MissingInDb, r)
			continue
		}
		claimedRows[r] = true
		claimedLessons[partner] = true
		result.Mismatched = append(result.Mismatched, MismatchedPair{
			Lesson: partner,
			Row:    r,
			Diffs:  Diff(partner, r),
		})
	}

	// Pass 4: leftovers on the authoritative side.
	for _, l := range lessons {
		if !claimedLessons[l] {
			log.Debugf("reconcile: lesson %s has no counterpart", l.ID)
			result.MissingInSheet = append(result.MissingInSheet, l)
		}
	}

	return result
}
