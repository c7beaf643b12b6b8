package eligibility

import "fmt"

// StageCount holds the counters of one stage.
type StageCount struct {
	Stage   StageID `json:"stage" yaml:"stage"`
	Reached int64   `json:"reached" yaml:"reached"`
	Passed  int64   `json:"passed" yaml:"passed"`
}

// Snapshot is an immutable copy of funnel counters.
type Snapshot struct {
	Total             int64        `json:"total" yaml:"total"`
	MissingIdentifier int64        `json:"missingIdentifier" yaml:"missingIdentifier"`
	Stages            []StageCount `json:"stages" yaml:"stages"`
}

// Passed returns the number of records that passed stage.
func (s Snapshot) Passed(stage StageID) int64 {
	for _, sc := range s.Stages {
		if sc.Stage == stage {
			return sc.Passed
		}
	}
	return 0
}

// Included returns the number of records that passed every stage.
func (s Snapshot) Included() int64 {
	if len(s.Stages) == 0 {
		return 0
	}
	return s.Stages[len(s.Stages)-1].Passed
}

// Check verifies that counters never increase along the funnel.
func (s Snapshot) Check() error {
	prev := s.Total
	for _, sc := range s.Stages {
		if sc.Reached > prev {
			return fmt.Errorf("stage %s reached %d exceeds previous %d", sc.Stage, sc.Reached, prev)
		}
		if sc.Passed > sc.Reached {
			return fmt.Errorf("stage %s passed %d exceeds reached %d", sc.Stage, sc.Passed, sc.Reached)
		}
		prev = sc.Passed
	}
	return nil
}

// Counters flattens the snapshot into named counters.
func (s Snapshot) Counters() map[string]int64 {
	out := map[string]int64{
		"total":              s.Total,
		"missing_identifier": s.MissingIdentifier,
	}
	for _, sc := range s.Stages {
		out["reached_"+string(sc.Stage)] = sc.Reached
		out["passed_"+string(sc.Stage)] = sc.Passed
	}
	return out
}

// Funnel accumulates outcomes for one run. It is not safe for concurrent
// use; concurrent runs each own a Funnel and merge snapshots afterwards.
type Funnel struct {
	total   int64
	missing int64
	reached [3]int64
	passed  [3]int64
}

// NewFunnel returns an empty Funnel.
func NewFunnel() *Funnel {
	return &Funnel{}
}

// Observe records one outcome.
func (f *Funnel) Observe(o Outcome) {
	f.total++
	if o.MissingID {
		f.missing++
	}
	for i, stage := range Stages {
		f.reached[i]++
		if !o.Included && o.Stage == stage {
			return
		}
		f.passed[i]++
	}
}

// Snapshot returns a copy of the current counters.
func (f *Funnel) Snapshot() Snapshot {
	s := Snapshot{
		Total:             f.total,
		MissingIdentifier: f.missing,
		Stages:            make([]StageCount, len(Stages)),
	}
	for i, stage := range Stages {
		s.Stages[i] = StageCount{Stage: stage, Reached: f.reached[i], Passed: f.passed[i]}
	}
	return s
}

// MergeSnapshots sums snapshots from independent runs.
func MergeSnapshots(snaps ...Snapshot) Snapshot {
	out := NewFunnel().Snapshot()
	for _, s := range snaps {
		out.Total += s.Total
		out.MissingIdentifier += s.MissingIdentifier
		for _, sc := range s.Stages {
			for i := range out.Stages {
				if out.Stages[i].Stage == sc.Stage {
					out.Stages[i].Reached += sc.Reached
					out.Stages[i].Passed += sc.Passed
				}
			}
		}
	}
	return out
}
