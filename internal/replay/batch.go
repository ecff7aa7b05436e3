package replay

// Batch is a sampled set of entries with the worker-level data padded to a
// common meta-period length. Padded slots carry zero reward and no-op data
// and are excluded from losses via Mask.
type Batch struct {
	Entries []Entry

	// Manager-level views, one row per entry.
	Obs     [][]float64
	Goals   [][]float64
	Rewards []float64
	NextObs [][]float64
	Dones   []float64

	// Worker-level views, [entry][step]. Every row has length K.
	WorkerObs     [][][]float64
	WorkerGoals   [][][]float64
	WorkerActions [][][]float64
	WorkerRewards [][]float64
	WorkerNextObs [][][]float64
	WorkerDones   [][]float64

	// Mask[i][t] is 1 when step t of entry i is real, 0 when padded.
	Mask [][]float64

	// K is the padded meta-period length of the batch.
	K int
}

// Assemble pads the sampled entries to metaPeriod worker steps. Truncated
// final meta-periods keep their real steps and are masked beyond them.
func Assemble(entries []Entry, metaPeriod int) *Batch {
	n := len(entries)
	b := &Batch{
		Entries:       entries,
		Obs:           make([][]float64, n),
		Goals:         make([][]float64, n),
		Rewards:       make([]float64, n),
		NextObs:       make([][]float64, n),
		Dones:         make([]float64, n),
		WorkerObs:     make([][][]float64, n),
		WorkerGoals:   make([][][]float64, n),
		WorkerActions: make([][][]float64, n),
		WorkerRewards: make([][]float64, n),
		WorkerNextObs: make([][][]float64, n),
		WorkerDones:   make([][]float64, n),
		Mask:          make([][]float64, n),
		K:             metaPeriod,
	}

	for i, e := range entries {
		m := e.Meta
		b.Obs[i] = m.Obs
		b.Goals[i] = m.Goal
		b.Rewards[i] = m.Reward
		b.NextObs[i] = m.NextObs
		if m.Done {
			b.Dones[i] = 1
		}

		b.WorkerObs[i] = make([][]float64, metaPeriod)
		b.WorkerGoals[i] = make([][]float64, metaPeriod)
		b.WorkerActions[i] = make([][]float64, metaPeriod)
		b.WorkerRewards[i] = make([]float64, metaPeriod)
		b.WorkerNextObs[i] = make([][]float64, metaPeriod)
		b.WorkerDones[i] = make([]float64, metaPeriod)
		b.Mask[i] = make([]float64, metaPeriod)

		// Padding dimensions come from the last real step; an entry with no
		// steps falls back to the manager-level fields and a zero-width
		// action, since every padded slot is masked out anyway.
		padObs, padGoal, padAct := len(m.Obs), len(m.Goal), 0
		if k := len(m.Steps); k > 0 {
			last := m.Steps[k-1]
			padObs, padGoal, padAct = len(last.Obs), len(last.Goal), len(last.Action)
		}

		for t := 0; t < metaPeriod; t++ {
			if t < len(m.Steps) {
				s := m.Steps[t]
				b.WorkerObs[i][t] = s.Obs
				b.WorkerGoals[i][t] = s.Goal
				b.WorkerActions[i][t] = s.Action
				b.WorkerRewards[i][t] = s.Reward
				b.WorkerNextObs[i][t] = s.NextObs
				if s.Done {
					b.WorkerDones[i][t] = 1
				}
				b.Mask[i][t] = 1
				continue
			}
			// Zero-padded no-op step, masked out of the worker loss.
			b.WorkerObs[i][t] = zeros(padObs)
			b.WorkerGoals[i][t] = zeros(padGoal)
			b.WorkerActions[i][t] = zeros(padAct)
			b.WorkerNextObs[i][t] = zeros(padObs)
		}
	}
	return b
}

func zeros(n int) []float64 { return make([]float64, n) }
