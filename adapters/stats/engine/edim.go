package engine

import (
	"time"

	"goedm/adapters/stats/knn"
	"goedm/adapters/stats/projection"
	"goedm/domain/edm"
)

// EdimResult is the optimal embedding dimension with the skill of every
// candidate; Skills[E-1] belongs to dimension E.
type EdimResult struct {
	E      int       `json:"E"`
	Skills []float32 `json:"skills"`
}

// Edim scans E = 1..eMax with Simplex self-prediction and returns the
// dimension with the highest skill. Ties go to the smaller E.
func (e *Engine) Edim(x edm.Sequence, eMax, tau, tp int) (res EdimResult, err error) {
	defer func(started time.Time) { e.observe(OpEdim, started, err) }(time.Now())

	limit := edm.Params{E: eMax, Tau: tau, Tp: tp}
	if err := limit.ValidateLengths(len(x), len(x), eMax+1); err != nil {
		return EdimResult{}, err
	}

	simplex := projection.NewSimplex(knn.NewWorkspace(len(x), len(x)), e.pool)

	res.Skills = make([]float32, eMax)
	best := float32(-2)
	for E := 1; E <= eMax; E++ {
		r, err := simplex.Skill(x, x, edm.Params{E: E, Tau: tau, Tp: tp})
		if err != nil {
			return EdimResult{}, err
		}
		res.Skills[E-1] = r
		if r > best {
			best = r
			res.E = E
		}
	}

	e.logger.Debug("edim selected E=%d (rho=%.4f) out of %d", res.E, best, eMax)
	return res, nil
}
