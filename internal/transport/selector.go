package transport

// SelectorConfig holds configuration for the mode selector.
type SelectorConfig struct {
	// Policy supplies the balanced weights. Defaults to DefaultPolicy().
	Policy *Policy

	// Modes restricts the candidate modes. Empty means the whole catalog.
	Modes []Mode
}

// Selector picks the best mode for a leg.
type Selector struct {
	policy Policy
	modes  []Mode
}

// Selection is the outcome of choosing a mode for one leg.
type Selection struct {
	Leg LegOption

	// Fallback is true when no candidate mode was viable and a flight was
	// substituted.
	Fallback bool
}

// NewSelector creates a new mode selector.
func NewSelector(cfg SelectorConfig) *Selector {
	policy := DefaultPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}

	modes := catalogOrder
	if len(cfg.Modes) > 0 {
		allowed := make(map[Mode]bool, len(cfg.Modes))
		for _, m := range cfg.Modes {
			allowed[m] = true
		}
		modes = make([]Mode, 0, len(cfg.Modes))
		for _, m := range catalogOrder {
			if allowed[m] {
				modes = append(modes, m)
			}
		}
	}

	return &Selector{policy: policy, modes: modes}
}

// Policy returns the selector's weighting policy.
func (s *Selector) Policy() Policy {
	return s.policy
}

// Options evaluates every viable candidate mode for the leg, in catalog order.
func (s *Selector) Options(origin, destination string, km float64, date string) []LegOption {
	options := make([]LegOption, 0, len(s.modes))
	for _, m := range s.modes {
		p := catalog[m]
		if p.Viable(km) {
			options = append(options, Evaluate(p, origin, destination, km, date))
		}
	}
	return options
}

// Select returns the viable option minimising the objective. When nothing is
// viable, a flight is returned regardless of its own range.
func (s *Selector) Select(origin, destination string, km float64, obj Objective, date string) Selection {
	options := s.Options(origin, destination, km, date)
	if len(options) == 0 {
		return Selection{
			Leg:      Evaluate(catalog[ModeFlight], origin, destination, km, date),
			Fallback: true,
		}
	}

	best := options[0]
	bestScore := s.policy.Score(obj, best.Cost, best.DurationHours, best.CarbonKg)
	for _, o := range options[1:] {
		if score := s.policy.Score(obj, o.Cost, o.DurationHours, o.CarbonKg); score < bestScore {
			best, bestScore = o, score
		}
	}

	return Selection{Leg: best}
}
