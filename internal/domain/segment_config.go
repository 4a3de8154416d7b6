package domain

// TierThreshold holds the minimums a customer must clear to qualify for a
// tier: both figures are inclusive (>= qualifies).
type TierThreshold struct {
	MinActiveDays int     `json:"min_active_days"`
	MinScore      float64 `json:"min_score"`
}

// Meets reports whether the given activity figures clear the threshold.
func (t TierThreshold) Meets(activeDays int, score float64) bool {
	return activeDays >= t.MinActiveDays && score >= t.MinScore
}

// ResgateExit lists the criteria a RESGATE customer must meet before being
// promoted out of the rescue tier.
type ResgateExit struct {
	MinActiveDays     int     `json:"min_active_days"`
	MinScore          float64 `json:"min_score"`
	RequireNoOpenBugs bool    `json:"require_no_open_bugs"`
}

// SegmentConfig carries the tunable thresholds of the segmentation engine.
// Defaults are embedded; stored overrides are merged on read.
type SegmentConfig struct {
	Crescimento TierThreshold `json:"crescimento"`
	Estavel     TierThreshold `json:"estavel"`
	Alerta      TierThreshold `json:"alerta"`
	ResgateExit ResgateExit   `json:"resgate_exit"`
	GraceDays   int           `json:"grace_days"`
}

// DefaultSegmentConfig returns the embedded threshold defaults.
func DefaultSegmentConfig() SegmentConfig {
	return SegmentConfig{
		Crescimento: TierThreshold{MinActiveDays: 21, MinScore: 70},
		Estavel:     TierThreshold{MinActiveDays: 14, MinScore: 40},
		Alerta:      TierThreshold{MinActiveDays: 7, MinScore: 20},
		ResgateExit: ResgateExit{MinActiveDays: 14, MinScore: 40, RequireNoOpenBugs: true},
		GraceDays:   14,
	}
}

// SegmentConfigOverride is the externally stored partial configuration. Nil
// fields fall back to the defaults.
type SegmentConfigOverride struct {
	Crescimento *TierThreshold `json:"crescimento,omitempty"`
	Estavel     *TierThreshold `json:"estavel,omitempty"`
	Alerta      *TierThreshold `json:"alerta,omitempty"`
	ResgateExit *ResgateExit   `json:"resgate_exit,omitempty"`
	GraceDays   *int           `json:"grace_days,omitempty"`
}

// Apply merges the override onto a base configuration.
func (o *SegmentConfigOverride) Apply(base SegmentConfig) SegmentConfig {
	if o == nil {
		return base
	}
	if o.Crescimento != nil {
		base.Crescimento = *o.Crescimento
	}
	if o.Estavel != nil {
		base.Estavel = *o.Estavel
	}
	if o.Alerta != nil {
		base.Alerta = *o.Alerta
	}
	if o.ResgateExit != nil {
		base.ResgateExit = *o.ResgateExit
	}
	if o.GraceDays != nil {
		base.GraceDays = *o.GraceDays
	}
	return base
}
