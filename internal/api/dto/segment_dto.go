package dto

import "github.com/spec-kit/cs-ops-service/internal/domain"

// OverrideTierRequest pins a customer's tier manually.
type OverrideTierRequest struct {
	Tier   domain.HealthTier `json:"segmento"`
	Reason string            `json:"motivo"`
}

// SegmentConfigUpdateRequest is the partial threshold override. Omitted
// fields keep their defaults.
type SegmentConfigUpdateRequest struct {
	Crescimento *domain.TierThreshold `json:"crescimento,omitempty"`
	Estavel     *domain.TierThreshold `json:"estavel,omitempty"`
	Alerta      *domain.TierThreshold `json:"alerta,omitempty"`
	ResgateExit *domain.ResgateExit   `json:"resgate_exit,omitempty"`
	GraceDays   *int                  `json:"grace_days,omitempty"`
}

// Override converts the request into the stored override form.
func (r SegmentConfigUpdateRequest) Override() *domain.SegmentConfigOverride {
	return &domain.SegmentConfigOverride{
		Crescimento: r.Crescimento,
		Estavel:     r.Estavel,
		Alerta:      r.Alerta,
		ResgateExit: r.ResgateExit,
		GraceDays:   r.GraceDays,
	}
}
