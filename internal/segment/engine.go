// Package segment implements the customer health-segmentation engine: a pure
// classification of a customer into one of four health tiers from open bugs
// and 30-day usage metrics.
package segment

import (
	"fmt"
	"time"

	"github.com/spec-kit/cs-ops-service/internal/domain"
)

// NeverActiveDays is the days-without-use sentinel for customers with no
// recorded activity. It exceeds any threshold so such customers bias toward
// the worst tier.
const NeverActiveDays = 9999

// Engagement-score weights. Content creation weighs heaviest; downloads are
// the weakest signal.
const (
	weightLogins    = 1.0
	weightPieces    = 2.0
	weightDownloads = 0.5
	weightAIUsage   = 1.5
)

// Input bundles everything the engine reads. Threads contribute an
// informational sentiment factor only; they never gate the tier.
type Input struct {
	Customer  *domain.Customer
	Threads   []domain.ThreadSummary
	Metrics   domain.UsageMetrics
	UserCount int
	Config    domain.SegmentConfig
	Now       time.Time
}

// Factors exposes the display-oriented breakdown behind a classification.
type Factors struct {
	DiasSemUso    int    `json:"dias_sem_uso"`
	FrequenciaUso string `json:"frequencia_uso"`
	Engajamento   string `json:"engajamento"`
	BugsAbertos   int    `json:"bugs_abertos"`
	Sentimento    string `json:"sentimento"`
}

// Result is a segmentation outcome. Tier is always one of the four valid
// tiers and Reason is never empty.
type Result struct {
	Tier    domain.HealthTier `json:"segmento"`
	Reason  string            `json:"motivo"`
	Factors Factors           `json:"fatores"`
}

// EngagementScore combines login, creation, download and AI-usage counts into
// a single figure, normalized by the account's distinct user count so large
// accounts are not penalized by raw-volume thresholds.
func EngagementScore(m domain.UsageMetrics, userCount int) float64 {
	if userCount < 1 {
		userCount = 1
	}
	raw := weightLogins*float64(m.Logins) +
		weightPieces*float64(m.PiecesCreated) +
		weightDownloads*float64(m.Downloads) +
		weightAIUsage*float64(m.AIUsage)
	return raw / float64(userCount)
}

// DaysWithoutUse returns whole days since the last recorded activity, or the
// NeverActiveDays sentinel when there is none.
func DaysWithoutUse(m domain.UsageMetrics, now time.Time) int {
	if m.LastActivityAt == nil {
		return NeverActiveDays
	}
	days := int(now.Sub(*m.LastActivityAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Compute classifies a customer. Priority order, first match wins: two or
// more open bugs force RESGATE, exactly one forces ALERTA, otherwise the
// metric walk from best to worst tier applies. Customers currently in RESGATE
// must additionally meet the configured exit criteria before any promotion.
// Pure over its inputs; callers must skip inactive customers themselves.
func Compute(in Input) Result {
	score := EngagementScore(in.Metrics, in.UserCount)
	factors := Factors{
		DiasSemUso:    DaysWithoutUse(in.Metrics, in.Now),
		FrequenciaUso: frequencyBucket(in.Metrics.ActiveDays),
		Engajamento:   engagementBucket(score),
		Sentimento:    sentimentSummary(in.Threads),
	}

	openBugs := 0
	if in.Customer != nil {
		openBugs = in.Customer.OpenBugCount()
	}
	factors.BugsAbertos = openBugs

	if openBugs >= 2 {
		return Result{
			Tier:    domain.TierResgate,
			Reason:  fmt.Sprintf("%d bugs abertos reportados pelo cliente", openBugs),
			Factors: factors,
		}
	}
	if openBugs == 1 {
		reason := "1 bug aberto reportado pelo cliente"
		if in.Customer != nil {
			if bug := in.Customer.FirstOpenBug(); bug != nil && bug.Title != "" {
				reason = fmt.Sprintf("bug aberto: %s", bug.Title)
			}
		}
		return Result{Tier: domain.TierAlerta, Reason: reason, Factors: factors}
	}

	tier, reason := walkTiers(in.Metrics.ActiveDays, score, in.Config)

	if in.Customer != nil && in.Customer.Tier == domain.TierResgate && tier != domain.TierResgate {
		if !meetsResgateExit(in.Config.ResgateExit, in.Metrics.ActiveDays, score, openBugs) {
			return Result{
				Tier:    domain.TierResgate,
				Reason:  "criterios de saida do resgate ainda nao atingidos",
				Factors: factors,
			}
		}
	}

	return Result{Tier: tier, Reason: reason, Factors: factors}
}

func walkTiers(activeDays int, score float64, cfg domain.SegmentConfig) (domain.HealthTier, string) {
	if cfg.Crescimento.Meets(activeDays, score) {
		return domain.TierCrescimento, "uso frequente e engajamento alto nos ultimos 30 dias"
	}
	if cfg.Estavel.Meets(activeDays, score) {
		return domain.TierEstavel, "uso regular nos ultimos 30 dias"
	}
	if cfg.Alerta.Meets(activeDays, score) {
		return domain.TierAlerta, "uso baixo nos ultimos 30 dias"
	}
	return domain.TierResgate, "uso insuficiente nos ultimos 30 dias"
}

func meetsResgateExit(exit domain.ResgateExit, activeDays int, score float64, openBugs int) bool {
	if activeDays < exit.MinActiveDays || score < exit.MinScore {
		return false
	}
	if exit.RequireNoOpenBugs && openBugs > 0 {
		return false
	}
	return true
}

func frequencyBucket(activeDays int) string {
	switch {
	case activeDays >= 20:
		return "alta"
	case activeDays >= 10:
		return "media"
	case activeDays >= 1:
		return "baixa"
	default:
		return "nenhuma"
	}
}

func engagementBucket(score float64) string {
	switch {
	case score >= 70:
		return "alto"
	case score >= 40:
		return "medio"
	case score >= 20:
		return "baixo"
	default:
		return "critico"
	}
}

func sentimentSummary(threads []domain.ThreadSummary) string {
	if len(threads) == 0 {
		return "sem_threads"
	}
	negatives := 0
	positives := 0
	for _, t := range threads {
		switch t.Sentiment {
		case domain.SentimentNegative:
			negatives++
		case domain.SentimentPositive:
			positives++
		}
	}
	switch {
	case negatives > positives:
		return "negativo"
	case positives > negatives:
		return "positivo"
	default:
		return "neutro"
	}
}
