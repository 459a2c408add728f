package application

import (
	"net/http"

	"github.com/ericfisherdev/livebadge/internal/domain/model"
)

// Names of the rules that can mark a metric protected.
const (
	RuleNonPublicSchema  = "non_public_schema"
	RuleAccessBlocked    = "access_blocked"
	RuleCountsDiverge    = "counts_diverge"
	RuleSilentlyFiltered = "silently_filtered"

	// RuleInherentlyCached is not part of the probe rule table. It marks
	// metrics that can never be fetched under the public tier.
	RuleInherentlyCached = "inherently_cached"
)

// Evidence is what the classifier sees: the table's schema and the probe
// results under each tier. Service is nil when no privileged probe ran.
type Evidence struct {
	Schema  string
	Anon    model.ProbeResult
	Service *model.ProbeResult
}

// serviceRan reports whether a privileged probe produced a usable count. A
// failed privileged probe is treated as if none ran.
func (e Evidence) serviceRan() bool {
	return e.Service != nil && e.Service.OK()
}

func (e Evidence) serviceTotal() int64 {
	if !e.serviceRan() {
		return 0
	}
	return e.Service.Total
}

// ProtectionRule is a named predicate over probe evidence.
type ProtectionRule struct {
	Name    string
	Applies func(Evidence) bool
}

// ProtectionRules is evaluated in order; the first rule that applies marks the
// metric protected.
var ProtectionRules = []ProtectionRule{
	{
		Name: RuleNonPublicSchema,
		Applies: func(e Evidence) bool {
			return e.Schema != "" && e.Schema != model.DefaultSchema
		},
	},
	{
		Name: RuleAccessBlocked,
		Applies: func(e Evidence) bool {
			return e.Anon.Blocked()
		},
	},
	{
		Name: RuleCountsDiverge,
		Applies: func(e Evidence) bool {
			return e.serviceRan() && e.Anon.Total != e.Service.Total
		},
	},
	{
		Name: RuleSilentlyFiltered,
		Applies: func(e Evidence) bool {
			return e.Anon.Status == http.StatusOK && e.Anon.Total == 0 && e.serviceTotal() > 0
		},
	},
}

// Classify decides whether a table's count is readable under the public tier.
// BestKnownCount is set only for protected metrics with a successful
// privileged probe.
func Classify(schema string, anon model.ProbeResult, service *model.ProbeResult) model.Posture {
	e := Evidence{Schema: schema, Anon: anon, Service: service}

	for _, rule := range ProtectionRules {
		if !rule.Applies(e) {
			continue
		}
		posture := model.Posture{Protected: true, Rule: rule.Name}
		if e.serviceRan() {
			total := e.Service.Total
			posture.BestKnownCount = &total
		}
		return posture
	}

	return model.Posture{}
}
