package schedule

import (
	"fmt"
	"strings"

	"datachat-be/pkg/store"
)

// idListCap bounds the size of injected id-in-list filters so a discovery
// step with thousands of hits cannot produce an unbounded structured query
const idListCap = 100

// ChainContext accumulates what earlier levels discovered so later levels
// can consume it
type ChainContext struct {
	DiscoveredIDs   []string
	DiscoveredModel string
	FKTargets       []store.RelationHit
	KnowledgeText   []string
}

func NewChainContext() *ChainContext {
	return &ChainContext{}
}

// Absorb pulls forward-chainable data out of a completed step result
func (c *ChainContext) Absorb(result *store.SectionResult) {
	if !result.Success || result.Data == nil {
		return
	}

	switch payload := result.Data.(type) {
	case *store.RecordSet:
		c.absorbRecords(payload)
	case *store.AggregationResult:
		if c.DiscoveredModel == "" {
			c.DiscoveredModel = payload.Model
		}
	case []store.RelationHit:
		c.FKTargets = append(c.FKTargets, payload...)
		for _, hit := range payload {
			c.DiscoveredIDs = append(c.DiscoveredIDs, hit.TargetID)
			if c.DiscoveredModel == "" {
				c.DiscoveredModel = hit.TargetModel
			}
		}
	case []store.KnowledgeNote:
		for _, note := range payload {
			c.KnowledgeText = append(c.KnowledgeText, fmt.Sprintf("%s: %s", note.Term, note.Text))
		}
	}
}

func (c *ChainContext) absorbRecords(rs *store.RecordSet) {
	if c.DiscoveredModel == "" {
		c.DiscoveredModel = rs.Model
	}
	for _, rec := range rs.Records {
		if id, ok := rec["id"].(string); ok && id != "" {
			c.DiscoveredIDs = append(c.DiscoveredIDs, id)
		}
	}
}

// EnrichStep returns a copy of the step with chain data injected into its
// parameters. The original step is never mutated.
func (c *ChainContext) EnrichStep(step store.RouteStep) store.RouteStep {
	if !step.DependsOnPrevious {
		return step
	}

	params := make(map[string]interface{}, len(step.Params)+2)
	for k, v := range step.Params {
		params[k] = v
	}

	if len(c.DiscoveredIDs) > 0 {
		ids := c.DiscoveredIDs
		if len(ids) > idListCap {
			ids = ids[:idListCap]
		}
		params["id_in"] = ids
	}
	if c.DiscoveredModel != "" {
		if _, set := params["model"]; !set {
			params["model"] = c.DiscoveredModel
		}
	}
	if len(c.KnowledgeText) > 0 {
		params["prior_context"] = strings.Join(c.KnowledgeText, "\n")
	}

	step.Params = params
	return step
}

// HasUpstreamData reports whether the chain carries anything a dependent
// step could consume
func (c *ChainContext) HasUpstreamData() bool {
	return len(c.DiscoveredIDs) > 0 || c.DiscoveredModel != "" ||
		len(c.FKTargets) > 0 || len(c.KnowledgeText) > 0
}

// MissingDependency reports why a dependent step cannot run, or "" when
// it can. A step at level 1 consumes its primary's discovered ids; running
// it without them would issue an unscoped query and present the result as
// the answer to a scoped question. A chained step only needs some
// accumulated context.
func (c *ChainContext) MissingDependency(step store.RouteStep) string {
	if !step.DependsOnPrevious {
		return ""
	}
	if step.DependencyLevel == 1 && len(c.DiscoveredIDs) == 0 {
		return "no ids discovered by the upstream step"
	}
	if step.DependencyLevel >= 2 && !c.HasUpstreamData() {
		return "no chain context accumulated"
	}
	return ""
}
