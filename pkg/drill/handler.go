package drill

import (
	"log"
	"regexp"
	"strings"

	"datachat-be/pkg/analysis"
	"datachat-be/pkg/cache"
	"datachat-be/pkg/store"
)

// intent is the outcome of the lightweight drilldown classification pass
type intent struct {
	op         string
	groupBy    string
	expandKey  string
	filterTerm string
}

var (
	regroupPattern = regexp.MustCompile(`(?i)^(?:re)?group(?:\s+(?:it|them|that|these))?\s+by\s+([a-z_]+)|\bbreak(?:\s+\w+)?\s*down\s+by\s+([a-z_]+)|^show\s+(?:me\s+)?by\s+([a-z_]+)|\bby\s+([a-z_]+)\s+instead`)
	filterPattern  = regexp.MustCompile(`(?i)^(?:filter|limit|narrow)(?:\s+\w+)?\s+to\s+(.+)$|^(?:only|just)\s+(?:the\s+)?(.+)$`)
	expandPattern  = regexp.MustCompile(`(?i)^(?:expand|drill\s+into|show\s+details?\s+(?:for|on))\s+(.+)$`)
	exportPattern  = regexp.MustCompile(`(?i)\bexport\b|\bas\s+csv\b|\bdownload\b|\bspreadsheet\b`)
	sortPattern    = regexp.MustCompile(`(?i)^sort(?:\s+\w+)*\s+by\s+([a-z_]+)`)
)

// Handler intercepts follow-up queries that merely reshape the session's
// cached structured result. It answers locally, with zero backend calls,
// or declines by returning nil.
type Handler struct {
	drilldowns *cache.DrilldownStore
	logger     *log.Logger
}

func NewHandler(drilldowns *cache.DrilldownStore, logger *log.Logger) *Handler {
	return &Handler{drilldowns: drilldowns, logger: logger}
}

// TryHandle runs a cheap pattern match before any classification cost is
// paid. A pattern hit with no compatible cached data is never fatal; the
// normal pipeline proceeds.
func (h *Handler) TryHandle(query, sessionID string) *store.BlendResult {
	if sessionID == "" {
		return nil
	}

	drillIntent := classify(query)
	if drillIntent == nil {
		return nil
	}

	entry, found := h.drilldowns.Get(sessionID)
	if !found {
		h.logger.Printf("[DRILL] Pattern %s matched but session %s has no cached result", drillIntent.op, sessionID)
		return nil
	}

	result := h.apply(drillIntent, entry)
	if result == nil {
		h.logger.Printf("[DRILL] Cached entry (%s) incompatible with %s", entry.Kind, drillIntent.op)
		return nil
	}

	h.logger.Printf("[DRILL] Served %s locally for session %s", drillIntent.op, sessionID)
	return result
}

// classify is the local, zero-cost drilldown classification pass
func classify(query string) *intent {
	q := strings.TrimSpace(query)

	if m := regroupPattern.FindStringSubmatch(q); m != nil {
		return &intent{op: analysis.DrillRegroup, groupBy: firstGroup(m)}
	}
	if m := sortPattern.FindStringSubmatch(q); m != nil {
		return &intent{op: analysis.DrillRegroup, groupBy: m[1]}
	}
	if exportPattern.MatchString(q) {
		return &intent{op: analysis.DrillExport}
	}
	if m := expandPattern.FindStringSubmatch(q); m != nil {
		return &intent{op: analysis.DrillExpand, expandKey: strings.TrimSpace(m[1])}
	}
	if m := filterPattern.FindStringSubmatch(q); m != nil {
		return &intent{op: analysis.DrillFilter, filterTerm: strings.TrimSpace(firstGroup(m))}
	}

	return nil
}

func (h *Handler) apply(in *intent, entry *store.DrilldownEntry) *store.BlendResult {
	var response string
	var ok bool

	switch in.op {
	case analysis.DrillRegroup:
		response, ok = Regroup(entry, in.groupBy)
	case analysis.DrillFilter:
		response, ok = Filter(entry, in.filterTerm)
	case analysis.DrillExpand:
		response, ok = Expand(entry, in.expandKey)
	case analysis.DrillExport:
		response, ok = Export(entry)
	}

	if !ok {
		return nil
	}

	return &store.BlendResult{
		Response:   response,
		Confidence: 1.0,
		Category:   "DRILLDOWN",
		Sources: []store.Attribution{
			{
				Backend:      store.KindCache,
				Operation:    in.op,
				Contribution: "reshaped the previous result for " + entry.Query,
				DataPoints:   recordCount(entry),
			},
		},
	}
}

func recordCount(entry *store.DrilldownEntry) int {
	switch {
	case entry.Aggregation != nil:
		return len(entry.Aggregation.Records)
	case entry.Records != nil:
		return len(entry.Records.Records)
	}
	return 0
}

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}
