package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/citefix/pkg/fixture"
	"github.com/mesh-intelligence/citefix/pkg/result"
	"github.com/mesh-intelligence/citefix/pkg/retrieve"
)

// OutlineName is the registry name of Outline.
const OutlineName = "outline"

// Outline is a stand-in processor for exercising fixtures without a CSL
// implementation. It loads the locale like a real processor would, then
// renders one line per cluster listing the titles of the cited items, or one
// line per input item in bibliography modes. It does not apply the style.
type Outline struct{}

// Name implements Engine.
func (Outline) Name() string { return OutlineName }

// Run implements Engine.
func (Outline) Run(cfg RunConfig, r retrieve.Retriever, log *zap.Logger) result.Result[string] {
	tag := cfg.Locale()
	if _, err := r.RetrieveLocale(tag); err != nil {
		log.Error("locale unavailable", zap.String("locale", tag), zap.Error(err))
		return result.Err[string](err)
	}
	log.Debug("locale loaded", zap.String("locale", tag))

	if cfg.Mode.IsBibliography() {
		lines := make([]string, 0, len(cfg.Input))
		for _, it := range cfg.Input {
			id, ok := it.ID()
			if !ok {
				continue
			}
			lines = append(lines, outlineCite(r, id, 0, log))
		}
		return result.Ok(strings.Join(lines, "\n"))
	}

	if cfg.Citations != nil {
		log.Warn("interactive citations are not supported", zap.String("engine", OutlineName))
		return result.Err[string](fmt.Errorf("%w: %s: interactive citations", ErrUnsupported, OutlineName))
	}

	lines := make([]string, 0, len(cfg.Clusters))
	for _, c := range cfg.Clusters {
		parts := make([]string, 0, len(c.Cites))
		for _, cite := range c.Cites {
			id, ok := fixture.FormatID(cite["id"])
			if !ok {
				id = fmt.Sprint(cite["id"])
			}
			parts = append(parts, outlineCite(r, id, c.ID, log))
		}
		lines = append(lines, "("+strings.Join(parts, "; ")+")")
	}
	return result.Ok(strings.Join(lines, "\n"))
}

func outlineCite(r retrieve.ItemSource, id string, cluster int, log *zap.Logger) string {
	it, ok := r.RetrieveItem(id)
	if !ok {
		log.Warn("reference not found", zap.String("id", id), zap.Int("cluster", cluster))
		return "[missing: " + id + "]"
	}
	return itemLabel(it, id)
}

func itemLabel(it fixture.Item, id string) string {
	if title, ok := it["title"].(string); ok && title != "" {
		return title
	}
	return id
}
