// Package extract turns retrieved content into schema-conforming profile
// fragments through a pluggable model capability, validating every value
// before it reaches the profile.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/FranksOps/dossier/internal/metrics"
	"github.com/FranksOps/dossier/internal/profile"
	"github.com/FranksOps/dossier/internal/retrieval"
	"github.com/FranksOps/dossier/internal/schema"
	"github.com/FranksOps/dossier/pkg/ratelimit"
	"github.com/google/uuid"
)

// ErrParse marks capability output that could not be parsed as the expected
// section/field structure.
var ErrParse = errors.New("extraction output unparseable")

// Capability produces raw section/field values from content. The outer map
// is keyed by section name, the inner by field name; values are untyped and
// validated by the Extractor.
type Capability interface {
	Extract(ctx context.Context, items []retrieval.Content, sch schema.Schema, prior *profile.Profile) (map[string]map[string]any, error)
}

// Extractor wraps a capability with retries and schema validation.
type Extractor struct {
	capability Capability
	policy     *ratelimit.Policy
	logger     *slog.Logger
}

// New creates an extractor. A nil policy means a single attempt.
func New(capability Capability, policy *ratelimit.Policy, logger *slog.Logger) *Extractor {
	if policy == nil {
		policy = ratelimit.NewPolicy(1, 0, 0, 0, 0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		capability: capability,
		policy:     policy,
		logger:     logger,
	}
}

// Extract runs the capability over the content and assembles a validated
// fragment. Malformed and unknown fields are dropped; fields the schema
// declares but the capability left out are recorded as unpopulated. When the
// capability fails on every attempt, an empty fragment is returned along
// with the error so the caller can mark the round degraded instead of
// failing it.
func (e *Extractor) Extract(ctx context.Context, items []retrieval.Content, sch schema.Schema, prior *profile.Profile, round int, correction bool) (profile.Fragment, error) {
	frag := profile.Fragment{
		ID:         uuid.New().String(),
		Round:      round,
		Correction: correction,
	}

	var raw map[string]map[string]any
	err := e.policy.Do(ctx, func(ctx context.Context) error {
		out, err := e.capability.Extract(ctx, items, sch, prior)
		if err != nil {
			return err
		}
		raw = out
		return nil
	})
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("degraded").Inc()
		return frag, fmt.Errorf("extraction capability: %w", err)
	}

	for _, sec := range sch.Sections {
		fields := raw[sec.Name]
		for _, f := range sec.Fields {
			path := sec.Name + "." + f.Name
			v, present := fields[f.Name]
			if !present {
				frag.Unpopulated = append(frag.Unpopulated, path)
				continue
			}
			val, ok := coerce(f, v)
			if !ok || val.Empty() {
				if !ok {
					e.logger.Debug("dropping malformed field", "field", path)
				}
				frag.Unpopulated = append(frag.Unpopulated, path)
				continue
			}
			frag.Set(sec.Name, f.Name, val)
		}
	}

	metrics.ExtractionsTotal.WithLabelValues("ok").Inc()
	return frag, nil
}

// coerce shapes an untyped capability value into the field's declared kind.
func coerce(f schema.Field, v any) (profile.Value, bool) {
	switch f.Kind {
	case schema.KindString:
		s, ok := v.(string)
		if !ok || !f.AllowsValue(s) {
			return profile.Value{}, false
		}
		return profile.String(s), true

	case schema.KindStringList:
		items, ok := anySlice(v)
		if !ok {
			return profile.Value{}, false
		}
		var list []string
		for _, item := range items {
			if s, ok := item.(string); ok {
				list = append(list, s)
			}
		}
		if len(list) == 0 {
			return profile.Value{}, false
		}
		return profile.StringList(list...), true

	case schema.KindObjectList:
		items, ok := anySlice(v)
		if !ok {
			return profile.Value{}, false
		}
		var objects []map[string]string
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			obj := make(map[string]string)
			for k, raw := range m {
				if !f.AllowsKey(k) {
					continue
				}
				if s, ok := raw.(string); ok {
					obj[k] = s
				}
			}
			if len(obj) > 0 {
				objects = append(objects, obj)
			}
		}
		if len(objects) == 0 {
			return profile.Value{}, false
		}
		return profile.ObjectList(objects...), true
	}
	return profile.Value{}, false
}

func anySlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
