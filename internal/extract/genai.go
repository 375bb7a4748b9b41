package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FranksOps/dossier/internal/profile"
	"github.com/FranksOps/dossier/internal/retrieval"
	"github.com/FranksOps/dossier/internal/schema"
	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini-backed extraction capability.
type GeminiConfig struct {
	APIKey string
	// Model names the Gemini model, defaulting to gemini-2.0-flash.
	Model string
	// MaxContentChars truncates the combined content handed to the model.
	MaxContentChars int
}

// Gemini implements Capability with Gemini structured output: the response
// schema is derived from the profile schema, so the model is constrained to
// the declared sections and fields.
type Gemini struct {
	client *genai.Client
	cfg    GeminiConfig
}

var _ Capability = (*Gemini)(nil)

// NewGemini creates the capability and its underlying client.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.MaxContentChars <= 0 {
		cfg.MaxContentChars = 60000
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Gemini{client: client, cfg: cfg}, nil
}

// Extract prompts the model with the content batch and parses the JSON it
// returns. Unparseable output comes back as ErrParse so the caller can
// retry.
func (g *Gemini) Extract(ctx context.Context, items []retrieval.Content, sch schema.Schema, prior *profile.Profile) (map[string]map[string]any, error) {
	prompt := buildPrompt(items, sch, prior, g.cfg.MaxContentChars)

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   responseSchema(sch),
			Temperature:      genai.Ptr[float32](0),
		})
	if err != nil {
		return nil, fmt.Errorf("generating extraction: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty model response", ErrParse)
	}

	var out map[string]map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return out, nil
}

// buildPrompt assembles the extraction prompt from the content batch. Items
// tagged with a section carry that tag as a hint so the model knows which
// part of the profile each page was fetched for.
func buildPrompt(items []retrieval.Content, sch schema.Schema, prior *profile.Profile, maxChars int) string {
	var b strings.Builder
	b.WriteString("You are researching a company's marketing profile. ")
	b.WriteString("Extract only facts supported by the provided content. ")
	b.WriteString("A section hint names the profile section an item was fetched for. ")
	b.WriteString("Leave out any field the content does not support.\n\n")

	if prior != nil && !prior.Empty() {
		if data, err := json.Marshal(prior); err == nil {
			b.WriteString("Already known (do not contradict, fill the blanks):\n")
			b.Write(data)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("Content:\n")
	total := 0
	for _, item := range items {
		hint := ""
		if item.Section != "" {
			hint = fmt.Sprintf(" (section hint: %s)", item.Section)
		}
		entry := fmt.Sprintf("--- source: %s (query: %s)%s\n%s\n", item.SourceURL, item.Query, hint, item.Text)
		if total+len(entry) > maxChars {
			break
		}
		b.WriteString(entry)
		total += len(entry)
	}

	return b.String()
}

// responseSchema converts the profile schema into the Gemini structured
// output schema, one object property per section.
func responseSchema(sch schema.Schema) *genai.Schema {
	sections := make(map[string]*genai.Schema, len(sch.Sections))
	for _, sec := range sch.Sections {
		fields := make(map[string]*genai.Schema, len(sec.Fields))
		for _, f := range sec.Fields {
			fields[f.Name] = fieldSchema(f)
		}
		sections[sec.Name] = &genai.Schema{
			Type:       genai.TypeObject,
			Properties: fields,
		}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: sections,
	}
}

func fieldSchema(f schema.Field) *genai.Schema {
	switch f.Kind {
	case schema.KindStringList:
		return &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		}
	case schema.KindObjectList:
		keys := make(map[string]*genai.Schema, len(f.ItemKeys))
		for _, k := range f.ItemKeys {
			keys[k] = &genai.Schema{Type: genai.TypeString}
		}
		return &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: keys,
			},
		}
	default:
		s := &genai.Schema{Type: genai.TypeString}
		if len(f.Enum) > 0 {
			s.Enum = f.Enum
		}
		return s
	}
}
