package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/edm-tools/partmatch-cli/internal/model"
	"github.com/edm-tools/partmatch-cli/pkg/anthropic"
)

// DefaultModel is the model used for AI-assisted normalization.
const DefaultModel = "claude-sonnet-4-5-20250929"

const aiMaxTokens = 4096

// Suggester runs the optional AI-assisted normalization pass.
type Suggester struct {
	client anthropic.Client
	model  string
}

// NewSuggester creates a Suggester. An empty model selects DefaultModel.
func NewSuggester(client anthropic.Client, model string) *Suggester {
	if model == "" {
		model = DefaultModel
	}
	return &Suggester{client: client, model: model}
}

// SuggestAI asks the model to map source manufacturer spellings onto
// canonical catalog names. Every returned mapping is validated against the
// two lists before use; anything the model invents is discarded. An
// unparseable response yields no suggestions rather than an error.
func (s *Suggester) SuggestAI(ctx context.Context, sources, canonical []string) ([]model.NormalizationSuggestion, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	temp := 0.0
	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       s.model,
		MaxTokens:   aiMaxTokens,
		Temperature: &temp,
		System: []anthropic.SystemBlock{
			{Text: "You normalize electronic component manufacturer names to canonical catalog spellings."},
		},
		Messages: []anthropic.Message{
			{Role: "user", Content: buildPrompt(sources, canonical)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "normalize: ai suggestion request")
	}
	resp.Usage.LogCost(s.model, "normalize")

	return validateMappings(parseAIText(resp.Text()), sources, canonical), nil
}

const aiPromptTemplate = `Analyze these manufacturer names and detect variations that need normalization.

SOURCE manufacturers (from user's data - these are what need normalizing):
%s

TARGET manufacturers (PAS/SupplyFrame canonical names - normalize TO these when applicable):
%s

Instructions:
1. ONLY create mappings for manufacturers in the SOURCE list
2. Identify variations in SOURCE that should map to canonical TARGET names
3. Examples of variations to detect:
   - Abbreviations: "TI" → "Texas Instruments"
   - Acquisitions: "EPCOS" → "TDK Electronics"
   - Alternate spellings: "STMicro" → "STMicroelectronics"
4. CRITICAL RULES:
   - If a SOURCE name already matches a TARGET name exactly, DO NOT include it
   - NEVER create reverse mappings (e.g., DO NOT map "Texas Instruments" → "TI")
   - ONLY map FROM variations TO canonical names, never the reverse
   - Direction matters: abbreviation → full name, NOT full name → abbreviation
   - For companies not in TARGET list, suggest the most complete/official name
5. Provide brief reasoning for each mapping (acquisitions, abbreviations, etc.)

Return ONLY valid JSON with this structure:
{
    "normalizations": {
        "TI": "Texas Instruments",
        "EPCOS": "TDK Electronics"
    },
    "reasoning": {
        "TI": "Common abbreviation for Texas Instruments",
        "EPCOS": "EPCOS was acquired by TDK Electronics in 2009"
    }
}

IMPORTANT:
- Only include entries that need normalization (skip exact matches)
- Return ONLY valid JSON, no markdown, no other text
- Ensure all quotes inside strings are escaped with backslash`

func buildPrompt(sources, canonical []string) string {
	src, _ := json.MarshalIndent(sortedCopy(sources), "", "  ")
	dst, _ := json.MarshalIndent(sortedCopy(canonical), "", "  ")
	return fmt.Sprintf(aiPromptTemplate, src, dst)
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// aiResult is the JSON shape the prompt asks for.
type aiResult struct {
	Normalizations map[string]string `json:"normalizations"`
	Reasoning      map[string]string `json:"reasoning"`
}

// parseAIText decodes the model's reply, tolerating code fences and chatter
// around the JSON object.
func parseAIText(raw string) aiResult {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		if parts := strings.Split(text, "```"); len(parts) >= 2 {
			text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[1]), "json"))
		}
	}

	var out aiResult
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out
	}

	// Salvage the outermost JSON object from a chatty reply.
	first, last := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if first >= 0 && last > first {
		if err := json.Unmarshal([]byte(text[first:last+1]), &out); err == nil {
			return out
		}
	}

	zap.L().Warn("normalize: could not parse ai response")
	return aiResult{}
}

// validateMappings filters the model's mappings: the source must come from
// the input data, the target must be a canonical catalog name, identity
// mappings are dropped, and reverse mappings (canonical name back to a known
// variation) are rejected.
func validateMappings(res aiResult, sources, canonical []string) []model.NormalizationSuggestion {
	sourceSet := toSet(sources)
	canonicalSet := toSet(canonical)

	var out []model.NormalizationSuggestion
	for variation, target := range res.Normalizations {
		log := zap.L().With(zap.String("from", variation), zap.String("to", target))

		if _, ok := sourceSet[variation]; !ok {
			log.Debug("normalize: skipping ai mapping, not in source data")
			continue
		}
		if variation == target {
			log.Debug("normalize: skipping ai mapping, already identical")
			continue
		}
		if _, ok := canonicalSet[target]; !ok {
			log.Debug("normalize: skipping ai mapping, target not canonical")
			continue
		}
		if _, tgtInSources := sourceSet[target]; tgtInSources {
			if _, srcInCanonical := canonicalSet[variation]; srcInCanonical {
				log.Debug("normalize: skipping ai mapping, appears reversed")
				continue
			}
		}

		reasoning := res.Reasoning[variation]
		if reasoning == "" {
			reasoning = "AI suggested normalization"
		}
		out = append(out, model.NormalizationSuggestion{
			Original:  variation,
			Canonical: target,
			Method:    model.NormalizeAI,
			Reasoning: reasoning,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Original < out[j].Original })
	return out
}

func toSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		out[s] = struct{}{}
	}
	return out
}
