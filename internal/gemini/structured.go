package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/patrickmn/go-cache"
	"google.golang.org/genai"

	"github.com/jomessina-code/EVS14/internal/domain"
	"github.com/jomessina-code/EVS14/internal/prompt"
)

// structured runs a JSON-schema request and decodes the answer into T.
func structured[T any](ctx context.Context, c *Client, op, model string, parts []*genai.Part, schema *genai.Schema, temperature float32) (T, error) {
	var out T
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
		Temperature:      genai.Ptr(temperature),
	}

	resp, err := c.generate(ctx, op, model, parts, config)
	if err != nil {
		return out, err
	}
	text := responseText(resp)
	if text == "" {
		if reason, blocked := blockedReason(resp); blocked {
			return out, domain.NewError(domain.KindGenerationBlocked, op, errors.New(reason))
		}
		return out, domain.NewError(domain.KindMalformedResponse, op, errors.New("empty response"))
	}

	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(text, "```json"), "```"), "```"))
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return out, domain.NewError(domain.KindMalformedResponse, op, fmt.Errorf("decode %q: %w", truncate(text, 120), err))
	}
	return out, nil
}

func malformed(op, field string) error {
	return domain.NewError(domain.KindMalformedResponse, op, fmt.Errorf("missing field %q", field))
}

func objectSchema(required []string, props map[string]*genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

type textStyleAnswer struct {
	FontFamily *string `json:"fontFamily"`
	Color      *string `json:"color"`
	Effect     *string `json:"effect"`
}

var textStyleSchema = objectSchema([]string{"fontFamily", "color", "effect"}, map[string]*genai.Schema{
	"fontFamily": {Type: genai.TypeString, Description: "Suggested font family name."},
	"color":      {Type: genai.TypeString, Description: "Hex color code for the text."},
	"effect":     {Type: genai.TypeString, Description: "Concise description of the text effect."},
})

// InferTextStyle derives one typography for img. Results are cached by image
// digest and concurrent calls for the same image share one request.
func (c *Client) InferTextStyle(ctx context.Context, img domain.Image) (domain.TextStyle, error) {
	const op = "infer text style"
	key := img.Digest()
	if cached, ok := c.styles.Get(key); ok {
		return cached.(domain.TextStyle), nil
	}

	v, err, _ := c.inflight.Do("style:"+key, func() (interface{}, error) {
		answer, err := structured[textStyleAnswer](ctx, c, op, c.models.Vision,
			[]*genai.Part{imagePart(img), genai.NewPartFromText(prompt.TextStyleInference)}, textStyleSchema, 0.2)
		if err != nil {
			return nil, err
		}
		style := domain.TextStyle{}
		switch {
		case answer.FontFamily == nil:
			return nil, malformed(op, "fontFamily")
		case answer.Color == nil:
			return nil, malformed(op, "color")
		case answer.Effect == nil:
			return nil, malformed(op, "effect")
		}
		style.FontFamily = strings.TrimSpace(*answer.FontFamily)
		style.Color = strings.TrimSpace(*answer.Color)
		style.Effect = strings.TrimSpace(*answer.Effect)
		if !style.Complete() {
			return nil, domain.NewError(domain.KindMalformedResponse, op, errors.New("blank style field"))
		}
		c.styles.Set(key, style, cache.DefaultExpiration)
		return style, nil
	})
	if err != nil {
		return domain.TextStyle{}, err
	}
	return v.(domain.TextStyle), nil
}

// VerifyNoMargins reports true when the image is confirmed full bleed.
func (c *Client) VerifyNoMargins(ctx context.Context, img domain.Image) (bool, error) {
	const op = "verify no margins"
	schema := objectSchema([]string{"hasMargins"}, map[string]*genai.Schema{
		"hasMargins": {Type: genai.TypeBoolean, Description: "True if the image has borders on any side."},
	})
	answer, err := structured[struct {
		HasMargins *bool `json:"hasMargins"`
	}](ctx, c, op, c.models.Vision, []*genai.Part{imagePart(img), genai.NewPartFromText(prompt.NoMarginsCheck)}, schema, 0)
	if err != nil {
		return false, err
	}
	if answer.HasMargins == nil {
		return false, malformed(op, "hasMargins")
	}
	return !*answer.HasMargins, nil
}

// VerifyTextFidelity checks the image text against expected. An empty
// expected text checks that the image carries no text at all.
func (c *Client) VerifyTextFidelity(ctx context.Context, img domain.Image, expected string) (bool, error) {
	if strings.TrimSpace(expected) == "" {
		const op = "verify text absence"
		schema := objectSchema([]string{"hasText"}, map[string]*genai.Schema{
			"hasText": {Type: genai.TypeBoolean, Description: "True if any text is found."},
		})
		answer, err := structured[struct {
			HasText *bool `json:"hasText"`
		}](ctx, c, op, c.models.Vision, []*genai.Part{imagePart(img), genai.NewPartFromText(prompt.TextAbsenceCheck)}, schema, 0)
		if err != nil {
			return false, err
		}
		if answer.HasText == nil {
			return false, malformed(op, "hasText")
		}
		return !*answer.HasText, nil
	}

	const op = "verify text fidelity"
	schema := objectSchema([]string{"isPerfectMatch", "extractedText"}, map[string]*genai.Schema{
		"isPerfectMatch": {Type: genai.TypeBoolean, Description: "True if the text is a perfect match."},
		"extractedText":  {Type: genai.TypeString, Description: "The text extracted from the image."},
	})
	answer, err := structured[struct {
		IsPerfectMatch *bool  `json:"isPerfectMatch"`
		ExtractedText  string `json:"extractedText"`
	}](ctx, c, op, c.models.Vision, []*genai.Part{imagePart(img), genai.NewPartFromText(prompt.TextFidelityCheck(expected))}, schema, 0)
	if err != nil {
		return false, err
	}
	if answer.IsPerfectMatch == nil {
		return false, malformed(op, "isPerfectMatch")
	}
	c.logger.Debug("text fidelity", "expected", expected, "extracted", answer.ExtractedText, "match", *answer.IsPerfectMatch)
	return *answer.IsPerfectMatch, nil
}

// RefineShortText applies instruction to text and returns the plain answer.
func (c *Client) RefineShortText(ctx context.Context, text, instruction string) (string, error) {
	const op = "refine text"
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	body := fmt.Sprintf("%s\n\nText:\n```\n%s\n```", strings.TrimSpace(instruction), text)
	resp, err := c.generate(ctx, op, c.models.Text, []*genai.Part{genai.NewPartFromText(body)}, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	})
	if err != nil {
		return "", err
	}
	out := responseText(resp)
	if out == "" {
		if reason, blocked := blockedReason(resp); blocked {
			return "", domain.NewError(domain.KindGenerationBlocked, op, errors.New(reason))
		}
		return "", domain.NewError(domain.KindMalformedResponse, op, errors.New("empty response"))
	}
	out = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(out, "```"), "```"))
	return out, nil
}

type presetAnswer struct {
	Label       *string  `json:"label"`
	Description string   `json:"description"`
	GameType    string   `json:"gameType"`
	Style       string   `json:"style"`
	Ambiance    string   `json:"ambiance"`
	Elements    string   `json:"elements"`
	Keywords    []string `json:"keywords"`
	Palette     []string `json:"colorPalette"`
	Weight      *float64 `json:"influenceWeight"`
}

// SuggestPreset asks the model for a universe preset matching theme. The
// result still needs normalizing before it enters a catalog.
func (c *Client) SuggestPreset(ctx context.Context, theme string, vocab SuggestionVocabulary) (domain.UniversePreset, error) {
	const op = "suggest preset"
	str := &genai.Schema{Type: genai.TypeString}
	schema := objectSchema(
		[]string{"label", "description", "gameType", "style", "ambiance", "elements", "keywords", "colorPalette", "influenceWeight"},
		map[string]*genai.Schema{
			"label":           str,
			"description":     str,
			"gameType":        str,
			"style":           str,
			"ambiance":        str,
			"elements":        str,
			"keywords":        {Type: genai.TypeArray, Items: str},
			"colorPalette":    {Type: genai.TypeArray, Items: str},
			"influenceWeight": {Type: genai.TypeNumber},
		})

	text := prompt.PresetSuggestion(theme, vocab.GameTypes, vocab.Styles, vocab.Ambiances, vocab.Subjects)
	answer, err := structured[presetAnswer](ctx, c, op, c.models.Vision, []*genai.Part{genai.NewPartFromText(text)}, schema, 0.7)
	if err != nil {
		return domain.UniversePreset{}, err
	}
	if answer.Label == nil || strings.TrimSpace(*answer.Label) == "" {
		return domain.UniversePreset{}, malformed(op, "label")
	}
	if answer.Weight == nil {
		return domain.UniversePreset{}, malformed(op, "influenceWeight")
	}
	if len(answer.Palette) != 4 {
		return domain.UniversePreset{}, domain.NewError(domain.KindMalformedResponse, op, fmt.Errorf("palette has %d colors, want 4", len(answer.Palette)))
	}

	p := domain.UniversePreset{
		Label:        *answer.Label,
		Description:  answer.Description,
		GameType:     domain.GameType(answer.GameType),
		GraphicStyle: domain.GraphicStyle(answer.Style),
		Ambiance:     domain.Ambiance(answer.Ambiance),
		Subject:      domain.Subject(answer.Elements),
		Keywords:     answer.Keywords,
		Weight:       *answer.Weight,
		Custom:       true,
	}
	copy(p.Palette[:], answer.Palette)
	return p, nil
}

// SuggestionVocabulary lists the enum values the model may pick from.
type SuggestionVocabulary struct {
	GameTypes []string
	Styles    []string
	Ambiances []string
	Subjects  []string
}
