package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/jomessina-code/EVS14/internal/domain"
)

// GenerateImage renders a square image from prompt, optionally guided by a reference.
func (c *Client) GenerateImage(ctx context.Context, prompt string, ref *domain.Image) (domain.Image, error) {
	var refs []domain.Image
	if ref != nil && !ref.Empty() {
		refs = append(refs, *ref)
	}
	return c.imageCall(ctx, "generate image", prompt, refs, domain.FormatSquare)
}

// AdaptImage outpaints img to format.
func (c *Client) AdaptImage(ctx context.Context, img domain.Image, prompt string, format domain.Format) (domain.Image, error) {
	return c.imageCall(ctx, "adapt image", prompt, []domain.Image{img}, format)
}

// OverlayText composites text onto img, keeping its format.
func (c *Client) OverlayText(ctx context.Context, img domain.Image, prompt string, format domain.Format) (domain.Image, error) {
	return c.imageCall(ctx, "overlay text", prompt, []domain.Image{img}, format)
}

func (c *Client) imageCall(ctx context.Context, op, prompt string, images []domain.Image, format domain.Format) (domain.Image, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.Image{}, fmt.Errorf("%s: prompt is empty", op)
	}

	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, imagePart(img))
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	}
	if format.Valid() {
		config.ImageConfig = &genai.ImageConfig{AspectRatio: string(format)}
	}

	resp, err := c.generate(ctx, op, c.models.Image, parts, config)
	if err != nil {
		return domain.Image{}, err
	}
	return extractImage(op, resp)
}

func extractImage(op string, resp *genai.GenerateContentResponse) (domain.Image, error) {
	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand == nil || cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
					return domain.NewImage(part.InlineData.Data, part.InlineData.MIMEType), nil
				}
			}
		}
	}

	if reason, blocked := blockedReason(resp); blocked {
		return domain.Image{}, domain.NewError(domain.KindGenerationBlocked, op, errors.New(reason))
	}
	if text := responseText(resp); text != "" {
		return domain.Image{}, domain.NewError(domain.KindNoImageReturned, op, fmt.Errorf("model answered with text: %s", truncate(text, 200)))
	}
	return domain.Image{}, domain.NewError(domain.KindNoImageReturned, op, nil)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.Text != "" && !part.Thought {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
