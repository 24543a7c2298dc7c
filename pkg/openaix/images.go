package openaix

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
)

// ImageClient generates hosted mood board images through the OpenAI image
// endpoint. The zero value is not usable; construct it with NewImageClient.
type ImageClient struct {
	client *openaisdk.Client
	model  openaisdk.ImageModel
}

// NewImageClient wraps the SDK client for image generation. An empty model
// falls back to DALL-E 3. Returns nil when client is nil so the caller can
// wire the offline placeholder instead.
func NewImageClient(client *openaisdk.Client, model string) *ImageClient {
	if client == nil {
		return nil
	}
	m := openaisdk.ImageModelDallE3
	if trimmed := strings.TrimSpace(model); trimmed != "" {
		m = openaisdk.ImageModel(trimmed)
	}
	return &ImageClient{client: client, model: m}
}

// Generate renders one image for the prompt and returns its hosted URL.
func (c *ImageClient) Generate(ctx context.Context, prompt string) (string, error) {
	res, err := c.client.Images.Generate(ctx, openaisdk.ImageGenerateParams{
		Prompt:         prompt,
		Model:          c.model,
		N:              openaisdk.Int(1),
		Size:           openaisdk.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openaisdk.ImageGenerateParamsResponseFormatURL,
	})
	if err != nil {
		return "", fmt.Errorf("openai: generate image: %w", err)
	}
	if len(res.Data) == 0 || res.Data[0].URL == "" {
		return "", fmt.Errorf("openai: generate image: empty response")
	}
	return res.Data[0].URL, nil
}
