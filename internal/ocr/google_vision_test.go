package ocr

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/status"
)

func page(text string, confidence float32, langs ...string) *visionpb.AnnotateImageResponse {
	var detected []*visionpb.TextAnnotation_DetectedLanguage
	for _, l := range langs {
		detected = append(detected, &visionpb.TextAnnotation_DetectedLanguage{LanguageCode: l})
	}
	return &visionpb.AnnotateImageResponse{
		FullTextAnnotation: &visionpb.TextAnnotation{
			Text: text,
			Pages: []*visionpb.Page{{
				Confidence: confidence,
				Property:   &visionpb.TextAnnotation_TextProperty{DetectedLanguages: detected},
			}},
		},
	}
}

func TestCollectText(t *testing.T) {
	res, err := collectText([]*visionpb.AnnotateImageResponse{
		page("FACTURE N° 42\nRIB: 08 006 0123456789012 34", 0.9, "fr"),
		page("Total TTC 1 190,000 DT", 0.7, "fr", "ar"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.PageCount)
	assert.InDelta(t, 0.8, res.Confidence, 1e-6)
	assert.Equal(t, []string{"ar", "fr"}, res.LanguageCodes)
	assert.Contains(t, res.Text, "FACTURE N° 42")
	assert.Contains(t, res.Text, "--- Page 2 ---")
	assert.Contains(t, res.Text, "Total TTC")
}

func TestCollectText_Errors(t *testing.T) {
	_, err := collectText(nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = collectText([]*visionpb.AnnotateImageResponse{page("   ", 0.5)})
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = collectText([]*visionpb.AnnotateImageResponse{{Error: &status.Status{Message: "bad image"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad image")
}

func TestProcessDocument_RejectsBeforeCallingVision(t *testing.T) {
	svc := NewGoogleVisionOCRServiceWithClient(nil)
	ctx := context.Background()

	_, err := svc.ProcessDocument(ctx, []byte("hello"), "text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedMimeType)

	_, err = svc.ProcessDocument(ctx, []byte("not a pdf"), MimePDF)
	assert.ErrorIs(t, err, ErrCorruptDocument)

	_, err = svc.ProcessDocument(ctx, []byte("%PDF-1.7"), MimeTIFF)
	assert.ErrorIs(t, err, ErrCorruptDocument)
	assert.Contains(t, err.Error(), "missing TIFF header")

	_, err = svc.ProcessDocument(ctx, make([]byte, MaxFileSizeBytes+1), MimePNG)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	var ocrErr *OCRError
	require.True(t, errors.As(err, &ocrErr))
	assert.Equal(t, "ProcessDocument", ocrErr.Op)
}

func TestWrapOCRError(t *testing.T) {
	assert.Nil(t, WrapOCRError("op", nil, ""))

	first := WrapOCRError("inner", ErrOCRFailed, "x")
	second := WrapOCRError("outer", first, "y")
	assert.Same(t, first, second)
	assert.ErrorIs(t, second, ErrOCRFailed)
}
