package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/road-estimator/internal/common"
)

const (
	// visionMaxFileBytes is the inline-content limit for synchronous file annotation.
	visionMaxFileBytes = 20 * 1024 * 1024
	// visionPagesPerCall is the most pages one synchronous request may name.
	visionPagesPerCall = 5
)

// FileAnnotator is the subset of the Vision client the engine uses.
type FileAnnotator interface {
	BatchAnnotateFiles(ctx context.Context, req *visionpb.BatchAnnotateFilesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateFilesResponse, error)
}

type visionEngine struct {
	client FileAnnotator
	logger *slog.Logger
}

// NewVisionEngine creates a Google Cloud Vision client. An empty credentialsFile
// uses application default credentials.
func NewVisionEngine(ctx context.Context, credentialsFile string, logger *slog.Logger) (Engine, func() error, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: vision client: %v", common.ErrOCRUnavailable, err)
	}
	return NewVisionEngineWithClient(client, logger), client.Close, nil
}

// NewVisionEngineWithClient wraps an existing annotator (tests pass a fake).
func NewVisionEngineWithClient(client FileAnnotator, logger *slog.Logger) Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &visionEngine{client: client, logger: logger}
}

func (e *visionEngine) Name() string { return "vision" }

func (e *visionEngine) Available(context.Context) error {
	if e.client == nil {
		return fmt.Errorf("%w: vision client not configured", common.ErrOCRUnavailable)
	}
	return nil
}

func (e *visionEngine) RecognizePDF(ctx context.Context, path string, pageCount int) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(content) > visionMaxFileBytes {
		return nil, common.Permanent(fmt.Errorf("pdf too large for vision: %d bytes", len(content)))
	}
	if pageCount <= 0 {
		pageCount = visionPagesPerCall
	}

	pages := make([]string, 0, pageCount)
	for first := 1; first <= pageCount; first += visionPagesPerCall {
		var nums []int32
		for p := first; p < first+visionPagesPerCall && p <= pageCount; p++ {
			nums = append(nums, int32(p))
		}
		req := &visionpb.BatchAnnotateFilesRequest{
			Requests: []*visionpb.AnnotateFileRequest{{
				InputConfig: &visionpb.InputConfig{Content: content, MimeType: "application/pdf"},
				Features:    []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
				Pages:       nums,
			}},
		}
		resp, err := e.client.BatchAnnotateFiles(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("vision batch annotate: %w", err)
		}
		if len(resp.GetResponses()) == 0 {
			return nil, errors.New("vision: empty response")
		}
		fileResp := resp.GetResponses()[0]
		if fileResp.GetError() != nil {
			return nil, fmt.Errorf("vision: %s", fileResp.GetError().GetMessage())
		}
		for i, page := range fileResp.GetResponses() {
			if page.GetError() != nil {
				e.logger.Warn("vision page failed", "path", path, "page", int(nums[0])+i, "error", page.GetError().GetMessage())
				pages = append(pages, "")
				continue
			}
			pages = append(pages, page.GetFullTextAnnotation().GetText())
		}
	}
	return pages, nil
}
