package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/iterator"

	"github.com/yungbote/studybridge-backend/internal/logger"
)

// OCRPage is one page's recognized text.
type OCRPage struct {
	Number int
	Text   string
}

// VisionOCR runs whole-document text recognition for a stored artifact.
// Recognition is asynchronous: Vision writes result JSON to an out-of-band
// GCS prefix, which is read back page-ordered and then deleted.
type VisionOCR interface {
	RecognizeDocument(ctx context.Context, gcsSourceURI string, mimeType string) ([]OCRPage, error)
	Close() error
}

type visionOCR struct {
	log *logger.Logger

	visionClient *vision.ImageAnnotatorClient
	storage      *storage.Client

	outputPrefix   string
	listRetry      int
	listRetryDelay time.Duration
}

func NewVisionOCR(log *logger.Logger, outputPrefix string) (VisionOCR, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !strings.HasPrefix(outputPrefix, "gs://") {
		return nil, fmt.Errorf("outputPrefix must be gs://... got %q", outputPrefix)
	}
	if !strings.HasSuffix(outputPrefix, "/") {
		outputPrefix += "/"
	}

	ctx := context.Background()
	opts := ClientOptionsFromEnv()

	vClient, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	sClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		_ = vClient.Close()
		return nil, fmt.Errorf("storage client: %w", err)
	}

	return &visionOCR{
		log:            log.With("service", "gcp.VisionOCR"),
		visionClient:   vClient,
		storage:        sClient,
		outputPrefix:   outputPrefix,
		listRetry:      12,
		listRetryDelay: 750 * time.Millisecond,
	}, nil
}

func (s *visionOCR) Close() error {
	if s == nil {
		return nil
	}
	if s.visionClient != nil {
		_ = s.visionClient.Close()
	}
	if s.storage != nil {
		_ = s.storage.Close()
	}
	return nil
}

func (s *visionOCR) RecognizeDocument(ctx context.Context, gcsSourceURI string, mimeType string) ([]OCRPage, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Minute)
	defer cancel()

	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" {
		mimeType = "application/pdf"
	}
	if !strings.HasPrefix(gcsSourceURI, "gs://") {
		return nil, fmt.Errorf("gcsSourceURI must be gs://... got %q", gcsSourceURI)
	}

	// Each recognition gets its own output prefix so concurrent jobs don't
	// read each other's results.
	runPrefix := s.outputPrefix + pathToken(gcsSourceURI) + "/"

	req := &visionpb.AsyncBatchAnnotateFilesRequest{
		Requests: []*visionpb.AsyncAnnotateFileRequest{
			{
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				InputConfig: &visionpb.InputConfig{
					GcsSource: &visionpb.GcsSource{Uri: gcsSourceURI},
					MimeType:  mimeType,
				},
				OutputConfig: &visionpb.OutputConfig{
					GcsDestination: &visionpb.GcsDestination{Uri: runPrefix},
					BatchSize:      10,
				},
			},
		},
	}

	op, err := s.visionClient.AsyncBatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision AsyncBatchAnnotateFiles: %w", err)
	}
	if _, err := op.Wait(ctx); err != nil {
		return nil, fmt.Errorf("vision operation wait: %w", err)
	}

	outBucket, outPrefix, err := parseGCSURI(runPrefix)
	if err != nil {
		return nil, err
	}

	jsonKeys, err := s.listJSONWithRetry(ctx, outBucket, outPrefix)
	if err != nil {
		return nil, err
	}

	var pages []OCRPage
	for _, key := range jsonKeys {
		b, err := s.readObject(ctx, outBucket, key)
		if err != nil {
			return nil, fmt.Errorf("read vision output %s: %w", key, err)
		}
		pages = append(pages, parseAsyncResultPages(b)...)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })

	// Intermediate artifacts are only needed once.
	s.deletePrefixBestEffort(ctx, outBucket, outPrefix)

	return pages, nil
}

func parseAsyncResultPages(b []byte) []OCRPage {
	var root struct {
		Responses []struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
			Context struct {
				PageNumber int `json:"pageNumber"`
			} `json:"context"`
			FullTextAnnotation struct {
				Text string `json:"text"`
			} `json:"fullTextAnnotation"`
		} `json:"responses"`
	}
	if err := json.Unmarshal(b, &root); err != nil {
		return nil
	}
	out := make([]OCRPage, 0, len(root.Responses))
	for i, r := range root.Responses {
		if r.Error.Message != "" {
			continue
		}
		num := r.Context.PageNumber
		if num <= 0 {
			num = i + 1
		}
		out = append(out, OCRPage{Number: num, Text: strings.TrimSpace(r.FullTextAnnotation.Text)})
	}
	return out
}

func (s *visionOCR) listJSONWithRetry(ctx context.Context, bucket, prefix string) ([]string, error) {
	var lastErr error
	for attempt := 0; attempt < s.listRetry; attempt++ {
		keys, err := s.listObjects(ctx, bucket, prefix)
		if err == nil {
			jsonKeys := make([]string, 0, len(keys))
			for _, k := range keys {
				if strings.HasSuffix(strings.ToLower(k), ".json") {
					jsonKeys = append(jsonKeys, k)
				}
			}
			sort.Strings(jsonKeys)
			if len(jsonKeys) > 0 {
				return jsonKeys, nil
			}
			lastErr = fmt.Errorf("no json objects found yet under %s/%s", bucket, prefix)
		} else {
			lastErr = err
		}
		time.Sleep(s.listRetryDelay)
	}
	return nil, lastErr
}

func (s *visionOCR) listObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	it := s.storage.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	out := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

func (s *visionOCR) readObject(ctx context.Context, bucket, key string) ([]byte, error) {
	rc, err := s.storage.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *visionOCR) deletePrefixBestEffort(ctx context.Context, bucket, prefix string) {
	keys, err := s.listObjects(ctx, bucket, prefix)
	if err != nil {
		s.log.Warn("Failed to list OCR output objects for cleanup", "prefix", prefix, "error", err)
		return
	}
	for _, k := range keys {
		if err := s.storage.Bucket(bucket).Object(k).Delete(ctx); err != nil {
			s.log.Warn("Failed to delete OCR output object", "object", k, "error", err)
		}
	}
}

func parseGCSURI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid gs uri: %q", uri)
	}
	trim := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trim, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid gs uri: %q", uri)
	}
	bucket = parts[0]
	if len(parts) == 1 {
		return bucket, "", nil
	}
	return bucket, parts[1], nil
}

// pathToken derives a stable path token from the source URI so retried
// recognitions of the same document reuse (and overwrite) one prefix.
func pathToken(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
