package videos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vidshare/client/internal/api"
	"github.com/vidshare/client/internal/fileutil"
	"github.com/vidshare/client/internal/logging"
	"github.com/vidshare/client/internal/models"
)

// Stage names one step of the upload pipeline, announced to the observer
// before that step begins.
type Stage string

const (
	StagePreparing   Stage = "preparing"
	StageRequesting  Stage = "requesting"
	StageUploading   Stage = "uploading"
	StageRegistering Stage = "registering"
	StageRefreshing  Stage = "refreshing"
	StageDone        Stage = "done"
)

// UploadObserver receives stage transitions and the coarse progress signal.
// Progress fires only during the uploading stage: 0 immediately before the
// transfer and 1 immediately after.
type UploadObserver interface {
	UploadStage(stage Stage)
	UploadProgress(fraction float64)
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) UploadStage(Stage)      {}
func (NopObserver) UploadProgress(float64) {}

// SourceOpener opens a non-path upload reference for copying into the local
// cache. The default opener only understands plain paths and file URIs.
type SourceOpener func(uri string) (io.ReadCloser, error)

// Refresher reloads the video collection after a successful upload.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Uploader moves a locally selected file to remote storage and registers it
// in the backend catalog. The stages run strictly in sequence with no
// automatic retries; the first error propagates to the caller, who may
// restart the whole pipeline. A transfer failure after the upload target was
// issued leaves a pending catalog record behind on the server; the client
// performs no compensating cleanup.
type Uploader struct {
	fetch    Fetcher
	client   *api.Client
	catalog  Refresher
	cacheDir string
	open     SourceOpener
}

// NewUploader constructs an Uploader copying indirect sources into cacheDir.
func NewUploader(fetch Fetcher, client *api.Client, catalog Refresher, cacheDir string) *Uploader {
	if fetch == nil || client == nil || catalog == nil {
		panic("videos: uploader dependencies must not be nil")
	}
	return &Uploader{
		fetch:    fetch,
		client:   client,
		catalog:  catalog,
		cacheDir: cacheDir,
	}
}

// WithSourceOpener installs an opener for upload references that are not
// plain local paths.
func (u *Uploader) WithSourceOpener(open SourceOpener) *Uploader {
	u.open = open
	return u
}

// Upload runs the full pipeline for one file and returns the resulting
// catalog record.
func (u *Uploader) Upload(ctx context.Context, req models.UploadRequest, obs UploadObserver) (models.VideoRecord, error) {
	if obs == nil {
		obs = NopObserver{}
	}

	ctx, span := logging.StartSpan(ctx, "videos.upload")

	obs.UploadStage(StagePreparing)
	localPath, size, err := u.prepare(req)
	if err != nil {
		span.EndWithError(err)
		return models.VideoRecord{}, err
	}

	obs.UploadStage(StageRequesting)
	target, err := u.requestTarget(ctx, req, size)
	if err != nil {
		span.EndWithError(err)
		return models.VideoRecord{}, err
	}

	obs.UploadStage(StageUploading)
	if err := u.transfer(ctx, localPath, size, req.MIMEType, target.SignedURL, obs); err != nil {
		span.EndWithError(err)
		return models.VideoRecord{}, err
	}

	obs.UploadStage(StageRegistering)
	if err := u.register(ctx, target.VideoID); err != nil {
		span.EndWithError(err)
		return models.VideoRecord{}, err
	}

	obs.UploadStage(StageRefreshing)
	if err := u.catalog.Refresh(ctx); err != nil {
		span.EndWithError(err)
		return models.VideoRecord{}, err
	}

	obs.UploadStage(StageDone)
	span.End()

	if lookup, ok := u.catalog.(interface {
		GetByID(id int64) (models.VideoRecord, bool)
	}); ok {
		if record, found := lookup.GetByID(target.VideoID); found {
			return record, nil
		}
	}
	return models.VideoRecord{ID: target.VideoID, Title: req.Name}, nil
}

// prepare normalizes the source reference to a local path and settles the
// authoritative byte size: the picker-declared size wins when positive, a
// local stat covers the rest, and nothing else is accepted.
func (u *Uploader) prepare(req models.UploadRequest) (string, int64, error) {
	localPath, err := u.localize(req)
	if err != nil {
		return "", 0, err
	}

	size := req.DeclaredSize
	if size <= 0 {
		size, err = fileutil.FileSize(localPath)
		if err != nil || size <= 0 {
			return "", 0, fmt.Errorf("prepare %s: %w", req.Name, ErrUnknownFileSize)
		}
	}

	return localPath, size, nil
}

// localize resolves plain paths and file URIs directly; anything else is
// copied into the cache first, mirroring how the mobile client handled
// content-provider references that cannot be streamed in place.
func (u *Uploader) localize(req models.UploadRequest) (string, error) {
	uri := strings.TrimSpace(req.URI)
	if uri == "" {
		return "", fmt.Errorf("%w: empty reference", ErrUnsupportedSource)
	}

	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme == "" {
		return uri, nil
	}
	if parsed.Scheme == "file" {
		return parsed.Path, nil
	}
	if len(parsed.Scheme) == 1 {
		// Windows drive letters parse as a scheme.
		return uri, nil
	}

	if u.open == nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSource, parsed.Scheme)
	}

	src, err := u.open(uri)
	if err != nil {
		return "", fmt.Errorf("open source %s: %w", uri, err)
	}
	defer src.Close()

	if err := os.MkdirAll(u.cacheDir, 0o700); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}

	dst := filepath.Join(u.cacheDir, uuid.NewString()+filepath.Ext(req.Name))
	if _, err := fileutil.SaveReader(dst, src); err != nil {
		return "", fmt.Errorf("copy source to cache: %w", err)
	}
	return dst, nil
}

func (u *Uploader) requestTarget(ctx context.Context, req models.UploadRequest, size int64) (uploadTarget, error) {
	body, err := json.Marshal(uploadTargetRequest{
		FileName: req.Name,
		FileSize: size,
		MIMEType: req.MIMEType,
	})
	if err != nil {
		return uploadTarget{}, err
	}

	resp, err := u.fetch.AuthFetch(ctx, http.MethodPost, "/v1/videos/upload", body)
	if err != nil {
		return uploadTarget{}, fmt.Errorf("request upload target: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return uploadTarget{}, fmt.Errorf("request upload target: %w", api.NewStatusError(resp))
	}

	var target uploadTarget
	if err := json.NewDecoder(resp.Body).Decode(&target); err != nil {
		return uploadTarget{}, fmt.Errorf("decode upload target: %w", err)
	}
	if target.SignedURL == "" {
		return uploadTarget{}, fmt.Errorf("request upload target: empty signed url in response")
	}
	return target, nil
}

// transfer streams the file bytes to the pre-signed target. The progress
// contract is deliberately two-point: the underlying transfer is not sampled.
func (u *Uploader) transfer(ctx context.Context, path string, size int64, mimeType, signedURL string, obs UploadObserver) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, file)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	req.ContentLength = size
	if mimeType != "" {
		req.Header.Set("Content-Type", mimeType)
	}

	obs.UploadProgress(0)

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %v", ErrTransferFailed, api.NewStatusError(resp))
	}

	obs.UploadProgress(1)
	return nil
}

// register flips the server-side catalog entry from pending to active.
func (u *Uploader) register(ctx context.Context, videoID int64) error {
	path := fmt.Sprintf("/v1/videos/upload/%d/register-uploaded", videoID)

	resp, err := u.fetch.AuthFetch(ctx, http.MethodPatch, path, nil)
	if err != nil {
		return fmt.Errorf("register upload %d: %w", videoID, err)
	}
	defer resp.Body.Close()

	// 204 is the usual success here; any 2xx is accepted.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("register upload %d: %w", videoID, api.NewStatusError(resp))
	}
	return nil
}

type uploadTargetRequest struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	MIMEType string `json:"mimeType"`
}

type uploadTarget struct {
	SignedURL string `json:"signedUrl"`
	VideoID   int64  `json:"videoId"`
}
