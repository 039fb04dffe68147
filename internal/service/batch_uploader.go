package service

import (
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/constant"
	"EnclosureAPI/internal/helper"
	"EnclosureAPI/internal/localcache"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
)

// BatchUploader fans a selection out to the content store and joins on the
// full set of outcomes.
type BatchUploader struct {
	exporter      AssetExporter
	store         ContentStore
	cache         MediaCache
	concurrency   int
	chatRoot      string
	groupChatRoot string
	newID         func() string
}

func NewBatchUploader(cfg *config.AppConfig, exporter AssetExporter, store ContentStore, cache MediaCache) *BatchUploader {
	return &BatchUploader{
		exporter:      exporter,
		store:         store,
		cache:         cache,
		concurrency:   cfg.UploadConcurrency,
		chatRoot:      cfg.ChatRoot,
		groupChatRoot: cfg.GroupChatRoot,
		newID:         uuid.NewString,
	}
}

// Upload returns one outcome per asset, sorted by the asset's original index.
// It only returns once every asset has either uploaded or failed.
func (u *BatchUploader) Upload(ctx context.Context, target UploadTarget, assets []Asset) BatchOutcome {
	results := helper.FanOut(ctx, assets, u.concurrency, func(ctx context.Context, _ int, asset Asset) (*UploadedAsset, error) {
		return u.uploadOne(ctx, target, asset)
	})

	outcomes := make([]AssetOutcome, len(results))
	for i, r := range results {
		outcomes[i] = AssetOutcome{
			Index:    assets[i].Index,
			LocalID:  assets[i].LocalID,
			Uploaded: r.Value,
			Err:      r.Err,
		}
		if r.Err != nil {
			outcomes[i].Uploaded = nil
			slog.Warn("Failed to upload asset", "batch_id", target.BatchModelID, "index", assets[i].Index, "kind", ErrorKind(r.Err), "error", r.Err)
		}
	}

	sort.SliceStable(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })
	return BatchOutcome{Outcomes: outcomes}
}

func (u *BatchUploader) uploadOne(ctx context.Context, target UploadTarget, asset Asset) (*UploadedAsset, error) {
	exported, err := u.exporter.Export(ctx, asset)
	if err != nil {
		return nil, err
	}

	root := u.chatRoot
	if target.Conversation == constant.ConversationGroup {
		root = u.groupChatRoot
	}

	switch asset.Kind {
	case constant.MediaKindVideo:
		return u.uploadVideo(ctx, root, target, asset, exported)
	default:
		return u.uploadImage(ctx, root, target, asset, exported)
	}
}

func (u *BatchUploader) uploadImage(ctx context.Context, root string, target UploadTarget, asset Asset, exported ExportedAsset) (*UploadedAsset, error) {
	fileName := helper.BatchImageFileName(target.BatchModelID, asset.Index)
	localPath := u.saveLocal(localcache.KindImage, fileName, exported.Data)

	url, err := u.putAndResolve(ctx, helper.StoragePath(root, target.ConversationKey, fileName), exported.ContentType, exported.Data)
	if err != nil {
		return nil, err
	}

	return &UploadedAsset{
		Index:     asset.Index,
		ModelID:   fmt.Sprintf("%s_%d", target.BatchModelID, asset.Index),
		Kind:      constant.MediaKindImage,
		URL:       url,
		FileName:  fileName,
		Width:     exported.Width,
		Height:    exported.Height,
		LocalPath: localPath,
	}, nil
}

func (u *BatchUploader) uploadVideo(ctx context.Context, root string, target UploadTarget, asset Asset, exported ExportedAsset) (*UploadedAsset, error) {
	modelID := u.newID()

	thumbName := helper.ThumbnailFileName(modelID)
	u.saveLocal(localcache.KindThumbnail, thumbName, exported.Thumbnail)

	thumbURL, err := u.putAndResolve(ctx, helper.StoragePath(root, target.ConversationKey, thumbName), "image/jpeg", exported.Thumbnail)
	if err != nil {
		return nil, err
	}

	fileName := helper.VideoFileName(modelID)
	localPath := u.saveLocal(localcache.KindVideo, fileName, exported.Data)

	url, err := u.putAndResolve(ctx, helper.StoragePath(root, target.ConversationKey, fileName), exported.ContentType, exported.Data)
	if err != nil {
		return nil, err
	}

	return &UploadedAsset{
		Index:             asset.Index,
		ModelID:           modelID,
		Kind:              constant.MediaKindVideo,
		URL:               url,
		FileName:          fileName,
		ThumbnailURL:      thumbURL,
		ThumbnailFileName: thumbName,
		Width:             exported.Width,
		Height:            exported.Height,
		LocalPath:         localPath,
	}, nil
}

// saveLocal never fails the upload; the cache is best effort.
func (u *BatchUploader) saveLocal(kind localcache.Kind, fileName string, data []byte) string {
	if u.cache == nil {
		return ""
	}
	if _, err := u.cache.SaveIfAbsent(kind, fileName, data); err != nil {
		slog.Warn("Failed to save media to local cache", "kind", kind, "file", fileName, "error", err)
		return ""
	}
	p, err := u.cache.Path(kind, fileName)
	if err != nil {
		return ""
	}
	return p
}

func (u *BatchUploader) putAndResolve(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if err := u.store.Put(ctx, path, contentType, bytes.NewReader(data)); err != nil {
		return "", &UploadFailedError{Reason: err.Error(), Err: err}
	}

	url, err := u.store.ResolveURL(ctx, path)
	if err != nil {
		return "", &UploadFailedError{Reason: err.Error(), Err: err}
	}
	if url == "" {
		return "", ErrDownloadURLMissing
	}

	return url, nil
}
