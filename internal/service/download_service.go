package service

import (
	"EnclosureAPI/internal/download"
	"EnclosureAPI/internal/helper"
	"EnclosureAPI/internal/localcache"
	"EnclosureAPI/internal/model"
	"EnclosureAPI/internal/websocket"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

type Downloader interface {
	Check(ctx context.Context, rawURL string) error
	Download(ctx context.Context, rawURL, fileName, dest string, onProgress download.ProgressFunc) error
	Active() []string
}

type DownloadService struct {
	validator  *validator.Validate
	downloader Downloader
	cache      MediaCache
	notifier   Notifier
	timeout    time.Duration
	wg         sync.WaitGroup
}

func NewDownloadService(validator *validator.Validate, downloader Downloader, cache MediaCache, notifier Notifier) *DownloadService {
	return &DownloadService{
		validator:  validator,
		downloader: downloader,
		cache:      cache,
		notifier:   notifier,
		timeout:    30 * time.Minute,
	}
}

// Start resolves the cache destination and fetches the file in the
// background. Progress is pushed to uid as download.progress events.
func (s *DownloadService) Start(ctx context.Context, uid string, req model.DownloadRequest) (*model.DownloadResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		slog.Warn("Validation failed", "error", err)
		return nil, helper.NewBadRequestError("")
	}

	if err := s.downloader.Check(ctx, req.URL); err != nil {
		slog.Warn("Download url rejected", "error", err, "uid", uid)
		return nil, helper.NewBadRequestError("download url is not allowed")
	}

	kind := localcache.KindFromString(req.Kind)
	dest, err := s.cache.Path(kind, req.FileName)
	if err != nil {
		return nil, helper.NewBadRequestError("invalid file name")
	}

	resp := &model.DownloadResponse{FileName: req.FileName, Path: dest}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		last := -1
		err := s.downloader.Download(bg, req.URL, req.FileName, dest, func(percent int) {
			if percent == last {
				return
			}
			last = percent
			s.progress(uid, websocket.DownloadProgressPayload{FileName: req.FileName, Percent: percent})
		})

		final := websocket.DownloadProgressPayload{FileName: req.FileName, Percent: 100, Done: true}
		if err != nil {
			slog.Warn("Download failed", "error", err, "file_name", req.FileName, "uid", uid)
			final = websocket.DownloadProgressPayload{FileName: req.FileName, Percent: last, Done: true, Error: err.Error()}
			if final.Percent < 0 {
				final.Percent = 0
			}
		}
		s.progress(uid, final)
	}()

	return resp, nil
}

func (s *DownloadService) Active() []string {
	active := s.downloader.Active()
	if active == nil {
		return []string{}
	}
	return active
}

// Wait blocks until background downloads started by Start have returned.
func (s *DownloadService) Wait() {
	s.wg.Wait()
}

func (s *DownloadService) progress(uid string, payload websocket.DownloadProgressPayload) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastToUser(uid, websocket.NewEvent(websocket.EventDownloadProgress, payload, "", uid))
}
