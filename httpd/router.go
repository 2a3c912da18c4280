package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"kvtube/kvtube-backend/downloader"
	"kvtube/kvtube-backend/store"
)

func NewRouter(dlSvc *downloader.Service, formats *downloader.FormatClient, bandwidth *downloader.Estimator, db *store.Store) http.Handler {
	srv := &Server{
		Downloader: dlSvc,
		Formats:    formats,
		Bandwidth:  bandwidth,
		Store:      db,
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- Downloads ---
	r.Post("/api/downloads", srv.handleStartDownload())
	r.Get("/api/downloads", srv.handleListDownloads())
	r.Get("/api/downloads/{downloadID}", srv.handleDownloadStatus())
	r.Post("/api/downloads/{downloadID}/pause", srv.handlePauseDownload())
	r.Post("/api/downloads/{downloadID}/resume", srv.handleResumeDownload())
	r.Delete("/api/downloads/{downloadID}", srv.handleCancelDownload())

	// --- Formats & bandwidth ---
	r.Get("/api/download/formats", srv.handleFormats())
	r.Get("/api/bandwidth", srv.handleBandwidth())
	r.Post("/api/bandwidth/recommend", srv.handleRecommend())

	// --- Library ---
	r.Get("/api/library", srv.handleGetLibrary())
	r.Delete("/api/library", srv.handleClearLibrary())
	r.Delete("/api/library/{itemID}", srv.handleRemoveLibraryItem())

	// --- History ---
	r.Get("/api/history", srv.handleGetHistory())
	r.Post("/api/history", srv.handleAddHistory())
	r.Delete("/api/history", srv.handleClearHistory())
	r.Delete("/api/history/{videoID}", srv.handleRemoveHistory())

	// --- Subscriptions ---
	r.Get("/api/subscriptions", srv.handleGetSubscriptions())
	r.Post("/api/subscriptions", srv.handleSubscribe())
	r.Get("/api/subscriptions/{channelID}", srv.handleSubscriptionStatus())
	r.Delete("/api/subscriptions/{channelID}", srv.handleUnsubscribe())

	// --- Settings ---
	r.Get("/api/settings/theme", srv.handleGetTheme())
	r.Put("/api/settings/theme", srv.handleSetTheme())

	// --- Streaming proxy ---
	r.Get("/video_proxy", srv.handleVideoProxy())

	return r
}
