package httpd

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kvtube/kvtube-backend/downloader"
)

// StartDownloadPayload is the body for POST /api/downloads.
type StartDownloadPayload struct {
	VideoID string            `json:"video_id"`
	Title   string            `json:"title,omitempty"`
	Format  downloader.Format `json:"format"`
}

func (s *Server) handleStartDownload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartDownloadPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: decoding request: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.VideoID == "" || req.Format.URL == "" {
			http.Error(w, "video_id and format.url are required", http.StatusBadRequest)
			return
		}

		item, err := s.Downloader.StartDownload(r.Context(), req.VideoID, req.Format, req.Title)
		if err != nil {
			if errors.Is(err, downloader.ErrAlreadyDownloading) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		respondWithJSON(w, http.StatusAccepted, item)
	}
}

func (s *Server) handleListDownloads() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, s.Downloader.ActiveDownloads())
	}
}

func (s *Server) handleDownloadStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := s.Downloader.GetDownload(chi.URLParam(r, "downloadID"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		respondWithJSON(w, http.StatusOK, item)
	}
}

func (s *Server) handlePauseDownload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Downloader.Pause(chi.URLParam(r, "downloadID")); err != nil {
			writeDownloadError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleResumeDownload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Downloader.Resume(chi.URLParam(r, "downloadID")); err != nil {
			writeDownloadError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleCancelDownload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Downloader.Cancel(chi.URLParam(r, "downloadID")); err != nil {
			writeDownloadError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeDownloadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, downloader.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, downloader.ErrNotDownloading), errors.Is(err, downloader.ErrNotPaused):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleFormats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := r.URL.Query().Get("v")
		if videoID == "" {
			respondWithJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "No video ID"})
			return
		}

		info, err := s.Formats.FetchFormats(r.Context(), videoID)
		if err != nil {
			log.Printf("ERROR: fetching formats: %v", err)
			respondWithJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": err.Error()})
			return
		}

		respondWithJSON(w, http.StatusOK, info)
	}
}

func (s *Server) handleBandwidth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mbps := s.Bandwidth.Measure(r.Context())
		respondWithJSON(w, http.StatusOK, map[string]float64{"mbps": mbps})
	}
}

// RecommendPayload is the body for POST /api/bandwidth/recommend. Bandwidth
// is optional; zero means "measure now".
type RecommendPayload struct {
	Formats   downloader.FormatList `json:"formats"`
	Bandwidth float64               `json:"bandwidth,omitempty"`
}

func (s *Server) handleRecommend() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RecommendPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		mbps := req.Bandwidth
		if mbps <= 0 {
			mbps = s.Bandwidth.Measure(r.Context())
		}

		respondWithJSON(w, http.StatusOK, downloader.Recommend(req.Formats, mbps))
	}
}
