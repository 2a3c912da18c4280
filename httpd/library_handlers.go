package httpd

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kvtube/kvtube-backend/store"
)

func (s *Server) handleGetLibrary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.Store.GetLibrary(r.Context())
		if err != nil {
			log.Printf("ERROR: fetching library: %v", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		respondWithJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) handleRemoveLibraryItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Store.RemoveDownload(r.Context(), chi.URLParam(r, "itemID")); err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleClearLibrary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Store.ClearLibrary(r.Context()); err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleGetHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.Store.GetHistory(r.Context())
		if err != nil {
			log.Printf("ERROR: fetching history: %v", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		respondWithJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) handleAddHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entry store.HistoryEntry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil || entry.ID == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		if err := s.Store.AddHistory(r.Context(), entry); err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleRemoveHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Store.RemoveHistory(r.Context(), chi.URLParam(r, "videoID")); err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleClearHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Store.ClearHistory(r.Context()); err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleGetSubscriptions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, err := s.Store.GetSubscriptions(r.Context())
		if err != nil {
			log.Printf("ERROR: fetching subscriptions: %v", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		respondWithJSON(w, http.StatusOK, subs)
	}
}

func (s *Server) handleSubscribe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub store.Subscription
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil || sub.ID == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		if err := s.Store.Subscribe(r.Context(), sub); err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleSubscriptionStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subscribed, err := s.Store.IsSubscribed(r.Context(), chi.URLParam(r, "channelID"))
		if err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]bool{"subscribed": subscribed})
	}
}

func (s *Server) handleUnsubscribe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Store.Unsubscribe(r.Context(), chi.URLParam(r, "channelID")); err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleGetTheme() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		theme, err := s.Store.GetSetting(r.Context(), "theme")
		if err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if theme == "" {
			theme = "dark"
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"theme": theme})
	}
}

func (s *Server) handleSetTheme() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Theme string `json:"theme"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Theme == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		if err := s.Store.SetSetting(r.Context(), "theme", req.Theme); err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
