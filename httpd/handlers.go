package httpd

import (
	"encoding/json"
	"log"
	"net/http"

	"kvtube/kvtube-backend/downloader"
	"kvtube/kvtube-backend/store"
)

type Server struct {
	Downloader *downloader.Service
	Formats    *downloader.FormatClient
	Bandwidth  *downloader.Estimator
	Store      *store.Store
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload == nil {
		return
	}
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		log.Printf("ERROR: Failed to encode JSON response: %v", err)
	}
}
