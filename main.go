package main

import (
	"log"
	"net/http"
	"os"

	"kvtube/kvtube-backend/downloader"
	"kvtube/kvtube-backend/httpd"
	"kvtube/kvtube-backend/ipc"
	"kvtube/kvtube-backend/store"

	"github.com/joho/godotenv"
)

func main() {
	log.Println("Starting KV-Tube Backend...")

	err := godotenv.Load()
	if err != nil {
		log.Printf("No .env file found, using environment as-is")
	}

	resolverURL := os.Getenv("KVTUBE_RESOLVER_URL")
	if resolverURL == "" {
		log.Fatal("FATAL: KVTUBE_RESOLVER_URL must be set")
	}

	addr := envOr("KVTUBE_ADDR", ":5002")
	dbPath := envOr("KVTUBE_DB", "kvtube.db")
	downloadDir := envOr("KVTUBE_DOWNLOAD_DIR", "./downloads")
	socketPath := envOr("KVTUBE_SOCKET", "/tmp/kvtube.sock")
	probeURL := envOr("KVTUBE_PROBE_URL", resolverURL+"/static/favicon.ico")

	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	notifier := downloader.NewNotifier()
	formats := downloader.NewFormatClient(resolverURL)
	bandwidth := downloader.NewEstimator(probeURL)
	dlSvc := downloader.NewService(notifier, formats, db, downloadDir)

	ipcHandler := ipc.NewIPCHandler(dlSvc, notifier, socketPath)
	go ipcHandler.Init()

	router := httpd.NewRouter(dlSvc, formats, bandwidth, db)

	log.Printf("Server listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
