package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/flowdesk/flowdesk/internal/api"
	"github.com/flowdesk/flowdesk/internal/middleware"
	"github.com/flowdesk/flowdesk/internal/utils"
)

func main() {
	addr := utils.SafeEnv("FLOWDESK_ADDR", ":8080")
	commit := os.Getenv("FLOWDESK_COMMIT")
	buildTime := os.Getenv("FLOWDESK_BUILD_TIME")

	store, err := openStore()
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	mux := http.NewServeMux()
	api.NewRouter(store).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "Flowdesk API",
			"commit":     commit,
			"build_time": buildTime,
		})
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	// Serve the built frontend when pointed at it (fullstack image).
	if staticDir := os.Getenv("FLOWDESK_STATIC_DIR"); staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	handler := middleware.NoStore(middleware.SecureHeaders(middleware.CORS(middleware.WithAuth(mux))))

	log.Printf("Flowdesk server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
