package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"skep/internal/domain"
)

type memoryStore struct {
	mu      sync.RWMutex
	bundles map[domain.UserID]domain.PublicBundle
	queues  map[domain.UserID][]domain.Envelope
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		bundles: make(map[domain.UserID]domain.PublicBundle),
		queues:  make(map[domain.UserID][]domain.Envelope),
	}
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	ms := newMemoryStore()

	http.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var b domain.PublicBundle
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if b.UserID == "" || len(b.AgreementKey) == 0 || len(b.SigningKey) == 0 {
			http.Error(w, "incomplete bundle", http.StatusBadRequest)
			return
		}
		ms.mu.Lock()
		ms.bundles[b.UserID] = b
		ms.mu.Unlock()
		log.Println("registered bundle for", b.UserID)
	})

	http.HandleFunc("/bundle/", func(w http.ResponseWriter, r *http.Request) {
		user := domain.UserID(strings.TrimPrefix(r.URL.Path, "/bundle/"))
		ms.mu.RLock()
		b, ok := ms.bundles[user]
		ms.mu.RUnlock()
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(b)
	})

	http.HandleFunc("/msg/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/msg/")

		if strings.HasSuffix(rest, "/ack") && r.Method == http.MethodPost {
			user := domain.UserID(strings.TrimSuffix(rest, "/ack"))
			defer r.Body.Close()
			var in struct {
				Count int `json:"count"`
			}
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			ms.mu.Lock()
			q := ms.queues[user]
			if in.Count > len(q) {
				in.Count = len(q)
			}
			ms.queues[user] = q[in.Count:]
			ms.mu.Unlock()
			return
		}

		user := domain.UserID(rest)
		switch r.Method {
		case http.MethodPost:
			defer r.Body.Close()
			var env domain.Envelope
			if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if env.To != user {
				http.Error(w, "recipient mismatch", http.StatusBadRequest)
				return
			}
			ms.mu.Lock()
			ms.queues[user] = append(ms.queues[user], env)
			ms.mu.Unlock()
		case http.MethodGet:
			limit := 0
			if v := r.URL.Query().Get("limit"); v != "" {
				limit, _ = strconv.Atoi(v)
			}
			ms.mu.RLock()
			q := ms.queues[user]
			if limit > 0 && limit < len(q) {
				q = q[:limit]
			}
			out := append([]domain.Envelope(nil), q...)
			ms.mu.RUnlock()
			_ = json.NewEncoder(w).Encode(out)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	log.Println("relay listening on", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}
