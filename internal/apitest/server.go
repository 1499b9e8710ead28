// Package apitest runs an in-memory product API with the same routes and
// status codes as the real backend, for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"storefront/internal/model"

	"github.com/go-chi/chi/v5"
)

// Upload records one multipart create request as the server received it.
type Upload struct {
	ProductJSON      string
	ImageFilename    string
	ImageContentType string
	ImageSize        int
}

type Server struct {
	*httptest.Server

	mu         sync.Mutex
	products   map[int64]model.Product
	images     map[int64]model.Image
	nextID     int64
	requests   map[string]int
	uploads    []Upload
	failImages map[int64]bool
	failUpdate map[int64]bool
	failAll    bool
}

// New starts the server and closes it when the test ends.
func New(t testing.TB, seed ...model.Product) *Server {
	t.Helper()
	s := &Server{
		products:   map[int64]model.Product{},
		images:     map[int64]model.Image{},
		requests:   map[string]int{},
		failImages: map[int64]bool{},
		failUpdate: map[int64]bool{},
	}
	for _, p := range seed {
		s.Put(p, nil)
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// BaseURL is what API_BASE_URL points at.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.count)
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", s.list)
		r.Post("/", s.create)
		r.Get("/search", s.search)
		r.Get("/category/{category}", s.byCategory)
		r.Get("/{id}", s.get)
		r.Put("/{id}", s.update)
		r.Delete("/{id}", s.delete)
		r.Get("/{id}/image", s.image)
	})
	return r
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.Method+" "+r.URL.Path]++
		s.requests[""]++
		fail := s.failAll
		s.mu.Unlock()
		if fail {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Put stores p under p.ID, assigning an ID when it is zero.
func (s *Server) Put(p model.Product, img *model.Image) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.nextID++
		p.ID = s.nextID
	} else if p.ID > s.nextID {
		s.nextID = p.ID
	}
	if img != nil {
		s.images[p.ID] = *img
		if p.ImageName == "" {
			p.ImageName = img.Filename
		}
	}
	s.products[p.ID] = p
	return p
}

func (s *Server) Product(id int64) (model.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

// Requests counts requests by "METHOD /path"; the empty key is the total.
func (s *Server) Requests(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[key]
}

func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

func (s *Server) FailImage(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failImages[id] = true
}

func (s *Server) FailUpdate(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpdate[id] = true
}

// FailAll makes every route answer 503.
func (s *Server) FailAll(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAll = fail
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) sorted(keep func(model.Product) bool) []model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		if keep == nil || keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sorted(nil))
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	kw := strings.ToLower(r.URL.Query().Get("keyword"))
	found := s.sorted(func(p model.Product) bool {
		for _, f := range []string{p.Name, p.Brand, p.Description, string(p.Category)} {
			if kw != "" && strings.Contains(strings.ToLower(f), kw) {
				return true
			}
		}
		return false
	})
	if len(found) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) byCategory(w http.ResponseWriter, r *http.Request) {
	c := chi.URLParam(r, "category")
	writeJSON(w, http.StatusOK, s.sorted(func(p model.Product) bool {
		return strings.EqualFold(string(p.Category), c)
	}))
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	p, ok := s.Product(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) image(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	img, found := s.images[id]
	fail := s.failImages[id]
	s.mu.Unlock()
	switch {
	case fail:
		http.Error(w, "image store down", http.StatusInternalServerError)
	case !found:
		w.WriteHeader(http.StatusNotFound)
	default:
		w.Header().Set("Content-Type", img.ContentType)
		_, _ = w.Write(img.Data)
	}
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	raw := r.FormValue("productJson")
	var p model.Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		http.Error(w, "bad productJson: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("imageFile")
	if err != nil {
		http.Error(w, "missing imageFile", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	img := model.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	p.ID = 0
	p.ImageName = header.Filename
	saved := s.Put(p, &img)

	s.mu.Lock()
	s.uploads = append(s.uploads, Upload{
		ProductJSON:      raw,
		ImageFilename:    img.Filename,
		ImageContentType: img.ContentType,
		ImageSize:        len(data),
	})
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	existing, found := s.products[id]
	fail := s.failUpdate[id]
	s.mu.Unlock()
	if fail {
		http.Error(w, "Failed to update", http.StatusInternalServerError)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var p model.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, fmt.Sprintf("bad product: %v", err), http.StatusBadRequest)
		return
	}
	p.ID = id
	if p.ImageName == "" {
		p.ImageName = existing.ImageName
	}
	s.Put(p, nil)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Updated")
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	_, found := s.products[id]
	delete(s.products, id)
	delete(s.images, id)
	s.mu.Unlock()
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
