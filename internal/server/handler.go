package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"library/internal/opds"
	"library/internal/response"
	"library/internal/service"
)

type Services struct {
	Authors service.Service[service.AuthorDTO]
	Books   service.Service[service.BookDTO]
	Genres  service.Service[service.GenreDTO]
}

var errInvalidId = errors.New("id must be an integer")

func Handler(s Services, rr *response.Responder) http.Handler {
	r := chi.NewRouter()

	r.Route("/author", func(r chi.Router) { mount(r, "Author", s.Authors, rr) })
	r.Route("/book", func(r chi.Router) { mount(r, "Book", s.Books, rr) })
	r.Route("/genre", func(r chi.Router) { mount(r, "Genre", s.Genres, rr) })

	r.Get("/opds/", func(w http.ResponseWriter, r *http.Request) {
		bks, err := s.Books.FindAll(r.Context())
		if err != nil {
			respondError(w, r, err, rr)
			return
		}

		rr.SendXml(w, r.Context(), opds.ContentType, opds.BuildFeed("Library catalog", r.URL.Path, bks))
	})

	return r
}

func mount[D any](r chi.Router, entity string, svc service.Service[D], rr *response.Responder) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.FindAll(r.Context())
		if err != nil {
			respondError(w, r, err, rr)
			return
		}

		rr.SendJson(w, r.Context(), rows)
	})

	r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := getId(w, r, rr)
		if !ok {
			return
		}

		row, err := svc.FindById(r.Context(), id)
		if err != nil {
			respondError(w, r, err, rr)
			return
		}

		rr.SendJson(w, r.Context(), row)
	})

	r.Put("/", func(w http.ResponseWriter, r *http.Request) {
		dto, ok := decode[D](w, r, rr)
		if !ok {
			return
		}

		id, err := svc.Save(r.Context(), dto)
		if err != nil {
			respondError(w, r, err, rr)
			return
		}

		rr.SendText(w, fmt.Sprintf("%s %d added", entity, id))
	})

	r.Post("/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := getId(w, r, rr)
		if !ok {
			return
		}

		dto, ok := decode[D](w, r, rr)
		if !ok {
			return
		}

		if err := svc.Update(r.Context(), id, dto); err != nil {
			respondError(w, r, err, rr)
			return
		}

		rr.SendText(w, fmt.Sprintf("%s %d updated", entity, id))
	})

	r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := getId(w, r, rr)
		if !ok {
			return
		}

		if err := svc.DeleteById(r.Context(), id); err != nil {
			respondError(w, r, err, rr)
			return
		}

		rr.SendText(w, fmt.Sprintf("%s %d deleted", entity, id))
	})
}

// respondError shows business errors as 404 and hides everything else behind a 500.
func respondError(w http.ResponseWriter, r *http.Request, err error, rr *response.Responder) {
	if service.IsBusiness(err) {
		rr.RespondWithMessage(w, r.Context(), err, http.StatusNotFound)
		return
	}

	rr.RespondAndLogError(w, r.Context(), err)
}

func getId(w http.ResponseWriter, r *http.Request, rr *response.Responder) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		rr.RespondWithMessage(w, r.Context(), errInvalidId, http.StatusBadRequest)
		return 0, false
	}

	return id, true
}

func decode[D any](w http.ResponseWriter, r *http.Request, rr *response.Responder) (D, bool) {
	var dto D

	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rr.RespondWithMessage(w, r.Context(), fmt.Errorf("malformed request body: %w", err), http.StatusBadRequest)
		return dto, false
	}

	return dto, true
}
