package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (h *Handler) Routes() http.Handler {
	mux := mux.NewRouter()
	mux = mux.StrictSlash(true)
	mux.Methods("GET").Path("/healthz").HandlerFunc(h.Health)
	mux.Methods("GET").Path("/models").HandlerFunc(h.Models)
	mux.Methods("GET").Path("/").HandlerFunc(h.Index)
	mux.Methods("POST").Path("/predict").HandlerFunc(h.Predict)
	return mux
}
