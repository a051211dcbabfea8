package handlers

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/opencontainers/go-digest"

	apierr "github.com/Brownie44l1/catdog-api/internal/errors"
	"github.com/Brownie44l1/catdog-api/internal/model"
	"github.com/Brownie44l1/catdog-api/internal/preprocess"
	"github.com/Brownie44l1/catdog-api/internal/storage"
)

const DefaultMaxUploadSize = int64(32 << 20)

//go:embed templates/index.html
var templatesFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type Options struct {
	MaxUploadSize int64
	KeepUploads   bool
}

type Handler struct {
	registry   *model.Registry
	dispatcher *model.Dispatcher
	store      storage.Store
	options    Options
}

func NewHandler(registry *model.Registry, dispatcher *model.Dispatcher, store storage.Store, options Options) *Handler {
	if options.MaxUploadSize <= 0 {
		options.MaxUploadSize = DefaultMaxUploadSize
	}
	return &Handler{
		registry:   registry,
		dispatcher: dispatcher,
		store:      store,
		options:    options,
	}
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, map[string]any{"Models": h.registry.Names()}); err != nil {
		logr.FromContextOrDiscard(r.Context()).Error(err, "render index")
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ResponseOK(w, map[string]string{"status": "healthy"})
}

type ModelInfo struct {
	Name        string  `json:"name"`
	InputShape  []int64 `json:"input_shape"`
	OutputShape []int64 `json:"output_shape"`
}

func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	infos := []ModelInfo{}
	for _, name := range h.registry.Names() {
		m, _ := h.registry.Lookup(name)
		meta := m.Metadata()
		infos = append(infos, ModelInfo{Name: name, InputShape: meta.InputShape, OutputShape: meta.OutputShape})
	}
	ResponseOK(w, map[string]any{"models": infos})
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	log := logr.FromContextOrDiscard(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.options.MaxUploadSize)
	if err := r.ParseMultipartForm(h.options.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ResponseError(w, apierr.NewParameterInvalidError(fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit)))
			return
		}
		ResponseError(w, apierr.NewMissingInputError())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	names, hasModel := r.MultipartForm.Value["model_name"]
	if err != nil || !hasModel || len(names) == 0 {
		if file != nil {
			file.Close()
		}
		ResponseError(w, apierr.NewMissingInputError())
		return
	}
	defer file.Close()
	modelName := names[0]

	key, err := h.save(r, file, header)
	if err != nil {
		log.Error(err, "failed to store upload", "filename", header.Filename)
		ResponseError(w, apierr.NewInternalError(fmt.Errorf("store upload: %w", err)))
		return
	}
	if !h.options.KeepUploads {
		defer func() {
			if err := h.store.Remove(r.Context(), key); err != nil {
				log.Error(err, "failed to remove upload", "key", key)
			}
		}()
	}

	m, ok := h.registry.Lookup(modelName)
	if !ok {
		ResponseError(w, apierr.NewModelUnknownError())
		return
	}

	input, err := h.prepare(r, key, m.Metadata().ImageSize)
	if err != nil {
		log.Error(err, "failed to prepare image", "key", key)
		ResponseError(w, apierr.NewInternalError(err))
		return
	}

	score, err := h.dispatcher.Score(r.Context(), m, input)
	if err != nil {
		log.Error(err, "prediction failed", "model", modelName)
		if errors.Is(err, model.ErrBusy) {
			ResponseError(w, apierr.NewUnavailableError(err))
			return
		}
		ResponseError(w, apierr.NewInternalError(err))
		return
	}

	result := model.Decide(score)
	log.Info("prediction", "model", modelName, "score", score, "result", result, "key", key)
	ResponseOK(w, model.PredictionResponse{Result: result, ModelUsed: modelName})
}

// save persists the upload under its content digest and returns the storage key. Kept
// uploads are deduplicated by content.
func (h *Handler) save(r *http.Request, file multipart.File, header *multipart.FileHeader) (string, error) {
	d, err := digest.FromReader(file)
	if err != nil {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	// uploads that get removed after the response are never shared between requests
	key := storage.RequestKey(d, header.Filename)
	if h.options.KeepUploads {
		key = storage.Key(d, header.Filename)
		exists, err := h.store.Exists(r.Context(), key)
		if err != nil {
			return "", err
		}
		if exists {
			return key, nil
		}
	}
	content := storage.Content{
		Content:       file,
		ContentType:   header.Header.Get("Content-Type"),
		ContentLength: header.Size,
	}
	if err := h.store.Put(r.Context(), key, content); err != nil {
		return "", err
	}
	return key, nil
}

func (h *Handler) prepare(r *http.Request, key string, size int) (model.Tensor, error) {
	obj, err := h.store.Get(r.Context(), key)
	if err != nil {
		return model.Tensor{}, fmt.Errorf("read upload: %w", err)
	}
	defer obj.Close()
	return preprocess.PrepareReader(obj, size)
}
