package handlers

import (
	"net/http"
	"strings"

	"github.com/kozaktomas/library-kiosk/internal/capture"
	"github.com/kozaktomas/library-kiosk/internal/circulation"
)

// KioskHandler serves registration, identification and circulation requests.
// The UI keeps the logged-in name and sends it with every transaction.
type KioskHandler struct {
	kiosk    *circulation.Kiosk
	embedder capture.FaceEmbedder
	decoder  capture.SymbolDecoder
}

// NewKioskHandler creates a kiosk handler. embedder and decoder may be nil, in
// which case the photo endpoints answer 503.
func NewKioskHandler(k *circulation.Kiosk, embedder capture.FaceEmbedder, decoder capture.SymbolDecoder) *KioskHandler {
	return &KioskHandler{
		kiosk:    k,
		embedder: embedder,
		decoder:  decoder,
	}
}

type registerRequest struct {
	Name      string    `json:"name"`
	Embedding []float32 `json:"embedding"`
}

type identifyRequest struct {
	Embedding []float32 `json:"embedding"`
}

type submitRequest struct {
	Name     string `json:"name"`
	ItemCode string `json:"item_code"`
}

// Register enrolls a name with a precomputed face embedding.
func (h *KioskHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.register(w, r, req.Name, req.Embedding)
}

// RegisterImage enrolls a name with a face photo. The name is checked before
// the photo is sent to the embedding service.
func (h *KioskHandler) RegisterImage(w http.ResponseWriter, r *http.Request) {
	if !h.requireEmbedder(w) {
		return
	}
	data, ok := readUpload(w, r)
	if !ok {
		return
	}
	name := r.FormValue("name")
	if strings.TrimSpace(name) == "" {
		respondError(w, http.StatusBadRequest, circulation.ErrEmptyName.Error())
		return
	}
	embedding, ok := h.embed(w, r, data)
	if !ok {
		return
	}
	h.register(w, r, name, embedding)
}

func (h *KioskHandler) register(w http.ResponseWriter, r *http.Request, name string, embedding []float32) {
	result, err := h.kiosk.Register(r.Context(), name, embedding)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !result.Admitted() {
		status = http.StatusConflict
	}
	respondJSON(w, status, result)
}

// Identify finds the enrolled identity closest to an embedding.
func (h *KioskHandler) Identify(w http.ResponseWriter, r *http.Request) {
	var req identifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.identify(w, r, req.Embedding)
}

// IdentifyImage identifies the face in an uploaded photo.
func (h *KioskHandler) IdentifyImage(w http.ResponseWriter, r *http.Request) {
	if !h.requireEmbedder(w) {
		return
	}
	data, ok := readUpload(w, r)
	if !ok {
		return
	}
	embedding, ok := h.embed(w, r, data)
	if !ok {
		return
	}
	h.identify(w, r, embedding)
}

func (h *KioskHandler) identify(w http.ResponseWriter, r *http.Request, embedding []float32) {
	result, err := h.kiosk.Identify(r.Context(), embedding)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	switch result.Status {
	case circulation.Identified:
		respondJSON(w, http.StatusOK, result)
	case circulation.EmptyRoster:
		respondJSON(w, http.StatusConflict, result)
	default:
		respondJSON(w, http.StatusNotFound, result)
	}
}

// Submit issues or returns an item typed in or scanned by the UI.
func (h *KioskHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.submit(w, r, req.Name, req.ItemCode)
}

// SubmitScan issues or returns the item whose barcode is in an uploaded photo.
func (h *KioskHandler) SubmitScan(w http.ResponseWriter, r *http.Request) {
	if h.decoder == nil {
		respondError(w, http.StatusServiceUnavailable, "barcode decoding is not configured")
		return
	}
	data, ok := readUpload(w, r)
	if !ok {
		return
	}
	code, err := h.decoder.Decode(data)
	if err != nil {
		respondCaptureError(w, r, err)
		return
	}
	h.submit(w, r, r.FormValue("name"), code)
}

func (h *KioskHandler) submit(w http.ResponseWriter, r *http.Request, name, code string) {
	result, err := h.kiosk.Submit(r.Context(), name, code)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Status == circulation.TransactionRejected {
		status = http.StatusConflict
	}
	respondJSON(w, status, result)
}

func (h *KioskHandler) requireEmbedder(w http.ResponseWriter) bool {
	if h.embedder == nil {
		respondError(w, http.StatusServiceUnavailable, "face embedding is not configured")
		return false
	}
	return true
}

// embed turns the first face of a photo into an embedding.
func (h *KioskHandler) embed(w http.ResponseWriter, r *http.Request, photo []byte) ([]float32, bool) {
	embedding, err := h.embedder.Embed(r.Context(), photo)
	if err != nil {
		respondCaptureError(w, r, err)
		return nil, false
	}
	return embedding, true
}
