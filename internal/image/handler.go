package image

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/imagepost/service/internal/response"
	"github.com/imagepost/service/internal/storage"
)

// multipartMemory is how much of a multipart body is kept in memory; the rest
// of the parts are spooled to temporary files.
const multipartMemory = 8 << 20

// Handler holds HTTP handlers for image endpoints.
type Handler struct {
	svc *Service
	out response.Writer
	log *zap.Logger
}

// NewHandler creates a new image Handler.
func NewHandler(svc *Service, out response.Writer, log *zap.Logger) *Handler {
	return &Handler{svc: svc, out: out, log: log}
}

type uploadPayload struct {
	Results  []storage.PutResult `json:"results"`
	ImageKey []string            `json:"imageKey"`
}

type uploadResponse struct {
	response.Envelope
	Result         uploadPayload `json:"result"`
	NewImageUpload *Record       `json:"newImageUpload"`
}

type signedResponse struct {
	response.Envelope
	ImageData *Record `json:"imageData"`
}

// cachedResponse keeps the historical "url" field name for the whole record.
type cachedResponse struct {
	response.Envelope
	URL *Record `json:"url"`
}

type deleteResponse struct {
	response.Envelope
	ImageToDelete *Record `json:"imageToDelete"`
	Deleted       int     `json:"deleted"`
	Failed        int     `json:"failed"`
}

// Upload godoc
//
//	@Summary		Upload images
//	@Description	Upload 1-10 JPEG or PNG images (each at most 2,500,000 bytes) and create a record holding their keys.
//	@Tags			images
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Image files (repeat the field for several files)"
//	@Success		201		{object}	uploadResponse
//	@Failure		400		{object}	response.MessageBody
//	@Failure		500		{object}	response.Envelope
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.svc.Limits().RequestBytes()
	if r.ContentLength > limit {
		response.BadRequest(w, (&ValidationError{Reason: ReasonTooLarge}).Message())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.BadRequest(w, (&ValidationError{Reason: ReasonTooLarge}).Message())
			return
		}
		response.BadRequest(w, (&ValidationError{Reason: ReasonNoFiles}).Message())
		return
	}
	defer h.removeTemp(r.MultipartForm)

	res, err := h.svc.Upload(r.Context(), r.MultipartForm.File["file"])
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			response.BadRequest(w, verr.Message())
		case errors.Is(err, ErrUploadFailed):
			h.out.Fail(w, http.StatusInternalServerError, "Unable to upload images", err)
		default:
			h.out.Fail(w, http.StatusInternalServerError, "", err)
		}
		return
	}

	h.out.Envelope(w, http.StatusCreated, uploadResponse{
		Envelope:       response.Envelope{Message: "Successful upload", Status: http.StatusCreated, Success: true},
		Result:         uploadPayload{Results: res.Results, ImageKey: res.Keys},
		NewImageUpload: res.Record,
	})
}

// GetImage godoc
//
//	@Summary		Get image record
//	@Description	Return the record with signed URLs. URLs are generated and cached on the first read; later reads return the cached record under "url".
//	@Tags			images
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	signedResponse
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/api/get-image/{id} [get]
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.out.Fail(w, http.StatusNotFound, "Image data not found", nil)
			return
		}
		h.log.Error("get image record", zap.Error(err))
		h.out.Fail(w, http.StatusInternalServerError, "Something happened", err)
		return
	}

	env := response.Envelope{Message: "Images fetched successfully", Status: http.StatusOK, Success: true}
	if res.Signed {
		h.out.Envelope(w, http.StatusOK, signedResponse{Envelope: env, ImageData: res.Record})
		return
	}
	h.out.Envelope(w, http.StatusOK, cachedResponse{Envelope: env, URL: res.Record})
}

// DeleteImage godoc
//
//	@Summary		Delete image record
//	@Description	Delete every stored object of the record, then the record itself. Per-object failures are counted in "failed".
//	@Tags			images
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	deleteResponse
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Failure		502	{object}	response.Envelope
//	@Router			/api/delete-image/{id} [delete]
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			h.out.Fail(w, http.StatusNotFound, "Image can not be found", nil)
		case errors.Is(err, ErrDeleteFailed):
			h.out.Fail(w, http.StatusBadGateway, "Unable to delete image", err)
		default:
			h.log.Error("delete image record", zap.Error(err))
			h.out.Fail(w, http.StatusInternalServerError, "Something happened", err)
		}
		return
	}

	h.out.Envelope(w, http.StatusOK, deleteResponse{
		Envelope:      response.Envelope{Message: "Image deleted successfully", Status: http.StatusOK, Success: true},
		ImageToDelete: res.Record,
		Deleted:       res.Deleted,
		Failed:        res.Failed,
	})
}

func (h *Handler) removeTemp(form *multipart.Form) {
	if err := form.RemoveAll(); err != nil {
		h.log.Warn("remove multipart temp files", zap.Error(err))
	}
}
