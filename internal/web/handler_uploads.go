package web

import (
	"errors"
	"net/http"

	"github.com/AlfilAlex/taller-upy/internal/uploads"
)

const maxPresignBatch = 10

// handlePresignUploads issues upload URLs for a batch of images the
// caller intends to attach to a lot.
func (s *Server) handlePresignUploads(w http.ResponseWriter, r *http.Request) {
	var reqs []uploads.Request
	if err := decodeJSON(r, &reqs); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(reqs) == 0 {
		jsonError(w, http.StatusBadRequest, "no uploads requested")
		return
	}
	if len(reqs) > maxPresignBatch {
		jsonError(w, http.StatusBadRequest, "too many uploads in one request")
		return
	}

	caller := callerIdentity(r.Context())
	grants := make([]*uploads.PresignedUpload, 0, len(reqs))
	for _, req := range reqs {
		grant, err := s.signer.Presign(r.Context(), req, caller)
		if err != nil {
			if errors.Is(err, uploads.ErrFileTooLarge) || errors.Is(err, uploads.ErrUnsupportedType) {
				jsonError(w, http.StatusBadRequest, err.Error())
				return
			}
			s.logger.Error("failed to presign upload", "error", err)
			jsonError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		grants = append(grants, grant)
	}

	jsonResponse(w, http.StatusOK, grants)
}
