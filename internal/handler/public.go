package handler

import (
	"log/slog"
	"net/http"

	"foldershare/internal/domain/services"
	"foldershare/internal/httputil"
)

// PublicHandler serves anonymous, read-only access through public link tokens
type PublicHandler struct {
	shareService services.ShareService
	fileService  services.FileService
	logger       *slog.Logger
}

// NewPublicHandler creates a new public link handler
func NewPublicHandler(shareService services.ShareService, fileService services.FileService, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{
		shareService: shareService,
		fileService:  fileService,
		logger:       logger,
	}
}

// OpenLink returns the shared root folder
// GET /public/{token}
func (h *PublicHandler) OpenLink(w http.ResponseWriter, r *http.Request) {
	h.openFolder(w, r, "")
}

// OpenFolder returns a folder inside the shared subtree
// GET /public/{token}/folders/{folderID}
func (h *PublicHandler) OpenFolder(w http.ResponseWriter, r *http.Request) {
	h.openFolder(w, r, r.PathValue("folderID"))
}

func (h *PublicHandler) openFolder(w http.ResponseWriter, r *http.Request, folderID string) {
	access, err := h.shareService.OpenPublicFolder(r.Context(), r.PathValue("token"), folderID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, access)
}

// DownloadFile streams a file inside the shared subtree
// GET /public/{token}/files/{fileID}/content
func (h *PublicHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	file, body, err := h.fileService.DownloadPublicFile(r.Context(), r.PathValue("token"), r.PathValue("fileID"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	defer body.Close()

	serveContent(w, h.logger, file, body)
}
