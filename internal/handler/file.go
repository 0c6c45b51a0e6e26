package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"foldershare/internal/domain/models"
	"foldershare/internal/domain/services"
	"foldershare/internal/httputil"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temp files
const multipartMemory = 32 << 20

// FileHandler handles file HTTP requests
type FileHandler struct {
	fileService    services.FileService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(fileService services.FileService, maxUploadBytes int64, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		fileService:    fileService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// UploadFile stores a multipart "file" part, optionally inside "folder_id"
// POST /api/files
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	// Allow room for the multipart envelope around the file itself
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes))
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	part, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer part.Close()

	req := &services.UploadFileRequest{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Body:     part,
	}
	if folderID := r.FormValue("folder_id"); folderID != "" {
		req.FolderID = &folderID
	}

	file, err := h.fileService.UploadFile(r.Context(), userID, req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, file)
}

// ListFiles lists the files the caller uploaded
// GET /api/files
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	files, err := h.fileService.ListFiles(r.Context(), userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, files)
}

// GetFile returns file metadata with the caller's permission
// GET /api/files/{id}
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	access, err := h.fileService.GetFile(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, access)
}

// unfiledFolderID is accepted in place of null to move a file out of any folder
const unfiledFolderID = "none"

// moveFileRequest is the body of a move; a null or "none" folder_id unfiles the file
type moveFileRequest struct {
	FolderID *string `json:"folder_id"`
}

// MoveFile moves a file into a folder or out of any folder
// PATCH /api/files/{id}/folder
func (h *FileHandler) MoveFile(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req moveFileRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.FolderID != nil && *req.FolderID == unfiledFolderID {
		req.FolderID = nil
	}

	file, err := h.fileService.MoveFile(r.Context(), userID, r.PathValue("id"), req.FolderID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, file)
}

// DeleteFile deletes a file
// DELETE /api/files/{id}
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	if err := h.fileService.DeleteFile(r.Context(), userID, r.PathValue("id")); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DownloadFile streams a file's bytes
// GET /api/files/{id}/content
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	file, body, err := h.fileService.DownloadFile(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	defer body.Close()

	serveContent(w, h.logger, file, body)
}

// serveContent writes a file's bytes as an attachment
func serveContent(w http.ResponseWriter, logger *slog.Logger, file *models.File, body io.Reader) {
	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		// Headers are gone; all we can do is log
		logger.Warn("file stream interrupted", "file_id", file.ID, "error", err)
	}
}
