package handler

import (
	"log/slog"
	"net/http"

	"foldershare/internal/domain"
	"foldershare/internal/domain/services"
	"foldershare/internal/httputil"
)

// ShareHandler handles per-user grants and public links
type ShareHandler struct {
	shareService services.ShareService
	logger       *slog.Logger
}

// NewShareHandler creates a new share handler
func NewShareHandler(shareService services.ShareService, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		shareService: shareService,
		logger:       logger,
	}
}

// ListShares lists the grants on a folder
// GET /api/folders/{id}/shares
func (h *ShareHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	grants, err := h.shareService.ListSharedUsers(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, grants)
}

// ShareFolder grants a user READ or EDIT on a folder
// POST /api/folders/{id}/shares
func (h *ShareHandler) ShareFolder(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req services.ShareRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.FolderID = r.PathValue("id")

	grant, err := h.shareService.ShareWithUser(r.Context(), userID, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, grant)
}

// UpdateShare changes a grant's level
// PATCH /api/folders/{id}/shares/{userID}
func (h *ShareHandler) UpdateShare(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req services.UpdatePermissionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.FolderID = r.PathValue("id")
	req.TargetUserID = r.PathValue("userID")

	rows, err := h.shareService.UpdatePermission(r.Context(), userID, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if rows == 0 {
		handleError(w, h.logger, &domain.NotFoundError{Message: "folder is not shared with this user"})
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"folder_id":  req.FolderID,
		"user_id":    req.TargetUserID,
		"permission": req.Permission,
	})
}

// RemoveShare revokes a user's grant
// DELETE /api/folders/{id}/shares/{userID}
func (h *ShareHandler) RemoveShare(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	removed, err := h.shareService.RemoveShare(r.Context(), userID, r.PathValue("id"), r.PathValue("userID"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if !removed {
		handleError(w, h.logger, &domain.NotFoundError{Message: "folder is not shared with this user"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SharedWithMe lists the folders other users shared with the caller
// GET /api/shared-with-me
func (h *ShareHandler) SharedWithMe(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	grants, err := h.shareService.ListFoldersSharedWithUser(r.Context(), userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, grants)
}

// GetPublicLink returns the folder's current public link
// GET /api/folders/{id}/public-link
func (h *ShareHandler) GetPublicLink(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	share, err := h.shareService.GetPublicShare(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, share)
}

// CreatePublicLink creates or replaces the folder's public link
// POST /api/folders/{id}/public-link
func (h *ShareHandler) CreatePublicLink(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req services.CreatePublicShareRequest
	if r.ContentLength != 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	req.FolderID = r.PathValue("id")

	share, err := h.shareService.CreatePublicShare(r.Context(), userID, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, share)
}

// RevokePublicLink deletes the folder's public link
// DELETE /api/folders/{id}/public-link
func (h *ShareHandler) RevokePublicLink(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	revoked, err := h.shareService.RevokePublicShare(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if !revoked {
		handleError(w, h.logger, &domain.NotFoundError{Message: "folder has no public link"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
