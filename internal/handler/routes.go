package handler

import "net/http"

// Handlers groups the controllers mounted on the API mux
type Handlers struct {
	Folders *FolderHandler
	Files   *FileHandler
	Shares  *ShareHandler
	Public  *PublicHandler
}

// Register mounts every API route on mux (Go 1.22+ method patterns)
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", HealthCheck)

	// Folder routes
	mux.HandleFunc("GET /api/folders", h.Folders.ListFolders)
	mux.HandleFunc("POST /api/folders", h.Folders.CreateFolder)
	mux.HandleFunc("GET /api/folders/{id}", h.Folders.GetFolder)
	mux.HandleFunc("PATCH /api/folders/{id}", h.Folders.UpdateFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", h.Folders.DeleteFolder)

	// Sharing routes
	mux.HandleFunc("GET /api/folders/{id}/shares", h.Shares.ListShares)
	mux.HandleFunc("POST /api/folders/{id}/shares", h.Shares.ShareFolder)
	mux.HandleFunc("PATCH /api/folders/{id}/shares/{userID}", h.Shares.UpdateShare)
	mux.HandleFunc("DELETE /api/folders/{id}/shares/{userID}", h.Shares.RemoveShare)
	mux.HandleFunc("GET /api/folders/{id}/public-link", h.Shares.GetPublicLink)
	mux.HandleFunc("POST /api/folders/{id}/public-link", h.Shares.CreatePublicLink)
	mux.HandleFunc("DELETE /api/folders/{id}/public-link", h.Shares.RevokePublicLink)
	mux.HandleFunc("GET /api/shared-with-me", h.Shares.SharedWithMe)

	// File routes
	mux.HandleFunc("GET /api/files", h.Files.ListFiles)
	mux.HandleFunc("POST /api/files", h.Files.UploadFile)
	mux.HandleFunc("GET /api/files/{id}", h.Files.GetFile)
	mux.HandleFunc("DELETE /api/files/{id}", h.Files.DeleteFile)
	mux.HandleFunc("PATCH /api/files/{id}/folder", h.Files.MoveFile)
	mux.HandleFunc("GET /api/files/{id}/content", h.Files.DownloadFile)

	// Public link routes (no authentication)
	mux.HandleFunc("GET /public/{token}", h.Public.OpenLink)
	mux.HandleFunc("GET /public/{token}/folders/{folderID}", h.Public.OpenFolder)
	mux.HandleFunc("GET /public/{token}/files/{fileID}/content", h.Public.DownloadFile)
}
