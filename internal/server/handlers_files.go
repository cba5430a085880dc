package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sealdrop/internal/api"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.withLimiter(w, r, s.uploadLimiter, "upload", func() {
		s.serveUpload(w, r)
	})
}

func (s *Server) serveUpload(w http.ResponseWriter, r *http.Request) {
	uploader, ok := userFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("no authenticated user")))
		return
	}

	// Multipart framing overhead rides on top of the payload cap.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(s.multipartMemory); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				s.log().Error("remove multipart temp files", "error", err)
			}
		}
	}()

	file, header, err := r.FormFile("document")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("document is required"), ErrCodeMissingRequired))
		return
	}
	defer file.Close()

	if header.Size > s.maxUploadBytes {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("document exceeds %d bytes", s.maxUploadBytes), ErrCodeRequestTooLarge))
		return
	}

	recipient := strings.TrimSpace(r.FormValue("recipient_username"))
	if recipient == "" {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("recipient_username is required"), ErrCodeMissingRequired))
		return
	}

	mimeType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	result, err := s.uploadService.Upload(r.Context(), UploadInput{
		Uploader:          uploader,
		RecipientUsername: recipient,
		OriginalName:      header.Filename,
		MimeType:          mimeType,
		Content:           io.LimitReader(file, s.maxUploadBytes),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	message := "file stored; decryption key sent to recipient"
	if !result.Notified {
		message = "file stored; deliver the decryption key to the recipient yourself"
	}
	s.writeJSON(w, http.StatusCreated, api.UploadResponse{
		Message:       message,
		DownloadToken: result.Record.DownloadToken,
		Secret:        result.Secret,
		OriginalName:  result.Record.OriginalName,
	})
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("no authenticated user")))
		return
	}

	records, err := s.store.ListPendingByRecipient(r.Context(), user.ID, s.ttl, time.Now().UTC())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := api.InboxResponse{Files: []api.InboxEntry{}}
	for _, record := range records {
		resp.Files = append(resp.Files, api.InboxEntry{
			FileID:       record.DownloadToken,
			OriginalName: record.OriginalName,
			DateSent:     record.CreatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDownloadEncrypted(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("no authenticated user")))
		return
	}
	s.withLimiter(w, r, s.downloadLimiter, "download", func() {
		s.serveDownload(w, r, user.ID)
	})
}

func (s *Server) handleDownloadByToken(w http.ResponseWriter, r *http.Request) {
	s.withLimiter(w, r, s.downloadLimiter, "download", func() {
		s.serveDownload(w, r, "")
	})
}

// serveDownload claims the record and then streams ciphertext. A
// stream failure after the claim leaves the record spent on purpose:
// the token must never become retryable once bytes started flowing.
func (s *Server) serveDownload(w http.ResponseWriter, r *http.Request, recipientID string) {
	token := r.PathValue("token")

	record, rc, err := s.downloadService.Resolve(r.Context(), token, recipientID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.OriginalName+".enc"))

	if _, err := io.Copy(w, rc); err != nil {
		s.log().Error("download stream interrupted, record left claimed",
			"record_id", record.ID, "error", err)
		return
	}

	// The client cancelling after the last byte must not abort cleanup.
	s.downloadService.Cleanup(context.WithoutCancel(r.Context()), record)
}

func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	var req api.DecryptRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	plaintext, err := s.downloadService.Decrypt(req.Data, req.Secret, req.OriginalName)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.DecryptResponse{
		FileName: req.OriginalName,
		Data:     base64.StdEncoding.EncodeToString(plaintext),
	})
}
