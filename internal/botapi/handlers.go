package botapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// sendFileRequest is POST /api/v1/send_file.
type sendFileRequest struct {
	FileData    string `json:"file_data"`
	FileName    string `json:"file_name"`
	Caption     string `json:"caption"`
	RecipientID int64  `json:"recipient_id,omitempty"`
}

// sendFileResponse is POST /api/v1/send_file.
type sendFileResponse struct {
	Success   bool `json:"success"`
	MessageID int  `json:"message_id"`
}

func (s *Server) handleSendFile(w http.ResponseWriter, r *http.Request) {
	var req sendFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.FileData == "" || req.FileName == "" {
		writeError(w, http.StatusBadRequest, "file_data and file_name are required")
		return
	}

	raw, err := base64.StdEncoding.DecodeString(req.FileData)
	if err != nil {
		writeError(w, http.StatusBadRequest, "file_data is not valid base64")
		return
	}

	messageID, err := s.sender.SendFile(r.Context(), raw, req.FileName, req.Caption, req.RecipientID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, sendFileResponse{Success: true, MessageID: messageID})
}
