package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/consult"
)

const maxUploadBytes = 32 << 20

type consultRequest struct {
	Text        string `json:"text"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

type followUpRequest struct {
	PreviousResponse string `json:"previous_response"`
	Query            string `json:"query"`
}

type speechRequest struct {
	Text string `json:"text"`
}

type replyResponse struct {
	*consult.Reply
	SessionID   string `json:"session_id"`
	AudioBase64 string `json:"audio_base64,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if !s.consultEnabled(w) {
		return
	}
	sess := s.doctor.Sessions().Create()
	s.logger.Debug("session created", zap.String("id", sess.ID))
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	if !s.consultEnabled(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.doctor.Sessions().Reset(r.Context(), id); err != nil {
		s.respondSessionError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "reset"})
}

func (s *Server) handleConsult(w http.ResponseWriter, r *http.Request) {
	if !s.consultEnabled(w) {
		return
	}
	sess, err := s.doctor.Sessions().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondSessionError(w, err)
		return
	}
	req, err := parseConsultRequest(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	reply, err := s.doctor.Consult(r.Context(), sess, req)
	if err != nil {
		s.logger.Error("consultation failed", zap.String("session", sess.ID), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondReply(w, sess.ID, reply)
}

func (s *Server) handleFollowUp(w http.ResponseWriter, r *http.Request) {
	if !s.consultEnabled(w) {
		return
	}
	sess, err := s.doctor.Sessions().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondSessionError(w, err)
		return
	}
	var req followUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reply, err := s.doctor.FollowUp(r.Context(), sess, req.PreviousResponse, req.Query)
	if err != nil {
		s.logger.Error("follow-up failed", zap.String("session", sess.ID), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondReply(w, sess.ID, reply)
}

func (s *Server) handleSessionLog(w http.ResponseWriter, r *http.Request) {
	if !s.consultEnabled(w) {
		return
	}
	sess, err := s.doctor.Sessions().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondSessionError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="consultation_history.txt"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, sess.Log())
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if !s.consultEnabled(w) {
		return
	}
	if !s.doctor.TranscriptionEnabled() {
		s.respondError(w, http.StatusNotImplemented, "audio input not enabled")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "expected multipart form with an audio file")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	text, err := s.doctor.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		s.logger.Error("transcription failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if !s.consultEnabled(w) {
		return
	}
	if !s.doctor.SpeechEnabled() {
		s.respondError(w, http.StatusNotImplemented, "speech output not enabled")
		return
	}
	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	audio, err := s.doctor.Speak(r.Context(), req.Text)
	if err != nil {
		s.logger.Error("speech synthesis failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

// parseConsultRequest accepts JSON or a multipart form with text, audio and image parts.
func parseConsultRequest(r *http.Request) (consult.Request, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return parseConsultForm(r)
	}

	var body consultRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return consult.Request{}, errors.New("invalid request body")
	}
	req := consult.Request{Text: body.Text}
	if body.ImageBase64 != "" {
		img, err := base64.StdEncoding.DecodeString(body.ImageBase64)
		if err != nil {
			return consult.Request{}, errors.New("image_base64 is not valid base64")
		}
		req.Image = img
	}
	return req, nil
}

func parseConsultForm(r *http.Request) (consult.Request, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return consult.Request{}, errors.New("invalid multipart form")
	}
	req := consult.Request{Text: r.FormValue("text")}

	if file, header, err := r.FormFile("audio"); err == nil {
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return consult.Request{}, errors.New("failed to read audio file")
		}
		req.Audio = bytes.NewReader(data)
		req.AudioName = header.Filename
	}
	if file, _, err := r.FormFile("image"); err == nil {
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return consult.Request{}, errors.New("failed to read image file")
		}
		req.Image = data
	}
	return req, nil
}

func (s *Server) respondReply(w http.ResponseWriter, sessionID string, reply *consult.Reply) {
	resp := replyResponse{Reply: reply, SessionID: sessionID}
	if len(reply.Audio) > 0 {
		resp.AudioBase64 = base64.StdEncoding.EncodeToString(reply.Audio)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, consult.ErrSessionNotFound) {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.logger.Error("session lookup failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) consultEnabled(w http.ResponseWriter) bool {
	if s.doctor == nil {
		s.respondError(w, http.StatusNotImplemented, "consultation not enabled")
		return false
	}
	return true
}
