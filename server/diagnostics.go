package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/vitalvas/stickergen/hmacsig"
	"github.com/vitalvas/stickergen/provider"
)

// DefaultTestPrompt is used by the test generation when no prompt is sent.
const DefaultTestPrompt = "一只可爱的柴犬，开心表情"

// CredentialStatus describes a credential pair without exposing it.
type CredentialStatus struct {
	HasAccessKey    bool   `json:"hasAccessKey"`
	HasSecretKey    bool   `json:"hasSecretKey"`
	AccessKeyLength int    `json:"accessKeyLength"`
	SecretKeyLength int    `json:"secretKeyLength"`
	AccessKeyPrefix string `json:"accessKeyPrefix"`
	SecretKeyPrefix string `json:"secretKeyPrefix"`
	Override        bool   `json:"override"`
}

// DiagnosticsResponse is the body of GET /api/test-jimeng.
type DiagnosticsResponse struct {
	Status         string           `json:"status"`
	UseRealAPI     bool             `json:"useRealAPI"`
	ConfigComplete bool             `json:"configComplete"`
	Credentials    CredentialStatus `json:"credentials"`
	Message        string           `json:"message"`
	TestEndpoint   string           `json:"testEndpoint"`
}

// TestGenerationRequest is the optional body of POST /api/test-jimeng.
type TestGenerationRequest struct {
	Prompt string `json:"prompt"`
}

// TestGenerationResponse is the body of a successful test generation.
type TestGenerationResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	RequestID  string `json:"requestId"`
	ImageCount int    `json:"imageCount"`
	HasImage   bool   `json:"hasImage"`
	Prompt     string `json:"prompt"`
}

func credentialStatus(c hmacsig.Credentials, override bool) CredentialStatus {
	return CredentialStatus{
		HasAccessKey:    c.AccessKeyID != "",
		HasSecretKey:    c.SecretAccessKey != "",
		AccessKeyLength: len(c.AccessKeyID),
		SecretKeyLength: len(c.SecretAccessKey),
		AccessKeyPrefix: hmacsig.Prefix(c.AccessKeyID),
		SecretKeyPrefix: hmacsig.Prefix(c.SecretAccessKey),
		Override:        override,
	}
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	creds, override := s.credentials(r)

	msg := "当前使用演示模式"
	if s.cfg.UseRealAPI {
		msg = "当前使用真实API模式"
	}

	writeJSON(w, http.StatusOK, DiagnosticsResponse{
		Status:         "ready",
		UseRealAPI:     s.cfg.UseRealAPI,
		ConfigComplete: creds.Validate() == nil,
		Credentials:    credentialStatus(creds, override),
		Message:        msg,
		TestEndpoint:   "/api/test-jimeng (POST)",
	})
}

// handleTestGeneration runs one generation call with the request's
// credentials, regardless of the real-API switch.
func (s *Server) handleTestGeneration(w http.ResponseWriter, r *http.Request) {
	var req TestGenerationRequest
	if err := bindJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeBindError(w, err)
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		req.Prompt = DefaultTestPrompt
	}

	creds, _ := s.credentials(r)
	if err := creds.Validate(); err != nil {
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, err.Error())
		return
	}

	gen, err := s.newGenerator(creds)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, err.Error())
		return
	}

	resp, err := gen.GenerateImage(r.Context(), provider.ImageRequest{
		Prompt: req.Prompt,
		Seed:   provider.RandomSeed,
		Width:  s.cfg.Provider.Width,
		Height: s.cfg.Provider.Height,
	})
	if err != nil {
		writeGenerationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TestGenerationResponse{
		Success:    true,
		Message:    "即梦AI API测试成功",
		RequestID:  resp.RequestID,
		ImageCount: len(resp.Data.ImageURLs) + len(resp.Data.BinaryDataBase64),
		HasImage:   resp.HasImage(),
		Prompt:     req.Prompt,
	})
}

// writeGenerationError maps provider errors onto HTTP statuses.
func writeGenerationError(w http.ResponseWriter, err error) {
	var te *provider.TransportError

	switch {
	case provider.IsContentPolicy(err):
		writeError(w, http.StatusUnprocessableEntity, codeContentPolicy, provider.Reason(err))
	case errors.As(err, &te):
		writeError(w, http.StatusBadGateway, codeUpstream, te.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
	}
}
