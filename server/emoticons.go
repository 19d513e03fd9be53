package server

import (
	"bytes"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/vitalvas/stickergen/bundle"
	"github.com/vitalvas/stickergen/imaging"
)

// ProcessRequest is the body of POST /api/emoticons/process.
type ProcessRequest struct {
	ImageURL  string `json:"imageUrl"`
	Keyword   string `json:"keyword"`
	Watermark bool   `json:"watermark"`
}

// PackageRequest is the body of POST /api/emoticons/package.
type PackageRequest struct {
	Title     string                      `json:"title"`
	Edition   string                      `json:"edition"`
	OrderID   string                      `json:"orderId,omitempty"`
	Banner    bool                        `json:"banner"`
	Emoticons []imaging.ProcessedEmoticon `json:"emoticons"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := bindJSON(r, &req); err != nil {
		writeBindError(w, err)
		return
	}

	if strings.TrimSpace(req.ImageURL) == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "imageUrl is required")
		return
	}

	writeJSON(w, http.StatusOK, s.processor.Process(r.Context(), req.ImageURL, req.Keyword, req.Watermark))
}

// handlePackage streams a ZIP archive. The premium edition requires a paid
// order.
func (s *Server) handlePackage(w http.ResponseWriter, r *http.Request) {
	var req PackageRequest
	if err := bindJSON(r, &req); err != nil {
		writeBindError(w, err)
		return
	}

	edition, err := bundle.ParseEdition(req.Edition)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	if edition == bundle.EditionPremium && !s.payments.IsPaid(req.OrderID) {
		writeError(w, http.StatusPaymentRequired, codePaymentRequired, "premium edition requires a paid order")
		return
	}

	pkg := bundle.Package{
		Title:     strings.TrimSpace(req.Title),
		Edition:   edition,
		Emoticons: req.Emoticons,
		Created:   s.clock(),
	}

	if req.Banner && edition != bundle.EditionSimple && len(req.Emoticons) > 0 {
		banner, err := s.processor.CreateBanner(r.Context(), req.Emoticons, pkg.Title)
		if err != nil {
			s.logger.WarnContext(r.Context(), "banner failed", "error", err)
		} else {
			pkg.Banner = banner
		}
	}

	var buf bytes.Buffer
	if err := bundle.WritePackage(&buf, pkg); err != nil {
		switch {
		case errors.Is(err, bundle.ErrNoEmoticons), errors.Is(err, bundle.ErrInvalidImage):
			writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		}

		return
	}

	name := bundle.Filename(pkg.Title, edition, len(pkg.Emoticons), pkg.Created)

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
