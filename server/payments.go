package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/vitalvas/stickergen/payment"
)

// CreatePaymentRequest is the optional body of POST /api/payments.
type CreatePaymentRequest struct {
	PackageTitle string `json:"packageTitle"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := bindJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeBindError(w, err)
		return
	}

	order := s.payments.Create(s.cfg.Payment.Amount, req.PackageTitle)

	w.Header().Set("Location", "/api/payments/"+order.ID)
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	order, err := s.payments.Get(mux.Vars(r)["id"])
	if err != nil {
		writePaymentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	order, err := s.payments.Confirm(mux.Vars(r)["id"])
	if err != nil {
		writePaymentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func writePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payment.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, payment.ErrOrderFinal):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
	}
}
