package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/rushteam/ratingkit/core"
	"github.com/rushteam/ratingkit/pkg/logging"
)

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, r, status, ErrorResponse{Error: msg, Code: code})
}

// writeDomainError 按错误分类映射状态码。
// INVALID_INPUT -> 400，NOT_FOUND -> 404，PREDICTION_FAILED -> 500，其他 -> 500 INTERNAL_ERROR。
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	de := core.GetDomainError(err)
	switch {
	case de == nil:
		writeError(w, r, http.StatusInternalServerError, core.ErrorCodeInternalError, "internal error")
	case de.Code == core.ErrorCodeInvalidInput:
		writeError(w, r, http.StatusBadRequest, de.Code, de.Message)
	case de.Code == core.ErrorCodeNotFound:
		writeError(w, r, http.StatusNotFound, de.Code, de.Message)
	case de.Code == core.ErrorCodePredictionFailed:
		writeError(w, r, http.StatusInternalServerError, de.Code, "Prediction error: "+de.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, core.ErrorCodeInternalError, "internal error")
	}
}
