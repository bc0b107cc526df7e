package handlers

import (
	"net/http"

	apperrors "github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/pkg/reqctx"
	"github.com/go-chi/render"
)

// errorResponse представляет структуру ответа с ошибкой
type errorResponse struct {
	Error   string      `json:"error"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// response представляет структуру успешного ответа
type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	render.Status(r, status)
	render.JSON(w, r, response{Success: true, Data: data})
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse{
		Error:   string(apperrors.KindValidation),
		Code:    http.StatusBadRequest,
		Message: message,
	})
}

// writeError отдает ошибку сервиса клиенту. Код ответа определяется категорией ошибки,
// текст нетипизированных ошибок наружу не попадает
func writeError(w http.ResponseWriter, r *http.Request, logger interfaces.LoggerPort, err error, data interface{}) {
	status := apperrors.HTTPStatus(err)
	kind := apperrors.KindOf(err)

	message := err.Error()
	if _, typed := apperrors.As(err); !typed {
		message = "internal error"
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorWithContext(r.Context(), "Ошибка обработки запроса",
			"kind", string(kind),
			"error", err.Error(),
		)
	}

	render.Status(r, status)
	render.JSON(w, r, errorResponse{
		Error:   string(kind),
		Code:    status,
		Message: message,
		Data:    data,
	})
}

// accountID возвращает аккаунт аутентифицированного пользователя
func accountID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := reqctx.AccountID(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, errorResponse{
			Error: "unauthorized",
			Code:  http.StatusUnauthorized,
		})
		return "", false
	}
	return id, true
}
