package server

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ahmethakanbesel/price-tracker/internal/apperror"
	"github.com/ahmethakanbesel/price-tracker/internal/report"
)

type APIResponse[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func writeJSON[T any](w http.ResponseWriter, status int, data T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse[T]{
		Message: "ok",
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse[string]{
		Message: message,
		Data:    "",
	})
}

// writeServiceError maps err to its HTTP status. Errors without an
// application code are internal and their text is not exposed.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if ae, ok := apperror.As(err); ok {
		writeError(w, ae.HTTPStatus(), ae.Message())
		return
	}
	slog.Error("request failed", "path", r.URL.Path, "requestID", r.Context().Value(requestIDKey), "error", err) //nolint:gosec // structured logging
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeCSV(w http.ResponseWriter, reports []report.DynamicReport) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=price-dynamic.csv")
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Product", "Marketplace", "Date", "Price"})
	for _, r := range reports {
		for _, p := range r.Prices {
			_ = cw.Write([]string{r.ProductName, r.MarketplaceName, p.Date, p.Price.String()})
		}
	}
	cw.Flush()
}
