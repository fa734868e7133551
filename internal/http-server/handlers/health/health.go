package health

import (
	"net/http"

	"etgcatalog/internal/http-server/respond"
)

func NewGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			respond.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET only")
			return
		}
		respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
