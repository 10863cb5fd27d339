package web

import (
	"net/http"

	"bookworm/internal/auth"
)

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	stats, err := h.admin.Dashboard(v.APIContext(r.Context()))
	if err != nil {
		logError(r, "web.dashboard", err)
		h.renderError(w, r, upstreamStatus(err), "Failed to load dashboard data. Please try again.")
		return
	}
	h.render(w, r, http.StatusOK, "admin", "Admin Dashboard", stats)
}
