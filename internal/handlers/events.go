package handlers

import (
	"log"
	"net/http"

	"markin/internal/middleware"
	"markin/internal/notify"
)

// subscribeEvents attaches the caller to the live event stream under the
// identity from the session cookie. Blocks until the client disconnects.
func subscribeEvents(w http.ResponseWriter, r *http.Request, notifier *notify.Notifier) {
	userID := middleware.GetUserID(r)
	role := middleware.GetUserRole(r)

	if err := notifier.Subscribe(w, r, userID, role); err != nil {
		log.Printf("ERROR: event stream for %s %s failed: %v", role, userID, err)
	}
}
