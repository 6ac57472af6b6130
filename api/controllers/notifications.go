package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/api/middleware"
	"github.com/hmkwon/dishpatch-backend/api/responses"
	"github.com/hmkwon/dishpatch-backend/internal/notifications"
	"github.com/hmkwon/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/hmkwon/dishpatch-backend/pkg/errors"
	"github.com/hmkwon/dishpatch-backend/pkg/logger"
)

const streamHeartbeat = 15 * time.Second

// actorTopics maps the authenticated actor to the notification topics it may
// read. Customers follow their own feed, owners follow their store's feed.
func actorTopics(r *http.Request, userID uuid.UUID) []string {
	switch middleware.RoleFromContext(r.Context()) {
	case enums.RoleCustomer:
		return []string{notifications.TopicCustomer(userID)}
	case enums.RoleOwner:
		if storeID, ok := middleware.StoreIDFromContext(r.Context()); ok {
			return []string{notifications.TopicStore(storeID)}
		}
	}
	return nil
}

func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), actorTopics(r, userID), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		notificationID, err := pathUUID(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), actorTopics(r, userID), notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}

// EventStream serves the actor's notification topic over SSE. Clients that
// miss events (dropped on a full buffer) get a lagged marker and re-fetch
// via the list endpoint.
func EventStream(hub *notifications.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		topics := actorTopics(r, userID)
		if len(topics) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "no event stream for role"))
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		sub := hub.Subscribe(topics[0])
		defer hub.Unsubscribe(sub)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			case event, open := <-sub.Events():
				if !open {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					if logg != nil {
						logg.Error(r.Context(), "encode stream event", err)
					}
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, data)
				if sub.Lagged() {
					fmt.Fprint(w, "event: lagged\ndata: {}\n\n")
				}
				flusher.Flush()
			}
		}
	}
}
