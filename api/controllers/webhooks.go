package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opslog-io/opslog-backend/api/middleware"
	"github.com/opslog-io/opslog-backend/api/responses"
	"github.com/opslog-io/opslog-backend/api/validators"
	"github.com/opslog-io/opslog-backend/internal/webhooks"
	pkgerrors "github.com/opslog-io/opslog-backend/pkg/errors"
	"github.com/opslog-io/opslog-backend/pkg/logger"
)

type createWebhookRequest struct {
	Name             string   `json:"name" validate:"required,min=1,max=120"`
	URL              string   `json:"url" validate:"required,url"`
	Secret           string   `json:"secret" validate:"omitempty,max=200"`
	GenerateSecret   bool     `json:"generateSecret"`
	SubscribedEvents []string `json:"subscribedEvents" validate:"required,min=1"`
}

type updateWebhookRequest struct {
	Name             *string  `json:"name" validate:"omitempty,min=1,max=120"`
	URL              *string  `json:"url" validate:"omitempty,url"`
	Secret           *string  `json:"secret" validate:"omitempty,max=200"`
	SubscribedEvents []string `json:"subscribedEvents" validate:"omitempty,min=1"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// CreateWebhook registers a new endpoint for the tenant in the route.
func CreateWebhook(svc webhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhooks service unavailable"))
			return
		}

		var body createWebhookRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateEndpoint(r.Context(), webhooks.CreateEndpointParams{
			TenantID:         middleware.TenantIDFromContext(r.Context()),
			Name:             body.Name,
			URL:              body.URL,
			Secret:           body.Secret,
			GenerateSecret:   body.GenerateSecret,
			SubscribedEvents: body.SubscribedEvents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// ListWebhooks returns the tenant's endpoints.
func ListWebhooks(svc webhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhooks service unavailable"))
			return
		}

		views, err := svc.ListEndpoints(r.Context(), middleware.TenantIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

// GetWebhook returns a single endpoint.
func GetWebhook(svc webhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpointID, ok := endpointIDFromRequest(w, r, logg)
		if !ok {
			return
		}

		view, err := svc.GetEndpoint(r.Context(), middleware.TenantIDFromContext(r.Context()), endpointID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// UpdateWebhook applies a partial update to an endpoint.
func UpdateWebhook(svc webhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpointID, ok := endpointIDFromRequest(w, r, logg)
		if !ok {
			return
		}

		var body updateWebhookRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.UpdateEndpoint(r.Context(), webhooks.UpdateEndpointParams{
			TenantID:         middleware.TenantIDFromContext(r.Context()),
			EndpointID:       endpointID,
			Name:             body.Name,
			URL:              body.URL,
			Secret:           body.Secret,
			SubscribedEvents: body.SubscribedEvents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// SetWebhookActive enables or disables an endpoint. This is the only way a
// disabled endpoint comes back to life.
func SetWebhookActive(svc webhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpointID, ok := endpointIDFromRequest(w, r, logg)
		if !ok {
			return
		}

		var body setActiveRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tenantID := middleware.TenantIDFromContext(r.Context())
		if err := svc.SetActive(r.Context(), tenantID, endpointID, *body.Active); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.GetEndpoint(r.Context(), tenantID, endpointID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// DeleteWebhook removes an endpoint and its configuration.
func DeleteWebhook(svc webhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpointID, ok := endpointIDFromRequest(w, r, logg)
		if !ok {
			return
		}

		if err := svc.DeleteEndpoint(r.Context(), middleware.TenantIDFromContext(r.Context()), endpointID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

// TestWebhook sends a canned delivery to the endpoint and returns the
// resulting record, whether it succeeded or not.
func TestWebhook(svc webhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpointID, ok := endpointIDFromRequest(w, r, logg)
		if !ok {
			return
		}

		view, err := svc.TestDelivery(r.Context(), middleware.TenantIDFromContext(r.Context()), endpointID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// ListWebhookDeliveries returns paginated delivery history, newest first.
func ListWebhookDeliveries(svc webhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpointID, ok := endpointIDFromRequest(w, r, logg)
		if !ok {
			return
		}

		params := webhooks.HistoryParams{
			TenantID:   middleware.TenantIDFromContext(r.Context()),
			EndpointID: endpointID,
		}
		if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			params.Limit = value
		}
		if cursor := strings.TrimSpace(r.URL.Query().Get("cursor")); cursor != "" {
			params.Cursor = cursor
		}

		resp, err := svc.DeliveryHistory(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// WebhookStats returns lifetime success/failure counts for an endpoint.
func WebhookStats(svc webhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpointID, ok := endpointIDFromRequest(w, r, logg)
		if !ok {
			return
		}

		stats, err := svc.DeliveryStats(r.Context(), middleware.TenantIDFromContext(r.Context()), endpointID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func endpointIDFromRequest(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	endpointID, err := uuid.Parse(chi.URLParam(r, "endpointID"))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid endpoint id"))
		return uuid.Nil, false
	}
	return endpointID, true
}
