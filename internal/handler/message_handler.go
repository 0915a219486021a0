/*
Package handler provides HTTP handler functions for relaying direct messages.

Messages are pushed to the receiver's live connection and are not stored: an offline receiver
is reported back to the sender instead.
*/
package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hzpresence/internal/app/metrics"
	"hzpresence/internal/app/presence"
	"hzpresence/internal/pkg/errs"
	"hzpresence/internal/pkg/logx"
	"hzpresence/internal/pkg/randx"
	"hzpresence/internal/pkg/req"
	"hzpresence/internal/pkg/resp"
)

// MaxMessageBytes is the largest accepted message text.
const MaxMessageBytes = 5000

// SendMessageInput is the body of POST /api/messages/{receiverID}.
type SendMessageInput struct {
	SenderID string `json:"senderId" validate:"required,max=256"`
	Text     string `json:"text" validate:"required"`
}

// HandleSendMessage relays a text message to the receiver's connection.
func HandleSendMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receiverID := chi.URLParam(r, "receiverID")
		if receiverID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var input SendMessageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if len(input.Text) > MaxMessageBytes {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageContentTooLong))
			return
		}

		msg := presence.NewDirectMessage(randx.MessageID(), input.SenderID, receiverID, input.Text)

		payload, err := presence.Encode(msg)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		if err := deps.Hub.SendTo(receiverID, payload); err != nil {
			logx.Info("Direct message not delivered", "receiver_id", receiverID, "reason", err.Error())

			switch {
			case errors.Is(err, presence.ErrUserOffline):
				resp.RespondError(w, r, errs.NewError(errs.ErrReceiverOffline, receiverID))
			case errors.Is(err, presence.ErrSendDropped):
				resp.RespondError(w, r, errs.NewError(errs.ErrMessageNotDelivered))
			default:
				resp.RespondError(w, r, errs.NewError(errs.ErrServiceUnavailable))
			}
			return
		}

		deps.Metrics.MessageSent(metrics.MessageTypeText)

		resp.RespondSuccess(w, r, msg)
	}
}
